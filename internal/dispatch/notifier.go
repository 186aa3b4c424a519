package dispatch

import "github.com/sirupsen/logrus"

type AlertLevel string

const (
	AlertInfo  AlertLevel = "info"
	AlertError AlertLevel = "error"
)

// Alert is a message for the user.
type Alert struct {
	Level   AlertLevel
	Title   string
	Message string
}

type Notifier interface {
	Alert(a Alert)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Alert)

func (f NotifierFunc) Alert(a Alert) {
	f(a)
}

// LogNotifier reports alerts through a logger.
type LogNotifier struct {
	Log logrus.FieldLogger
}

func (n LogNotifier) Alert(a Alert) {
	entry := n.Log.WithField("title", a.Title)
	if a.Level == AlertError {
		entry.Error(a.Message)
		return
	}
	entry.Info(a.Message)
}

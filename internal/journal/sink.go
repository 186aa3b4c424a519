package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/sirupsen/logrus"
)

// Sink receives serialized dispatch events keyed by topic.
type Sink interface {
	WriteMessage(topic string, msg []byte) error
	Close() error
}

// Recorder serializes dispatch events onto a Sink. A failing sink is logged
// and never interrupts the dispatch flow.
type Recorder struct {
	sink Sink
	log  logrus.FieldLogger
}

func NewRecorder(sink Sink, log logrus.FieldLogger) *Recorder {
	if sink == nil {
		sink = NopSink{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{sink: sink, log: log}
}

func (r *Recorder) Record(event models.DispatchEvent) {
	if r == nil {
		return
	}
	msg, err := json.Marshal(event)
	if err != nil {
		r.log.WithError(err).WithField("event", event.EventType).Error("Failed to encode dispatch event")
		return
	}
	if err := r.sink.WriteMessage(event.Topic(), msg); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"event":    event.EventType,
			"order_id": event.OrderID,
		}).Warn("Failed to write dispatch event")
	}
}

func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	return r.sink.Close()
}

type NopSink struct{}

func (NopSink) WriteMessage(string, []byte) error { return nil }
func (NopSink) Close() error                      { return nil }

// ConsoleSink prints "[topic] message" lines.
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{w: w}
}

func (c *ConsoleSink) WriteMessage(topic string, msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.w, "[%s] %s\n", topic, msg); err != nil {
		return fmt.Errorf("failed to write to console: %w", err)
	}
	return nil
}

func (c *ConsoleSink) Close() error {
	return nil
}

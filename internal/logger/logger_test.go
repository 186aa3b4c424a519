package logger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/chrisdamba/homeservices/internal/logger"
	"github.com/sirupsen/logrus"
)

func TestNew(t *testing.T) {
	t.Run("json format writes one object per entry with fields", func(t *testing.T) {
		buf := new(bytes.Buffer)
		l, err := logger.New(buf, "debug", "json")
		if err != nil {
			t.Fatal(err)
		}
		l.WithField("order_id", "o-1").Info("polling")

		var entry map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("output is not json: %v (%q)", err, buf.String())
		}
		if entry["order_id"] != "o-1" || entry["msg"] != "polling" {
			t.Errorf("unexpected entry: %v", entry)
		}
	})

	t.Run("entries below the level are dropped", func(t *testing.T) {
		buf := new(bytes.Buffer)
		l, err := logger.New(buf, "warn", "text")
		if err != nil {
			t.Fatal(err)
		}
		l.Info("hidden")
		l.Warn("shown")
		if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
			t.Errorf("unexpected output %q", buf.String())
		}
		if l.GetLevel() != logrus.WarnLevel {
			t.Errorf("level = %s", l.GetLevel())
		}
	})

	for _, tc := range []struct{ level, format string }{
		{"loud", "text"},
		{"info", "xml"},
	} {
		t.Run("it rejects level "+tc.level+" with format "+tc.format, func(t *testing.T) {
			if _, err := logger.New(new(bytes.Buffer), tc.level, tc.format); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

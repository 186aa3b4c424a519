package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONSink appends events as JSON lines, one file per topic and hour:
// <base>/<folder>/<topic>/year=YYYY/month=MM/day=DD/hour=HH/data.json
type JSONSink struct {
	basePath string
	folder   string

	mu    sync.Mutex
	files map[string]*os.File
}

func NewJSONSink(basePath, folder string) *JSONSink {
	return &JSONSink{
		basePath: basePath,
		folder:   folder,
		files:    make(map[string]*os.File),
	}
}

func (j *JSONSink) WriteMessage(topic string, msg []byte) error {
	var event struct {
		Timestamp *int64 `json:"timestamp"`
	}
	if err := json.Unmarshal(msg, &event); err != nil {
		return err
	}
	if event.Timestamp == nil {
		return fmt.Errorf("invalid timestamp")
	}

	fullPath := filepath.Join(j.basePath, j.folder, topic, partitionPath(time.Unix(*event.Timestamp, 0)))

	j.mu.Lock()
	defer j.mu.Unlock()

	file, ok := j.files[fullPath]
	if !ok {
		if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
			return err
		}
		var err error
		file, err = os.OpenFile(filepath.Join(fullPath, "data.json"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		j.files[fullPath] = file
	}

	if _, err := file.Write(msg); err != nil {
		return err
	}
	_, err := file.WriteString("\n")
	return err
}

func (j *JSONSink) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	var lastErr error
	for key, file := range j.files {
		if err := file.Close(); err != nil {
			lastErr = err
		}
		delete(j.files, key)
	}
	return lastErr
}

func partitionPath(t time.Time) string {
	t = t.UTC()
	year, month, day := t.Date()
	return fmt.Sprintf("year=%d/month=%02d/day=%02d/hour=%02d", year, month, day, t.Hour())
}

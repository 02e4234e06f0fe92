package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// EventLog is the append-only line-delimited record store and the sole
// source of truth for all events. Appends are single lines, so records
// are never corrupted mid-write even when two ingestions interleave;
// there is deliberately no locking around the file. A scan running
// concurrently with an in-flight append may or may not observe the
// newest record.
type EventLog struct {
	path string
}

// NewEventLog creates an event log backed by the given JSONL file
func NewEventLog(path string) *EventLog {
	return &EventLog{path: path}
}

// Path returns the log file path
func (l *EventLog) Path() string {
	return l.path
}

// Append marshals v and appends it to the log as one line. The write
// happens only after the caller has persisted any blob the record
// references; a failed blob write must abort before Append is called.
func (l *EventLog) Append(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Open returns a reader over the raw log for scanning. A missing log
// file reads as empty.
func (l *EventLog) Open() (io.ReadCloser, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return io.NopCloser(strings.NewReader("")), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return f, nil
}

// Package logger provides an optional JSON-lines recorder for broadcast
// envelopes.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/collab-workspace/backend/internal/model"
)

// EventLog records broadcast envelopes as JSON lines, one envelope per line.
// It is an observability artifact: the file is never read back by the
// server, and state recovery does not depend on it.
type EventLog struct {
	writer io.Writer
	file   *os.File // only set if we own the file
	mu     sync.Mutex
}

// NewEventLog creates an EventLog that appends to the given file path.
func NewEventLog(filePath string) (*EventLog, error) {
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}

	return &EventLog{
		writer: file,
		file:   file,
	}, nil
}

// NewEventLogWithWriter creates an EventLog that writes to the given writer.
// This is useful for testing.
func NewEventLogWithWriter(w io.Writer) *EventLog {
	return &EventLog{writer: w}
}

// Record appends one envelope as a JSON line.
func (l *EventLog) Record(msg *model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// Close closes the log file.
func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

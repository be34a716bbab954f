package httpapi

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

const auditCapacity = 200

// auditEntry records a single authenticated API request.
type auditEntry struct {
	Time       time.Time `json:"time"`
	UserID     string    `json:"user_id,omitempty"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	RemoteAddr string    `json:"remote_addr"`
	DurationMS int64     `json:"duration_ms"`
}

// auditLog keeps the most recent entries in memory and optionally
// mirrors them to a sink.
type auditLog struct {
	mu      sync.Mutex
	entries []auditEntry
	sink    auditSink
}

type auditSink interface {
	Write(entry auditEntry) error
}

func newAuditLog(sink auditSink) *auditLog {
	return &auditLog{sink: sink}
}

func (l *auditLog) Record(entry auditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > auditCapacity {
		l.entries = l.entries[len(l.entries)-auditCapacity:]
	}
	sink := l.sink
	l.mu.Unlock()

	if sink != nil {
		_ = sink.Write(entry)
	}
}

// Recent returns up to limit entries for the given user, newest first.
func (l *auditLog) Recent(userID string, limit int) []auditEntry {
	if limit <= 0 || limit > auditCapacity {
		limit = 50
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]auditEntry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if l.entries[i].UserID == userID {
			out = append(out, l.entries[i])
		}
	}
	return out
}

// fileAuditSink appends entries as JSON lines to a file.
type fileAuditSink struct {
	mu   sync.Mutex
	path string
}

func newFileAuditSink(path string) *fileAuditSink {
	return &fileAuditSink{path: path}
}

func (s *fileAuditSink) Write(entry auditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = f.Write(append(line, '\n'))
	return err
}

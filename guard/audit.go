package guard

import (
	"context"
	"strings"
	"time"

	"github.com/nyxmori/warden/audit"
)

// AuditEvent is one decision worth remembering: every deny, plus the
// designated sensitive allowed operations (command executions, file
// writes).
type AuditEvent struct {
	EventID string
	RunID   string
	Time    time.Time

	Type     string
	Decision Decision
	Reasons  []string

	// SummaryRedacted describes the action with secrets scrubbed.
	SummaryRedacted string
}

type AuditSink interface {
	Emit(ctx context.Context, e AuditEvent) error
	Close() error
}

// LineSink adapts the pipe-delimited audit.Log to the AuditSink
// interface the engine emits through.
type LineSink struct {
	Log *audit.Log
}

func NewLineSink(l *audit.Log) *LineSink {
	return &LineSink{Log: l}
}

func (s *LineSink) Emit(_ context.Context, e AuditEvent) error {
	if s == nil || s.Log == nil {
		return nil
	}
	parts := []string{e.SummaryRedacted}
	if len(e.Reasons) > 0 {
		parts = append(parts, "reasons: "+strings.Join(e.Reasons, "; "))
	}
	if e.RunID != "" {
		parts = append(parts, "run="+e.RunID)
	}
	if e.EventID != "" {
		parts = append(parts, "event="+e.EventID)
	}
	s.Log.Append(e.Type, strings.Join(parts, "; "))
	return nil
}

func (s *LineSink) Close() error { return nil }

package core

import (
	"context"
	"time"
)

// MetricsRecorder aggregates operation outcomes. Implementations must be
// safe for concurrent use.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan finishes a started span with the operation's terminal error.
type TraceSpan interface {
	End(err error)
}

// AuditStatus marks the outcome recorded in an audit entry.
type AuditStatus string

// Audit outcomes.
const (
	AuditStatusSucceeded AuditStatus = "succeeded"
	AuditStatusFailed    AuditStatus = "failed"
)

// AuditEntry captures who did what to the registry and how it ended.
type AuditEntry struct {
	Operation  string         `json:"operation"`
	Actor      Address        `json:"actor,omitempty"`
	Status     AuditStatus    `json:"status"`
	Error      string         `json:"error,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// AuditLogger records registry audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

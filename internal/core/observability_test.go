package core_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"mintcore/internal/core"
	"mintcore/pkg/domain"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := core.NewExpvarMetricsRecorder("")
	if rec.Name() == "" {
		t.Fatalf("expected generated expvar name")
	}
	ctx := context.Background()
	rec.Observe(ctx, "upgrade", true, 10*time.Millisecond)
	rec.Observe(ctx, "upgrade", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond) // ignored

	snap := rec.Snapshot()
	if snap.Results["upgrade"]["success"] != 1 || snap.Results["upgrade"]["error"] != 1 {
		t.Fatalf("unexpected result counters: %+v", snap.Results)
	}
	if snap.DurationsMS["upgrade"] < 15 {
		t.Fatalf("expected at least 15ms recorded, got %f", snap.DurationsMS["upgrade"])
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := core.NewJSONTracer(&buf)

	_, span := tracer.Start(context.Background(), "issue_one")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "upgrade")
	span.End(domain.ErrSupplyExhausted)

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(entries))
	}
	if entries[0].Status != "success" || entries[1].Status != "error" {
		t.Fatalf("unexpected statuses: %+v", entries)
	}
	if entries[1].Error == "" {
		t.Fatalf("error span must carry the message")
	}
	if !strings.Contains(buf.String(), "issue_one") {
		t.Fatalf("expected encoded spans in writer output")
	}
}

type capturingAudit struct {
	mu      sync.Mutex
	entries []core.AuditEntry
}

func (a *capturingAudit) Record(_ context.Context, entry core.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func TestServiceObservesOperations(t *testing.T) {
	env := newTestEnv(t)
	rec := core.NewExpvarMetricsRecorder("")
	tracer := core.NewJSONTracer(nil)
	audit := &capturingAudit{}

	svc := core.NewService(env.store, env.ledger, env.auth,
		core.WithMetricsRecorder(rec),
		core.WithTracer(tracer),
		core.WithAuditLogger(audit),
	)

	if _, _, err := svc.CreateCategory(context.Background(), admin, 5, "creator"); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, _, err := svc.CreateCategory(context.Background(), "mallory", 5, "creator"); err == nil {
		t.Fatalf("expected rejection")
	}

	snap := rec.Snapshot()
	if snap.Results["create_category"]["success"] != 1 || snap.Results["create_category"]["error"] != 1 {
		t.Fatalf("unexpected metrics: %+v", snap.Results)
	}
	if len(tracer.Entries()) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(tracer.Entries()))
	}
	audit.mu.Lock()
	defer audit.mu.Unlock()
	if len(audit.entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(audit.entries))
	}
	if audit.entries[0].Status != core.AuditStatusSucceeded || audit.entries[1].Status != core.AuditStatusFailed {
		t.Fatalf("unexpected audit statuses: %+v", audit.entries)
	}
	if audit.entries[1].Error == "" {
		t.Fatalf("failed audit entry must carry the error")
	}
}

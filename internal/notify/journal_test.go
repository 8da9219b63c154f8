package notify

import (
	"context"
	"testing"
	"time"

	"mintcore/pkg/domain"
)

func TestJournalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	journal := NewJournal(dir)
	frozen := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	journal.nowFn = func() time.Time { return frozen }

	ctx := context.Background()
	journal.CategoryCreated(ctx, "admin", 0, 100)
	journal.ItemIssued(ctx, domain.Item{ID: 1, CategoryID: 0, Serial: 1, Owner: "alice"})
	journal.ItemsUpgraded(ctx, "alice", []uint64{1, 2}, domain.Item{ID: 3, CategoryID: 2, Serial: 1, Owner: "alice"})
	if err := journal.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events, err := ReadEvents(dir)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	created := events[0]
	if created.Kind != EventCategoryCreated || created.Actor != "admin" || created.SupplyCap != 100 {
		t.Fatalf("unexpected created event: %+v", created)
	}
	if !created.Time.Equal(frozen) {
		t.Fatalf("event time not frozen: %v", created.Time)
	}

	issued := events[1]
	if issued.Kind != EventItemIssued || issued.ItemID != 1 || issued.Serial != 1 || issued.Actor != "alice" {
		t.Fatalf("unexpected issued event: %+v", issued)
	}

	upgraded := events[2]
	if upgraded.Kind != EventItemsUpgraded || upgraded.Replacement != 3 || upgraded.CategoryID != 2 {
		t.Fatalf("unexpected upgraded event: %+v", upgraded)
	}
	if len(upgraded.Consumed) != 2 || upgraded.Consumed[0] != 1 || upgraded.Consumed[1] != 2 {
		t.Fatalf("unexpected consumed ids: %v", upgraded.Consumed)
	}
}

func TestReadEventsEmptyDir(t *testing.T) {
	events, err := ReadEvents(t.TempDir())
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestJournalAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	first := NewJournal(dir)
	first.CategoryCreated(context.Background(), "admin", 0, 5)
	if err := first.Close(); err != nil {
		t.Fatalf("Close first: %v", err)
	}

	second := NewJournal(dir)
	second.CategoryCreated(context.Background(), "admin", 1, 7)
	if err := second.Close(); err != nil {
		t.Fatalf("Close second: %v", err)
	}

	events, err := ReadEvents(dir)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events across reopen, got %d", len(events))
	}
	if events[0].CategoryID != 0 || events[1].CategoryID != 1 {
		t.Fatalf("unexpected order: %+v", events)
	}
}

// Package notify provides outbound notification sinks for registry events.
package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mintcore/pkg/domain"

	"github.com/klauspost/compress/zstd"
)

// jsonlZstdWriter appends JSON lines to hourly-rotated zstd-compressed files
// named <prefix>-<YYYY-MM-DD-HH>.jsonl.zst under baseDir.
type jsonlZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func newJSONLZstdWriter(baseDir, prefix string) *jsonlZstdWriter {
	return &jsonlZstdWriter{baseDir: baseDir, prefix: prefix}
}

func (w *jsonlZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *jsonlZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *jsonlZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *jsonlZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *jsonlZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// Event is one journal entry. Fields not relevant to the event kind are
// omitted from the encoded line.
type Event struct {
	Time        time.Time      `json:"time"`
	Kind        string         `json:"kind"`
	Actor       domain.Address `json:"actor,omitempty"`
	CategoryID  uint64         `json:"category_id,omitempty"`
	SupplyCap   uint64         `json:"supply_cap,omitempty"`
	ItemID      uint64         `json:"item_id,omitempty"`
	Serial      uint64         `json:"serial,omitempty"`
	Consumed    []uint64       `json:"consumed,omitempty"`
	Replacement uint64         `json:"replacement,omitempty"`
}

// Event kinds written by the journal.
const (
	EventCategoryCreated = "category_created"
	EventItemIssued      = "item_issued"
	EventItemsUpgraded   = "items_upgraded"
)

// Journal implements domain.Notifier by appending registry events to a
// compressed JSONL journal. Write failures are silently dropped: commits must
// never be unwound by the notification path, and the journal is best effort.
type Journal struct {
	w     *jsonlZstdWriter
	nowFn func() time.Time
}

// NewJournal creates an event journal rooted at dir.
func NewJournal(dir string) *Journal {
	return &Journal{w: newJSONLZstdWriter(dir, "events"), nowFn: func() time.Time { return time.Now().UTC() }}
}

// Close flushes and closes the current journal segment.
func (j *Journal) Close() error { return j.w.Close() }

// CategoryCreated implements domain.Notifier.
func (j *Journal) CategoryCreated(_ context.Context, creator domain.Address, categoryID, supplyCap uint64) {
	_ = j.w.Write(Event{Time: j.nowFn(), Kind: EventCategoryCreated, Actor: creator, CategoryID: categoryID, SupplyCap: supplyCap})
}

// ItemIssued implements domain.Notifier.
func (j *Journal) ItemIssued(_ context.Context, item domain.Item) {
	_ = j.w.Write(Event{Time: j.nowFn(), Kind: EventItemIssued, Actor: item.Owner, CategoryID: item.CategoryID, ItemID: item.ID, Serial: item.Serial})
}

// ItemsUpgraded implements domain.Notifier.
func (j *Journal) ItemsUpgraded(_ context.Context, owner domain.Address, consumed []uint64, replacement domain.Item) {
	_ = j.w.Write(Event{Time: j.nowFn(), Kind: EventItemsUpgraded, Actor: owner, CategoryID: replacement.CategoryID, ItemID: replacement.ID, Serial: replacement.Serial, Consumed: consumed, Replacement: replacement.ID})
}

package fs

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"mintcore/internal/blob/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	info, err := store.Put(ctx, "items/7/metadata.json", strings.NewReader(`{"name":"widget"}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"item_id": "7"},
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if info.Key != "items/7/metadata.json" {
		t.Fatalf("unexpected key %q", info.Key)
	}
	if info.Size != int64(len(`{"name":"widget"}`)) {
		t.Fatalf("unexpected size %d", info.Size)
	}
	if info.ETag == "" {
		t.Fatalf("expected etag")
	}

	got, rc, err := store.Get(ctx, "items/7/metadata.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	payload, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if string(payload) != `{"name":"widget"}` {
		t.Fatalf("payload mismatch: %s", payload)
	}
	if got.ContentType != "application/json" || got.Metadata["item_id"] != "7" {
		t.Fatalf("info mismatch: %+v", got)
	}
}

func TestPutRejectsExistingKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Put(ctx, "k", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("b"), core.PutOptions{}); err == nil {
		t.Fatalf("expected overwrite rejection")
	}
}

func TestGetMissingKey(t *testing.T) {
	store := newTestStore(t)
	if _, _, err := store.Get(context.Background(), "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Head(context.Background(), "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on Head, got %v", err)
	}
}

func TestSanitizeKeyRejections(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape", "/abs/path", "a/../../b"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected rejection for key %q", key)
		}
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Put(ctx, "k", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	removed, err := store.Delete(ctx, "k")
	if err != nil || !removed {
		t.Fatalf("Delete: removed=%v err=%v", removed, err)
	}
	removed, err = store.Delete(ctx, "k")
	if err != nil || removed {
		t.Fatalf("second Delete: removed=%v err=%v", removed, err)
	}
	if _, _, err := store.Get(ctx, "k"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"items/1/metadata.json", "items/2/metadata.json", "exports/report.csv"} {
		if _, err := store.Put(ctx, key, strings.NewReader(key), core.PutOptions{}); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "items/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 infos, got %d", len(infos))
	}
	if infos[0].Key != "items/1/metadata.json" || infos[1].Key != "items/2/metadata.json" {
		t.Fatalf("unexpected keys: %+v", infos)
	}
}

func TestPresignURLGetOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	url, err := store.PresignURL(ctx, "items/1/metadata.json", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("PresignURL: %v", err)
	}
	if !strings.Contains(url, "items/1/metadata.json") {
		t.Fatalf("unexpected url %q", url)
	}
	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for PUT presign, got %v", err)
	}
}

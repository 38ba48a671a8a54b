package eventlog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_WriteAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Write(ctx, LevelInfo, "tx built", map[string]any{"ticker": "HBAR", "senders": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Write(ctx, LevelError, "tx sign failed", map[string]any{"reason": "missing key"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	events, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Message != "tx sign failed" || events[0].Level != LevelError {
		t.Errorf("unexpected newest event: %+v", events[0])
	}
	if events[1].Fields["ticker"] != "HBAR" {
		t.Errorf("fields not round-tripped: %+v", events[1].Fields)
	}
}

type failingWriter struct {
	mu    sync.Mutex
	calls int
}

func (f *failingWriter) Write(ctx context.Context, level, message string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("disk full")
}

func TestAsync_NeverFailsCaller(t *testing.T) {
	writer := &failingWriter{}
	async := &Async{store: writer}

	// Must not panic or surface the error.
	async.Record(context.Background(), LevelInfo, "event", nil)

	deadline := time.Now().Add(2 * time.Second)
	for {
		writer.mu.Lock()
		calls := writer.calls
		writer.mu.Unlock()
		if calls == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("async write never attempted")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAsync_KillSwitch(t *testing.T) {
	writer := &failingWriter{}
	async := &Async{store: writer, disabled: true}
	async.Record(context.Background(), LevelInfo, "event", nil)

	time.Sleep(50 * time.Millisecond)
	writer.mu.Lock()
	defer writer.mu.Unlock()
	if writer.calls != 0 {
		t.Errorf("disabled recorder still wrote %d events", writer.calls)
	}
}

func TestAsync_NilReceiverSafe(t *testing.T) {
	var async *Async
	async.Record(context.Background(), LevelInfo, "event", nil)
}

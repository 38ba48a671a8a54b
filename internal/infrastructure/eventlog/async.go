package eventlog

import (
	"context"
	"log/slog"
	"time"
)

type writer interface {
	Write(ctx context.Context, level, message string, fields map[string]any) error
}

// Async wraps a store so Record returns immediately and can never fail the
// caller. Writes happen on their own goroutine with a detached context; a
// failed write only produces a local warning.
type Async struct {
	store    writer
	disabled bool
}

// NewAsync builds the fire-and-forget recorder. With disabled set (the test
// kill switch) or a nil store, Record is a no-op.
func NewAsync(store *Store, disabled bool) *Async {
	a := &Async{disabled: disabled}
	if store != nil {
		a.store = store
	}
	return a
}

func (a *Async) Record(ctx context.Context, level, message string, fields map[string]any) {
	if a == nil || a.disabled || a.store == nil {
		return
	}
	// Detach from the caller so an aborted operation still gets its event
	// written.
	background := context.WithoutCancel(ctx)
	go func() {
		writeCtx, cancel := context.WithTimeout(background, 5*time.Second)
		defer cancel()
		if err := a.store.Write(writeCtx, level, message, fields); err != nil {
			slog.Warn("event log write failed", "error", err, "message", message)
		}
	}()
}

// Nop is a Recorder that drops everything. Useful default for tests.
type Nop struct{}

func (Nop) Record(context.Context, string, string, map[string]any) {}

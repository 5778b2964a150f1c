package core

import "context"

// Context keys for report options
type contextKey string

const flusherKey contextKey = "flusher"

// Flusher persists in-memory activity so that readers see it.
type Flusher interface {
	Flush(ctx context.Context) error
}

// WithFlusher attaches a live runtime that is flushed before today's report is read.
func WithFlusher(ctx context.Context, f Flusher) context.Context {
	return context.WithValue(ctx, flusherKey, f)
}

// flusherFrom returns the live runtime from context, or nil
func flusherFrom(ctx context.Context) Flusher {
	f, _ := ctx.Value(flusherKey).(Flusher)
	return f
}

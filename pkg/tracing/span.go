// Package tracing times pipeline stages. A run opens a root span and each
// stage a child; the finished tree logs as one structured slog value and its
// stage durations feed the run summary.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type spanKey struct{}

// Span is one timed stage. Methods are safe on a nil *Span, so callers can
// trace through code paths that have no run span.
type Span struct {
	name  string
	runID string
	start time.Time

	mu       sync.Mutex
	duration time.Duration
	ended    bool
	attrs    []slog.Attr
	children []*Span
}

// Start opens a root span for runID and stores it in the returned context.
func Start(ctx context.Context, name, runID string) (context.Context, *Span) {
	s := &Span{name: name, runID: runID, start: time.Now()}
	return context.WithValue(ctx, spanKey{}, s), s
}

// FromContext returns the span stored by Start, or nil.
func FromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

// Child opens a stage under s. On a nil span it returns a detached span.
func (s *Span) Child(name string) *Span {
	child := &Span{name: name, start: time.Now()}
	if s == nil {
		return child
	}
	child.runID = s.runID
	s.mu.Lock()
	s.children = append(s.children, child)
	s.mu.Unlock()
	return child
}

// Set records an attribute that is logged with the span.
func (s *Span) Set(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.attrs = append(s.attrs, slog.Any(key, value))
	s.mu.Unlock()
}

// End stops the clock and returns the span's duration. Only the first call
// counts.
func (s *Span) End() time.Duration {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.duration = time.Since(s.start)
		s.ended = true
	}
	return s.duration
}

// Name returns the stage name.
func (s *Span) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// RunID returns the run the span belongs to.
func (s *Span) RunID() string {
	if s == nil {
		return ""
	}
	return s.runID
}

// Stages returns each direct child's duration in milliseconds keyed by
// name. Repeated names accumulate; children still running count as 0.
func (s *Span) Stages() map[string]int64 {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	out := make(map[string]int64, len(children))
	for _, c := range children {
		c.mu.Lock()
		out[c.name] += c.duration.Milliseconds()
		c.mu.Unlock()
	}
	return out
}

// LogValue renders the span tree as nested groups keyed by stage name.
func (s *Span) LogValue() slog.Value {
	if s == nil {
		return slog.Value{}
	}
	s.mu.Lock()
	attrs := []slog.Attr{
		slog.String("span", s.name),
		slog.Int64("duration_ms", s.duration.Milliseconds()),
	}
	if s.runID != "" {
		attrs = append(attrs, slog.String("run_id", s.runID))
	}
	attrs = append(attrs, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	for _, c := range children {
		attrs = append(attrs, slog.Attr{Key: c.name, Value: c.LogValue()})
	}
	return slog.GroupValue(attrs...)
}

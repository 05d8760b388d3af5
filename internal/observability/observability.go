// Package observability carries lightweight execution telemetry for CLI
// operations, adapted from the teacher's internal/service use-case
// observer: a small event struct, an interface to receive it, and a noop
// and a log/slog implementation.
package observability

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// RunEvent captures one scheduling or persistence operation.
type RunEvent struct {
	Name      string
	Duration  time.Duration
	Success   bool
	Err       error
	Fields    map[string]any
	StartedAt time.Time
}

// Observer receives RunEvents.
type Observer interface {
	ObserveRun(ctx context.Context, event RunEvent)
}

// NoopObserver discards every event.
type NoopObserver struct{}

func (NoopObserver) ObserveRun(context.Context, RunEvent) {}

type logObserver struct {
	logger *slog.Logger
}

// NewLogObserver writes run events as structured log lines to w.
func NewLogObserver(w io.Writer) Observer {
	if w == nil {
		return NoopObserver{}
	}
	return &logObserver{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}
}

func (o *logObserver) ObserveRun(ctx context.Context, event RunEvent) {
	attrs := make([]any, 0, 6+len(event.Fields)*2)
	attrs = append(attrs,
		"op", event.Name,
		"duration_ms", event.Duration.Milliseconds(),
		"success", event.Success,
	)
	for k, v := range event.Fields {
		attrs = append(attrs, k, v)
	}
	if event.Err != nil {
		attrs = append(attrs, "error", event.Err.Error())
		o.logger.ErrorContext(ctx, "run", attrs...)
		return
	}
	o.logger.InfoContext(ctx, "run", attrs...)
}

// Emit reports an instantaneous structured event with nothing to time,
// e.g. one rollout decision the scheduler already recorded.
func Emit(ctx context.Context, obs Observer, name string, fields map[string]any) {
	if obs == nil {
		obs = NoopObserver{}
	}
	obs.ObserveRun(ctx, RunEvent{
		Name:      name,
		Success:   true,
		Fields:    fields,
		StartedAt: time.Now(),
	})
}

// Observe wraps fn, timing it and reporting the outcome to obs. It returns
// whatever error fn returns.
func Observe(ctx context.Context, obs Observer, name string, fields map[string]any, fn func() error) error {
	if obs == nil {
		obs = NoopObserver{}
	}
	start := time.Now()
	err := fn()
	obs.ObserveRun(ctx, RunEvent{
		Name:      name,
		Duration:  time.Since(start),
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
		StartedAt: start,
	})
	return err
}

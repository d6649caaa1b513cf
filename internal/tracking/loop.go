package tracking

import (
	"context"
	"log/slog"
)

// Renderer consumes the records of one render pass. It must accept every
// Status, including records without samples.
type Renderer interface {
	Render(ctx context.Context, records []Record) error
}

// RecordSink receives every record emitted by the live loop, e.g. to keep a
// history of channel quality.
type RecordSink interface {
	StoreRecords(ctx context.Context, records []Record) error
}

// WithSink adds a sink to the loop.
func WithSink(sink RecordSink) func(*Loop) {
	return func(l *Loop) {
		l.sinks = append(l.sinks, sink)
	}
}

// WithLogger sets the logger for the loop
func WithLogger(logger *slog.Logger) func(*Loop) {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithSkipUnchanged skips rendering when no channel produced new data. The
// first pass is always rendered.
func WithSkipUnchanged(skip bool) func(*Loop) {
	return func(l *Loop) {
		l.skipUnchanged = skip
	}
}

// Loop is the live poll-and-render loop. Each tick runs to completion, poll
// then render, before the next tick is taken from the ticker.
type Loop struct {
	tracker  *Tracker
	ticker   Ticker
	renderer Renderer
	sinks    []RecordSink

	skipUnchanged bool
	rendered      bool
	logger        *slog.Logger
}

// NewLoop creates a live loop.
func NewLoop(tracker *Tracker, ticker Ticker, renderer Renderer, options ...func(*Loop)) *Loop {
	l := Loop{
		tracker:  tracker,
		ticker:   ticker,
		renderer: renderer,
		logger:   discardLogger(),
	}

	for _, option := range options {
		option(&l)
	}

	return &l
}

// Run renders once immediately and then on every tick until ctx is done. It
// stops the ticker on return. Render and sink failures are logged and the
// loop carries on.
func (l *Loop) Run(ctx context.Context) error {
	defer l.ticker.Stop()

	l.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-l.ticker.C():
			l.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single tick.
func (l *Loop) RunOnce(ctx context.Context) []Record {
	records := l.tracker.Tick(ctx)

	for _, sink := range l.sinks {
		if err := sink.StoreRecords(ctx, records); err != nil {
			l.logger.Error("storing records", slog.String("error", err.Error()))
		}
	}

	if l.rendered && l.skipUnchanged && !changed(records) {
		return records
	}

	if err := l.renderer.Render(ctx, records); err != nil {
		l.logger.Error("rendering", slog.String("error", err.Error()))
	}
	l.rendered = true
	return records
}

func changed(records []Record) bool {
	for _, r := range records {
		if r.Status != StatusNoChange {
			return true
		}
	}
	return false
}

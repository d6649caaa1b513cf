package tracking

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/gnss-constellation/internal/iq"
)

type manualTicker struct {
	c       chan time.Time
	stopped bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{c: make(chan time.Time)}
}

func (m *manualTicker) C() <-chan time.Time { return m.c }
func (m *manualTicker) Stop()               { m.stopped = true }

type recordingRenderer struct {
	passes [][]Record
	err    error
	done   chan struct{}
}

func (r *recordingRenderer) Render(_ context.Context, records []Record) error {
	r.passes = append(r.passes, records)
	if r.done != nil {
		r.done <- struct{}{}
	}
	return r.err
}

type recordingSink struct {
	stored int
}

func (s *recordingSink) StoreRecords(_ context.Context, records []Record) error {
	s.stored += len(records)
	return errors.New("sink unavailable")
}

func TestLoop_RendersEveryTick(t *testing.T) {
	dir := t.TempDir()
	f := writeChannel(t, dir, 12, iq.EncodeBytes(constBatch(2, 1)))

	tracker := NewTracker(NewTailReader(TailConfig{}, nil), 10, nil)
	if err := tracker.Follow(f); err != nil {
		t.Fatal(err)
	}

	ticker := newManualTicker()
	renderer := &recordingRenderer{err: errors.New("disk full"), done: make(chan struct{})}
	sink := &recordingSink{}
	loop := NewLoop(tracker, ticker, renderer, WithSink(sink))

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- loop.Run(ctx) }()

	<-renderer.done // initial pass

	appendFile(t, f.Path, iq.EncodeBytes(constBatch(3, 1)))
	ticker.c <- time.Now()
	<-renderer.done

	ticker.c <- time.Now()
	<-renderer.done

	cancel()
	if err := <-result; err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(renderer.passes) != 3 {
		t.Fatalf("Expected 3 render passes, got %d", len(renderer.passes))
	}

	statuses := []Status{StatusOK, StatusOK, StatusNoChange}
	windows := []int{2, 5, 5}
	for i, pass := range renderer.passes {
		if len(pass) != 1 {
			t.Fatalf("Pass %d: expected 1 record, got %d", i, len(pass))
		}
		if pass[0].Status != statuses[i] || len(pass[0].Samples) != windows[i] {
			t.Errorf("Pass %d: expected %s with %d samples, got %s with %d",
				i, statuses[i], windows[i], pass[0].Status, len(pass[0].Samples))
		}
	}

	if sink.stored != 3 {
		t.Errorf("Expected 3 stored records, got %d", sink.stored)
	}
	if !ticker.stopped {
		t.Error("Expected ticker to be stopped")
	}
}

func TestLoop_SkipUnchanged(t *testing.T) {
	dir := t.TempDir()
	f := writeChannel(t, dir, 1, iq.EncodeBytes(constBatch(2, 1)))

	tracker := NewTracker(NewTailReader(TailConfig{}, nil), 10, nil)
	if err := tracker.Follow(f); err != nil {
		t.Fatal(err)
	}

	renderer := &recordingRenderer{}
	loop := NewLoop(tracker, newManualTicker(), renderer, WithSkipUnchanged(true))

	loop.RunOnce(context.Background())
	loop.RunOnce(context.Background())

	if len(renderer.passes) != 1 {
		t.Errorf("Expected 1 render pass, got %d", len(renderer.passes))
	}
}

func TestLoop_SkipUnchangedRendersFirstPass(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty file", nil},
		{"partial sample", []byte{0, 0, 128, 63}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := writeChannel(t, t.TempDir(), 12, tt.data)

			tracker := NewTracker(NewTailReader(TailConfig{}, nil), 10, nil)
			if err := tracker.Follow(f); err != nil {
				t.Fatal(err)
			}

			renderer := &recordingRenderer{}
			loop := NewLoop(tracker, newManualTicker(), renderer, WithSkipUnchanged(true))

			records := loop.RunOnce(context.Background())
			if len(records) != 1 || records[0].Status != StatusNoChange {
				t.Fatalf("Expected a single no-change record, got %+v", records)
			}
			if len(renderer.passes) != 1 {
				t.Fatalf("Expected the first pass to be rendered, got %d passes", len(renderer.passes))
			}

			loop.RunOnce(context.Background())
			if len(renderer.passes) != 1 {
				t.Errorf("Expected unchanged passes to be skipped, got %d passes", len(renderer.passes))
			}
		})
	}
}

func TestWatchTicker_FiresOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking_PRN_3.dat")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	ticker, err := NewWatchTicker([]string{path}, time.Hour, nil)
	if err != nil {
		t.Fatalf("Failed to create watch ticker: %v", err)
	}
	defer ticker.Stop()

	appendFile(t, path, iq.EncodeBytes(constBatch(1, 1)))

	select {
	case <-ticker.C():
	case <-time.After(5 * time.Second):
		t.Fatal("Expected a tick after writing the watched file")
	}

	ticker.Stop() // idempotent with the deferred Stop
}

func TestIntervalTicker(t *testing.T) {
	ticker := NewIntervalTicker(10 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(5 * time.Second):
		t.Fatal("Expected a tick")
	}
}

package tracking

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultInterval is the default poll interval for live mode.
const DefaultInterval = time.Second

// Ticker schedules poll ticks. The live loop reads C until the context ends
// and calls Stop when done.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// IntervalTicker ticks at a fixed interval.
type IntervalTicker struct {
	ticker *time.Ticker
}

// NewIntervalTicker creates a ticker firing every d. Non-positive d uses
// DefaultInterval.
func NewIntervalTicker(d time.Duration) *IntervalTicker {
	if d <= 0 {
		d = DefaultInterval
	}
	return &IntervalTicker{ticker: time.NewTicker(d)}
}

func (t *IntervalTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *IntervalTicker) Stop() {
	t.ticker.Stop()
}

// WatchTicker ticks whenever one of the watched files is written or
// re-created, and at least once per fallback interval so that files on
// filesystems without change notifications are still polled. Bursts of
// events collapse into a single pending tick.
type WatchTicker struct {
	watcher *fsnotify.Watcher
	files   map[string]struct{}
	c       chan time.Time
	logger  *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatchTicker watches the parent directories of paths. Watching the
// directory rather than the file keeps notifications flowing when a file is
// replaced.
func NewWatchTicker(paths []string, fallback time.Duration, logger *slog.Logger) (*WatchTicker, error) {
	if fallback <= 0 {
		fallback = DefaultInterval
	}
	if logger == nil {
		logger = discardLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	t := &WatchTicker{
		watcher: watcher,
		files:   make(map[string]struct{}),
		c:       make(chan time.Time, 1),
		logger:  logger,
		done:    make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		t.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err = watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	t.wg.Add(1)
	go t.run(fallback)

	return t, nil
}

func (t *WatchTicker) C() <-chan time.Time {
	return t.c
}

// Stop stops the watcher. It is safe to call more than once.
func (t *WatchTicker) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
		_ = t.watcher.Close()
		t.wg.Wait()
	})
}

func (t *WatchTicker) run(fallback time.Duration) {
	defer t.wg.Done()

	ticker := time.NewTicker(fallback)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return

		case now := <-ticker.C:
			t.fire(now)

		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if _, watched := t.files[filepath.Clean(event.Name)]; watched {
				t.fire(time.Now())
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			t.logger.Warn("file watcher error", slog.String("error", err.Error()))
		}
	}
}

func (t *WatchTicker) fire(now time.Time) {
	select {
	case t.c <- now:
	default: // a tick is already pending
	}
}

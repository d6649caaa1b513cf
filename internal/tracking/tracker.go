package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roman-kulish/gnss-constellation/internal/iq"
)

// DefaultWindowSize is the number of most recent samples kept per live channel.
const DefaultWindowSize = 100_000

type channel struct {
	state  ChannelFileState
	window *iq.DisplayWindow
}

// Tracker owns the live state of every followed channel: its read offset and
// its display window. Channels are independent of each other.
type Tracker struct {
	reader     *TailReader
	windowSize int
	channels   map[int]*channel
	logger     *slog.Logger
}

// NewTracker creates a Tracker whose channels keep windowSize samples.
func NewTracker(reader *TailReader, windowSize int, logger *slog.Logger) *Tracker {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Tracker{
		reader:     reader,
		windowSize: windowSize,
		channels:   make(map[int]*channel),
		logger:     logger,
	}
}

// Follow starts tracking a channel file from its beginning.
func (t *Tracker) Follow(f ChannelFile) error {
	if _, ok := t.channels[f.PRN]; ok {
		return fmt.Errorf("PRN %d is already tracked", f.PRN)
	}

	window, err := iq.NewDisplayWindow(t.windowSize)
	if err != nil {
		return fmt.Errorf("creating display window: %w", err)
	}

	t.channels[f.PRN] = &channel{
		state:  ChannelFileState{PRN: f.PRN, Path: f.Path},
		window: window,
	}

	t.logger.Info("following channel", slog.Int("prn", f.PRN), slog.String("path", f.Path))
	return nil
}

// State returns the current read state of a channel.
func (t *Tracker) State(prn int) (ChannelFileState, bool) {
	ch, ok := t.channels[prn]
	if !ok {
		return ChannelFileState{}, false
	}
	return ch.state, true
}

// Paths returns the files of every tracked channel, in PRN order.
func (t *Tracker) Paths() []string {
	paths := make([]string, 0, len(t.channels))
	for _, prn := range t.prns() {
		paths = append(paths, t.channels[prn].state.Path)
	}
	return paths
}

// Tick polls every tracked channel once and returns their records in PRN
// order.
func (t *Tracker) Tick(ctx context.Context) []Record {
	records := make([]Record, 0, len(t.channels))
	for _, prn := range t.prns() {
		if ctx.Err() != nil {
			break
		}

		ch := t.channels[prn]

		var rec Record
		ch.state, rec = t.reader.Poll(ch.state, ch.window)
		records = append(records, rec)
	}
	return records
}

func (t *Tracker) prns() []int {
	prns := make([]int, 0, len(t.channels))
	for prn := range t.channels {
		prns = append(prns, prn)
	}
	slices.Sort(prns)
	return prns
}

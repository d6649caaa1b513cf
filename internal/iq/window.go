package iq

import "fmt"

// DisplayWindow keeps the most recent samples of one channel up to a fixed
// capacity. When appending would exceed the capacity the oldest samples are
// evicted first. It is backed by a ring buffer and is not safe for
// concurrent use; a channel's window is only touched from its own poll.
type DisplayWindow struct {
	capacity int

	ring []complex64
	head int // index of the oldest sample
	size int
}

// NewDisplayWindow creates a window that retains at most capacity samples.
// Returns an error if capacity is not positive.
func NewDisplayWindow(capacity int) (*DisplayWindow, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid window capacity: %d", capacity)
	}
	return &DisplayWindow{
		capacity: capacity,
		ring:     make([]complex64, capacity),
	}, nil
}

// Append adds b to the end of the window, evicting the oldest samples beyond
// the capacity.
func (w *DisplayWindow) Append(b Batch) {
	// only the newest capacity samples of b can survive
	if len(b) >= w.capacity {
		copy(w.ring, b[len(b)-w.capacity:])
		w.head = 0
		w.size = w.capacity
		return
	}

	for _, s := range b {
		tail := (w.head + w.size) % w.capacity
		w.ring[tail] = s

		if w.size < w.capacity {
			w.size++
		} else {
			w.head = (w.head + 1) % w.capacity // overwrite oldest
		}
	}
}

// Snapshot returns a copy of the retained samples, oldest first.
func (w *DisplayWindow) Snapshot() Batch {
	out := make(Batch, w.size)
	n := copy(out, w.ring[w.head:min(w.head+w.size, w.capacity)])
	copy(out[n:], w.ring[:w.size-n])
	return out
}

// Len returns the number of retained samples.
func (w *DisplayWindow) Len() int {
	return w.size
}

// Cap returns the window capacity.
func (w *DisplayWindow) Cap() int {
	return w.capacity
}

// Clear drops all retained samples.
func (w *DisplayWindow) Clear() {
	w.head = 0
	w.size = 0
}

package tracking

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/roman-kulish/gnss-constellation/internal/iq"
)

func appendFile(t *testing.T, path string, p []byte) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	if _, err = f.Write(p); err != nil {
		t.Fatalf("Failed to append to %s: %v", path, err)
	}
}

func newWindow(t *testing.T, capacity int) *iq.DisplayWindow {
	t.Helper()

	w, err := iq.NewDisplayWindow(capacity)
	if err != nil {
		t.Fatalf("Failed to create window: %v", err)
	}
	return w
}

func assertSamples(t *testing.T, expected, got iq.Batch) {
	t.Helper()

	if len(got) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(got))
	}
	for i := range expected {
		if math.Abs(float64(real(got[i]-expected[i]))) > 1e-5 || math.Abs(float64(imag(got[i]-expected[i]))) > 1e-5 {
			t.Errorf("Sample %d: expected %v, got %v", i, expected[i], got[i])
		}
	}
}

func TestTailReader_GrowingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking_PRN_12.dat")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	first := iq.Batch{2, -2, 2i, -2i, 2, -2}   // power 4
	second := iq.Batch{3, -3, 3, -3, 3i, -3i} // power 9
	reader := NewTailReader(TailConfig{ResetOnTruncate: true}, nil)
	window := newWindow(t, 8)
	state := ChannelFileState{PRN: 12, Path: path}

	// tick 1: size 0
	state, rec := reader.Poll(state, window)
	if rec.Status != StatusNoChange || state.Offset != 0 || rec.Samples != nil {
		t.Fatalf("Tick 1: expected no-change at offset 0, got %s at %d", rec.Status, state.Offset)
	}

	// tick 2: [0, S1)
	appendFile(t, path, iq.EncodeBytes(first))
	s1 := first.ByteSize()

	state, rec = reader.Poll(state, window)
	if rec.Status != StatusOK {
		t.Fatalf("Tick 2: expected ok, got %s", rec.Status)
	}
	if state.Offset != s1 || rec.Offset != s1 {
		t.Errorf("Tick 2: expected offset %d, got %d", s1, state.Offset)
	}
	assertSamples(t, iq.Batch{1, -1, 1i, -1i, 1, -1}, rec.Samples)

	// tick 3: [S1, S2)
	appendFile(t, path, iq.EncodeBytes(second))
	s2 := s1 + second.ByteSize()

	state, rec = reader.Poll(state, window)
	if rec.Status != StatusOK {
		t.Fatalf("Tick 3: expected ok, got %s", rec.Status)
	}
	if state.Offset != s2 {
		t.Errorf("Tick 3: expected offset %d, got %d", s2, state.Offset)
	}

	// normalized concatenation, truncated to the last 8 from the tail
	assertSamples(t, iq.Batch{1, -1, 1, -1, 1, -1, 1i, -1i}, rec.Samples)

	// tick 4: nothing new
	state, rec = reader.Poll(state, window)
	if rec.Status != StatusNoChange || state.Offset != s2 {
		t.Errorf("Tick 4: expected no-change at %d, got %s at %d", s2, rec.Status, state.Offset)
	}
	if len(rec.Samples) != 8 {
		t.Errorf("Tick 4: expected the window to be re-emitted, got %d samples", len(rec.Samples))
	}
}

func TestTailReader_PartialSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking_PRN_3.dat")
	p := iq.EncodeBytes(iq.Batch{1, 1, 1})

	// two and a half samples written
	if err := os.WriteFile(path, p[:20], 0o644); err != nil {
		t.Fatal(err)
	}

	reader := NewTailReader(TailConfig{}, nil)
	window := newWindow(t, 10)
	state := ChannelFileState{PRN: 3, Path: path}

	state, rec := reader.Poll(state, window)
	if rec.Status != StatusOK || state.Offset != 16 || window.Len() != 2 {
		t.Fatalf("Expected 2 samples at offset 16, got %s, offset %d, window %d", rec.Status, state.Offset, window.Len())
	}

	// only the half sample is pending
	state, rec = reader.Poll(state, window)
	if rec.Status != StatusNoChange || state.Offset != 16 {
		t.Errorf("Expected no-change at 16, got %s at %d", rec.Status, state.Offset)
	}

	// writer completes the sample
	appendFile(t, path, p[20:])
	state, rec = reader.Poll(state, window)
	if rec.Status != StatusOK || state.Offset != 24 || window.Len() != 3 {
		t.Errorf("Expected 3 samples at offset 24, got %s, offset %d, window %d", rec.Status, state.Offset, window.Len())
	}
}

func TestTailReader_MissingFile(t *testing.T) {
	reader := NewTailReader(TailConfig{}, nil)
	window := newWindow(t, 4)
	state := ChannelFileState{PRN: 1, Path: filepath.Join(t.TempDir(), "tracking_PRN_1.dat"), Offset: 64}

	next, rec := reader.Poll(state, window)
	if rec.Status != StatusFileMissing {
		t.Errorf("Expected file-missing, got %s", rec.Status)
	}
	if next != state {
		t.Errorf("Expected unchanged state, got %+v", next)
	}
	if rec.Samples != nil {
		t.Errorf("Expected no samples, got %d", len(rec.Samples))
	}
}

func TestTailReader_PowerZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking_PRN_8.dat")
	if err := os.WriteFile(path, iq.EncodeBytes(make(iq.Batch, 4)), 0o644); err != nil {
		t.Fatal(err)
	}

	reader := NewTailReader(TailConfig{}, nil)
	window := newWindow(t, 10)

	state, rec := reader.Poll(ChannelFileState{PRN: 8, Path: path}, window)
	if rec.Status != StatusPowerZero {
		t.Errorf("Expected power-zero, got %s", rec.Status)
	}
	if rec.Normalized {
		t.Error("Expected record not to be normalized")
	}
	if state.Offset != 32 || len(rec.Samples) != 4 {
		t.Errorf("Expected 4 unscaled samples at offset 32, got %d at %d", len(rec.Samples), state.Offset)
	}
}

func TestTailReader_Truncation(t *testing.T) {
	testCases := []struct {
		name           string
		reset          bool
		expectedStatus Status
		expectedOffset int64
		expectedWindow int
	}{
		{"reset on truncate", true, StatusOK, 16, 2},
		{"keep offset", false, StatusNoChange, 48, 6},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tracking_PRN_4.dat")
			if err := os.WriteFile(path, iq.EncodeBytes(constBatch(6, 1)), 0o644); err != nil {
				t.Fatal(err)
			}

			reader := NewTailReader(TailConfig{ResetOnTruncate: tc.reset}, nil)
			window := newWindow(t, 100)

			state, _ := reader.Poll(ChannelFileState{PRN: 4, Path: path}, window)
			if state.Offset != 48 {
				t.Fatalf("Expected offset 48, got %d", state.Offset)
			}

			// rotated: a new, shorter file
			if err := os.WriteFile(path, iq.EncodeBytes(constBatch(2, 2)), 0o644); err != nil {
				t.Fatal(err)
			}

			state, rec := reader.Poll(state, window)
			if rec.Status != tc.expectedStatus || state.Offset != tc.expectedOffset {
				t.Errorf("Expected %s at %d, got %s at %d", tc.expectedStatus, tc.expectedOffset, rec.Status, state.Offset)
			}
			if window.Len() != tc.expectedWindow {
				t.Errorf("Expected %d samples in the window, got %d", tc.expectedWindow, window.Len())
			}
		})
	}
}

func TestTailReader_ReadsOnlyWhatTheWindowShows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking_PRN_5.dat")
	samples := append(constBatch(998, 10), 1, -1)
	if err := os.WriteFile(path, iq.EncodeBytes(samples), 0o644); err != nil {
		t.Fatal(err)
	}

	reader := NewTailReader(TailConfig{}, nil)
	window := newWindow(t, 2)

	state, rec := reader.Poll(ChannelFileState{PRN: 5, Path: path}, window)
	if rec.Status != StatusOK {
		t.Fatalf("Expected ok, got %s", rec.Status)
	}
	if state.Offset != 8000 {
		t.Errorf("Expected offset 8000, got %d", state.Offset)
	}

	// normalized against the displayed samples only
	assertSamples(t, iq.Batch{1, -1}, rec.Samples)
	if rec.Stats.MeanPower != 1 {
		t.Errorf("Expected mean power 1, got %v", rec.Stats.MeanPower)
	}

	// an odd byte count: the skip stays aligned to whole samples
	appendFile(t, path, iq.EncodeBytes(iq.Batch{2, 2, -2, -2}))
	appendFile(t, path, []byte{1, 2, 3})

	state, rec = reader.Poll(state, window)
	if state.Offset != 8032 {
		t.Errorf("Expected offset 8032, got %d", state.Offset)
	}
	assertSamples(t, iq.Batch{-1, -1}, rec.Samples)
}

func TestTailReader_ReadErrorKeepsOffset(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	path := filepath.Join(t.TempDir(), "tracking_PRN_6.dat")
	if err := os.WriteFile(path, iq.EncodeBytes(constBatch(4, 1)), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0o000); err != nil {
		t.Fatal(err)
	}

	reader := NewTailReader(TailConfig{}, nil)
	window := newWindow(t, 10)
	state := ChannelFileState{PRN: 6, Path: path}

	next, rec := reader.Poll(state, window)
	if rec.Status != StatusReadError || rec.Err == nil {
		t.Fatalf("Expected read-error, got %s", rec.Status)
	}
	if next.Offset != 0 || window.Len() != 0 {
		t.Errorf("Expected offset 0 and empty window, got %d and %d", next.Offset, window.Len())
	}

	// readable again: retried from the same point
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatal(err)
	}
	next, rec = reader.Poll(next, window)
	if rec.Status != StatusOK || next.Offset != 32 {
		t.Errorf("Expected ok at 32, got %s at %d", rec.Status, next.Offset)
	}
}

func TestTracker_IndependentChannels(t *testing.T) {
	dir := t.TempDir()
	a := writeChannel(t, dir, 20, iq.EncodeBytes(constBatch(3, 1)))
	b := writeChannel(t, dir, 2, iq.EncodeBytes(constBatch(5, 1i)))

	tracker := NewTracker(NewTailReader(TailConfig{}, nil), 4, nil)
	for _, f := range []ChannelFile{a, b} {
		if err := tracker.Follow(f); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if err := tracker.Follow(a); err == nil {
		t.Error("Expected error when following a PRN twice")
	}

	records := tracker.Tick(context.Background())
	if len(records) != 2 || records[0].PRN != 2 || records[1].PRN != 20 {
		t.Fatalf("Expected records for PRN 2 and 20, got %v", records)
	}
	if len(records[0].Samples) != 4 || len(records[1].Samples) != 3 {
		t.Errorf("Expected 4 and 3 samples, got %d and %d", len(records[0].Samples), len(records[1].Samples))
	}

	appendFile(t, a.Path, iq.EncodeBytes(constBatch(1, 1)))
	records = tracker.Tick(context.Background())
	if records[0].Status != StatusNoChange || records[1].Status != StatusOK {
		t.Errorf("Expected no-change/ok, got %s/%s", records[0].Status, records[1].Status)
	}

	stA, _ := tracker.State(20)
	stB, _ := tracker.State(2)
	if stA.Offset != 32 || stB.Offset != 40 {
		t.Errorf("Expected offsets 32 and 40, got %d and %d", stA.Offset, stB.Offset)
	}
	if _, ok := tracker.State(99); ok {
		t.Error("Expected unknown PRN to have no state")
	}
}

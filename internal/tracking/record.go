package tracking

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roman-kulish/gnss-constellation/internal/iq"
)

const (
	StatusOK Status = iota
	StatusFileMissing
	StatusEmpty
	StatusPowerZero
	StatusReadError
	StatusNoChange
)

var statusNames = map[Status]string{
	StatusOK:          "ok",
	StatusFileMissing: "file-missing",
	StatusEmpty:       "empty",
	StatusPowerZero:   "power-zero",
	StatusReadError:   "read-error",
	StatusNoChange:    "no-change",
}

// Status is the outcome of reading one channel for one render pass. None of
// the statuses is fatal; every one of them still produces a Record.
type Status int

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for status, n := range statusNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status: %s", text)
}

// Record is what the core hands to a renderer for one channel: the samples
// to plot (nil when there is nothing to show) and why.
type Record struct {
	PRN        int
	Path       string
	Status     Status
	Samples    iq.Batch // Normalized samples, or the display window in live mode
	Normalized bool     // False when the latest batch could not be normalized
	Stats      iq.LockStats
	Offset     int64 // Bytes consumed so far, live mode only
	Err        error // Set with StatusReadError
}

// Points returns the samples as (I, Q) pairs, or nil when absent.
func (r Record) Points() [][2]float64 {
	if r.Samples == nil {
		return nil
	}
	return r.Samples.Points()
}

func statusFromNorm(s iq.NormStatus) Status {
	switch s {
	case iq.NormEmpty:
		return StatusEmpty
	case iq.NormPowerZero:
		return StatusPowerZero
	default:
		return StatusOK
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

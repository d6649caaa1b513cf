package tracking

import (
	"log/slog"

	"github.com/roman-kulish/gnss-constellation/internal/iq"
)

// ChannelFileState is the read position of one live channel. A zero Offset
// means nothing has been read yet.
type ChannelFileState struct {
	PRN    int
	Path   string
	Offset int64
}

// TailConfig configures a TailReader.
type TailConfig struct {
	// ResetOnTruncate restarts reading from the beginning when the file is
	// found shorter than the current offset (truncated or rotated). When
	// false a shrunk file is treated as having no new data.
	ResetOnTruncate bool
}

// TailReader decodes the bytes appended to a channel file since the previous
// poll. It holds no per-channel state: the caller passes the state in and
// keeps the returned one.
type TailReader struct {
	config TailConfig
	logger *slog.Logger
}

// NewTailReader creates a TailReader. A nil logger discards output.
func NewTailReader(config TailConfig, logger *slog.Logger) *TailReader {
	if logger == nil {
		logger = discardLogger()
	}
	return &TailReader{config: config, logger: logger}
}

// Poll runs one tick for a channel. New whole samples found after
// state.Offset are normalized and appended to window; the returned record
// carries a snapshot of the window. The offset advances only by the bytes of
// successfully decoded samples, so a failed read is retried from the same
// point and a partially written trailing sample is picked up next time.
// Samples that would be evicted from window straight away are skipped
// without decoding, so only the displayed samples are normalized. A file
// reset after truncation also clears the window. Poll never waits for data.
func (r *TailReader) Poll(state ChannelFileState, window *iq.DisplayWindow) (ChannelFileState, Record) {
	logger := r.logger.With(slog.Int("prn", state.PRN))

	rec := Record{PRN: state.PRN, Path: state.Path, Offset: state.Offset}
	snapshot := func(status Status) (ChannelFileState, Record) {
		rec.Status = status
		rec.Offset = state.Offset
		if window.Len() > 0 {
			rec.Samples = window.Snapshot()
		}
		return state, rec
	}

	probe := iq.ProbeFile(state.Path)
	if probe.State == iq.StateAbsent {
		logger.Debug("channel file missing", slog.String("path", state.Path))
		return snapshot(StatusFileMissing)
	}

	if probe.Size < state.Offset {
		if !r.config.ResetOnTruncate {
			return snapshot(StatusNoChange)
		}
		logger.Warn("channel file truncated, reading from the start",
			slog.Int64("offset", state.Offset),
			slog.Int64("size", probe.Size))

		state.Offset = 0
		window.Clear()
	}
	if probe.Size <= state.Offset {
		return snapshot(StatusNoChange)
	}

	// only the newest window.Cap() samples can be displayed, skip the rest
	// while staying aligned to whole samples from the offset
	start := state.Offset
	if n := (probe.Size - state.Offset) / iq.SampleSize; n > int64(window.Cap()) {
		start += (n - int64(window.Cap())) * iq.SampleSize

		logger.Debug("skipping samples older than the window",
			slog.Int64("skipped", n-int64(window.Cap())))
	}

	batch, err := iq.DecodeRange(state.Path, start, probe.Size)
	if err != nil {
		logger.Error("reading appended samples", slog.String("error", err.Error()))
		rec.Err = err
		return snapshot(StatusReadError)
	}
	if batch.Len() == 0 {
		// less than one whole sample appended so far
		return snapshot(StatusNoChange)
	}

	state.Offset = start + batch.ByteSize()

	norm := iq.Normalize(batch)
	window.Append(norm.Samples)

	rec.Normalized = norm.Normalized
	rec.Stats = iq.Stats(batch)

	logger.Debug("appended samples",
		slog.Int("samples", batch.Len()),
		slog.Int64("offset", state.Offset),
		slog.Float64("meanPower", norm.MeanPower),
		slog.Int("window", window.Len()))

	return snapshot(statusFromNorm(norm.Status))
}

package tracking

import (
	"context"
	"log/slog"
	"slices"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/gnss-constellation/internal/iq"
)

const (
	DefaultMaxSamples  = 100_000
	DefaultMaxChannels = 12
)

// BatchConfig bounds a batch read.
type BatchConfig struct {
	MaxSamples  int // Earliest samples kept per file, 0 for default
	MaxChannels int // Channels processed, extra files are ignored, 0 for default
}

// BatchReader reads a set of channel files once each and produces one record
// per file, for the static multi-channel figure.
type BatchReader struct {
	config BatchConfig
	logger *slog.Logger
}

// NewBatchReader creates a BatchReader. A nil logger discards output.
func NewBatchReader(config BatchConfig, logger *slog.Logger) *BatchReader {
	if config.MaxSamples <= 0 {
		config.MaxSamples = DefaultMaxSamples
	}
	if config.MaxChannels <= 0 {
		config.MaxChannels = DefaultMaxChannels
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &BatchReader{config: config, logger: logger}
}

// Read processes files in PRN order, at most MaxChannels of them. A failure
// on one channel is reported in its record and never stops the others.
// Reading stops early, returning the records produced so far, if ctx is
// cancelled.
func (r *BatchReader) Read(ctx context.Context, files []ChannelFile) []Record {
	files = slices.Clone(files)
	SortChannels(files)

	if len(files) > r.config.MaxChannels {
		r.logger.Warn("too many channels, ignoring the rest",
			slog.Int("found", len(files)),
			slog.Int("maxChannels", r.config.MaxChannels))

		files = files[:r.config.MaxChannels]
	}

	records := make([]Record, 0, len(files))
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		records = append(records, r.readChannel(f))
	}
	return records
}

func (r *BatchReader) readChannel(f ChannelFile) Record {
	logger := r.logger.With(slog.Int("prn", f.PRN))
	rec := Record{PRN: f.PRN, Path: f.Path}

	probe := iq.ProbeFile(f.Path)
	switch probe.State {
	case iq.StateAbsent:
		logger.Warn("channel file missing", slog.String("path", f.Path))
		rec.Status = StatusFileMissing
		return rec

	case iq.StateEmpty:
		logger.Info("channel file is empty", slog.String("path", f.Path))
		rec.Status = StatusEmpty
		return rec
	}

	end := min(probe.Size, int64(r.config.MaxSamples)*iq.SampleSize)
	batch, err := iq.DecodeRange(f.Path, 0, end)
	if err != nil {
		logger.Error("reading channel file", slog.String("error", err.Error()))
		rec.Status = StatusReadError
		rec.Err = err
		return rec
	}

	batch = batch.Head(r.config.MaxSamples)
	norm := iq.Normalize(batch)
	rec.Status = statusFromNorm(norm.Status)
	rec.Normalized = norm.Normalized
	rec.Stats = iq.Stats(batch)
	if rec.Status != StatusEmpty {
		rec.Samples = norm.Samples
	}

	logger.Debug("channel read",
		slog.String("status", rec.Status.String()),
		slog.String("size", humanize.IBytes(uint64(probe.Size))),
		slog.Int("samples", len(norm.Samples)),
		slog.Float64("meanPower", norm.MeanPower),
		slog.Float64("phaseLock", rec.Stats.PhaseLock))

	return rec
}

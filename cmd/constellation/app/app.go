package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/gnss-constellation/internal/iq"
	"github.com/roman-kulish/gnss-constellation/internal/storage"
	"github.com/roman-kulish/gnss-constellation/internal/tracking"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	switch config.Mode {
	case ModeBatch:
		return runBatch(ctx, config, logger)
	case ModeLive:
		return runLive(ctx, config, logger)
	case ModeHistory:
		return runHistory(ctx, config, logger)
	default:
		return fmt.Errorf("unknown mode '%s'", config.Mode)
	}
}

func runBatch(ctx context.Context, config *Config, logger *slog.Logger) error {
	files, err := channelFiles(config, logger)
	if err != nil {
		return err
	}

	renderer, err := NewScatterRenderer(RenderConfig{
		OutputFile: config.OutputFile,
		Format:     config.Format,
		Limit:      config.Limit,
	})
	if err != nil {
		return fmt.Errorf("creating scatter renderer: %w", err)
	}

	store, sessionID, err := openSession(ctx, config)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	reader := tracking.NewBatchReader(tracking.BatchConfig{
		MaxSamples:  config.MaxSamples,
		MaxChannels: config.MaxChannels,
	}, logger)

	logger.Info("reading channels",
		slog.String("source", config.Source),
		slog.Int("files", len(files)),
		slog.Int("maxSamples", config.MaxSamples))

	records := reader.Read(ctx, files)
	if err = ctx.Err(); err != nil {
		return err
	}

	for _, rec := range records {
		logRecord(logger, rec)
	}

	if store != nil {
		if err = store.StoreRecords(ctx, sessionID, records); err != nil {
			return fmt.Errorf("storing records: %w", err)
		}
	}

	logger.Info("rendering constellation",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.Int("panels", len(records)),
		))

	return renderer.Render(ctx, records)
}

func runLive(ctx context.Context, config *Config, logger *slog.Logger) error {
	files, err := liveChannelFiles(config, logger)
	if err != nil {
		return err
	}

	renderer, err := NewScatterRenderer(RenderConfig{
		OutputFile: config.OutputFile,
		Format:     config.Format,
		Limit:      config.Limit,
		Live:       len(files) == 1,
	})
	if err != nil {
		return fmt.Errorf("creating scatter renderer: %w", err)
	}

	reader := tracking.NewTailReader(tracking.TailConfig{
		ResetOnTruncate: config.ResetOnTruncate,
	}, logger)

	tracker := tracking.NewTracker(reader, config.WindowSize, logger)
	for _, f := range files {
		if err = tracker.Follow(f); err != nil {
			return fmt.Errorf("following channel: %w", err)
		}
	}

	var ticker tracking.Ticker
	if config.Watch {
		if ticker, err = tracking.NewWatchTicker(tracker.Paths(), config.Interval.Duration(), logger); err != nil {
			return fmt.Errorf("watching channel files: %w", err)
		}
	} else {
		ticker = tracking.NewIntervalTicker(config.Interval.Duration())
	}

	options := []func(*tracking.Loop){
		tracking.WithLogger(logger),
		tracking.WithSkipUnchanged(true),
	}

	store, sessionID, err := openSession(ctx, config)
	if err != nil {
		ticker.Stop()
		return err
	}
	if store != nil {
		defer store.Close()
		options = append(options, tracking.WithSink(storage.NewSessionSink(store, sessionID)))
	}

	logger.Info("following channels, press Ctrl+C to stop",
		slog.Int("channels", len(files)),
		slog.String("interval", config.Interval.String()),
		slog.Bool("watch", config.Watch),
		slog.String("destination", config.OutputFile))

	return tracking.NewLoop(tracker, ticker, renderer, options...).Run(ctx)
}

func runHistory(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	session, err := store.Session(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}

	logger.Info("session",
		slog.Int64("id", session.ID),
		slog.String("mode", session.Mode),
		slog.String("source", session.Source),
		slog.String("started", session.StartTime.Local().Format(time.DateTime)))

	summaries, err := store.Summaries(ctx, config.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNoData) {
			logger.Warn("session has no snapshots")
			return nil
		}
		return fmt.Errorf("reading summaries: %w", err)
	}

	for _, sum := range summaries {
		attrs := []any{
			slog.Int("prn", sum.PRN),
			slog.Group("snapshots",
				slog.Int("total", sum.Snapshots),
				slog.Int("ok", sum.OK),
				slog.Int("errors", sum.Errors)),
			slog.String("lastStatus", sum.LastStatus.String()),
			slog.String("lastSeen", sum.LastSeen.Local().Format(time.DateTime)),
			slog.String("maxSamples", humanize.Comma(int64(sum.MaxSampleCount))),
		}
		if sum.AvgPhaseLock != nil {
			attrs = append(attrs, slog.String("avgPhaseLock", fmt.Sprintf("%0.3f", *sum.AvgPhaseLock)))
		}
		logger.Info("channel", attrs...)
	}

	return nil
}

// channelFiles resolves the source of a batch run: every channel file in a
// directory, or a single file.
func channelFiles(config *Config, logger *slog.Logger) ([]tracking.ChannelFile, error) {
	stat, err := os.Stat(config.Source)
	if err != nil {
		return nil, fmt.Errorf("source '%s': %w", config.Source, err)
	}

	if !stat.IsDir() {
		prn, err := iq.ParsePRN(config.Source)
		if err != nil {
			return nil, fmt.Errorf("source '%s': %w", config.Source, err)
		}
		return []tracking.ChannelFile{{PRN: prn, Path: config.Source}}, nil
	}

	files, err := tracking.DiscoverChannels(config.Source, config.Pattern, logger)
	if err != nil {
		return nil, fmt.Errorf("discovering channels in '%s': %w", config.Source, err)
	}
	return files, nil
}

// liveChannelFiles resolves the source of a live run. The channel file does
// not need to exist yet when a PRN is given; it is reported missing until
// the receiver creates it.
func liveChannelFiles(config *Config, logger *slog.Logger) ([]tracking.ChannelFile, error) {
	stat, err := os.Stat(config.Source)
	isDir := err == nil && stat.IsDir()

	switch {
	case config.PRN != nil && isDir:
		name := fmt.Sprintf("tracking_PRN_%d.dat", *config.PRN)
		return []tracking.ChannelFile{{PRN: *config.PRN, Path: filepath.Join(config.Source, name)}}, nil

	case config.PRN != nil:
		return []tracking.ChannelFile{{PRN: *config.PRN, Path: config.Source}}, nil

	case err != nil && !os.IsNotExist(err):
		return nil, fmt.Errorf("source '%s': %w", config.Source, err)

	case isDir:
		files, err := tracking.DiscoverChannels(config.Source, config.Pattern, logger)
		if err != nil {
			return nil, fmt.Errorf("discovering channels in '%s': %w", config.Source, err)
		}
		return files, nil

	default:
		prn, err := iq.ParsePRN(config.Source)
		if err != nil {
			return nil, fmt.Errorf("source '%s': %w", config.Source, err)
		}
		return []tracking.ChannelFile{{PRN: prn, Path: config.Source}}, nil
	}
}

// openSession creates a history session when a database is configured. It
// returns a nil store otherwise.
func openSession(ctx context.Context, config *Config) (*storage.SqliteStore, int64, error) {
	if config.DBPath == "" {
		return nil, 0, nil
	}

	store := storage.NewSqliteStore(config.DBPath)
	sessionID, err := store.CreateSession(ctx, string(config.Mode), config.Source, config)
	if err != nil {
		_ = store.Close()
		return nil, 0, fmt.Errorf("creating session: %w", err)
	}
	return store, sessionID, nil
}

func logRecord(logger *slog.Logger, rec tracking.Record) {
	attrs := []any{
		slog.Int("prn", rec.PRN),
		slog.String("status", rec.Status.String()),
		slog.String("samples", humanize.Comma(int64(len(rec.Samples)))),
	}

	switch rec.Status {
	case tracking.StatusOK:
		attrs = append(attrs,
			slog.Float64("meanPower", rec.Stats.MeanPower),
			slog.String("phaseLock", fmt.Sprintf("%0.3f", rec.Stats.PhaseLock)))
		logger.Info("channel", attrs...)

	case tracking.StatusReadError:
		if rec.Err != nil {
			attrs = append(attrs, slog.String("error", rec.Err.Error()))
		}
		logger.Warn("channel", attrs...)

	default:
		logger.Warn("channel", attrs...)
	}
}

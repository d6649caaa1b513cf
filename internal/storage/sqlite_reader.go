package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoData indicates either that no snapshots exist for the given
// parameters, or that all snapshots have been read from the reader.
var ErrNoData = errors.New("no data available")

// ReaderOption configures a SnapshotReader with filtering criteria.
type ReaderOption func(*SnapshotReader)

// WithPRN restricts the reader to a single channel.
func WithPRN(prn int) ReaderOption {
	return func(r *SnapshotReader) {
		r.prn = &prn
	}
}

// WithStartTime excludes snapshots taken before t.
func WithStartTime(t time.Time) ReaderOption {
	return func(r *SnapshotReader) {
		t = t.UTC()
		r.startTime = &t
	}
}

// WithEndTime excludes snapshots taken after t.
func WithEndTime(t time.Time) ReaderOption {
	return func(r *SnapshotReader) {
		t = t.UTC()
		r.endTime = &t
	}
}

// WithTimeRange sets both start and end time filters.
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(r *SnapshotReader) {
		WithStartTime(startTime)(r)
		WithEndTime(endTime)(r)
	}
}

// SnapshotReader iterates over stored snapshots. Each reader should only be
// used from a single goroutine.
type SnapshotReader struct {
	db        *sql.DB
	sessionID int64

	prn       *int
	startTime *time.Time
	endTime   *time.Time

	rows    *sql.Rows
	current *Snapshot
	err     error
}

func newSnapshotReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*SnapshotReader, error) {
	r := &SnapshotReader{db: db, sessionID: sessionID}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return r, nil
}

func (r *SnapshotReader) init(ctx context.Context) error {
	if r.db == nil {
		return errors.New("database connection required")
	}
	if r.sessionID <= 0 {
		return errors.New("session ID required")
	}
	if r.startTime != nil && r.endTime != nil && r.startTime.After(*r.endTime) {
		return fmt.Errorf("start time %s is after end time %s", r.startTime, r.endTime)
	}

	rows, err := r.db.QueryContext(ctx, selectSnapshotsSQL, r.sessionID,
		r.prn, r.prn,
		r.startTime, r.startTime,
		r.endTime, r.endTime)
	if err != nil {
		return fmt.Errorf("querying snapshots: %w", err)
	}

	r.rows = rows
	return nil
}

// Next advances to the next snapshot. It returns false when the iteration
// is complete, the context is done or an error occurred; check Error.
func (r *SnapshotReader) Next(ctx context.Context) bool {
	if r.err != nil || r.rows == nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		r.err = err
		return false
	}
	if !r.rows.Next() {
		r.err = ErrNoData
		r.current = nil
		return false
	}

	var data snapshotData
	if err := r.rows.Scan(
		&data.Timestamp,
		&data.PRN,
		&data.Status,
		&data.SampleCount,
		&data.MeanPower,
		&data.PhaseLock,
		&data.Offset,
	); err != nil {
		r.err = fmt.Errorf("scanning snapshot: %w", err)
		return false
	}

	r.current, r.err = fromSnapshotData(&data)
	return r.err == nil
}

// Current returns the snapshot read by the last successful Next.
func (r *SnapshotReader) Current() *Snapshot {
	return r.current
}

// Error returns the error that stopped the iteration, if any. Reaching the
// end of the data is not an error.
func (r *SnapshotReader) Error() error {
	if r.err != nil && !errors.Is(r.err, ErrNoData) {
		return r.err
	}
	if r.rows != nil {
		return r.rows.Err()
	}
	return nil
}

// Close releases the underlying rows.
func (r *SnapshotReader) Close() error {
	if r.rows != nil {
		err := r.rows.Close()
		r.rows = nil
		r.current = nil
		return err
	}
	return nil
}

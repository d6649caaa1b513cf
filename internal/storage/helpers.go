package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/gnss-constellation/internal/tracking"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && *err == nil && !errors.Is(cErr, sql.ErrTxDone) {
		*err = cErr
	}
}

func toSnapshotData(sessionID int64, timestamp time.Time, r tracking.Record) *snapshotData {
	data := &snapshotData{
		SessionID:   sessionID,
		Timestamp:   timestamp.UTC(),
		PRN:         r.PRN,
		Status:      r.Status.String(),
		SampleCount: len(r.Samples),
		Offset:      r.Offset,
	}

	// stats only describe freshly read data
	if r.Status == tracking.StatusOK || r.Status == tracking.StatusPowerZero {
		data.MeanPower = sql.NullFloat64{Float64: r.Stats.MeanPower, Valid: true}
		data.PhaseLock = sql.NullFloat64{Float64: r.Stats.PhaseLock, Valid: true}
	}
	return data
}

func fromSnapshotData(data *snapshotData) (*Snapshot, error) {
	s := Snapshot{
		Timestamp:   data.Timestamp,
		PRN:         data.PRN,
		SampleCount: data.SampleCount,
		Offset:      data.Offset,
	}
	if err := s.Status.UnmarshalText([]byte(data.Status)); err != nil {
		return nil, err
	}
	if data.MeanPower.Valid {
		s.MeanPower = &data.MeanPower.Float64
	}
	if data.PhaseLock.Valid {
		s.PhaseLock = &data.PhaseLock.Float64
	}
	return &s, nil
}

// sqliteDatetime scans timestamps returned without a declared column type,
// e.g. from aggregates, which the driver hands over as text.
type sqliteDatetime struct {
	Datetime time.Time
}

func (d *sqliteDatetime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		d.Datetime = time.Time{}
		return nil
	case time.Time:
		d.Datetime = v
		return nil
	case []byte:
		return d.parse(string(v))
	case string:
		return d.parse(v)
	default:
		return fmt.Errorf("unsupported datetime type %T", value)
	}
}

func (d *sqliteDatetime) parse(s string) error {
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			d.Datetime = t
			return nil
		}
	}
	return fmt.Errorf("parsing datetime %q", s)
}

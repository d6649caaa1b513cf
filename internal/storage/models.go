package storage

import (
	"database/sql"
	"time"

	"github.com/roman-kulish/gnss-constellation/internal/tracking"
)

// Session is a single batch or live run.
type Session struct {
	ID        int64     `json:"ID"`
	StartTime time.Time `json:"startTime"`
	Mode      string    `json:"mode"`             // "batch" or "live"
	Source    string    `json:"source"`           // Directory or file read by the run
	Config    *string   `json:"config,omitempty"` // Run configuration in JSON format
}

// Snapshot is the stored summary of one channel record.
type Snapshot struct {
	Timestamp   time.Time       `json:"timestamp"`
	PRN         int             `json:"prn"`
	Status      tracking.Status `json:"status"`
	SampleCount int             `json:"sampleCount"`
	MeanPower   *float64        `json:"meanPower,omitempty"` // nil when the record carried no new data
	PhaseLock   *float64        `json:"phaseLock,omitempty"`
	Offset      int64           `json:"offset"`
}

// ChannelSummary aggregates the snapshots of one PRN within a session.
type ChannelSummary struct {
	PRN            int             `json:"prn"`
	Snapshots      int             `json:"snapshots"`
	OK             int             `json:"ok"`
	Errors         int             `json:"errors"` // read errors and missing files
	AvgPhaseLock   *float64        `json:"avgPhaseLock,omitempty"`
	LastStatus     tracking.Status `json:"lastStatus"`
	LastSeen       time.Time       `json:"lastSeen"`
	MaxSampleCount int             `json:"maxSampleCount"`
}

type snapshotData struct {
	ID          int64
	SessionID   int64
	Timestamp   time.Time
	PRN         int
	Status      string
	SampleCount int
	MeanPower   sql.NullFloat64
	PhaseLock   sql.NullFloat64
	Offset      int64
}

package storage

import (
	"context"

	"github.com/roman-kulish/gnss-constellation/internal/tracking"
)

// Store keeps a history of constellation runs: one session per run and one
// snapshot per channel record emitted during that run.
type Store interface {
	// CreateSession starts a new run and returns its identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - mode: Run mode ("batch" or "live")
	//   - source: Directory or file the run reads from
	//   - config: Optional run configuration. Can be string, []byte, or JSON-serializable object
	CreateSession(ctx context.Context, mode, source string, config any) (sessionID int64, err error)

	// Session retrieves a run by its ID.
	Session(ctx context.Context, id int64) (*Session, error)

	// Sessions returns all runs ordered by start time.
	Sessions(ctx context.Context) ([]*Session, error)

	// StoreRecords saves one snapshot per record in a single transaction.
	StoreRecords(ctx context.Context, sessionID int64, records []tracking.Record) error

	// ReadSnapshots returns an iterator over the snapshots of a session.
	ReadSnapshots(ctx context.Context, sessionID int64, opts ...ReaderOption) (*SnapshotReader, error)

	// Summaries aggregates the snapshots of a session per PRN.
	Summaries(ctx context.Context, sessionID int64) ([]*ChannelSummary, error)

	// Close releases all database connections. It is safe to call Close
	// multiple times.
	Close() error
}

var _ Store = (*SqliteStore)(nil)

// SessionSink adapts a store session to tracking.RecordSink.
type SessionSink struct {
	store     Store
	sessionID int64
}

// NewSessionSink returns a sink storing records under sessionID.
func NewSessionSink(store Store, sessionID int64) *SessionSink {
	return &SessionSink{store: store, sessionID: sessionID}
}

func (s *SessionSink) StoreRecords(ctx context.Context, records []tracking.Record) error {
	return s.store.StoreRecords(ctx, s.sessionID, records)
}

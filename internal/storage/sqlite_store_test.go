package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/gnss-constellation/internal/iq"
	"github.com/roman-kulish/gnss-constellation/internal/tracking"
)

func newTestStore(t *testing.T) (*SqliteStore, *time.Time) {
	t.Helper()

	store := NewSqliteStore(filepath.Join(t.TempDir(), "history.sqlite"))
	t.Cleanup(func() { _ = store.Close() })

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	return store, &clock
}

func TestSqliteStore_Sessions(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "batch", "/data", map[string]int{"maxChannels": 12})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if _, err = store.CreateSession(ctx, "live", "/data/tracking_PRN_12.dat", nil); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	sess, err := store.Session(ctx, id)
	if err != nil {
		t.Fatalf("Failed to read session: %v", err)
	}
	if sess.Mode != "batch" || sess.Source != "/data" {
		t.Errorf("Unexpected session: %+v", sess)
	}
	if sess.Config == nil || *sess.Config != `{"maxChannels":12}` {
		t.Errorf("Unexpected config: %v", sess.Config)
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) != 2 || sessions[1].Config != nil {
		t.Errorf("Expected 2 sessions, the second without config, got %d", len(sessions))
	}

	if _, err = store.Session(ctx, 99); !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData for unknown session, got %v", err)
	}
}

func TestSqliteStore_Snapshots(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "live", "/data", nil)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	ticks := [][]tracking.Record{
		{
			{PRN: 3, Status: tracking.StatusOK, Samples: make(iq.Batch, 10), Stats: iq.LockStats{MeanPower: 4, PhaseLock: 0.8}, Offset: 80},
			{PRN: 7, Status: tracking.StatusFileMissing},
		},
		{
			{PRN: 3, Status: tracking.StatusOK, Samples: make(iq.Batch, 20), Stats: iq.LockStats{MeanPower: 4, PhaseLock: 0.6}, Offset: 160},
			{PRN: 7, Status: tracking.StatusReadError},
		},
		{
			{PRN: 3, Status: tracking.StatusNoChange, Samples: make(iq.Batch, 20), Offset: 160},
			{PRN: 7, Status: tracking.StatusPowerZero, Samples: make(iq.Batch, 5), Offset: 40},
		},
	}
	for _, records := range ticks {
		if err = store.StoreRecords(ctx, id, records); err != nil {
			t.Fatalf("Failed to store records: %v", err)
		}
		*clock = clock.Add(time.Second)
	}

	reader, err := store.ReadSnapshots(ctx, id, WithPRN(3))
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	defer reader.Close()

	var snapshots []*Snapshot
	for reader.Next(ctx) {
		snapshots = append(snapshots, reader.Current())
	}
	if err = reader.Error(); err != nil {
		t.Fatalf("Reader error: %v", err)
	}

	if len(snapshots) != 3 {
		t.Fatalf("Expected 3 snapshots for PRN 3, got %d", len(snapshots))
	}
	if snapshots[1].SampleCount != 20 || snapshots[1].Offset != 160 {
		t.Errorf("Unexpected snapshot: %+v", snapshots[1])
	}
	if snapshots[0].PhaseLock == nil || *snapshots[0].PhaseLock != 0.8 {
		t.Errorf("Expected phase lock 0.8, got %v", snapshots[0].PhaseLock)
	}
	if snapshots[2].Status != tracking.StatusNoChange || snapshots[2].PhaseLock != nil {
		t.Errorf("Expected no-change snapshot without stats, got %+v", snapshots[2])
	}
	if !snapshots[0].Timestamp.Before(snapshots[2].Timestamp) {
		t.Errorf("Expected snapshots in time order, got %s and %s", snapshots[0].Timestamp, snapshots[2].Timestamp)
	}

	summaries, err := store.Summaries(ctx, id)
	if err != nil {
		t.Fatalf("Failed to read summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("Expected 2 summaries, got %d", len(summaries))
	}

	s3, s7 := summaries[0], summaries[1]
	if s3.PRN != 3 || s3.Snapshots != 3 || s3.OK != 2 || s3.Errors != 0 || s3.MaxSampleCount != 20 {
		t.Errorf("Unexpected PRN 3 summary: %+v", s3)
	}
	if s3.AvgPhaseLock == nil || *s3.AvgPhaseLock < 0.699 || *s3.AvgPhaseLock > 0.701 {
		t.Errorf("Expected average phase lock 0.7, got %v", s3.AvgPhaseLock)
	}
	if s3.LastStatus != tracking.StatusNoChange {
		t.Errorf("Expected last status no-change, got %s", s3.LastStatus)
	}
	if s7.PRN != 7 || s7.Errors != 2 || s7.LastStatus != tracking.StatusPowerZero {
		t.Errorf("Unexpected PRN 7 summary: %+v", s7)
	}
	if want := time.Date(2024, 3, 1, 12, 0, 2, 0, time.UTC); !s7.LastSeen.Equal(want) {
		t.Errorf("Expected last seen %s, got %s", want, s7.LastSeen)
	}
}

func TestSqliteStore_SessionSink(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "batch", "/data", nil)
	if err != nil {
		t.Fatal(err)
	}

	var sink tracking.RecordSink = NewSessionSink(store, id)
	if err = sink.StoreRecords(ctx, []tracking.Record{{PRN: 1, Status: tracking.StatusEmpty}}); err != nil {
		t.Fatalf("Failed to store records: %v", err)
	}
	if err = sink.StoreRecords(ctx, nil); err != nil {
		t.Errorf("Storing no records should be a no-op, got %v", err)
	}

	summaries, err := store.Summaries(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 || summaries[0].LastStatus != tracking.StatusEmpty {
		t.Errorf("Unexpected summaries: %+v", summaries)
	}
}

func TestSnapshotReader_InvalidTimeRange(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "batch", "/data", nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = store.ReadSnapshots(ctx, id, WithTimeRange(clock.Add(time.Hour), *clock))
	if err == nil {
		t.Error("Expected error for inverted time range")
	}
}

func TestSqliteStore_CloseTwice(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.CreateSession(context.Background(), "batch", "/data", nil); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Unexpected close error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Unexpected second close error: %v", err)
	}
}

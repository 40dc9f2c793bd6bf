package aggregator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/analytics"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/postgres"
)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := NewStore(postgres.NewFromDB(db))
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s, mock
}

func TestEnsureSchema(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS parse_analytics_snapshots").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS parse_analytics_snapshots_captured_at").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSnapshot(t *testing.T) {
	s, mock := newStore(t)
	stats := analytics.AggregatedStats{TotalParses: 7, Classes: map[string]int64{"complex_query": 2}}
	data, err := json.Marshal(stats)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO parse_analytics_snapshots").
		WithArgs(data, int64(7), s.now().UTC()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.SaveSnapshot(context.Background(), stats))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestSnapshot(t *testing.T) {
	s, mock := newStore(t)
	captured := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, data, captured_at FROM parse_analytics_snapshots").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data", "captured_at"}).
			AddRow(int64(3), []byte(`{"total_parses":12}`), captured))

	snap, err := s.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.ID)
	assert.Equal(t, int64(12), snap.Stats.TotalParses)
	assert.Equal(t, captured, snap.CapturedAt)
}

func TestLatestSnapshotEmpty(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery("SELECT id, data, captured_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data", "captured_at"}))

	_, err := s.LatestSnapshot(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSnapshotNotFound)
}

func TestListSnapshotsSkipsCorruptRows(t *testing.T) {
	s, mock := newStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, data, captured_at FROM parse_analytics_snapshots").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data", "captured_at"}).
			AddRow(int64(2), []byte(`{"total_parses":4}`), now).
			AddRow(int64(1), []byte(`{broken`), now))

	snaps, err := s.ListSnapshots(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, int64(2), snaps[0].ID)
	assert.Equal(t, int64(4), snaps[0].Stats.TotalParses)
}

func TestSchedulerSavesNonEmptyWindows(t *testing.T) {
	s, mock := newStore(t)
	agg := analytics.NewAggregator(nil)
	sched, err := NewScheduler(s, agg, "@every 1h")
	require.NoError(t, err)

	sched.SaveWindow(context.Background())

	agg.Record(analytics.ParseEvent{Type: analytics.EventParse, Query: "foo"})
	mock.ExpectExec("INSERT INTO parse_analytics_snapshots").
		WithArgs(sqlmock.AnyArg(), int64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	sched.SaveWindow(context.Background())

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int64(0), agg.Stats().TotalParses)
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	s, _ := newStore(t)
	_, err := NewScheduler(s, analytics.NewAggregator(nil), "every minute")
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestSchedulerSavesFinalWindowOnShutdown(t *testing.T) {
	s, mock := newStore(t)
	agg := analytics.NewAggregator(nil)
	sched, err := NewScheduler(s, agg, "@every 1h")
	require.NoError(t, err)

	agg.Record(analytics.ParseEvent{Type: analytics.EventParse, Query: "foo"})
	agg.Record(analytics.ParseEvent{Type: analytics.EventParse, Query: "bar"})
	mock.ExpectExec("INSERT INTO parse_analytics_snapshots").
		WithArgs(sqlmock.AnyArg(), int64(2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Package aggregator persists windows of aggregated parse analytics to
// PostgreSQL on a cron schedule.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/analytics"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS parse_analytics_snapshots (
		id          BIGSERIAL PRIMARY KEY,
		data        JSONB NOT NULL,
		total       BIGINT NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS parse_analytics_snapshots_captured_at
		ON parse_analytics_snapshots (captured_at DESC)`,
}

// Snapshot is one persisted analytics window.
type Snapshot struct {
	ID         int64                     `json:"id"`
	Stats      analytics.AggregatedStats `json:"stats"`
	CapturedAt time.Time                 `json:"captured_at"`
}

// Store persists aggregated analytics windows.
type Store struct {
	db     *postgres.Client
	now    func() time.Time
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		now:    time.Now,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.db.Migrate(ctx, schema...); err != nil {
		return fmt.Errorf("creating analytics schema: %w", err)
	}
	return nil
}

func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}

	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO parse_analytics_snapshots (data, total, captured_at) VALUES ($1, $2, $3)`,
		data, stats.TotalParses, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}

	s.logger.Info("analytics snapshot saved", "total_parses", stats.TotalParses)
	return nil
}

// LatestSnapshot returns apperrors.ErrSnapshotNotFound when nothing has been
// saved yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	row := s.db.DB.QueryRowContext(ctx,
		`SELECT id, data, captured_at FROM parse_analytics_snapshots ORDER BY captured_at DESC LIMIT 1`,
	)
	snap, err := scanSnapshot(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns the last limit snapshots, newest first. Rows that
// fail to decode are skipped.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, data, captured_at FROM parse_analytics_snapshots ORDER BY captured_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0, limit)
	for rows.Next() {
		snap, err := scanSnapshot(rows.Scan)
		if err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		snapshots = append(snapshots, *snap)
	}
	return snapshots, rows.Err()
}

func scanSnapshot(scan func(dest ...any) error) (*Snapshot, error) {
	var (
		snap Snapshot
		data []byte
	)
	if err := scan(&snap.ID, &data, &snap.CapturedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &snap.Stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot %d: %w", snap.ID, err)
	}
	return &snap, nil
}

// Scheduler rotates the aggregator window and saves it on a cron schedule.
type Scheduler struct {
	store  *Store
	agg    *analytics.Aggregator
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler validates spec, a standard five-field cron expression or a
// descriptor such as "@every 1m".
func NewScheduler(store *Store, agg *analytics.Aggregator, spec string) (*Scheduler, error) {
	s := &Scheduler{
		store:  store,
		agg:    agg,
		cron:   cron.New(),
		logger: slog.Default().With("component", "analytics-scheduler"),
	}
	if _, err := s.cron.AddFunc(spec, func() { s.SaveWindow(context.Background()) }); err != nil {
		return nil, fmt.Errorf("%w: snapshot schedule %q: %v", apperrors.ErrInvalidConfig, spec, err)
	}
	return s, nil
}

// Start runs the schedule until ctx is cancelled, then saves the final
// window before returning.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.logger.Info("snapshot schedule started", "entries", len(s.cron.Entries()))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.SaveWindow(shutdownCtx)
}

// SaveWindow rotates the aggregator and persists the closed window. Empty
// windows are not saved.
func (s *Scheduler) SaveWindow(ctx context.Context) {
	stats := s.agg.Rotate()
	if stats.TotalParses == 0 {
		return
	}
	if err := s.store.SaveSnapshot(ctx, stats); err != nil {
		s.logger.Error("snapshot failed", "total_parses", stats.TotalParses, "error", err)
	}
}

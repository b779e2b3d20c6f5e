package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"vod_archiver/internal/domain"
)

type StatsStore struct {
	db *sqlx.DB
}

func NewStatsStore(db *sqlx.DB) *StatsStore {
	return &StatsStore{db: db}
}

func (s *StatsStore) Get(ctx context.Context, channel string) (*domain.ArchiveStats, error) {
	var stats domain.ArchiveStats
	query := `
		SELECT id, channel_name, total_videos, total_messages, total_size_bytes,
			total_duration_seconds, last_sync, next_sync, created_at, updated_at
		FROM archive_stats
		WHERE channel_name = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &stats, query, channel)
	if errors.Is(err, sql.ErrNoRows) {
		// Return empty stats for channels that never synced
		return &domain.ArchiveStats{ChannelName: channel}, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Upsert creates the channel's row on first use and otherwise adds the delta
// to the running totals and moves the sync timestamps forward.
func (s *StatsStore) Upsert(ctx context.Context, channel string, delta domain.StatsDelta) error {
	query := `
		INSERT INTO archive_stats (
			channel_name, total_videos, total_messages, total_size_bytes,
			total_duration_seconds, last_sync, next_sync, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (channel_name) DO UPDATE SET
			total_videos = archive_stats.total_videos + EXCLUDED.total_videos,
			total_messages = archive_stats.total_messages + EXCLUDED.total_messages,
			total_size_bytes = archive_stats.total_size_bytes + EXCLUDED.total_size_bytes,
			total_duration_seconds = archive_stats.total_duration_seconds + EXCLUDED.total_duration_seconds,
			last_sync = EXCLUDED.last_sync,
			next_sync = EXCLUDED.next_sync,
			updated_at = NOW()`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		channel,
		delta.Videos,
		delta.Messages,
		delta.SizeBytes,
		delta.DurationSeconds,
		delta.LastSync,
		delta.NextSync,
	)
	return err
}

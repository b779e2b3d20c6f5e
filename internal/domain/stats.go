package domain

import "time"

type ArchiveStats struct {
	ID                   int64      `db:"id" json:"id"`
	ChannelName          string     `db:"channel_name" json:"channel_name"`
	TotalVideos          int64      `db:"total_videos" json:"total_videos"`
	TotalMessages        int64      `db:"total_messages" json:"total_messages"`
	TotalSizeBytes       int64      `db:"total_size_bytes" json:"total_size_bytes"`
	TotalDurationSeconds int64      `db:"total_duration_seconds" json:"total_duration_seconds"`
	LastSync             *time.Time `db:"last_sync" json:"last_sync"`
	NextSync             *time.Time `db:"next_sync" json:"next_sync"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// StatsDelta is what a single sync run adds to a channel's stats row.
type StatsDelta struct {
	Videos          int64
	Messages        int64
	SizeBytes       int64
	DurationSeconds int64
	LastSync        time.Time
	NextSync        time.Time
}

// ArchiveTotals are live aggregates computed over downloaded videos.
type ArchiveTotals struct {
	Videos          int64 `db:"videos" json:"videos"`
	Messages        int64 `db:"messages" json:"messages"`
	DurationSeconds int64 `db:"duration_seconds" json:"duration_seconds"`
	SizeBytes       int64 `db:"-" json:"size_bytes"`
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"vod_archiver/internal/domain"
)

const videoColumns = `
	id, remote_id, title, description, channel_name, published_at,
	duration_seconds, duration_formatted, video_url, local_path, thumbnail_url,
	downloaded, processed, chat_message_count, chat_is_synthetic,
	views, likes, created_at, updated_at`

type VideoStore struct {
	db *sqlx.DB
}

func NewVideoStore(db *sqlx.DB) *VideoStore {
	return &VideoStore{db: db}
}

// FindByRemoteID is the dedup lookup. found is false when the remote id has
// never been archived.
func (s *VideoStore) FindByRemoteID(ctx context.Context, remoteID string) (domain.Video, bool, error) {
	var video domain.Video
	query := `SELECT ` + videoColumns + ` FROM videos WHERE remote_id = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &video, query, remoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Video{}, false, nil
	}
	if err != nil {
		return domain.Video{}, false, err
	}
	return video, true, nil
}

// ExistingRemoteIDs reports which of ids are already archived.
func (s *VideoStore) ExistingRemoteIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	var found []string
	query := `SELECT remote_id FROM videos WHERE remote_id = ANY($1)`
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &found, query, pq.Array(ids)); err != nil {
		return nil, err
	}

	result := make(map[string]bool, len(found))
	for _, id := range found {
		result[id] = true
	}
	return result, nil
}

// Insert is the single commit point that marks a video archived. Losing a
// race on remote_id is reported as InsertDuplicate, not as an error.
func (s *VideoStore) Insert(ctx context.Context, video *domain.Video) (domain.InsertResult, error) {
	if !video.Downloaded || video.LocalPath == "" {
		return domain.InsertResult{}, fmt.Errorf("insert video %s: only downloaded videos with a local path are stored", video.RemoteID)
	}

	query := `
		INSERT INTO videos (
			remote_id, title, description, channel_name, published_at,
			duration_seconds, duration_formatted, video_url, local_path, thumbnail_url,
			downloaded, processed, chat_message_count, chat_is_synthetic, views, likes,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17
		)
		ON CONFLICT (remote_id) DO NOTHING
		RETURNING id`

	now := time.Now().UTC()

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		video.RemoteID,
		video.Title,
		video.Description,
		video.ChannelName,
		video.PublishedAt,
		video.DurationSeconds,
		video.DurationFormatted,
		video.URL,
		video.LocalPath,
		video.ThumbnailURL,
		video.Downloaded,
		video.Processed,
		video.ChatMessageCount,
		video.ChatIsSynthetic,
		video.Views,
		video.Likes,
		now,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return domain.InsertResult{Status: domain.InsertDuplicate}, nil
	}
	if err != nil {
		return domain.InsertResult{}, err
	}

	video.ID = id
	video.CreatedAt = now
	video.UpdatedAt = now

	return domain.InsertResult{ID: id, Status: domain.InsertInserted}, nil
}

// MarkProcessed records the outcome of the chat step.
func (s *VideoStore) MarkProcessed(ctx context.Context, videoID int64, messageCount int, synthetic bool) error {
	query := `
		UPDATE videos
		SET chat_message_count = $2, chat_is_synthetic = $3, processed = TRUE, updated_at = $4
		WHERE id = $1`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, videoID, messageCount, synthetic, time.Now().UTC())
	if err != nil {
		return err
	}
	return expectRow(res)
}

// ListNeedingChat returns a channel's videos that were saved but whose chat
// step never completed, oldest first.
func (s *VideoStore) ListNeedingChat(ctx context.Context, channel string) ([]domain.Video, error) {
	query := `SELECT ` + videoColumns + `
		FROM videos
		WHERE channel_name = $1 AND downloaded AND NOT processed
		ORDER BY created_at ASC, id ASC`

	var videos []domain.Video
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &videos, query, channel)
	return videos, err
}

// Delete removes a video. Its chat messages go with it through the
// chat_messages foreign key's ON DELETE CASCADE.
func (s *VideoStore) Delete(ctx context.Context, videoID int64) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, videoID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// GetByID returns a downloaded video.
func (s *VideoStore) GetByID(ctx context.Context, videoID int64) (domain.Video, error) {
	var video domain.Video
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1 AND downloaded`

	err := s.db.GetContext(ctx, &video, query, videoID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Video{}, domain.ErrNotFound
	}
	return video, err
}

// List pages through downloaded videos, newest publish date first.
func (s *VideoStore) List(ctx context.Context, page, perPage int) (domain.VideoPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	result := domain.VideoPage{Page: page, PerPage: perPage}

	if err := s.db.GetContext(ctx, &result.TotalCount, `SELECT COUNT(*) FROM videos WHERE downloaded`); err != nil {
		return result, err
	}

	offset, ok := pageOffset(page, perPage, result.TotalCount)
	if !ok {
		result.Videos = []domain.Video{}
		return result, nil
	}

	query := `SELECT ` + videoColumns + `
		FROM videos
		WHERE downloaded
		ORDER BY published_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	if err := s.db.SelectContext(ctx, &result.Videos, query, perPage, offset); err != nil {
		return result, err
	}

	return result, nil
}

// Search matches titles case-insensitively.
func (s *VideoStore) Search(ctx context.Context, term string) ([]domain.Video, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}

	query := `SELECT ` + videoColumns + `
		FROM videos
		WHERE downloaded AND title ILIKE $1
		ORDER BY published_at DESC, id DESC`

	var videos []domain.Video
	err := s.db.SelectContext(ctx, &videos, query, "%"+escapeLike(term)+"%")
	return videos, err
}

// Totals aggregates downloaded videos. SizeBytes is left for the caller, which
// owns access to the media files.
func (s *VideoStore) Totals(ctx context.Context) (domain.ArchiveTotals, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM videos WHERE downloaded) AS videos,
			(SELECT COUNT(*) FROM chat_messages) AS messages,
			(SELECT COALESCE(SUM(duration_seconds), 0) FROM videos WHERE downloaded) AS duration_seconds`

	var totals domain.ArchiveTotals
	err := s.db.GetContext(ctx, &totals, query)
	return totals, err
}

// LocalPaths lists media files of downloaded videos.
func (s *VideoStore) LocalPaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := s.db.SelectContext(ctx, &paths, `SELECT local_path FROM videos WHERE downloaded ORDER BY id`)
	return paths, err
}

// pageOffset reports false for pages past the end. Those are rejected before
// multiplying, so an arbitrarily large page cannot overflow the offset.
func pageOffset(page, perPage, total int) (int, bool) {
	if page < 1 || perPage < 1 || page-1 > total/perPage {
		return 0, false
	}
	return (page - 1) * perPage, true
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"vod_archiver/internal/domain"
)

// chatColumnsPerRow must match the placeholders written per message.
const (
	chatColumnsPerRow = 9
	chatBatchSize     = 1000
)

type ChatStore struct {
	db *sqlx.DB
}

func NewChatStore(db *sqlx.DB) *ChatStore {
	return &ChatStore{db: db}
}

// InsertBatch writes all messages of a video. Run it inside
// TransactionManager.WithTransaction to get all-or-nothing semantics across
// chunks.
func (s *ChatStore) InsertBatch(ctx context.Context, videoID int64, messages []domain.ChatMessage) error {
	exec := GetExecutor(ctx, s.db)

	for start := 0; start < len(messages); start += chatBatchSize {
		end := min(start+chatBatchSize, len(messages))
		if err := insertChatChunk(ctx, exec, videoID, messages[start:end]); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("insert chat for video %d: %w", videoID, domain.ErrNotFound)
			}
			return err
		}
	}

	return nil
}

func insertChatChunk(ctx context.Context, exec sqlx.ExtContext, videoID int64, messages []domain.ChatMessage) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO chat_messages (
		video_id, author, message_text, offset_seconds, offset_formatted,
		message_timestamp, is_moderator, is_subscriber, is_broadcaster
	) VALUES `)

	args := make([]interface{}, 0, len(messages)*chatColumnsPerRow)

	for i, m := range messages {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := 1; c <= chatColumnsPerRow; c++ {
			if c > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*chatColumnsPerRow+c)
		}
		sb.WriteString(")")

		args = append(args,
			videoID,
			m.Author,
			m.Text,
			m.OffsetSeconds,
			m.OffsetFormatted,
			m.Timestamp,
			m.IsModerator,
			m.IsSubscriber,
			m.IsBroadcaster,
		)
	}

	_, err := exec.ExecContext(ctx, sb.String(), args...)
	return err
}

// ListByVideo returns a video's transcript in playback order.
func (s *ChatStore) ListByVideo(ctx context.Context, videoID int64) ([]domain.ChatMessage, error) {
	query := `
		SELECT id, video_id, author, message_text, offset_seconds, offset_formatted,
			message_timestamp, is_moderator, is_subscriber, is_broadcaster, created_at
		FROM chat_messages
		WHERE video_id = $1
		ORDER BY offset_seconds ASC, id ASC`

	var messages []domain.ChatMessage
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &messages, query, videoID)
	return messages, err
}

func (s *ChatStore) CountByVideo(ctx context.Context, videoID int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &n, `SELECT COUNT(*) FROM chat_messages WHERE video_id = $1`, videoID)
	return n, err
}

package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"vod_archiver/internal/domain"
)

type VideoSource interface {
	ID() string
	ListVideos(ctx context.Context, channel string, limit int) ([]domain.VideoSummary, error)
}

type Downloader interface {
	Fetch(ctx context.Context, remoteID, title, dir string) (string, error)
}

type ChatSynthesizer interface {
	Synthesize(durationSeconds int) []domain.ChatEvent
}

type VideoStore interface {
	ExistingRemoteIDs(ctx context.Context, ids []string) (map[string]bool, error)
	FindByRemoteID(ctx context.Context, remoteID string) (domain.Video, bool, error)
	Insert(ctx context.Context, video *domain.Video) (domain.InsertResult, error)
	MarkProcessed(ctx context.Context, videoID int64, messageCount int, synthetic bool) error
	ListNeedingChat(ctx context.Context, channel string) ([]domain.Video, error)
}

type ChatStore interface {
	InsertBatch(ctx context.Context, videoID int64, messages []domain.ChatMessage) error
}

type StatsStore interface {
	Upsert(ctx context.Context, channel string, delta domain.StatsDelta) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, runID string, video *domain.Video) error
	Close() error
}

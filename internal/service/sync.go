package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"vod_archiver/internal/config"
	"vod_archiver/internal/domain"
	"vod_archiver/internal/metrics"
)

type SyncService struct {
	source     VideoSource
	downloader Downloader
	synth      ChatSynthesizer
	videos     VideoStore
	chats      ChatStore
	stats      StatsStore
	txManager  TransactionManager
	publisher  Publisher
	metrics    metrics.Recorder
	logger     *slog.Logger
	archive    config.ArchiveConfig
	sync       config.SyncConfig

	now      func() time.Time
	sleep    func(time.Duration)
	fileSize func(path string) int64
}

func NewSyncService(
	source VideoSource,
	downloader Downloader,
	synth ChatSynthesizer,
	videos VideoStore,
	chats ChatStore,
	stats StatsStore,
	txManager TransactionManager,
	publisher Publisher,
	rec metrics.Recorder,
	logger *slog.Logger,
	archiveCfg config.ArchiveConfig,
	syncCfg config.SyncConfig,
) *SyncService {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &SyncService{
		source:     source,
		downloader: downloader,
		synth:      synth,
		videos:     videos,
		chats:      chats,
		stats:      stats,
		txManager:  txManager,
		publisher:  publisher,
		metrics:    rec,
		logger:     logger.With("source", source.ID()),
		archive:    archiveCfg,
		sync:       syncCfg,
		now:        time.Now,
		sleep:      time.Sleep,
		fileSize:   statSize,
	}
}

// RunSync archives up to limit of the channel's newest videos that are not in
// the store yet and returns how many were archived. Per-video failures are
// logged and skipped; only source or store outages return an error.
func (s *SyncService) RunSync(ctx context.Context, channel string, limit int) (int, error) {
	stats, err := s.run(ctx, channel, limit, 0)
	if stats == nil {
		return 0, err
	}
	return stats.Archived, err
}

// Sync is the scheduler entry point: SyncChannel for the configured channel
// and limit.
func (s *SyncService) Sync(ctx context.Context) (*domain.SyncStats, error) {
	return s.SyncChannel(ctx, s.archive.Channel, s.archive.MaxVideosPerSync)
}

// SyncChannel repairs chat left behind by earlier runs, then runs a sync.
// Messages attached by the repair pass are counted in the run's stats.
func (s *SyncService) SyncChannel(ctx context.Context, channel string, limit int) (*domain.SyncStats, error) {
	_, repairedMessages, err := s.repairChat(ctx, channel)
	if err != nil {
		s.logger.Warn("chat repair pass failed", "channel", channel, "error", err)
	}

	return s.run(ctx, channel, limit, repairedMessages)
}

// RepairChat attaches chat to the channel's videos whose chat step failed in
// an earlier run. It returns how many videos were repaired.
func (s *SyncService) RepairChat(ctx context.Context, channel string) (int, error) {
	repaired, _, err := s.repairChat(ctx, channel)
	return repaired, err
}

func (s *SyncService) repairChat(ctx context.Context, channel string) (int, int, error) {
	pending, err := s.videos.ListNeedingChat(ctx, channel)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: list videos needing chat: %w", domain.ErrStoreUnavailable, err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	s.logger.Info("repairing chat", "channel", channel, "videos", len(pending))

	repaired, messages := 0, 0
	for i := range pending {
		video := &pending[i]
		n, err := s.attachChat(ctx, video)
		if err != nil {
			s.logger.Warn("chat repair failed", "video_id", video.RemoteID, "error", err)
			continue
		}
		repaired++
		messages += n
	}

	return repaired, messages, nil
}

func (s *SyncService) run(ctx context.Context, channel string, limit int, carriedMessages int) (*domain.SyncStats, error) {
	startTime := s.now()
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID, "channel", channel)

	logger.Info("starting sync",
		"limit", limit,
		"synthetic_chat", s.archive.SyntheticChatEnabled(),
		"chat_messages_target", s.archive.ChatMessagesPerVideo,
	)

	summaries, err := s.source.ListVideos(ctx, channel, limit)
	if err != nil {
		if !errors.Is(err, domain.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
		}
		return nil, fmt.Errorf("list videos: %w", err)
	}
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}

	logger.Info("discovered videos", "count", len(summaries))

	stats := &domain.SyncStats{
		RunID:      runID,
		Channel:    channel,
		Discovered: len(summaries),
		Messages:   carriedMessages,
	}
	delta := domain.StatsDelta{Messages: int64(carriedMessages)}

	runErr := s.archiveAll(ctx, logger, channel, startTime, summaries, stats, &delta)

	finalizeCtx := ctx
	if runErr != nil {
		// Videos archived before the abort still belong in the ledger.
		finalizeCtx = context.WithoutCancel(ctx)
	}
	if err := s.finalize(finalizeCtx, channel, delta); err != nil {
		if runErr == nil {
			stats.Duration = time.Since(startTime)
			return stats, err
		}
		logger.Error("update stats after aborted run", "error", err)
	}

	stats.Duration = time.Since(startTime)
	s.metrics.ObserveRunDuration(channel, stats.Duration)

	if runErr != nil {
		logger.Error("sync aborted",
			"archived", stats.Archived,
			"failed", stats.Failed,
			"error", runErr,
		)
		return stats, runErr
	}

	logger.Info("sync completed",
		"discovered", stats.Discovered,
		"archived", stats.Archived,
		"skipped", stats.Skipped,
		"duplicates", stats.Duplicates,
		"failed", stats.Failed,
		"chat_failed", stats.ChatFailed,
		"messages", stats.Messages,
		"published", stats.Published,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *SyncService) archiveAll(
	ctx context.Context,
	logger *slog.Logger,
	channel string,
	runStart time.Time,
	summaries []domain.VideoSummary,
	stats *domain.SyncStats,
	delta *domain.StatsDelta,
) error {
	if len(summaries) == 0 {
		return nil
	}

	ids := make([]string, len(summaries))
	for i, v := range summaries {
		ids[i] = v.RemoteID
	}

	existing, err := s.videos.ExistingRemoteIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("%w: check archived videos: %w", domain.ErrStoreUnavailable, err)
	}

	attempted := 0
	for i := range summaries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sync interrupted: %w", err)
		}

		summary := summaries[i]
		videoLog := logger.With("video_id", summary.RemoteID)

		if existing[summary.RemoteID] {
			videoLog.Debug("already archived")
			stats.Skipped++
			s.metrics.IncVideos(channel, metrics.OutcomeSkipped)
			continue
		}

		// Another run may have archived it since the batch lookup.
		_, found, err := s.videos.FindByRemoteID(ctx, summary.RemoteID)
		if err != nil {
			return fmt.Errorf("%w: find video %s: %w", domain.ErrStoreUnavailable, summary.RemoteID, err)
		}
		if found {
			videoLog.Debug("already archived")
			stats.Skipped++
			s.metrics.IncVideos(channel, metrics.OutcomeSkipped)
			continue
		}

		if attempted > 0 && s.archive.PaceDelay > 0 {
			s.sleep(s.archive.PaceDelay)
		}
		attempted++

		video, err := s.download(ctx, videoLog, channel, runStart, summary)
		if err != nil {
			videoLog.Error("download failed", "title", summary.Title, "error", err)
			stats.Failed++
			s.metrics.IncVideos(channel, metrics.OutcomeFailed)
			continue
		}

		res, err := s.videos.Insert(ctx, video)
		if err != nil {
			return fmt.Errorf("%w: insert video %s: %w", domain.ErrStoreUnavailable, summary.RemoteID, err)
		}
		if !res.Inserted() {
			videoLog.Info("video archived concurrently, skipping")
			stats.Duplicates++
			s.metrics.IncVideos(channel, metrics.OutcomeDuplicate)
			continue
		}
		video.ID = res.ID

		stats.Archived++
		s.metrics.IncVideos(channel, metrics.OutcomeArchived)
		delta.Videos++
		delta.DurationSeconds += int64(video.DurationSeconds)
		delta.SizeBytes += s.fileSize(video.LocalPath)

		n, err := s.attachChat(ctx, video)
		if err != nil {
			videoLog.Warn("chat step failed, video left for chat repair", "error", err)
			stats.ChatFailed++
			s.metrics.IncVideos(channel, metrics.OutcomeChatFailed)
		} else {
			stats.Messages += n
			delta.Messages += int64(n)
			s.metrics.AddChatMessages(channel, n)
		}

		videoLog.Info("video archived", "id", video.ID, "path", video.LocalPath, "messages", n)

		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, stats.RunID, video); err != nil {
				videoLog.Warn("publish failed", "error", err)
			} else {
				stats.Published++
			}
		}
	}

	return nil
}

func (s *SyncService) download(
	ctx context.Context,
	logger *slog.Logger,
	channel string,
	runStart time.Time,
	summary domain.VideoSummary,
) (*domain.Video, error) {
	logger.Debug("starting download", "title", summary.Title)

	start := time.Now()
	path, err := s.downloader.Fetch(ctx, summary.RemoteID, summary.Title, s.archive.VideoDir)
	if err != nil {
		if !errors.Is(err, domain.ErrDownloadFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrDownloadFailed, err)
		}
		return nil, err
	}
	s.metrics.ObserveDownloadDuration(time.Since(start))

	publishedAt, ok := summary.PublishedAt()
	if !ok {
		publishedAt = runStart
	}

	return &domain.Video{
		RemoteID:          summary.RemoteID,
		Title:             summary.Title,
		Description:       summary.Description,
		ChannelName:       channel,
		PublishedAt:       publishedAt,
		DurationSeconds:   summary.Duration,
		DurationFormatted: domain.FormatClock(float64(summary.Duration)),
		URL:               summary.URL,
		LocalPath:         path,
		ThumbnailURL:      summary.ThumbnailURL,
		Downloaded:        true,
	}, nil
}

// attachChat stores the video's chat and marks it processed in one
// transaction. With synthesis disabled the video is marked processed with
// no messages.
func (s *SyncService) attachChat(ctx context.Context, video *domain.Video) (int, error) {
	if !s.archive.SyntheticChatEnabled() {
		if err := s.videos.MarkProcessed(ctx, video.ID, 0, false); err != nil {
			return 0, fmt.Errorf("%w: %w", domain.ErrChatPersistFailed, err)
		}
		video.Processed = true
		return 0, nil
	}

	messages := domain.NewChatMessages(video.ID, s.synth.Synthesize(video.DurationSeconds))

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.chats.InsertBatch(txCtx, video.ID, messages); err != nil {
			return fmt.Errorf("insert chat: %w", err)
		}
		if err := s.videos.MarkProcessed(txCtx, video.ID, len(messages), true); err != nil {
			return fmt.Errorf("mark processed: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrChatPersistFailed, err)
	}

	video.ChatMessageCount = len(messages)
	video.ChatIsSynthetic = true
	video.Processed = true

	return len(messages), nil
}

func (s *SyncService) finalize(ctx context.Context, channel string, delta domain.StatsDelta) error {
	delta.LastSync = s.now()
	delta.NextSync = delta.LastSync.Add(s.sync.Interval)

	if err := s.stats.Upsert(ctx, channel, delta); err != nil {
		return fmt.Errorf("%w: update stats: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func statSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

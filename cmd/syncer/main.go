package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"vod_archiver/internal/chat"
	"vod_archiver/internal/config"
	"vod_archiver/internal/downloader"
	"vod_archiver/internal/metrics"
	"vod_archiver/internal/publisher"
	"vod_archiver/internal/scheduler"
	"vod_archiver/internal/service"
	"vod_archiver/internal/source/twitch"
	"vod_archiver/internal/storage/postgres"
)

const (
	shutdownTimeout = 10 * time.Second
	pushJob         = "vod_syncer"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single sync and exit")
	channel := flag.String("channel", "", "channel to sync with -once (defaults to archive.channel)")
	limit := flag.Int("limit", 0, "max videos to sync with -once (defaults to archive.max_videos_per_sync)")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	if !*once && !cfg.Sync.IsEnabled() {
		logger.Error("sync is disabled in config; use -once for a manual run")
		os.Exit(1)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// RabbitMQ is optional; the service skips publishing without it
	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	// Initialize stores
	videoStore := postgres.NewVideoStore(db)
	chatStore := postgres.NewChatStore(db)
	statsStore := postgres.NewStatsStore(db)
	txManager := postgres.NewTransactionManager(db)

	twitchSource := twitch.New(twitch.Config{
		YtdlpPath:      cfg.Source.YtdlpPath,
		BaseURL:        cfg.Source.BaseURL,
		Filter:         cfg.Source.Filter,
		Timeout:        cfg.Source.Timeout,
		MaxAttempts:    cfg.Source.Retry.MaxAttempts,
		InitialBackoff: cfg.Source.Retry.InitialBackoff,
		MaxBackoff:     cfg.Source.Retry.MaxBackoff,
	}, logger)

	dl := downloader.New(downloader.Config{
		YtdlpPath: cfg.Source.YtdlpPath,
		Format:    cfg.Archive.VideoFormat,
		Timeout:   cfg.Archive.DownloadTimeout,
		URLFor:    twitchSource.VideoURL,
		OnProgress: func(p downloader.Progress) {
			logger.Debug("download progress",
				"video_id", p.VideoID,
				"percent", p.Percent,
				"speed", p.Speed,
				"eta", p.ETA,
			)
		},
	}, logger)

	syncService := service.NewSyncService(
		twitchSource,
		dl,
		chat.NewSynthesizer(),
		videoStore,
		chatStore,
		statsStore,
		txManager,
		pub,
		metrics.New(cfg.Metrics, nil),
		logger,
		cfg.Archive,
		cfg.Sync,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if *once {
		target := cfg.Archive.Channel
		if *channel != "" {
			target = *channel
		}
		maxVideos := cfg.Archive.MaxVideosPerSync
		if *limit > 0 {
			maxVideos = *limit
		}

		stats, err := syncService.SyncChannel(ctx, target, maxVideos)
		pushMetrics(cfg.Metrics, logger)
		if err != nil {
			archived := 0
			if stats != nil {
				archived = stats.Archived
			}
			logger.Error("sync failed", "channel", target, "archived", archived, "error", err)
			os.Exit(1)
		}
		logger.Info("sync finished", "channel", target, "archived", stats.Archived, "messages", stats.Messages)
		return
	}

	if cfg.Metrics.Enabled {
		metricsSrv := metrics.NewServer(cfg.Metrics.SyncerAddr, cfg.Metrics.Path, prometheus.DefaultGatherer)
		go func() {
			logger.Info("metrics server listening", "addr", cfg.Metrics.SyncerAddr, "path", cfg.Metrics.Path)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown", "error", err)
			}
		}()
	}

	sched := scheduler.NewScheduler(syncService, cfg.Sync.Interval, cfg.Sync.RunTimeout, logger)

	logger.Info("starting vod syncer",
		"source", twitchSource.Name(),
		"channel", cfg.Archive.Channel,
		"interval", cfg.Sync.Interval,
		"max_videos", cfg.Archive.MaxVideosPerSync,
	)

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

// pushMetrics hands a single run's metrics to the Pushgateway, since nothing
// scrapes a process that exits right after the run.
func pushMetrics(cfg config.MetricsConfig, logger *slog.Logger) {
	if !cfg.Enabled || cfg.PushgatewayURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := metrics.Push(ctx, cfg.PushgatewayURL, pushJob, prometheus.DefaultGatherer); err != nil {
		logger.Warn("push metrics failed", "url", cfg.PushgatewayURL, "error", err)
		return
	}
	logger.Info("metrics pushed", "url", cfg.PushgatewayURL, "job", pushJob)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

package twitch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Jeffail/gabs/v2"

	"vod_archiver/internal/domain"
	"vod_archiver/internal/procexec"
)

const (
	SourceID   = "twitch"
	SourceName = "Twitch"
)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Config holds Twitch source configuration.
type Config struct {
	YtdlpPath      string
	BaseURL        string
	Filter         string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source lists a channel's videos through yt-dlp's flat playlist extraction.
// Only metadata is requested; nothing is downloaded.
type Source struct {
	binary         string
	baseURL        string
	filter         string
	timeout        time.Duration
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	run            CommandRunner
	logger         *slog.Logger
}

// New creates a new Twitch source.
func New(cfg Config, logger *slog.Logger) *Source {
	if cfg.YtdlpPath == "" {
		cfg.YtdlpPath = "yt-dlp"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.twitch.tv"
	}
	if cfg.Filter == "" {
		cfg.Filter = "uploads"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Source{
		binary:         cfg.YtdlpPath,
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		filter:         cfg.Filter,
		timeout:        cfg.Timeout,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		run:            defaultCommandRunner,
		logger:         logger.With("source", SourceID),
	}
}

// WithRunner swaps the process runner, mainly for tests.
func (s *Source) WithRunner(run CommandRunner) *Source {
	s.run = run
	return s
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Name returns human-readable name.
func (s *Source) Name() string {
	return SourceName
}

// VideoURL is the canonical page of a video. yt-dlp reports Twitch ids with a
// "v" prefix that the site's URLs do not carry.
func (s *Source) VideoURL(remoteID string) string {
	return fmt.Sprintf("%s/videos/%s", s.baseURL, strings.TrimPrefix(remoteID, "v"))
}

// ListVideos returns at most limit videos in the order the platform lists
// them, usually newest first. Failures wrap domain.ErrSourceUnavailable.
func (s *Source) ListVideos(ctx context.Context, channel string, limit int) ([]domain.VideoSummary, error) {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel == "" {
		return nil, fmt.Errorf("%w: empty channel", domain.ErrSourceUnavailable)
	}

	url := fmt.Sprintf("%s/%s/videos?filter=%s", s.baseURL, channel, s.filter)
	args := []string{"--flat-playlist", "-J", "--no-warnings"}
	if limit > 0 {
		args = append(args, "--playlist-end", fmt.Sprint(limit))
	}
	args = append(args, url)

	var out []byte
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		out, err = s.query(ctx, args)
		if err == nil {
			break
		}

		if attempt == s.maxAttempts {
			return nil, fmt.Errorf("%w: after %d attempts: %v", domain.ErrSourceUnavailable, s.maxAttempts, err)
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("listing failed, retrying",
			"channel", channel,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
	}

	videos, err := s.parse(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	if limit > 0 && len(videos) > limit {
		videos = videos[:limit]
	}

	s.logger.Info("listed channel videos", "channel", channel, "count", len(videos))

	return videos, nil
}

func (s *Source) query(ctx context.Context, args []string) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.run(ctx, s.binary, args...)
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if s.maxBackoff > 0 && backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func (s *Source) parse(data []byte) ([]domain.VideoSummary, error) {
	root, err := gabs.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}

	entries := root.Path("entries").Children()
	videos := make([]domain.VideoSummary, 0, len(entries))

	for _, entry := range entries {
		id := str(entry, "id")
		if id == "" {
			s.logger.Warn("skipping entry without id")
			continue
		}

		title := str(entry, "title")
		if title == "" {
			title = "Unknown"
		}

		videos = append(videos, domain.VideoSummary{
			RemoteID:     id,
			Title:        title,
			Description:  str(entry, "description"),
			UploadDate:   str(entry, "upload_date"),
			Duration:     int(num(entry, "duration")),
			ThumbnailURL: thumbnail(entry),
			URL:          s.VideoURL(id),
		})
	}

	return videos, nil
}

func str(c *gabs.Container, path string) string {
	v, _ := c.Path(path).Data().(string)
	return v
}

func num(c *gabs.Container, path string) float64 {
	v, _ := c.Path(path).Data().(float64)
	return v
}

// thumbnail prefers the direct field, then the largest listed variant.
func thumbnail(entry *gabs.Container) string {
	if t := str(entry, "thumbnail"); t != "" {
		return t
	}

	var best string
	var bestArea float64
	for _, t := range entry.Path("thumbnails").Children() {
		area := num(t, "width") * num(t, "height")
		if u := str(t, "url"); u != "" && (best == "" || area > bestArea) {
			best, bestArea = u, area
		}
	}
	return best
}

func defaultCommandRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := procexec.Command(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

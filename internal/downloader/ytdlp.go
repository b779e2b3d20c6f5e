package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vod_archiver/internal/domain"
	"vod_archiver/internal/procexec"
)

// CommandRunner executes an external command, streaming its output.
type CommandRunner func(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) error

type Config struct {
	YtdlpPath  string
	Format     string
	Timeout    time.Duration
	URLFor     func(remoteID string) string
	OnProgress ProgressFunc
}

// Downloader fetches a single video's media with yt-dlp. A file already
// present under the deterministic name is returned without downloading, so a
// video is fetched at most once even across restarts.
type Downloader struct {
	binary     string
	format     string
	timeout    time.Duration
	urlFor     func(string) string
	onProgress ProgressFunc
	run        CommandRunner
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Downloader {
	if cfg.YtdlpPath == "" {
		cfg.YtdlpPath = "yt-dlp"
	}
	if cfg.Format == "" {
		cfg.Format = "best[ext=mp4]"
	}
	if cfg.URLFor == nil {
		cfg.URLFor = func(id string) string { return id }
	}
	return &Downloader{
		binary:     cfg.YtdlpPath,
		format:     cfg.Format,
		timeout:    cfg.Timeout,
		urlFor:     cfg.URLFor,
		onProgress: cfg.OnProgress,
		run:        defaultCommandRunner,
		logger:     logger.With("component", "downloader"),
	}
}

// WithRunner swaps the process runner, mainly for tests.
func (d *Downloader) WithRunner(run CommandRunner) *Downloader {
	d.run = run
	return d
}

// Fetch downloads the video into dir and returns the local file path. Any
// failure, including the configured deadline expiring, wraps
// domain.ErrDownloadFailed. Nothing is retried here.
func (d *Downloader) Fetch(ctx context.Context, remoteID, title, dir string) (string, error) {
	if remoteID == "" {
		return "", fmt.Errorf("%w: empty video id", domain.ErrDownloadFailed)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create output directory: %v", domain.ErrDownloadFailed, err)
	}

	base := FileBase(title, remoteID)

	existing, err := findExisting(dir, base)
	if err != nil {
		return "", fmt.Errorf("%w: scan output directory: %v", domain.ErrDownloadFailed, err)
	}
	if existing != "" {
		d.logger.Info("video already present", "video_id", remoteID, "path", existing)
		return existing, nil
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	args := []string{
		"--newline",
		"--progress",
		"--no-warnings",
		"-f", d.format,
		"-o", filepath.Join(dir, base+".%(ext)s"),
		"--print", "after_move:filepath",
		d.urlFor(remoteID),
	}

	reporter := newProgressReporter(remoteID, d.onProgress)
	var printed []string
	var stderr bytes.Buffer

	stdoutLines := &lineWriter{fn: func(line string) {
		if p, ok := parseProgress(line); ok {
			reporter.report(p)
			return
		}
		if !strings.HasPrefix(line, "[") {
			printed = append(printed, strings.TrimSpace(line))
		}
	}}
	stderrLines := &lineWriter{fn: func(line string) {
		if p, ok := parseProgress(line); ok {
			reporter.report(p)
			return
		}
		stderr.WriteString(line)
		stderr.WriteByte('\n')
	}}

	d.logger.Info("downloading video", "video_id", remoteID, "title", title)
	started := time.Now()

	runErr := d.run(ctx, d.binary, args, stdoutLines, stderrLines)
	stdoutLines.flush()
	stderrLines.flush()
	reporter.close()

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %s: %v", domain.ErrDownloadFailed, remoteID, ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s: %v: %s", domain.ErrDownloadFailed, remoteID, runErr, msg)
		}
		return "", fmt.Errorf("%w: %s: %v", domain.ErrDownloadFailed, remoteID, runErr)
	}

	path := lastPath(printed)
	if path == "" {
		if path, err = findExisting(dir, base); err != nil {
			return "", fmt.Errorf("%w: scan output directory: %v", domain.ErrDownloadFailed, err)
		}
	}
	if path == "" {
		return "", fmt.Errorf("%w: %s: yt-dlp produced no file", domain.ErrDownloadFailed, remoteID)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrDownloadFailed, remoteID, err)
	}

	d.logger.Info("video downloaded",
		"video_id", remoteID,
		"path", path,
		"duration", time.Since(started),
	)

	return path, nil
}

func findExisting(dir, base string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if matchesBase(e.Name(), base) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", nil
}

func lastPath(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i] != "" {
			return lines[i]
		}
	}
	return ""
}

func defaultCommandRunner(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) error {
	cmd := procexec.Command(ctx, binary, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

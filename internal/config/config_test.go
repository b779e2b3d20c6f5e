package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("archive:\n  channel: goodoq\n"))
	require.NoError(t, err)

	assert.Equal(t, "goodoq", cfg.Archive.Channel)
	assert.Equal(t, 10, cfg.Archive.MaxVideosPerSync)
	assert.Equal(t, 100, cfg.Archive.ChatMessagesPerVideo)
	assert.Equal(t, "best[ext=mp4]", cfg.Archive.VideoFormat)
	assert.Equal(t, 2*time.Second, cfg.Archive.PaceDelay)
	assert.True(t, cfg.Archive.SyntheticChatEnabled())
	assert.True(t, cfg.Sync.IsEnabled())
	assert.Equal(t, 24*time.Hour, cfg.Sync.Interval)
	assert.Equal(t, 3, cfg.Source.Retry.MaxAttempts)
	assert.Equal(t, "uploads", cfg.Source.Filter)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, ":9091", cfg.Metrics.SyncerAddr)
	assert.Empty(t, cfg.Metrics.PushgatewayURL)
}

func TestParse_ExplicitValues(t *testing.T) {
	data := `
archive:
  channel: somechannel
  video_dir: /srv/videos
  max_videos_per_sync: 3
  synthetic_chat: false
  pace_delay: 5s
sync:
  enabled: false
  interval: 12h
database:
  host: db
  user: archiver
  password: secret
  dbname: archive
metrics:
  enabled: true
  syncer_addr: ":9100"
  pushgateway_url: http://pushgateway:9091
log_level: debug
`
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, "/srv/videos", cfg.Archive.VideoDir)
	assert.Equal(t, 3, cfg.Archive.MaxVideosPerSync)
	assert.False(t, cfg.Archive.SyntheticChatEnabled())
	assert.Equal(t, 5*time.Second, cfg.Archive.PaceDelay)
	assert.False(t, cfg.Sync.IsEnabled())
	assert.Equal(t, 12*time.Hour, cfg.Sync.Interval)
	assert.Equal(t, "host=db port=5432 user=archiver password=secret dbname=archive sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9100", cfg.Metrics.SyncerAddr)
	assert.Equal(t, "http://pushgateway:9091", cfg.Metrics.PushgatewayURL)
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("ARCHIVE_CHANNEL", "fromenv")

	cfg, err := Parse([]byte("archive:\n  channel: ${ARCHIVE_CHANNEL}\n"))
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.Archive.Channel)
}

func TestParse_RequiresChannel(t *testing.T) {
	_, err := Parse([]byte("log_level: info\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("archive:\n  channel: goodoq\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "goodoq", cfg.Archive.Channel)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"vod_archiver/internal/config"
)

// Video outcomes recorded per sync run.
const (
	OutcomeArchived   = "archived"
	OutcomeSkipped    = "skipped"
	OutcomeDuplicate  = "duplicate"
	OutcomeFailed     = "failed"
	OutcomeChatFailed = "chat_failed"
)

type Recorder interface {
	IncVideos(channel, outcome string)
	AddChatMessages(channel string, n int)
	ObserveDownloadDuration(duration time.Duration)
	ObserveRunDuration(channel string, duration time.Duration)
	SetArchiveSize(channel string, bytes int64)
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
}

type Prometheus struct {
	videosTotal      *prometheus.CounterVec
	chatMessages     *prometheus.CounterVec
	downloadDuration prometheus.Histogram
	runDuration      *prometheus.HistogramVec
	archiveSize      *prometheus.GaugeVec
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// New returns a noop recorder when metrics are disabled. A nil registerer
// means the default Prometheus registry.
func New(cfg config.MetricsConfig, reg prometheus.Registerer) Recorder {
	if !cfg.Enabled {
		return Noop{}
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Prometheus{
		videosTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vod_archiver_videos_total",
			Help: "Videos handled by sync runs, by outcome",
		}, []string{"channel", "outcome"}),

		chatMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vod_archiver_chat_messages_total",
			Help: "Chat messages stored by sync runs",
		}, []string{"channel"}),

		downloadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vod_archiver_download_duration_seconds",
			Help:    "Duration of single video downloads in seconds",
			Buckets: []float64{1, 10, 30, 60, 300, 900, 1800, 3600, 7200},
		}),

		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vod_archiver_sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"channel"}),

		archiveSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vod_archiver_archive_size_bytes",
			Help: "Bytes of media archived for a channel",
		}, []string{"channel"}),

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vod_archiver_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vod_archiver_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func (m *Prometheus) IncVideos(channel, outcome string) {
	m.videosTotal.WithLabelValues(channel, outcome).Inc()
}

func (m *Prometheus) AddChatMessages(channel string, n int) {
	m.chatMessages.WithLabelValues(channel).Add(float64(n))
}

func (m *Prometheus) ObserveDownloadDuration(duration time.Duration) {
	m.downloadDuration.Observe(duration.Seconds())
}

func (m *Prometheus) ObserveRunDuration(channel string, duration time.Duration) {
	m.runDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

func (m *Prometheus) SetArchiveSize(channel string, bytes int64) {
	m.archiveSize.WithLabelValues(channel).Set(float64(bytes))
}

func (m *Prometheus) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, statusBucket(status)).Inc()
}

func (m *Prometheus) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop discards everything.
type Noop struct{}

func (Noop) IncVideos(_, _ string)                            {}
func (Noop) AddChatMessages(_ string, _ int)                  {}
func (Noop) ObserveDownloadDuration(_ time.Duration)          {}
func (Noop) ObserveRunDuration(_ string, _ time.Duration)     {}
func (Noop) SetArchiveSize(_ string, _ int64)                 {}
func (Noop) IncRequestsTotal(_ string, _ int)                 {}
func (Noop) ObserveRequestDuration(_ string, _ time.Duration) {}

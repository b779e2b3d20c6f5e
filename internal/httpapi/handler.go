// Package httpapi serves the archive read-only over JSON.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"vod_archiver/internal/domain"
	"vod_archiver/internal/metrics"
)

type VideoReader interface {
	List(ctx context.Context, page, perPage int) (domain.VideoPage, error)
	GetByID(ctx context.Context, videoID int64) (domain.Video, error)
	Search(ctx context.Context, term string) ([]domain.Video, error)
	Totals(ctx context.Context) (domain.ArchiveTotals, error)
	LocalPaths(ctx context.Context) ([]string, error)
}

type ChatReader interface {
	ListByVideo(ctx context.Context, videoID int64) ([]domain.ChatMessage, error)
}

type StatsReader interface {
	Get(ctx context.Context, channel string) (*domain.ArchiveStats, error)
}

// Dependencies aggregates collaborators required by the handlers.
type Dependencies struct {
	Videos   VideoReader
	Chats    ChatReader
	Stats    StatsReader
	Channel  string
	PageSize int
	Metrics  metrics.Recorder
	Logger   *slog.Logger
}

type Handler struct {
	deps     Dependencies
	fileSize func(path string) (int64, bool)
}

// New wires the routes into a ServeMux wrapped with request metrics.
func New(deps Dependencies) http.Handler {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}
	if deps.PageSize <= 0 {
		deps.PageSize = 20
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	h := &Handler{deps: deps, fileSize: statFile}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /api/videos", h.listVideos)
	mux.HandleFunc("GET /api/videos/{id}", h.getVideo)
	mux.HandleFunc("GET /api/videos/{id}/chat", h.videoChat)
	mux.HandleFunc("GET /api/search", h.search)
	mux.HandleFunc("GET /api/stats", h.stats)

	return metrics.Middleware(deps.Metrics, routeLabel, mux)
}

// routeLabel uses the matched pattern so ids do not explode label cardinality.
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type videoListResponse struct {
	domain.VideoPage
	TotalPages    int   `json:"total_pages"`
	TotalMessages int64 `json:"total_messages"`
}

func (h *Handler) listVideos(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := min(queryInt(r, "per_page", h.deps.PageSize), 100)

	result, err := h.deps.Videos.List(r.Context(), page, perPage)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if result.Videos == nil {
		result.Videos = []domain.Video{}
	}

	totals, err := h.deps.Videos.Totals(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, videoListResponse{
		VideoPage:     result,
		TotalPages:    result.TotalPages(),
		TotalMessages: totals.Messages,
	})
}

func (h *Handler) getVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	video, err := h.deps.Videos.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, video)
}

type chatResponse struct {
	VideoID         int64                `json:"video_id"`
	ChatIsSynthetic bool                 `json:"chat_is_synthetic"`
	Messages        []domain.ChatMessage `json:"messages"`
}

func (h *Handler) videoChat(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	video, err := h.deps.Videos.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	messages, err := h.deps.Chats.ListByVideo(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}

	h.respondJSON(w, http.StatusOK, chatResponse{
		VideoID:         video.ID,
		ChatIsSynthetic: video.ChatIsSynthetic,
		Messages:        messages,
	})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	videos := []domain.Video{}
	if query != "" {
		found, err := h.deps.Videos.Search(r.Context(), query)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		if found != nil {
			videos = found
		}
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"query":  query,
		"videos": videos,
	})
}

type statsResponse struct {
	Channel string               `json:"channel"`
	Totals  domain.ArchiveTotals `json:"totals"`
	Ledger  *domain.ArchiveStats `json:"ledger"`
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totals, err := h.deps.Videos.Totals(ctx)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	paths, err := h.deps.Videos.LocalPaths(ctx)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	for _, p := range paths {
		if size, ok := h.fileSize(p); ok {
			totals.SizeBytes += size
		}
	}
	h.deps.Metrics.SetArchiveSize(h.deps.Channel, totals.SizeBytes)

	ledger, err := h.deps.Stats.Get(ctx, h.deps.Channel)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, statsResponse{
		Channel: h.deps.Channel,
		Totals:  totals,
		Ledger:  ledger,
	})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid video id"})
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		h.respondJSON(w, http.StatusNotFound, map[string]string{"error": "video not found"})
		return
	}

	h.deps.Logger.Error("request failed", "path", r.URL.Path, "error", err)
	h.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.deps.Logger.Error("encode response body", "status", status, "error", err)
	}
}

func statFile(path string) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return info.Size(), true
}

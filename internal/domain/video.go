package domain

import "time"

// VideoSummary is what a VideoSource knows about a remote video before any
// bytes are fetched.
type VideoSummary struct {
	RemoteID     string
	Title        string
	Description  string
	UploadDate   string // YYYYMMDD, day granularity
	Duration     int
	ThumbnailURL string
	URL          string
}

// PublishedAt parses the coarse upload date. ok is false when the source did
// not report one or it is malformed.
func (v VideoSummary) PublishedAt() (time.Time, bool) {
	if v.UploadDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", v.UploadDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type Video struct {
	ID                int64     `db:"id" json:"id"`
	RemoteID          string    `db:"remote_id" json:"remote_id"`
	Title             string    `db:"title" json:"title"`
	Description       string    `db:"description" json:"description"`
	ChannelName       string    `db:"channel_name" json:"channel_name"`
	PublishedAt       time.Time `db:"published_at" json:"published_at"`
	DurationSeconds   int       `db:"duration_seconds" json:"duration_seconds"`
	DurationFormatted string    `db:"duration_formatted" json:"duration_formatted"`
	URL               string    `db:"video_url" json:"video_url"`
	LocalPath         string    `db:"local_path" json:"local_path"`
	ThumbnailURL      string    `db:"thumbnail_url" json:"thumbnail_url"`
	Downloaded        bool      `db:"downloaded" json:"downloaded"`
	Processed         bool      `db:"processed" json:"processed"`
	ChatMessageCount  int       `db:"chat_message_count" json:"chat_message_count"`
	ChatIsSynthetic   bool      `db:"chat_is_synthetic" json:"chat_is_synthetic"`
	Views             int64     `db:"views" json:"views"`
	Likes             int64     `db:"likes" json:"likes"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// NeedsChat reports whether the video was saved but its chat step never
// completed.
func (v Video) NeedsChat() bool {
	return v.Downloaded && !v.Processed
}

// InsertStatus distinguishes a fresh insert from a lost race on the remote id.
type InsertStatus int

const (
	InsertInserted InsertStatus = iota + 1
	InsertDuplicate
)

type InsertResult struct {
	ID     int64
	Status InsertStatus
}

func (r InsertResult) Inserted() bool {
	return r.Status == InsertInserted
}

// VideoPage is one page of the archived video listing.
type VideoPage struct {
	Videos     []Video `json:"videos"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	TotalCount int     `json:"total_videos"`
}

func (p VideoPage) TotalPages() int {
	if p.PerPage <= 0 {
		return 0
	}
	return (p.TotalCount + p.PerPage - 1) / p.PerPage
}

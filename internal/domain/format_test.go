package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{name: "zero", seconds: 0, want: "00:00:00"},
		{name: "fractional seconds are truncated", seconds: 59.9, want: "00:00:59"},
		{name: "minutes", seconds: 754, want: "00:12:34"},
		{name: "hours", seconds: 3*3600 + 5*60 + 7, want: "03:05:07"},
		{name: "over a day", seconds: 26 * 3600, want: "26:00:00"},
		{name: "negative clamps to zero", seconds: -4, want: "00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatClock(tt.seconds))
		})
	}
}

func TestVideoSummary_PublishedAt(t *testing.T) {
	v := VideoSummary{UploadDate: "20250314"}
	got, ok := v.PublishedAt()
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC), got)

	_, ok = VideoSummary{}.PublishedAt()
	assert.False(t, ok)

	_, ok = VideoSummary{UploadDate: "2025-03-14"}.PublishedAt()
	assert.False(t, ok)
}

func TestVideo_NeedsChat(t *testing.T) {
	assert.True(t, Video{Downloaded: true}.NeedsChat())
	assert.False(t, Video{Downloaded: true, Processed: true}.NeedsChat())
	assert.False(t, Video{}.NeedsChat())
}

func TestVideoPage_TotalPages(t *testing.T) {
	assert.Equal(t, 0, VideoPage{TotalCount: 5}.TotalPages())
	assert.Equal(t, 1, VideoPage{TotalCount: 5, PerPage: 20}.TotalPages())
	assert.Equal(t, 3, VideoPage{TotalCount: 41, PerPage: 20}.TotalPages())
	assert.Equal(t, 0, VideoPage{TotalCount: 0, PerPage: 20}.TotalPages())
}

func TestNewChatMessages(t *testing.T) {
	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	msgs := NewChatMessages(7, []ChatEvent{
		{Author: "viewer_1", Text: "hi", OffsetSeconds: 61, Timestamp: ts, IsModerator: true},
	})

	assert.Len(t, msgs, 1)
	assert.Equal(t, int64(7), msgs[0].VideoID)
	assert.Equal(t, "00:01:01", msgs[0].OffsetFormatted)
	assert.True(t, msgs[0].IsModerator)
	assert.Equal(t, ts, msgs[0].Timestamp)
}

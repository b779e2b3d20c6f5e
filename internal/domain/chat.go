package domain

import "time"

// ChatEvent is a single chat line before it is bound to a stored video.
type ChatEvent struct {
	Author        string
	Text          string
	OffsetSeconds float64
	Timestamp     time.Time
	IsModerator   bool
	IsSubscriber  bool
	IsBroadcaster bool
}

type ChatMessage struct {
	ID              int64     `db:"id" json:"id"`
	VideoID         int64     `db:"video_id" json:"video_id"`
	Author          string    `db:"author" json:"author"`
	Text            string    `db:"message_text" json:"message"`
	OffsetSeconds   float64   `db:"offset_seconds" json:"offset_seconds"`
	OffsetFormatted string    `db:"offset_formatted" json:"time_formatted"`
	Timestamp       time.Time `db:"message_timestamp" json:"timestamp"`
	IsModerator     bool      `db:"is_moderator" json:"is_moderator"`
	IsSubscriber    bool      `db:"is_subscriber" json:"is_subscriber"`
	IsBroadcaster   bool      `db:"is_broadcaster" json:"is_broadcaster"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// NewChatMessages binds events to the owning video.
func NewChatMessages(videoID int64, events []ChatEvent) []ChatMessage {
	messages := make([]ChatMessage, 0, len(events))
	for _, e := range events {
		messages = append(messages, ChatMessage{
			VideoID:         videoID,
			Author:          e.Author,
			Text:            e.Text,
			OffsetSeconds:   e.OffsetSeconds,
			OffsetFormatted: FormatClock(e.OffsetSeconds),
			Timestamp:       e.Timestamp,
			IsModerator:     e.IsModerator,
			IsSubscriber:    e.IsSubscriber,
			IsBroadcaster:   e.IsBroadcaster,
		})
	}
	return messages
}

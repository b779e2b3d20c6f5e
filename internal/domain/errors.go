package domain

import "errors"

var (
	// ErrSourceUnavailable aborts a run before anything is written.
	ErrSourceUnavailable = errors.New("video source unavailable")
	// ErrDownloadFailed is contained to a single video.
	ErrDownloadFailed = errors.New("download failed")
	// ErrDuplicateKey marks a lost race on the remote id.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrChatPersistFailed leaves the video saved and waiting for a chat retry.
	ErrChatPersistFailed = errors.New("chat persist failed")
	// ErrStoreUnavailable aborts a run.
	ErrStoreUnavailable = errors.New("archive store unavailable")
	ErrNotFound         = errors.New("record not found")
)

package domain

import "time"

// SyncStats holds statistics about a sync run.
type SyncStats struct {
	RunID      string
	Channel    string
	Discovered int
	Archived   int
	Skipped    int
	Duplicates int
	Failed     int
	ChatFailed int
	Messages   int
	Published  int
	Duration   time.Duration
}

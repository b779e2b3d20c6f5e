package chat

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"vod_archiver/internal/domain"
)

const (
	minMessages       = 10
	secondsPerMessage = 60
	moderatorChance   = 0.25
	subscriberChance  = 0.20
	usernamePoolSize  = 99
)

var phrases = []string{
	"Hi!",
	"Thanks for the stream!",
	"Nice!",
	"More!",
	"Great content",
	"Interesting",
	"The best!",
	"Can't wait for the next one",
	"Excellent!",
	"Thanks!",
	"Keep it up!",
	"Let's go!",
	"So good!",
	"This stream is fire!",
	"Everyone following?",
	"Agreed!",
	"I'm with you!",
	"Incredible!",
	"Wow!",
	"Yes!",
}

var usernames = func() []string {
	names := make([]string, 0, usernamePoolSize)
	for i := 1; i <= usernamePoolSize; i++ {
		names = append(names, fmt.Sprintf("viewer_%d", i))
	}
	return names
}()

// Synthesizer produces a plausible stand-in chat transcript when the real one
// cannot be recovered. It is safe for concurrent use.
type Synthesizer struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSynthesizer returns a Synthesizer seeded from the runtime's entropy.
func NewSynthesizer() *Synthesizer {
	return NewSynthesizerWithSource(rand.NewPCG(rand.Uint64(), rand.Uint64()), time.Now)
}

// NewSynthesizerWithSource is used by tests to get deterministic output.
func NewSynthesizerWithSource(src rand.Source, now func() time.Time) *Synthesizer {
	if now == nil {
		now = time.Now
	}
	return &Synthesizer{rng: rand.New(src), now: now}
}

// MessageCount is the volume policy: one message per minute of content, but
// never fewer than ten.
func MessageCount(durationSeconds int) int {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return max(minMessages, durationSeconds/secondsPerMessage)
}

// Synthesize returns events sorted by offset ascending. Offsets fall in
// [0, durationSeconds]; timestamps treat "now" as the moment the video ended.
func (s *Synthesizer) Synthesize(durationSeconds int) []domain.ChatEvent {
	if durationSeconds < 0 {
		durationSeconds = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	end := s.now()
	count := MessageCount(durationSeconds)
	events := make([]domain.ChatEvent, 0, count)

	for range count {
		offset := s.rng.IntN(durationSeconds + 1)
		events = append(events, domain.ChatEvent{
			Author:        usernames[s.rng.IntN(len(usernames))],
			Text:          phrases[s.rng.IntN(len(phrases))],
			OffsetSeconds: float64(offset),
			Timestamp:     end.Add(-time.Duration(durationSeconds-offset) * time.Second),
			IsModerator:   s.rng.Float64() < moderatorChance,
			IsSubscriber:  s.rng.Float64() < subscriberChance,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OffsetSeconds < events[j].OffsetSeconds
	})

	return events
}

package chat

import (
	"math/rand/v2"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedEnd = time.Date(2025, time.June, 1, 20, 0, 0, 0, time.UTC)

func newTestSynthesizer(seed uint64) *Synthesizer {
	return NewSynthesizerWithSource(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15), func() time.Time { return fixedEnd })
}

func TestMessageCount(t *testing.T) {
	tests := []struct {
		duration int
		want     int
	}{
		{duration: -10, want: 10},
		{duration: 0, want: 10},
		{duration: 45, want: 10},
		{duration: 599, want: 10},
		{duration: 660, want: 11},
		{duration: 3600, want: 60},
		{duration: 3659, want: 60},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MessageCount(tt.duration), "duration=%d", tt.duration)
	}
}

func TestSynthesize_ShortVideoUsesFloor(t *testing.T) {
	events := newTestSynthesizer(1).Synthesize(45)

	require.Len(t, events, 10)
	for _, e := range events {
		assert.GreaterOrEqual(t, e.OffsetSeconds, 0.0)
		assert.LessOrEqual(t, e.OffsetSeconds, 45.0)
	}
}

func TestSynthesize_Properties(t *testing.T) {
	durations := []int{0, 1, 59, 60, 61, 600, 3599, 7200, 36000}

	for i, d := range durations {
		s := newTestSynthesizer(uint64(i + 1))
		events := s.Synthesize(d)

		require.Len(t, events, MessageCount(d), "duration=%d", d)
		assert.True(t, sort.SliceIsSorted(events, func(a, b int) bool {
			return events[a].OffsetSeconds < events[b].OffsetSeconds
		}), "duration=%d: offsets not sorted", d)

		for _, e := range events {
			assert.GreaterOrEqual(t, e.OffsetSeconds, 0.0)
			assert.LessOrEqual(t, e.OffsetSeconds, float64(d))
			assert.False(t, e.IsBroadcaster)
			assert.NotEmpty(t, e.Author)
			assert.NotEmpty(t, e.Text)

			remaining := time.Duration(float64(d)-e.OffsetSeconds) * time.Second
			assert.Equal(t, fixedEnd.Add(-remaining), e.Timestamp)
		}
	}
}

func TestSynthesize_NegativeDurationClamps(t *testing.T) {
	events := newTestSynthesizer(3).Synthesize(-30)

	require.Len(t, events, 10)
	for _, e := range events {
		assert.Equal(t, 0.0, e.OffsetSeconds)
		assert.Equal(t, fixedEnd, e.Timestamp)
	}
}

func TestSynthesize_RoleFlagRates(t *testing.T) {
	events := newTestSynthesizer(42).Synthesize(600 * 60) // 600 messages

	var mods, subs int
	for _, e := range events {
		if e.IsModerator {
			mods++
		}
		if e.IsSubscriber {
			subs++
		}
	}

	assert.InDelta(t, 0.25, float64(mods)/float64(len(events)), 0.07)
	assert.InDelta(t, 0.20, float64(subs)/float64(len(events)), 0.07)
}

func TestSynthesize_Deterministic(t *testing.T) {
	a := newTestSynthesizer(7).Synthesize(1800)
	b := newTestSynthesizer(7).Synthesize(1800)
	assert.Equal(t, a, b)
}

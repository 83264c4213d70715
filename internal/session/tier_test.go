package session

import (
	"testing"
	"time"

	"signalcrawler/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYork(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestResolver_Resolve(t *testing.T) {
	loc := newYork(t)
	r := NewResolver(loc, nil)
	at := func(h, m int) time.Time { return time.Date(2025, 1, 14, h, m, 0, 0, loc) }

	tests := []struct {
		name string
		now  time.Time
		want dto.TierName
	}{
		{name: "prime open", now: at(9, 30), want: dto.TierPrime},
		{name: "prime end exclusive", now: at(11, 29), want: dto.TierPrime},
		{name: "midday", now: at(11, 30), want: dto.TierMidday},
		{name: "close", now: at(15, 45), want: dto.TierClose},
		{name: "evening", now: at(17, 0), want: dto.TierEvening},
		{name: "blocked at 21", now: at(21, 0), want: dto.TierBlocked},
		{name: "blocked after midnight", now: at(2, 15), want: dto.TierBlocked},
		{name: "premarket at 6", now: at(6, 0), want: dto.TierPremarket},
		{name: "premarket before open", now: at(9, 29), want: dto.TierPremarket},
		{name: "utc input is converted", now: time.Date(2025, 1, 14, 15, 0, 0, 0, time.UTC), want: dto.TierPrime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.now).Name)
		})
	}
}

func TestResolver_TierThresholds(t *testing.T) {
	loc := newYork(t)
	r := NewResolver(loc, nil)

	prime := r.Resolve(time.Date(2025, 1, 14, 10, 0, 0, 0, loc))
	assert.Equal(t, 80, prime.MinConfidence)
	assert.Equal(t, 250.0, prime.RiskBudget)
	assert.Equal(t, 1.5, prime.Target1R)
	assert.Equal(t, 2.0, prime.Target2R)

	blocked := r.Resolve(time.Date(2025, 1, 14, 23, 0, 0, 0, loc))
	assert.True(t, blocked.Blocked)
	assert.Greater(t, blocked.MinConfidence, 100)
	assert.Zero(t, blocked.RiskBudget)
}

func TestResolver_BlockedMessage(t *testing.T) {
	loc := newYork(t)
	r := NewResolver(loc, nil)

	msg, blocked := r.BlockedMessage(time.Date(2025, 1, 14, 22, 30, 0, 0, loc))
	assert.True(t, blocked)
	assert.Contains(t, msg, "6:00 AM")
	assert.Contains(t, msg, "7.5h")

	_, blocked = r.BlockedMessage(time.Date(2025, 1, 14, 10, 0, 0, 0, loc))
	assert.False(t, blocked)
}

func TestResolver_Window(t *testing.T) {
	r := NewResolver(newYork(t), nil)
	assert.Equal(t, "9:30 AM - 11:30 AM ET", r.Window(DefaultTiers()[2]))
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)
	c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), c.Now())
}

package scorer

import (
	"fmt"
	"sort"
	"time"
)

type NewsEvent struct {
	Name string
	At   time.Time
}

// NewsCalendar answers whether a time falls inside the blackout around a
// scheduled high-impact release.
type NewsCalendar interface {
	Blackout(t time.Time) (NewsEvent, bool)
}

type newsCalendar struct {
	buffer time.Duration
	events []NewsEvent
}

func NewNewsCalendar(buffer time.Duration, events ...NewsEvent) NewsCalendar {
	sorted := make([]NewsEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })
	return &newsCalendar{buffer: buffer, events: sorted}
}

func (n *newsCalendar) Blackout(t time.Time) (NewsEvent, bool) {
	for _, e := range n.events {
		if e.At.Add(-n.buffer).After(t) {
			break
		}
		if !t.After(e.At.Add(n.buffer)) {
			return e, true
		}
	}
	return NewsEvent{}, false
}

// ParseNewsEvent builds an event from an RFC3339 timestamp.
func ParseNewsEvent(name, at string) (NewsEvent, error) {
	ts, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return NewsEvent{}, fmt.Errorf("invalid news event time %q for %s: %w", at, name, err)
	}
	return NewsEvent{Name: name, At: ts}, nil
}

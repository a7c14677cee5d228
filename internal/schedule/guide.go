package schedule

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/snapetech/pseudotv/internal/catalog"
	"github.com/snapetech/pseudotv/internal/channel"
)

// Entry is one placed airing. End is always derived from the item's duration.
type Entry struct {
	Channel string
	Item    catalog.Item
	Start   time.Time
}

// End is the instant the airing finishes (exclusive).
func (e Entry) End() time.Time {
	return e.Start.Add(e.Item.Duration)
}

// Contains reports start <= t < end.
func (e Entry) Contains(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End())
}

// Overlaps reports whether [start, end) intersects [from, to).
// Touching at a boundary is not an overlap.
func (e Entry) Overlaps(from, to time.Time) bool {
	return e.End().After(from) && e.Start.Before(to)
}

// Progress is the fraction of the airing elapsed at t, clamped to [0, 1].
func (e Entry) Progress(t time.Time) float64 {
	total := e.Item.Duration
	if total <= 0 {
		return 0
	}
	f := float64(t.Sub(e.Start)) / float64(total)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Schedule is the result of one build: every entry of every channel ordered by
// (start, channel name).
type Schedule struct {
	RunID   uuid.UUID
	Start   time.Time
	Horizon time.Time

	lineups []channel.Lineup
	entries []Entry
}

// Entries returns a copy of all entries in (start, channel) order.
func (s *Schedule) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Lineups returns the selected lineups in configuration order.
func (s *Schedule) Lineups() []channel.Lineup {
	out := make([]channel.Lineup, len(s.lineups))
	copy(out, s.lineups)
	return out
}

// Channels returns the scheduled channel names, sorted.
func (s *Schedule) Channels() []string {
	names := make([]string, 0, len(s.lineups))
	for _, l := range s.lineups {
		names = append(names, l.Channel.Name)
	}
	sort.Strings(names)
	return names
}

// ForChannel returns one channel's timeline in start order.
func (s *Schedule) ForChannel(name string) []Entry {
	var out []Entry
	for _, e := range s.entries {
		if e.Channel == name {
			out = append(out, e)
		}
	}
	return out
}

// Guide returns, per channel, the entries overlapping the half-open window [from, to).
func (s *Schedule) Guide(from, to time.Time) map[string][]Entry {
	return s.group(func(e Entry) bool { return e.Overlaps(from, to) })
}

// CurrentProgram returns the entry airing at t on each channel (start <= t < end).
// Channels with nothing on air at t are absent.
func (s *Schedule) CurrentProgram(t time.Time) map[string]Entry {
	out := make(map[string]Entry)
	for _, e := range s.entries {
		if e.Contains(t) {
			out[e.Channel] = e
		}
	}
	return out
}

// Upcoming returns, per channel, entries starting strictly after t and no later than t+horizon.
func (s *Schedule) Upcoming(t time.Time, horizon time.Duration) map[string][]Entry {
	until := t.Add(horizon)
	return s.group(func(e Entry) bool { return e.Start.After(t) && !e.Start.After(until) })
}

func (s *Schedule) group(keep func(Entry) bool) map[string][]Entry {
	out := make(map[string][]Entry)
	for _, e := range s.entries {
		if keep(e) {
			out[e.Channel] = append(out[e.Channel], e)
		}
	}
	return out
}

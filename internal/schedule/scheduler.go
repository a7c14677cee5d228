// Package schedule lays channel lineups end to end along a timeline and
// answers guide queries over the result.
//
// A Schedule is immutable once Build returns; readers may share it without
// locking. Rebuilding produces a new Schedule.
package schedule

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/snapetech/pseudotv/internal/catalog"
	"github.com/snapetech/pseudotv/internal/channel"
)

var (
	// ErrEmptyPool means placement was attempted from a lineup with no items.
	ErrEmptyPool = errors.New("no items to schedule")
	// ErrInvalidDuration means an item would not advance the timeline.
	ErrInvalidDuration = errors.New("item duration must be positive")
	// ErrDuplicateChannel means two channels share a name (or a name is empty).
	ErrDuplicateChannel = errors.New("channel names must be unique and non-empty")
)

// Scheduler builds schedules for a fixed set of channels. Its random source is
// used only for shuffling and advances across builds, so two builds from one
// seeded Scheduler differ; two Schedulers with the same seed agree.
type Scheduler struct {
	channels []channel.Channel
	rng      *rand.Rand
}

// New returns a Scheduler whose shuffles are not reproducible between runs.
func New(channels []channel.Channel) (*Scheduler, error) {
	return newScheduler(channels, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewSeeded returns a Scheduler whose shuffles are fully determined by seed.
func NewSeeded(channels []channel.Channel, seed uint64) (*Scheduler, error) {
	return newScheduler(channels, rand.New(rand.NewPCG(seed, seed)))
}

func newScheduler(channels []channel.Channel, rng *rand.Rand) (*Scheduler, error) {
	seen := make(map[string]bool, len(channels))
	for _, ch := range channels {
		if ch.Name == "" || seen[ch.Name] {
			return nil, fmt.Errorf("channel %q: %w", ch.Name, ErrDuplicateChannel)
		}
		seen[ch.Name] = true
	}
	out := make([]channel.Channel, len(channels))
	copy(out, channels)
	return &Scheduler{channels: out, rng: rng}, nil
}

// Channels returns the configured channels in configuration order.
func (s *Scheduler) Channels() []channel.Channel {
	out := make([]channel.Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

// Build selects each channel's pool from library and places items back to back
// from start until start+duration. Channels that disallow repeats stop after one
// pass through their pool even when that leaves the rest of the window empty.
// Any channel error aborts the whole build; no partial schedule is returned.
func (s *Scheduler) Build(library []catalog.Item, start time.Time, duration time.Duration) (*Schedule, error) {
	horizon := start.Add(duration)
	sched := &Schedule{
		RunID:   uuid.New(),
		Start:   start,
		Horizon: horizon,
	}
	for _, ch := range s.channels {
		lineup, err := channel.Select(ch, library)
		if err != nil {
			return nil, err
		}
		if ch.Shuffle {
			s.rng.Shuffle(len(lineup.Pool), func(i, j int) {
				lineup.Pool[i], lineup.Pool[j] = lineup.Pool[j], lineup.Pool[i]
			})
		}
		entries, err := place(lineup, start, horizon)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("channel", ch.Name).Int("pool", len(lineup.Pool)).Int("entries", len(entries)).Msg("channel scheduled")
		sched.lineups = append(sched.lineups, lineup)
		sched.entries = append(sched.entries, entries...)
	}
	sort.SliceStable(sched.entries, func(i, j int) bool {
		a, b := sched.entries[i], sched.entries[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.Channel < b.Channel
	})
	return sched, nil
}

// place walks a cursor from start, cycling through the pool by index.
func place(lineup channel.Lineup, start, horizon time.Time) ([]Entry, error) {
	name, pool := lineup.Channel.Name, lineup.Pool
	if len(pool) == 0 {
		return nil, fmt.Errorf("channel %q: %w", name, ErrEmptyPool)
	}
	var entries []Entry
	cursor := start
	for i := 0; cursor.Before(horizon); i++ {
		item := pool[i%len(pool)]
		if item.Duration <= 0 {
			return nil, fmt.Errorf("channel %q item %s: %w", name, item.Path, ErrInvalidDuration)
		}
		entries = append(entries, Entry{Channel: name, Item: item, Start: cursor})
		cursor = cursor.Add(item.Duration)
		if !lineup.Channel.AllowRepeats && i+1 >= len(pool) {
			break
		}
	}
	return entries, nil
}

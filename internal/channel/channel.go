// Package channel selects library items into named broadcast lanes.
package channel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/snapetech/pseudotv/internal/catalog"
)

// ErrNoMatchingItems means a channel's rule selected nothing from the library.
// It is a configuration error: the whole scheduling run must stop.
var ErrNoMatchingItems = errors.New("channel has no matching items")

// Rule filters library items. Empty include lists do not restrict;
// exclusions and runtime bounds restrict only when set.
type Rule struct {
	IncludeGenres         []string
	IncludeShows          []string
	IncludePaths          []string
	ExcludeGenres         []string
	MinimumRuntimeMinutes *int
	MaximumRuntimeMinutes *int
}

// Channel is a configured lane. Name is unique across one scheduling run.
type Channel struct {
	Name         string
	Rule         Rule
	Shuffle      bool
	AllowRepeats bool
}

// Lineup is a channel together with its selected pool, in library order.
// It is produced once per run by Select and not modified afterwards.
type Lineup struct {
	Channel Channel
	Pool    []catalog.Item
}

// Matches reports whether item passes every clause of the rule, checked in order:
// include genres, include shows, include paths, exclude genres, minimum and maximum runtime.
// An item without a genre never satisfies an include-genre list and is never excluded by genre.
func (r Rule) Matches(item catalog.Item) bool {
	if len(r.IncludeGenres) > 0 && (item.Genre == "" || !containsFold(r.IncludeGenres, item.Genre)) {
		return false
	}
	if len(r.IncludeShows) > 0 && (item.Show == "" || !containsFold(r.IncludeShows, item.Show)) {
		return false
	}
	if len(r.IncludePaths) > 0 && !hasAnyPrefix(item.Path, r.IncludePaths) {
		return false
	}
	if len(r.ExcludeGenres) > 0 && item.Genre != "" && containsFold(r.ExcludeGenres, item.Genre) {
		return false
	}
	minutes := item.DurationMinutes()
	if r.MinimumRuntimeMinutes != nil && minutes < float64(*r.MinimumRuntimeMinutes) {
		return false
	}
	if r.MaximumRuntimeMinutes != nil && minutes > float64(*r.MaximumRuntimeMinutes) {
		return false
	}
	return true
}

// Select filters library through the channel's rule and returns the resulting lineup.
// The channel value itself is never modified.
func Select(ch Channel, library []catalog.Item) (Lineup, error) {
	pool := make([]catalog.Item, 0, len(library))
	for _, item := range library {
		if ch.Rule.Matches(item) {
			pool = append(pool, item)
		}
	}
	if len(pool) == 0 {
		return Lineup{}, fmt.Errorf("channel %q: %w", ch.Name, ErrNoMatchingItems)
	}
	return Lineup{Channel: ch, Pool: pool}, nil
}

// Summary is a one-line description of the channel's rule for listings.
func (ch Channel) Summary() string {
	genres, shows := "any", "any"
	if len(ch.Rule.IncludeGenres) > 0 {
		genres = strings.Join(ch.Rule.IncludeGenres, ",")
	}
	if len(ch.Rule.IncludeShows) > 0 {
		shows = strings.Join(ch.Rule.IncludeShows, ",")
	}
	repeat := "no"
	if ch.AllowRepeats {
		repeat = "yes"
	}
	return fmt.Sprintf("%s: genres=%s, shows=%s, repeat=%s", ch.Name, genres, shows, repeat)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Package report renders libraries, channels and schedule queries as plain
// text for the command line. Channels are always listed in name order.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/snapetech/pseudotv/internal/catalog"
	"github.com/snapetech/pseudotv/internal/channel"
	"github.com/snapetech/pseudotv/internal/schedule"
	"github.com/snapetech/pseudotv/internal/state"
)

// Messages printed when a query finds nothing.
const (
	NoneOnAir    = "No scheduled content right now."
	NoneUpcoming = "No upcoming items in window."
)

// printer keeps the first write error so callers check once at the end.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) linef(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

// Library lists every item with its details and path.
func Library(w io.Writer, items []catalog.Item) error {
	p := &printer{w: w}
	var total time.Duration
	p.linef("Discovered library items:")
	for _, it := range items {
		details := []string{"Duration: " + Clock(it.Duration)}
		if it.Genre != "" {
			details = append(details, "Genre: "+it.Genre)
		}
		if it.Show != "" {
			details = append(details, "Show: "+it.Show)
		}
		if it.Year != nil {
			details = append(details, fmt.Sprintf("Year: %d", *it.Year))
		}
		p.linef("- %s (%s) -> %s", it.Label(), strings.Join(details, "; "), it.Path)
		total += it.Duration
	}
	p.linef("%s items, %s total", humanize.Comma(int64(len(items))), Clock(total))
	return p.err
}

// Channels prints one summary line per channel in configuration order.
func Channels(w io.Writer, chans []channel.Channel) error {
	p := &printer{w: w}
	p.linef("Configured channels:")
	for _, ch := range chans {
		p.linef("- %s", ch.Summary())
	}
	return p.err
}

// Guide prints a block per channel with start, end and label of each airing.
func Guide(w io.Writer, guide map[string][]schedule.Entry) error {
	p := &printer{w: w}
	for _, name := range sortedKeys(guide) {
		p.linef("=== %s ===", name)
		for _, e := range guide[name] {
			p.linef("%s - %s: %s", e.Start.Format("15:04"), e.End().Format("15:04"), e.Item.Label())
		}
		p.linef("")
	}
	return p.err
}

// NowPlaying prints what each channel is airing at now.
func NowPlaying(w io.Writer, current map[string]schedule.Entry, now time.Time) error {
	p := &printer{w: w}
	if len(current) == 0 {
		p.linef(NoneOnAir)
		return p.err
	}
	names := make([]string, 0, len(current))
	for name := range current {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		e := current[name]
		elapsed := min(max(now.Sub(e.Start), 0), e.Item.Duration)
		p.linef("Channel %s: %s (elapsed %s, remaining %s, start %s, %s)",
			name, e.Item.Label(), Clock(elapsed), Clock(e.Item.Duration-elapsed),
			e.Start.Format("15:04"), humanize.RelTime(e.Start, now, "ago", "from now"))
	}
	return p.err
}

// Upcoming prints the airings starting inside a query window.
func Upcoming(w io.Writer, upcoming map[string][]schedule.Entry) error {
	p := &printer{w: w}
	if len(upcoming) == 0 {
		p.linef(NoneUpcoming)
		return p.err
	}
	for _, name := range sortedKeys(upcoming) {
		p.linef("Channel %s:", name)
		for _, e := range upcoming[name] {
			p.linef("  - %s %s (%s)", e.Start.Format("15:04"), e.Item.Label(), Clock(e.Item.Duration))
		}
	}
	return p.err
}

// Positions prints the last recorded position of each channel.
func Positions(w io.Writer, positions map[string]state.Position, now time.Time) error {
	p := &printer{w: w}
	if len(positions) == 0 {
		p.linef("No recorded positions.")
		return p.err
	}
	names := make([]string, 0, len(positions))
	for name := range positions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pos := positions[name]
		p.linef("Channel %s: %.2f%% of %s (%s)", name, pos.Fraction*100, pos.ItemPath,
			humanize.RelTime(pos.UpdatedAt, now, "ago", "from now"))
	}
	return p.err
}

// Clock formats d as H:MM:SS, dropping fractions of a second.
func Clock(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	d = d.Truncate(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	out := fmt.Sprintf("%d:%02d:%02d", h, m, s)
	if neg {
		return "-" + out
	}
	return out
}

func sortedKeys(m map[string][]schedule.Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

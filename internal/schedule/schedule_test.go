package schedule

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/snapetech/pseudotv/internal/catalog"
	"github.com/snapetech/pseudotv/internal/channel"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func item(path, genre string, minutes int) catalog.Item {
	return catalog.Item{Path: path, Title: path, Genre: genre, Duration: time.Duration(minutes) * time.Minute}
}

func mustBuild(t *testing.T, chans []channel.Channel, library []catalog.Item, d time.Duration) *Schedule {
	t.Helper()
	s, err := NewSeeded(chans, 7)
	if err != nil {
		t.Fatal(err)
	}
	sched, err := s.Build(library, t0, d)
	if err != nil {
		t.Fatal(err)
	}
	return sched
}

func starts(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = fmt.Sprintf("%s@%s", e.Item.Path, e.Start.Format("15:04"))
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuild_roundRobinNoRepeat(t *testing.T) {
	lib := []catalog.Item{item("A", "", 30), item("B", "", 30)}
	sched := mustBuild(t, []channel.Channel{{Name: "ch"}}, lib, 2*time.Hour)
	got := starts(sched.Entries())
	want := []string{"A@00:00", "B@00:30"}
	if !equalStrings(got, want) {
		t.Fatalf("entries = %v want %v", got, want)
	}
}

func TestBuild_roundRobinRepeat(t *testing.T) {
	lib := []catalog.Item{item("A", "", 30), item("B", "", 30)}
	sched := mustBuild(t, []channel.Channel{{Name: "ch", AllowRepeats: true}}, lib, 2*time.Hour)
	got := starts(sched.Entries())
	want := []string{"A@00:00", "B@00:30", "A@01:00", "B@01:30"}
	if !equalStrings(got, want) {
		t.Fatalf("entries = %v want %v", got, want)
	}
}

func TestBuild_lastEntryMayOverrunHorizon(t *testing.T) {
	lib := []catalog.Item{item("A", "", 50)}
	sched := mustBuild(t, []channel.Channel{{Name: "ch", AllowRepeats: true}}, lib, 2*time.Hour)
	got := starts(sched.Entries())
	want := []string{"A@00:00", "A@00:50", "A@01:40"}
	if !equalStrings(got, want) {
		t.Fatalf("entries = %v want %v", got, want)
	}
}

func TestBuild_contiguousAndSorted(t *testing.T) {
	var lib []catalog.Item
	for i := range 7 {
		g := "comedy"
		if i%2 == 1 {
			g = "drama"
		}
		lib = append(lib, item(fmt.Sprintf("/m/%d.mkv", i), g, 17+i*9))
	}
	chans := []channel.Channel{
		{Name: "Zeta", Rule: channel.Rule{IncludeGenres: []string{"drama"}}, Shuffle: true, AllowRepeats: true},
		{Name: "Alpha", Rule: channel.Rule{IncludeGenres: []string{"comedy"}}, Shuffle: true, AllowRepeats: true},
		{Name: "Once", Shuffle: true},
	}
	sched := mustBuild(t, chans, lib, 12*time.Hour)

	for _, name := range sched.Channels() {
		timeline := sched.ForChannel(name)
		if len(timeline) == 0 {
			t.Fatalf("%s: empty timeline", name)
		}
		if !timeline[0].Start.Equal(t0) {
			t.Fatalf("%s: first entry at %v, want build start", name, timeline[0].Start)
		}
		for i := 1; i < len(timeline); i++ {
			if !timeline[i].Start.Equal(timeline[i-1].End()) {
				t.Fatalf("%s: gap/overlap between entries %d and %d", name, i-1, i)
			}
		}
	}
	if n := len(sched.ForChannel("Once")); n != len(lib) {
		t.Fatalf("non-repeating channel placed %d entries, want %d", n, len(lib))
	}
	entries := sched.Entries()
	for i := 1; i < len(entries); i++ {
		a, b := entries[i-1], entries[i]
		if b.Start.Before(a.Start) || (b.Start.Equal(a.Start) && b.Channel < a.Channel) {
			t.Fatalf("entries not sorted by (start, channel) at %d: %+v then %+v", i, a, b)
		}
	}
	if got := sched.Channels(); !equalStrings(got, []string{"Alpha", "Once", "Zeta"}) {
		t.Fatalf("Channels() = %v", got)
	}
}

func TestBuild_seededIsReproducible(t *testing.T) {
	var lib []catalog.Item
	for i := range 20 {
		lib = append(lib, item(fmt.Sprintf("/m/%02d.mkv", i), "", 30))
	}
	chans := []channel.Channel{{Name: "a", Shuffle: true}, {Name: "b", Shuffle: true, AllowRepeats: true}}
	build := func() []string {
		s, err := NewSeeded(chans, 1234)
		if err != nil {
			t.Fatal(err)
		}
		sched, err := s.Build(lib, t0, 24*time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		var out []string
		for _, e := range sched.Entries() {
			out = append(out, e.Channel+":"+e.Item.Path)
		}
		return out
	}
	first, second := build(), build()
	if !equalStrings(first, second) {
		t.Fatal("same seed produced different schedules")
	}
}

func TestBuild_shuffleKeepsPoolMembers(t *testing.T) {
	var lib []catalog.Item
	for i := range 10 {
		lib = append(lib, item(fmt.Sprintf("/m/%d.mkv", i), "", 30))
	}
	sched := mustBuild(t, []channel.Channel{{Name: "ch", Shuffle: true}}, lib, 100*time.Hour)
	seen := map[string]int{}
	for _, e := range sched.Entries() {
		seen[e.Item.Path]++
	}
	if len(seen) != len(lib) {
		t.Fatalf("shuffled once-through schedule covers %d items, want %d", len(seen), len(lib))
	}
	for p, n := range seen {
		if n != 1 {
			t.Fatalf("%s placed %d times", p, n)
		}
	}
}

func TestBuild_libraryNotMutatedByShuffle(t *testing.T) {
	lib := []catalog.Item{item("A", "", 30), item("B", "", 30), item("C", "", 30), item("D", "", 30)}
	mustBuild(t, []channel.Channel{{Name: "ch", Shuffle: true}}, lib, time.Hour)
	if lib[0].Path != "A" || lib[1].Path != "B" || lib[2].Path != "C" || lib[3].Path != "D" {
		t.Fatalf("library reordered: %+v", lib)
	}
}

func TestBuild_emptyChannelAbortsRun(t *testing.T) {
	lib := []catalog.Item{item("A", "comedy", 30)}
	s, err := NewSeeded([]channel.Channel{
		{Name: "ok"},
		{Name: "horror", Rule: channel.Rule{IncludeGenres: []string{"horror"}}},
	}, 1)
	if err != nil {
		t.Fatal(err)
	}
	sched, err := s.Build(lib, t0, time.Hour)
	if !errors.Is(err, channel.ErrNoMatchingItems) {
		t.Fatalf("err = %v, want ErrNoMatchingItems", err)
	}
	if sched != nil {
		t.Fatal("no partial schedule should be returned")
	}
}

func TestBuild_zeroDurationItemRejected(t *testing.T) {
	lib := []catalog.Item{{Path: "/z.mkv", Title: "z"}}
	s, _ := NewSeeded([]channel.Channel{{Name: "ch", AllowRepeats: true}}, 1)
	if _, err := s.Build(lib, t0, time.Hour); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("err = %v, want ErrInvalidDuration", err)
	}
}

func TestPlace_emptyPool(t *testing.T) {
	_, err := place(channel.Lineup{Channel: channel.Channel{Name: "x"}}, t0, t0.Add(time.Hour))
	if !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("err = %v, want ErrEmptyPool", err)
	}
}

func TestNew_rejectsDuplicateNames(t *testing.T) {
	if _, err := New([]channel.Channel{{Name: "a"}, {Name: "a"}}); !errors.Is(err, ErrDuplicateChannel) {
		t.Fatalf("err = %v", err)
	}
	if _, err := NewSeeded([]channel.Channel{{Name: ""}}, 1); !errors.Is(err, ErrDuplicateChannel) {
		t.Fatalf("empty name: err = %v", err)
	}
}

func TestBuild_zeroDurationWindow(t *testing.T) {
	sched := mustBuild(t, []channel.Channel{{Name: "ch", AllowRepeats: true}}, []catalog.Item{item("A", "", 30)}, 0)
	if n := len(sched.Entries()); n != 0 {
		t.Fatalf("entries = %d, want 0", n)
	}
	if !sched.Horizon.Equal(t0) {
		t.Fatalf("horizon = %v", sched.Horizon)
	}
}

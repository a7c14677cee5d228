package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func intp(n int) *int { return &n }

func TestItemLabel(t *testing.T) {
	tests := []struct {
		item Item
		want string
	}{
		{Item{Title: "Pilot", Show: "Show Name", Season: intp(1), Episode: intp(2)}, "Show Name S01E02 - Pilot"},
		{Item{Title: "Pilot", Show: "Show Name"}, "Show Name S??E?? - Pilot"},
		{Item{Title: "Great Movie", Year: intp(2012)}, "Great Movie (2012)"},
		{Item{Title: "Home Video"}, "Home Video"},
	}
	for _, tt := range tests {
		if got := tt.item.Label(); got != tt.want {
			t.Errorf("Label()=%q want %q", got, tt.want)
		}
	}
}

func TestItemIsEpisodeFollowsShow(t *testing.T) {
	if (Item{Title: "x", Season: intp(0)}).IsEpisode() {
		t.Fatal("season without show must not be an episode")
	}
	if !(Item{Title: "x", Show: "s"}).IsEpisode() {
		t.Fatal("show set should be an episode")
	}
}

func TestSaveLoad_roundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	scanned := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	c := New()
	c.Replace([]Item{
		{Path: "/m/a.mkv", Title: "A", Duration: 42 * time.Minute, Show: "Show", Season: intp(0), Episode: intp(3)},
		{Path: "/m/b.mp4", Title: "B", Duration: DefaultDuration, Genre: "drama", Year: intp(1999)},
	}, scanned)
	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	c2 := New()
	if err := c2.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	items := c2.Snapshot()
	if len(items) != 2 {
		t.Fatalf("items: %+v", items)
	}
	if items[0].Season == nil || *items[0].Season != 0 || *items[0].Episode != 3 {
		t.Errorf("season zero should survive roundtrip: %+v", items[0])
	}
	if items[1].Season != nil || items[1].Year == nil || *items[1].Year != 1999 {
		t.Errorf("absent season should stay absent: %+v", items[1])
	}
	if items[0].Duration != 42*time.Minute {
		t.Errorf("duration = %v", items[0].Duration)
	}
	if !c2.ScannedAt.Equal(scanned) {
		t.Errorf("scanned_at = %v", c2.ScannedAt)
	}
}

func TestSave_atomic_noPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")

	c := New()
	c.Replace([]Item{{Path: "/x.mkv", Title: "X", Duration: time.Minute}}, time.Now())
	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "catalog.json" {
			t.Errorf("unexpected file left in dir: %s", e.Name())
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("file mode = %o, want 0600", mode)
	}
}

func TestLoad_invalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := New().Load(path); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoad_missingFile(t *testing.T) {
	if err := New().Load(filepath.Join(t.TempDir(), "nonexistent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

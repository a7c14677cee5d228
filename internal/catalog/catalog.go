package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/snapetech/pseudotv/internal/fsutil"
)

// DefaultDuration is used for items whose runtime is unknown.
const DefaultDuration = 30 * time.Minute

// Item is one playable file in the media library.
// Path is the identity key; two items never share a path.
// Season, Episode and Year are nil when unknown (absence is not zero).
type Item struct {
	Path     string        `json:"path"`
	Title    string        `json:"title"`
	Duration time.Duration `json:"duration"`
	Genre    string        `json:"genre,omitempty"`
	Show     string        `json:"show,omitempty"`
	Season   *int          `json:"season,omitempty"`
	Episode  *int          `json:"episode,omitempty"`
	Year     *int          `json:"year,omitempty"`
}

// IsEpisode reports whether the item belongs to a show.
func (it Item) IsEpisode() bool {
	return it.Show != ""
}

// DurationMinutes returns the runtime in (fractional) minutes.
func (it Item) DurationMinutes() float64 {
	return it.Duration.Minutes()
}

// Label is the display name used in guides: "Show S01E02 - Title" or "Title (Year)".
func (it Item) Label() string {
	if it.IsEpisode() {
		season, episode := "S??", "E??"
		if it.Season != nil {
			season = fmt.Sprintf("S%02d", *it.Season)
		}
		if it.Episode != nil {
			episode = fmt.Sprintf("E%02d", *it.Episode)
		}
		return fmt.Sprintf("%s %s%s - %s", it.Show, season, episode, it.Title)
	}
	if it.Year != nil {
		return fmt.Sprintf("%s (%d)", it.Title, *it.Year)
	}
	return it.Title
}

// Catalog is a scanned media library that can be saved and reloaded,
// so later runs can schedule without walking the media roots again.
type Catalog struct {
	mu        sync.RWMutex
	ScannedAt time.Time `json:"scanned_at"`
	Items     []Item    `json:"items"`
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{}
}

// Replace swaps in a freshly scanned item list.
func (c *Catalog) Replace(items []Item, scannedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Items = items
	c.ScannedAt = scannedAt
}

// Snapshot returns a copy of the items for read-only use.
func (c *Catalog) Snapshot() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, len(c.Items))
	copy(out, c.Items)
	return out
}

// Save writes the catalog to path as JSON using a temp-file-then-rename strategy
// so readers never see a partially-written file.
func (c *Catalog) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, ".catalog-*.json.tmp", 0600)
}

// Load replaces the catalog with the contents of path (JSON).
func (c *Catalog) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var out struct {
		ScannedAt time.Time `json:"scanned_at"`
		Items     []Item    `json:"items"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("catalog load: %w", err)
	}
	c.Replace(out.Items, out.ScannedAt)
	return nil
}

package indexer

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/snapetech/pseudotv/internal/catalog"
	"github.com/snapetech/pseudotv/internal/nameparse"
)

// Merge builds a library item from what the file name says, what the sidecar says,
// and an optional measured duration (0 = unknown). For every field the sidecar wins
// over the parsed value, which wins over the default. Negative sidecar season or
// episode numbers count as absent.
func Merge(path string, parsed nameparse.Attributes, side Sidecar, measured time.Duration) catalog.Item {
	item := catalog.Item{
		Path:     path,
		Title:    firstNonEmpty(side.Title, parsed.Title, stem(path)),
		Duration: catalog.DefaultDuration,
		Genre:    firstNonEmpty(side.Genre, parsed.Genre),
		Show:     firstNonEmpty(side.Show, parsed.Show),
		Season:   firstInt(nonNegative(side.Season), parsed.Season),
		Episode:  firstInt(nonNegative(side.Episode), parsed.Episode),
		Year:     firstInt(side.Year, parsed.Year),
	}
	switch {
	case side.DurationMinutes != nil && *side.DurationMinutes > 0:
		item.Duration = time.Duration(*side.DurationMinutes * float64(time.Minute))
	case measured > 0:
		item.Duration = measured
	}
	return item
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstInt(vals ...*int) *int {
	for _, v := range vals {
		if v != nil {
			n := *v
			return &n
		}
	}
	return nil
}

func nonNegative(v *int) *int {
	if v != nil && *v < 0 {
		return nil
	}
	return v
}

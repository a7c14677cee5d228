package indexer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/snapetech/pseudotv/internal/catalog"
	"github.com/snapetech/pseudotv/internal/nameparse"
)

// DurationProber measures a file's runtime. *probe.Prober satisfies it.
type DurationProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Options tune a library scan.
type Options struct {
	// Extensions accepted as media (with leading dot). Empty = nameparse.MediaExtensions.
	Extensions []string
	// Prober, when set, measures items whose sidecar has no duration.
	Prober DurationProber
}

// Scan walks roots recursively and returns one item per media file, sorted by path.
// Missing roots are logged and skipped; sidecar files are never items themselves.
func Scan(ctx context.Context, roots []string, opts Options) ([]catalog.Item, error) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = nameparse.MediaExtensions
	}
	accept := make(map[string]bool, len(exts))
	for _, e := range exts {
		accept[strings.ToLower(e)] = true
	}

	seen := make(map[string]bool)
	var items []catalog.Item
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Warn().Str("root", root).Msg("media root does not exist; skipping")
				continue
			}
			return nil, err
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() || strings.HasSuffix(d.Name(), SidecarSuffix) {
				return nil
			}
			if !accept[strings.ToLower(filepath.Ext(d.Name()))] || seen[path] {
				return nil
			}
			seen[path] = true
			items = append(items, buildItem(ctx, path, opts.Prober))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	log.Debug().Int("items", len(items)).Int("roots", len(roots)).Msg("library scan complete")
	return items, nil
}

func buildItem(ctx context.Context, path string, prober DurationProber) catalog.Item {
	side, err := LoadSidecar(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ignoring unreadable sidecar")
	}
	var measured time.Duration
	if prober != nil && (side.DurationMinutes == nil || *side.DurationMinutes <= 0) {
		if d, err := prober.Duration(ctx, path); err == nil {
			measured = d
		} else {
			log.Debug().Err(err).Str("path", path).Msg("duration probe failed; using default")
		}
	}
	return Merge(path, nameparse.ParseBase(stem(path)), side, measured)
}

package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// SidecarSuffix is appended to a media file's name to find its metadata file:
// "Movie.mkv" -> "Movie.mkv.meta.json".
const SidecarSuffix = ".meta.json"

// Sidecar holds explicit metadata that overrides anything guessed from the file name.
// Zero strings and nil pointers mean "not provided".
type Sidecar struct {
	Title           string   `json:"title,omitempty"`
	DurationMinutes *float64 `json:"duration_minutes,omitempty"`
	Genre           string   `json:"genre,omitempty"`
	Show            string   `json:"show,omitempty"`
	Season          *int     `json:"season,omitempty"`
	Episode         *int     `json:"episode,omitempty"`
	Year            *int     `json:"year,omitempty"`
}

// SidecarPath returns the metadata file path for mediaPath.
func SidecarPath(mediaPath string) string {
	return mediaPath + SidecarSuffix
}

// LoadSidecar reads the companion metadata of mediaPath.
// A missing file is not an error and yields an empty Sidecar.
func LoadSidecar(mediaPath string) (Sidecar, error) {
	var s Sidecar
	data, err := os.ReadFile(SidecarPath(mediaPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("read sidecar: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Sidecar{}, fmt.Errorf("decode sidecar %s: %w", SidecarPath(mediaPath), err)
	}
	return s, nil
}

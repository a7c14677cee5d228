// Package nameparse infers media attributes from file names such as
// "Show.Name.S01E02.Pilot[comedy].mkv" or "Great.Movie.2012[drama].mp4".
//
// Parsing is heuristic and never fails: patterns are tried in order
// (episode, then movie) and the first one that matches wins. A name that
// fits neither comes back with only its title set.
package nameparse

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Attributes is the best-effort result of parsing a file name.
// Empty strings and nil pointers mean "not found in the name".
type Attributes struct {
	Title   string
	Show    string
	Genre   string
	Season  *int
	Episode *int
	Year    *int
}

// MediaExtensions are the file extensions stripped before matching and
// accepted by the library scanner.
var MediaExtensions = []string{
	".mp4", ".mkv", ".mov", ".avi", ".mp3",
	".m4v", ".webm", ".ts", ".mpg", ".mpeg", ".wmv", ".flv",
}

var (
	episodePattern = regexp.MustCompile(
		`(?i)^(?P<show>.+?)\s*[.-]\s*S(?P<season>\d{1,2})E(?P<episode>\d{1,2})\s*[.-]?\s*(?P<title>[^\[]+)?(?:\[(?P<genre>[^\]]+)\])?`)
	// Anchored at the end so the lazy title expands until the optional
	// year and genre suffixes account for the rest of the name.
	moviePattern = regexp.MustCompile(
		`^(?P<title>.+?)[\s.]*(?P<year>\d{4})?\s*(?:\[(?P<genre>[^\]]+)\])?$`)
)

// Parse extracts attributes from a file base name. The extension is removed
// first when it is one of MediaExtensions.
func Parse(name string) Attributes {
	return ParseBase(StripExtension(name))
}

// ParseBase is Parse for a name whose extension the caller already removed.
func ParseBase(base string) Attributes {
	if a, ok := parseEpisode(base); ok {
		return a
	}
	if a, ok := parseMovie(base); ok {
		return a
	}
	return Attributes{Title: base}
}

// StripExtension removes a known media extension (case-insensitive).
func StripExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return name
	}
	if IsMediaExtension(ext) {
		return strings.TrimSuffix(name, ext)
	}
	return name
}

// IsMediaExtension reports whether ext (with leading dot) is a supported media extension.
func IsMediaExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range MediaExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func parseEpisode(base string) (Attributes, bool) {
	m := submatches(episodePattern, base)
	if m == nil {
		return Attributes{}, false
	}
	season, err := strconv.Atoi(m["season"])
	if err != nil {
		return Attributes{}, false
	}
	episode, err := strconv.Atoi(m["episode"])
	if err != nil {
		return Attributes{}, false
	}
	title := cleanSeparators(m["title"])
	if title == "" {
		title = "Episode " + strconv.Itoa(episode)
	}
	return Attributes{
		Title:   title,
		Show:    cleanSeparators(m["show"]),
		Genre:   strings.TrimSpace(m["genre"]),
		Season:  &season,
		Episode: &episode,
	}, true
}

func parseMovie(base string) (Attributes, bool) {
	m := submatches(moviePattern, base)
	if m == nil {
		return Attributes{}, false
	}
	title := cleanSeparators(m["title"])
	if title == "" {
		return Attributes{}, false
	}
	a := Attributes{
		Title: title,
		Genre: strings.TrimSpace(m["genre"]),
	}
	if y := m["year"]; y != "" {
		if year, err := strconv.Atoi(y); err == nil {
			a.Year = &year
		}
	}
	return a, true
}

// submatches returns named groups of the first match, or nil when re does not match.
func submatches(re *regexp.Regexp, s string) map[string]string {
	idx := re.FindStringSubmatch(s)
	if idx == nil {
		return nil
	}
	out := make(map[string]string, len(idx))
	for i, name := range re.SubexpNames() {
		if name != "" {
			out[name] = idx[i]
		}
	}
	return out
}

// cleanSeparators turns dot-separated words into spaced words.
func cleanSeparators(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, ".", " "))
}

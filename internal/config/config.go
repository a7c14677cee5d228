package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/snapetech/pseudotv/internal/channel"
	"github.com/snapetech/pseudotv/internal/fsutil"
)

// ErrInvalid wraps every validation failure reported by Load and Validate.
var ErrInvalid = errors.New("invalid config")

// DefaultStatePath is where watch positions are stored when state_path is unset.
const DefaultStatePath = ".pseudo_tv_state.db"

// Config is the channel configuration file (YAML; JSON also parses).
type Config struct {
	MediaRoots []string `yaml:"media_roots"`
	StatePath  string   `yaml:"state_path,omitempty"`
	// CatalogPath is an optional scanned-library snapshot reused instead of walking MediaRoots.
	CatalogPath string `yaml:"catalog_path,omitempty"`
	// Extensions defaults to nameparse.MediaExtensions.
	Extensions []string `yaml:"extensions,omitempty"`
	// ProbeDurations measures runtimes with ffprobe when no sidecar gives one.
	ProbeDurations bool            `yaml:"probe_durations,omitempty"`
	Channels       []ChannelConfig `yaml:"channels"`
}

// ChannelConfig is one channel entry. Shuffle defaults to true, AllowRepeats to false.
type ChannelConfig struct {
	Name                  string   `yaml:"name"`
	Shuffle               *bool    `yaml:"shuffle,omitempty"`
	AllowRepeats          bool     `yaml:"allow_repeats"`
	IncludeGenres         []string `yaml:"include_genres,omitempty"`
	IncludeShows          []string `yaml:"include_shows,omitempty"`
	IncludePaths          []string `yaml:"include_paths,omitempty"`
	ExcludeGenres         []string `yaml:"exclude_genres,omitempty"`
	MinimumRuntimeMinutes *int     `yaml:"minimum_runtime_minutes,omitempty"`
	MaximumRuntimeMinutes *int     `yaml:"maximum_runtime_minutes,omitempty"`
}

// Channel converts the entry to the scheduler's channel type.
func (cc ChannelConfig) Channel() channel.Channel {
	shuffle := true
	if cc.Shuffle != nil {
		shuffle = *cc.Shuffle
	}
	return channel.Channel{
		Name: cc.Name,
		Rule: channel.Rule{
			IncludeGenres:         cc.IncludeGenres,
			IncludeShows:          cc.IncludeShows,
			IncludePaths:          cc.IncludePaths,
			ExcludeGenres:         cc.ExcludeGenres,
			MinimumRuntimeMinutes: cc.MinimumRuntimeMinutes,
			MaximumRuntimeMinutes: cc.MaximumRuntimeMinutes,
		},
		Shuffle:      shuffle,
		AllowRepeats: cc.AllowRepeats,
	}
}

// ChannelList returns every configured channel in file order.
func (c *Config) ChannelList() []channel.Channel {
	out := make([]channel.Channel, 0, len(c.Channels))
	for _, cc := range c.Channels {
		out = append(out, cc.Channel())
	}
	return out
}

// Load reads and validates the config file at path. Unknown keys are rejected
// so typos surface at load time instead of silently matching everything.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates config bytes.
func Parse(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrInvalid)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.StatePath == "" {
		c.StatePath = DefaultStatePath
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []error
	if len(c.MediaRoots) == 0 {
		problems = append(problems, errors.New("media_roots: at least one root is required"))
	}
	for i, r := range c.MediaRoots {
		if strings.TrimSpace(r) == "" {
			problems = append(problems, fmt.Errorf("media_roots[%d]: empty path", i))
		}
	}
	for i, e := range c.Extensions {
		if !strings.HasPrefix(e, ".") || len(e) < 2 {
			problems = append(problems, fmt.Errorf("extensions[%d]: %q must look like \".mkv\"", i, e))
		}
	}
	seen := make(map[string]bool, len(c.Channels))
	for i, cc := range c.Channels {
		where := fmt.Sprintf("channels[%d]", i)
		if strings.TrimSpace(cc.Name) == "" {
			problems = append(problems, fmt.Errorf("%s: name is required", where))
		} else {
			where = fmt.Sprintf("channel %q", cc.Name)
			if seen[cc.Name] {
				problems = append(problems, fmt.Errorf("%s: duplicate name", where))
			}
			seen[cc.Name] = true
		}
		lo, hi := cc.MinimumRuntimeMinutes, cc.MaximumRuntimeMinutes
		if lo != nil && *lo < 0 {
			problems = append(problems, fmt.Errorf("%s: minimum_runtime_minutes must be >= 0", where))
		}
		if hi != nil && *hi <= 0 {
			problems = append(problems, fmt.Errorf("%s: maximum_runtime_minutes must be > 0", where))
		}
		if lo != nil && hi != nil && *lo > *hi {
			problems = append(problems, fmt.Errorf("%s: minimum_runtime_minutes exceeds maximum_runtime_minutes", where))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(problems...))
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return fsutil.WriteFileAtomic(path, data, ".pseudo-tv-*.yaml.tmp", 0644)
}

// Example is the starter configuration written by init-config.
func Example() *Config {
	noShuffle := false
	return &Config{
		MediaRoots: []string{"./sample_media"},
		StatePath:  DefaultStatePath,
		Channels: []ChannelConfig{
			{Name: "Comedy", IncludeGenres: []string{"comedy"}, AllowRepeats: true},
			{Name: "Drama", IncludeGenres: []string{"drama"}},
			{Name: "Cartoons", IncludeGenres: []string{"animation", "family"}, Shuffle: &noShuffle},
			{Name: "Movies", IncludeGenres: []string{"movie", "comedy"}, AllowRepeats: true},
		},
	}
}

// Runtime holds settings that come from the environment (and flags) rather than the config file.
type Runtime struct {
	ConfigPath   string
	StatePath    string // overrides the file's state_path when set
	CatalogPath  string // overrides the file's catalog_path when set
	Seed         *uint64
	ScheduleSpan time.Duration
	LogLevel     string
	FFprobePath  string
	ProbeTimeout time.Duration
}

// LoadRuntime reads PSEUDO_TV_* variables. Call LoadEnvFile(".env") first to use a .env file.
func LoadRuntime() *Runtime {
	r := &Runtime{
		ConfigPath:   getEnv("PSEUDO_TV_CONFIG", "pseudo_tv.yaml"),
		StatePath:    os.Getenv("PSEUDO_TV_STATE"),
		CatalogPath:  os.Getenv("PSEUDO_TV_CATALOG"),
		Seed:         getEnvSeed("PSEUDO_TV_SEED"),
		ScheduleSpan: getEnvHours("PSEUDO_TV_SCHEDULE_HOURS", 24*time.Hour),
		LogLevel:     getEnv("PSEUDO_TV_LOG_LEVEL", "info"),
		FFprobePath:  getEnv("PSEUDO_TV_FFPROBE", "ffprobe"),
		ProbeTimeout: getEnvDuration("PSEUDO_TV_PROBE_TIMEOUT", 10*time.Second),
	}
	if r.ScheduleSpan <= 0 {
		r.ScheduleSpan = 24 * time.Hour
	}
	if r.ProbeTimeout <= 0 {
		r.ProbeTimeout = 10 * time.Second
	}
	return r
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvHours accepts a float hour count ("24", "1.5") or a Go duration ("90m").
func getEnvHours(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	if h, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(h * float64(time.Hour))
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return defaultVal
}

func getEnvSeed(key string) *uint64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	// base 0: auto-detect (handles "0x" hex prefix as well as decimal)
	n, err := strconv.ParseUint(v, 0, 64)
	if err != nil {
		return nil
	}
	return &n
}

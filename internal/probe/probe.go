package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrNoDuration is returned when ffprobe ran but reported no usable duration.
var ErrNoDuration = errors.New("probe: no duration reported")

// Prober reads media runtimes with ffprobe. The zero value uses "ffprobe" from PATH
// and a 10s per-file timeout.
type Prober struct {
	FFprobePath string
	Timeout     time.Duration

	// run is swapped in tests; nil means exec ffprobe.
	run func(ctx context.Context, path string, args ...string) ([]byte, error)
}

// ffprobeOutput is the subset of `ffprobe -show_format -of json` we read.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration returns the container duration of the file at path.
func (p *Prober) Duration(ctx context.Context, path string) (time.Duration, error) {
	bin := p.FFprobePath
	if bin == "" {
		bin = "ffprobe"
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	run := p.run
	if run == nil {
		run = runCommand
	}
	out, err := run(ctx, bin, "-v", "error", "-show_format", "-of", "json", path)
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe %s: timed out after %v", path, timeout)
		}
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseDuration(out)
}

func parseDuration(out []byte) (time.Duration, error) {
	var result ffprobeOutput
	if err := json.Unmarshal(out, &result); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	s := strings.TrimSpace(result.Format.Duration)
	if s == "" || s == "N/A" {
		return 0, ErrNoDuration
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", s, err)
	}
	if secs <= 0 {
		return 0, ErrNoDuration
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func runCommand(ctx context.Context, bin string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, bin, args...).Output()
}

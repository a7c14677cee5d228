package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Check is one named probe and its outcome (nil Err means OK).
type Check struct {
	Name string
	Err  error
}

// CheckMediaRoots returns nil if every root exists and is a directory.
func CheckMediaRoots(roots []string) error {
	if len(roots) == 0 {
		return fmt.Errorf("no media roots configured")
	}
	var errs []error
	for _, root := range roots {
		fi, err := os.Stat(root)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", root, err))
			continue
		}
		if !fi.IsDir() {
			errs = append(errs, fmt.Errorf("%s: not a directory", root))
		}
	}
	return errors.Join(errs...)
}

// CheckWritableDir creates and removes a scratch file next to path.
func CheckWritableDir(path string) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".pseudo-tv-health-*")
	if err != nil {
		return fmt.Errorf("%s not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// CheckFFprobe runs "ffprobe -version". Returns nil if it exits cleanly.
func CheckFFprobe(ctx context.Context, ffprobePath string) error {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	bin, err := exec.LookPath(ffprobePath)
	if err != nil {
		return fmt.Errorf("ffprobe not found: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if out, err := exec.CommandContext(ctx, bin, "-version").CombinedOutput(); err != nil {
		return fmt.Errorf("ffprobe -version: %w (%s)", err, firstLine(out))
	}
	return nil
}

// Failed reports whether any check has an error.
func Failed(checks []Check) bool {
	for _, c := range checks {
		if c.Err != nil {
			return true
		}
	}
	return false
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}

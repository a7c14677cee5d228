package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/snapetech/pseudotv/internal/config"
)

type fixture struct {
	dir     string
	config  string
	heist   string
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	app     *app
	nowTime time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	media := filepath.Join(dir, "media")
	files := map[string]string{
		"tv/Alpha - S01E01 - Pilot [comedy].mkv":  "",
		"tv/Alpha - S01E02 - Second [comedy].mkv": "",
		"film/Heist 1999 [drama].mkv":             "",
		"film/Heist 1999 [drama].mkv.meta.json":   `{"duration_minutes": 90}`,
		"notes.txt":                               "not media",
	}
	for name, body := range files {
		p := filepath.Join(media, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfgPath := filepath.Join(dir, "pseudo_tv.yaml")
	cfg := "media_roots: [" + media + "]\n" +
		"state_path: " + filepath.Join(dir, "state.db") + "\n" +
		"channels:\n" +
		"  - name: Comedy\n    include_genres: [comedy]\n    allow_repeats: true\n    shuffle: false\n" +
		"  - name: Drama\n    include_genres: [drama]\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		dir:     dir,
		config:  cfgPath,
		heist:   filepath.Join(media, "film", "Heist 1999 [drama].mkv"),
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
		nowTime: time.Date(2024, 1, 1, 20, 15, 0, 0, time.UTC),
	}
	f.app = &app{
		stdout: f.stdout,
		stderr: f.stderr,
		now:    func() time.Time { return f.nowTime },
		rt:     &config.Runtime{ScheduleSpan: 24 * time.Hour, LogLevel: "error"},
	}
	return f
}

// run executes one command with -config and -seed filled in and returns stdout.
func (f *fixture) run(t *testing.T, cmd string, args ...string) string {
	t.Helper()
	f.stdout.Reset()
	f.stderr.Reset()
	full := append([]string{cmd, "-config", f.config, "-seed", "1"}, args...)
	if code := f.app.run(full); code != 0 {
		t.Fatalf("%s exited %d\nstderr:\n%s", cmd, code, f.stderr.String())
	}
	return f.stdout.String()
}

func TestRun_channels(t *testing.T) {
	f := newFixture(t)
	out := f.run(t, "channels")
	want := "Configured channels:\n" +
		"- Comedy: genres=comedy, shows=any, repeat=yes\n" +
		"- Drama: genres=drama, shows=any, repeat=no\n"
	if out != want {
		t.Errorf("got:\n%s", out)
	}
}

func TestRun_scanSavesCatalog(t *testing.T) {
	f := newFixture(t)
	catalogPath := filepath.Join(f.dir, "catalog.json")
	out := f.run(t, "scan", "-catalog", catalogPath)
	if !strings.Contains(out, "- Heist (1999) (Duration: 1:30:00; Genre: drama; Year: 1999) -> "+f.heist+"\n") {
		t.Errorf("heist line missing:\n%s", out)
	}
	if !strings.HasSuffix(out, "3 items, 2:30:00 total\n") {
		t.Errorf("summary:\n%s", out)
	}
	if _, err := os.Stat(catalogPath); err != nil {
		t.Fatalf("catalog not saved: %v", err)
	}

	// later commands reuse the snapshot even when the media is gone
	if err := os.RemoveAll(filepath.Join(f.dir, "media")); err != nil {
		t.Fatal(err)
	}
	out = f.run(t, "guide", "-catalog", catalogPath, "-hours", "1")
	if !strings.Contains(out, "=== Drama ===\n20:00 - 21:30: Heist (1999)\n") {
		t.Errorf("guide from catalog:\n%s", out)
	}
}

func TestRun_guide(t *testing.T) {
	f := newFixture(t)
	out := f.run(t, "guide", "-hours", "1")
	if !strings.HasPrefix(out, "=== Comedy ===\n20:00 - 20:30: Alpha S01E01") {
		t.Errorf("got:\n%s", out)
	}
	for _, want := range []string{"\n20:30 - 21:00: Alpha S01E02", "\n21:00 - 21:30: Alpha S01E01", "=== Drama ===\n20:00 - 21:30: Heist (1999)\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRun_nowRecordsPositions(t *testing.T) {
	f := newFixture(t)
	out := f.run(t, "now")
	if !strings.Contains(out, "Channel Drama: Heist (1999) (elapsed 0:15:00, remaining 1:15:00, start 20:00") {
		t.Errorf("now:\n%s", out)
	}
	if !strings.HasPrefix(out, "Channel Comedy: Alpha S01E01") {
		t.Errorf("now:\n%s", out)
	}
	out = f.run(t, "positions")
	if !strings.Contains(out, "Channel Drama: 16.67% of "+f.heist) {
		t.Errorf("positions:\n%s", out)
	}
	if !strings.Contains(out, "Channel Comedy: 50.00% of ") {
		t.Errorf("positions:\n%s", out)
	}
}

func TestRun_upcoming(t *testing.T) {
	f := newFixture(t)
	out := f.run(t, "upcoming", "-hours", "1")
	want := "Channel Comedy:\n  - 20:30 "
	if !strings.HasPrefix(out, want) || strings.Contains(out, "Drama") {
		t.Errorf("got:\n%s", out)
	}

	f.nowTime = time.Date(2024, 1, 1, 20, 45, 0, 0, time.UTC)
	out = f.run(t, "upcoming", "-hours", "0.1")
	if out != "No upcoming items in window.\n" {
		t.Errorf("empty window:\n%s", out)
	}
}

func TestRun_xmltvAndMetrics(t *testing.T) {
	f := newFixture(t)
	xmlPath := filepath.Join(f.dir, "guide.xml")
	promPath := filepath.Join(f.dir, "pseudotv.prom")
	f.run(t, "xmltv", "-o", xmlPath, "-metrics-textfile", promPath)
	data, err := os.ReadFile(xmlPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `<channel id="comedy.pseudotv">`) || !strings.Contains(string(data), "<programme ") {
		t.Errorf("xmltv:\n%s", data)
	}
	prom, err := os.ReadFile(promPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(prom), "pseudotv_library_items 3\n") {
		t.Errorf("metrics:\n%s", prom)
	}
}

func TestRun_doctor(t *testing.T) {
	f := newFixture(t)
	out := f.run(t, "doctor")
	if strings.Contains(out, "FAIL") || !strings.Contains(out, "OK   media roots") {
		t.Errorf("doctor:\n%s", out)
	}
	if err := os.RemoveAll(filepath.Join(f.dir, "media")); err != nil {
		t.Fatal(err)
	}
	f.stdout.Reset()
	if code := f.app.run([]string{"doctor", "-config", f.config}); code != 1 {
		t.Errorf("doctor with missing root exited %d", code)
	}
	if !strings.Contains(f.stdout.String(), "FAIL media roots") {
		t.Errorf("doctor:\n%s", f.stdout.String())
	}
}

func TestRun_initConfig(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "starter.yaml")
	if code := f.app.run([]string{"init-config", "-output", out}); code != 0 {
		t.Fatalf("init-config exited %d: %s", code, f.stderr.String())
	}
	c, err := config.Load(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Channels) != 4 {
		t.Errorf("channels: %+v", c.Channels)
	}
	if code := f.app.run([]string{"init-config", "-output", out}); code != 1 {
		t.Errorf("second init-config without -force exited %d", code)
	}
	if code := f.app.run([]string{"init-config", "-output", out, "-force"}); code != 0 {
		t.Errorf("init-config -force exited %d", code)
	}
}

func TestRun_badInput(t *testing.T) {
	f := newFixture(t)
	for name, args := range map[string][]string{
		"no command":   nil,
		"unknown":      {"bogus"},
		"missing conf": {"guide", "-config", filepath.Join(f.dir, "none.yaml")},
		"bad seed":     {"guide", "-config", f.config, "-seed", "abc"},
		"zero hours":   {"upcoming", "-config", f.config, "-hours", "0"},
		"unknown flag": {"guide", "-nope"},
	} {
		if code := f.app.run(args); code == 0 {
			t.Errorf("%s: exit 0", name)
		}
	}
}

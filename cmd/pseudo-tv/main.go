// Command pseudo-tv: schedule a local media library as always-on TV channels.
//
//	scan         Walk media roots, list items, save the catalog when -catalog is set
//	channels     List configured channels and their rules
//	guide        Show each channel's airings for the next -hours
//	now          Show what every channel is airing and record positions
//	upcoming     Show airings starting within the next -hours
//	positions    Show the last recorded position of each channel
//	xmltv        Write the schedule as an XMLTV guide (-o file, default stdout)
//	doctor       Check media roots, state directory and ffprobe
//	init-config  Write a starter config file
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/snapetech/pseudotv/internal/catalog"
	"github.com/snapetech/pseudotv/internal/config"
	"github.com/snapetech/pseudotv/internal/fsutil"
	"github.com/snapetech/pseudotv/internal/health"
	"github.com/snapetech/pseudotv/internal/indexer"
	"github.com/snapetech/pseudotv/internal/metrics"
	"github.com/snapetech/pseudotv/internal/probe"
	"github.com/snapetech/pseudotv/internal/report"
	"github.com/snapetech/pseudotv/internal/schedule"
	"github.com/snapetech/pseudotv/internal/state"
	"github.com/snapetech/pseudotv/internal/xmltv"
)

const usage = `Usage: %s <command> [flags]
  scan         Walk media roots and list items (-catalog saves a snapshot)
  channels     List configured channels
  guide        Show the guide for the next -hours (default 4)
  now          Show what is playing right now and record positions
  upcoming     Show airings starting in the next -hours (default 2)
  positions    Show recorded positions
  xmltv        Write an XMLTV guide (-o file)
  doctor       Check media roots, state directory and ffprobe
  init-config  Write a starter config (-output, default pseudo_tv.example.yaml)
`

// app carries process-wide dependencies so tests can swap output and clock.
type app struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
	rt     *config.Runtime
}

// options are the flags shared by every command that loads a config.
type options struct {
	configPath  string
	catalogPath string
	statePath   string
	seed        string
	metricsFile string
	logLevel    string
}

func main() {
	_ = config.LoadEnvFile(".env")
	a := &app{stdout: os.Stdout, stderr: os.Stderr, now: time.Now, rt: config.LoadRuntime()}
	os.Exit(a.run(os.Args[1:]))
}

func (a *app) run(args []string) int {
	if len(args) < 1 {
		fmt.Fprintf(a.stderr, usage, "pseudo-tv")
		return 1
	}
	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(a.stderr)

	if cmd == "init-config" {
		output := fs.String("output", "pseudo_tv.example.yaml", "Where to write the starter config")
		force := fs.Bool("force", false, "Overwrite an existing file")
		if fs.Parse(rest) != nil {
			return 2
		}
		a.setupLogging(a.rt.LogLevel)
		return a.initConfig(*output, *force)
	}

	opts := a.commonFlags(fs)
	var hours *float64
	var xmlOut *string
	switch cmd {
	case "guide":
		hours = fs.Float64("hours", 4, "Guide window length in hours")
	case "upcoming":
		hours = fs.Float64("hours", 2, "Lookahead window in hours")
	case "xmltv":
		xmlOut = fs.String("o", "", "Output file (default stdout)")
	case "scan", "channels", "now", "positions", "doctor":
	default:
		fmt.Fprintf(a.stderr, "Unknown command %q\n", cmd)
		fmt.Fprintf(a.stderr, usage, "pseudo-tv")
		return 1
	}
	if fs.Parse(rest) != nil {
		return 2
	}
	a.setupLogging(opts.logLevel)
	if hours != nil && *hours <= 0 {
		log.Error().Float64("hours", *hours).Msg("-hours must be positive")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cmd == "doctor" {
		return a.doctor(ctx, opts)
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Error().Err(err).Str("path", opts.configPath).Msg("Load config failed")
		return 1
	}
	if opts.catalogPath == "" {
		opts.catalogPath = cfg.CatalogPath
	}
	if opts.statePath == "" {
		opts.statePath = cfg.StatePath
	}

	switch cmd {
	case "channels":
		return a.check(report.Channels(a.stdout, cfg.ChannelList()))
	case "positions":
		return a.positions(ctx, opts.statePath)
	case "scan":
		items, err := a.scan(ctx, cfg)
		if err != nil {
			log.Error().Err(err).Msg("Scan failed")
			return 1
		}
		if opts.catalogPath != "" {
			c := catalog.New()
			c.Replace(items, a.now())
			if err := c.Save(opts.catalogPath); err != nil {
				log.Error().Err(err).Str("path", opts.catalogPath).Msg("Save catalog failed")
				return 1
			}
			log.Info().Int("items", len(items)).Str("path", opts.catalogPath).Msg("Saved catalog")
		}
		return a.check(report.Library(a.stdout, items))
	}

	now := a.now()
	var window time.Duration
	if hours != nil {
		window = time.Duration(*hours * float64(time.Hour))
	}
	s, err := a.buildSchedule(ctx, cfg, opts, now, window)
	if err != nil {
		log.Error().Err(err).Msg("Build schedule failed")
		return 1
	}

	switch cmd {
	case "guide":
		return a.check(report.Guide(a.stdout, s.Guide(now, now.Add(window))))
	case "upcoming":
		return a.check(report.Upcoming(a.stdout, s.Upcoming(now, window)))
	case "now":
		if code := a.check(report.NowPlaying(a.stdout, s.CurrentProgram(now), now)); code != 0 {
			return code
		}
		return a.remember(ctx, opts.statePath, state.FromSchedule(s, now))
	case "xmltv":
		return a.writeXMLTV(s, *xmlOut)
	}
	return 0
}

func (a *app) commonFlags(fs *flag.FlagSet) *options {
	o := &options{}
	fs.StringVar(&o.configPath, "config", a.rt.ConfigPath, "Channel config file, YAML or JSON (default: PSEUDO_TV_CONFIG)")
	fs.StringVar(&o.catalogPath, "catalog", a.rt.CatalogPath, "Catalog snapshot path; reused instead of scanning when present (default: PSEUDO_TV_CATALOG or catalog_path)")
	fs.StringVar(&o.statePath, "state", a.rt.StatePath, "Positions database (default: PSEUDO_TV_STATE or state_path)")
	fs.StringVar(&o.seed, "seed", "", "Shuffle seed for a reproducible schedule (default: PSEUDO_TV_SEED)")
	fs.StringVar(&o.metricsFile, "metrics-textfile", "", "Write Prometheus metrics to this file after building")
	fs.StringVar(&o.logLevel, "log-level", a.rt.LogLevel, "debug, info, warn or error (default: PSEUDO_TV_LOG_LEVEL)")
	return o
}

func (a *app) setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: a.stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
}

// check maps a report write error to an exit code.
func (a *app) check(err error) int {
	if err != nil {
		log.Error().Err(err).Msg("Write output failed")
		return 1
	}
	return 0
}

func (a *app) scan(ctx context.Context, cfg *config.Config) ([]catalog.Item, error) {
	opts := indexer.Options{Extensions: cfg.Extensions}
	if cfg.ProbeDurations {
		opts.Prober = &probe.Prober{FFprobePath: a.rt.FFprobePath, Timeout: a.rt.ProbeTimeout}
	}
	started := time.Now()
	items, err := indexer.Scan(ctx, cfg.MediaRoots, opts)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("items", len(items)).Dur("took", time.Since(started)).Msg("Scanned media roots")
	return items, nil
}

// library loads the catalog snapshot when one exists, otherwise scans.
func (a *app) library(ctx context.Context, cfg *config.Config, catalogPath string) ([]catalog.Item, error) {
	if catalogPath != "" {
		c := catalog.New()
		err := c.Load(catalogPath)
		if err == nil {
			items := c.Snapshot()
			log.Debug().Int("items", len(items)).Str("path", catalogPath).Msg("Loaded catalog")
			return items, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load catalog %s: %w", catalogPath, err)
		}
		log.Warn().Str("path", catalogPath).Msg("Catalog not found; scanning media roots")
	}
	return a.scan(ctx, cfg)
}

// buildSchedule starts at the top of the current hour and runs for the configured
// span, stretched when needed so the query window is fully covered.
func (a *app) buildSchedule(ctx context.Context, cfg *config.Config, opts *options, now time.Time, window time.Duration) (*schedule.Schedule, error) {
	items, err := a.library(ctx, cfg, opts.catalogPath)
	if err != nil {
		return nil, err
	}
	seed := a.rt.Seed
	if opts.seed != "" {
		n, err := strconv.ParseUint(opts.seed, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid -seed %q: %w", opts.seed, err)
		}
		seed = &n
	}
	var sch *schedule.Scheduler
	if seed != nil {
		sch, err = schedule.NewSeeded(cfg.ChannelList(), *seed)
	} else {
		sch, err = schedule.New(cfg.ChannelList())
	}
	if err != nil {
		return nil, err
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	span := max(a.rt.ScheduleSpan, now.Sub(start)+window)
	began := time.Now()
	s, err := sch.Build(items, start, span)
	if err != nil {
		return nil, err
	}
	took := time.Since(began)
	log.Debug().Str("run_id", s.RunID.String()).Int("entries", len(s.Entries())).Dur("took", took).Msg("Built schedule")

	if opts.metricsFile != "" {
		rec := metrics.New()
		rec.ObserveLibrary(len(items))
		rec.ObserveBuild(s, took, a.now())
		if err := rec.WriteTextfile(opts.metricsFile); err != nil {
			log.Warn().Err(err).Str("path", opts.metricsFile).Msg("Write metrics failed")
		}
	}
	return s, nil
}

func (a *app) remember(ctx context.Context, statePath string, positions []state.Position) int {
	st, err := state.Open(statePath)
	if err != nil {
		log.Error().Err(err).Msg("Open state failed")
		return 1
	}
	defer st.Close()
	if err := st.Remember(ctx, positions); err != nil {
		log.Error().Err(err).Str("path", statePath).Msg("Record positions failed")
		return 1
	}
	log.Debug().Int("channels", len(positions)).Str("path", statePath).Msg("Recorded positions")
	return 0
}

func (a *app) positions(ctx context.Context, statePath string) int {
	st, err := state.Open(statePath)
	if err != nil {
		log.Error().Err(err).Msg("Open state failed")
		return 1
	}
	defer st.Close()
	positions, err := st.Positions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Read positions failed")
		return 1
	}
	return a.check(report.Positions(a.stdout, positions, a.now()))
}

func (a *app) writeXMLTV(s *schedule.Schedule, path string) int {
	if path == "" || path == "-" {
		return a.check(xmltv.Write(a.stdout, s))
	}
	var buf bytes.Buffer
	if err := xmltv.Write(&buf, s); err != nil {
		log.Error().Err(err).Msg("Render XMLTV failed")
		return 1
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), ".guide-*.xml.tmp", 0644); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Write XMLTV failed")
		return 1
	}
	log.Info().Str("path", path).Int("programmes", len(s.Entries())).Msg("Wrote XMLTV guide")
	return 0
}

func (a *app) doctor(ctx context.Context, opts *options) int {
	var checks []health.Check
	cfg, err := config.Load(opts.configPath)
	checks = append(checks, health.Check{Name: "config " + opts.configPath, Err: err})
	if cfg != nil {
		statePath := opts.statePath
		if statePath == "" {
			statePath = cfg.StatePath
		}
		checks = append(checks,
			health.Check{Name: "media roots", Err: health.CheckMediaRoots(cfg.MediaRoots)},
			health.Check{Name: "state directory", Err: health.CheckWritableDir(statePath)},
		)
		if cfg.ProbeDurations {
			checks = append(checks, health.Check{Name: "ffprobe", Err: health.CheckFFprobe(ctx, a.rt.FFprobePath)})
		}
	}
	for _, c := range checks {
		if c.Err != nil {
			fmt.Fprintf(a.stdout, "FAIL %s: %v\n", c.Name, c.Err)
		} else {
			fmt.Fprintf(a.stdout, "OK   %s\n", c.Name)
		}
	}
	if health.Failed(checks) {
		return 1
	}
	return 0
}

func (a *app) initConfig(output string, force bool) int {
	if !force {
		if _, err := os.Stat(output); err == nil {
			log.Error().Str("path", output).Msg("File exists; use -force to overwrite")
			return 1
		}
	}
	if err := config.Example().Save(output); err != nil {
		log.Error().Err(err).Str("path", output).Msg("Write config failed")
		return 1
	}
	fmt.Fprintf(a.stdout, "Wrote starter config to %s\n", output)
	return 0
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"rentdesk/internal/config"
	"rentdesk/internal/ics"
	"rentdesk/internal/kvstore"
	appLog "rentdesk/internal/log"
	"rentdesk/internal/photo"
	"rentdesk/internal/rental"
	"rentdesk/internal/snippet"
)

const version = "0.3.0"

func main() {
	// .env is optional.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		appLog.Error("rentdesk failed", err)
		os.Exit(1)
	}
}

// env is the state shared by every command once Before has run.
type env struct {
	cfgPath string
	cfg     *config.Config

	objects  *rental.Store
	snippets *snippet.Store
}

func newApp() *cli.App {
	e := &env{}
	return &cli.App{
		Name:    "rentdesk",
		Usage:   "Manage rental apartments, their booking calendars and reply snippets.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath(),
				Usage:   "Path to config file",
				EnvVars: []string{"RENTDESK_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error (overrides config)",
				EnvVars: []string{"RENTDESK_LOG_LEVEL"},
			},
		},
		Before: e.load,
		Commands: []*cli.Command{
			e.serveCommand(),
			e.objectCommand(),
			e.snippetCommand(),
			e.calendarCommand(),
			e.icsCommand(),
			e.captureCommand(),
		},
	}
}

func (e *env) load(c *cli.Context) error {
	e.cfgPath = c.String("config")
	cfg, err := config.Load(e.cfgPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", e.cfgPath, err)
	}
	e.cfg = cfg

	level := cfg.LogLevel
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	appLog.SetLevel(appLog.ParseLevel(level))
	appLog.Debug("config loaded", "path", e.cfgPath, "timezone", cfg.Timezone, "week_start", cfg.WeekStart, "feeds", len(cfg.Feeds))
	return nil
}

// rentals opens the object store on first use.
func (e *env) rentals() (*rental.Store, error) {
	if e.objects != nil {
		return e.objects, nil
	}
	kv, err := kvstore.Open(e.cfg.StatePath())
	if err != nil {
		return nil, fmt.Errorf("open state %s: %w", e.cfg.StatePath(), err)
	}
	photos, err := photo.NewManager(e.cfg.PhotosPath())
	if err != nil {
		appLog.Warn("photo storage unavailable", "dir", e.cfg.PhotosPath(), "reason", err.Error())
		photos = nil
	}
	e.objects = rental.NewStore(kv, photos, e.cfg.Location())
	return e.objects, nil
}

// snippetStore opens the snippet library on first use.
func (e *env) snippetStore() *snippet.Store {
	if e.snippets == nil {
		e.snippets = snippet.NewStore(e.cfg.SnippetsPath())
		e.snippets.Load()
	}
	return e.snippets
}

func (e *env) importer(store *rental.Store) *ics.Importer {
	return ics.NewImporter(ics.NewFetcher(e.cfg.FeedCachePath(), nil), store, e.cfg.Location(), e.cfg.HorizonDays)
}

func (e *env) feedSources() []ics.Source {
	out := make([]ics.Source, 0, len(e.cfg.Feeds))
	for _, f := range e.cfg.Feeds {
		if f.URL == "" {
			continue
		}
		out = append(out, ics.Source{ID: f.ID, URL: f.URL, ObjectID: f.ObjectID})
	}
	return out
}

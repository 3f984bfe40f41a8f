package main

import (
	"context"
	"net"
	"time"

	"github.com/urfave/cli/v2"

	appLog "rentdesk/internal/log"
	"rentdesk/internal/rental"
	"rentdesk/internal/scheduler"
	"rentdesk/internal/web"
)

func (e *env) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and the scheduled feed refresh.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config)"},
			&cli.BoolFlag{Name: "no-refresh", Usage: "Do not import ICS feeds in the background"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("listen") {
				e.cfg.Listen = c.String("listen")
			}
			store, err := e.rentals()
			if err != nil {
				return err
			}

			appLog.Info("rentdesk starting",
				"version", version,
				"listen", e.cfg.Listen,
				"timezone", e.cfg.Timezone,
				"week_start", e.cfg.WeekStart,
				"refresh", e.cfg.RefreshCron,
				"feeds", len(e.cfg.Feeds),
			)

			unsubscribe := store.Subscribe(func(ev rental.Event) {
				appLog.Info("object changed", "kind", ev.Kind, "id", ev.ObjectID, "status", ev.Status)
			})
			defer unsubscribe()

			ctx := c.Context
			runner := scheduler.New(e.cfg.Location())
			if sources := e.feedSources(); len(sources) > 0 && !c.Bool("no-refresh") {
				im := e.importer(store)
				job := func(ctx context.Context) error {
					_, err := im.ImportAll(ctx, sources)
					return err
				}
				if err := runner.Add("feed-refresh", e.cfg.RefreshCron, job); err != nil {
					return err
				}
				go func() { _ = runner.RunNow("feed-refresh", job) }()
			}
			runner.Start()
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				runner.Stop(stopCtx)
			}()

			ln, err := net.Listen("tcp", e.cfg.Listen)
			if err != nil {
				return err
			}
			srv := web.NewServer(e.cfg, store, e.snippetStore())
			err = web.Serve(ctx, ln, srv.Handler())
			appLog.Info("rentdesk exiting")
			return err
		},
	}
}

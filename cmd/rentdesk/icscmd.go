package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"rentdesk/internal/fsutil"
	"rentdesk/internal/ics"
	"rentdesk/internal/model"
	"rentdesk/internal/rental"
)

func (e *env) icsCommand() *cli.Command {
	return &cli.Command{
		Name:  "ics",
		Usage: "Export bookings as iCalendar or import ICS feeds.",
		Subcommands: []*cli.Command{
			{
				Name:      "export",
				Usage:     "Write an object's bookings as a VCALENDAR",
				ArgsUsage: "<object>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default stdout)"},
				},
				Action: e.withObject(func(c *cli.Context, _ *rental.Store, obj model.RentalObject) error {
					body := ics.Export(obj, e.cfg.Location(), time.Now())
					if out := c.String("out"); out != "" {
						return fsutil.WriteFileAtomic(out, []byte(body), 0o644)
					}
					_, err := fmt.Fprint(c.App.Writer, body)
					return err
				}),
			},
			{
				Name:  "import",
				Usage: "Import configured feeds, or one ICS file into an object",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "feed", Usage: "Only import feeds with these IDs"},
					&cli.StringFlag{Name: "file", Usage: "Import a local .ics file instead of the configured feeds"},
					&cli.StringFlag{Name: "object", Usage: "Target object for --file"},
					&cli.StringFlag{Name: "source", Value: "file", Usage: "Source tag for --file; a later import with the same tag replaces it"},
				},
				Action: e.icsImport,
			},
		},
	}
}

func (e *env) icsImport(c *cli.Context) error {
	store, err := e.rentals()
	if err != nil {
		return err
	}
	im := e.importer(store)

	if path := c.String("file"); path != "" {
		obj, err := resolveObject(store, c.String("object"))
		if err != nil {
			return err
		}
		body, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		res, err := im.ImportBody(ics.Source{ID: c.String("source"), ObjectID: obj.ID}, body)
		if err != nil {
			return err
		}
		printImport(c, res)
		return nil
	}

	sources := e.feedSources()
	if only := c.StringSlice("feed"); len(only) > 0 {
		want := make(map[string]bool, len(only))
		for _, id := range only {
			want[id] = true
		}
		filtered := sources[:0]
		for _, s := range sources {
			if want[s.ID] {
				filtered = append(filtered, s)
			}
		}
		sources = filtered
	}
	if len(sources) == 0 {
		return cli.Exit("no feeds to import; add feeds to "+e.cfgPath, 1)
	}

	results, err := im.ImportAll(c.Context, sources)
	for _, res := range results {
		printImport(c, res)
	}
	return err
}

func printImport(c *cli.Context, res ics.ImportResult) {
	cached := ""
	if res.FromCache {
		cached = " (cached)"
	}
	fmt.Fprintf(c.App.Writer, "%s -> %s: %d added, %d skipped%s\n", res.Source.ID, res.Source.ObjectID, res.Added, res.Skipped, cached)
}

package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"rentdesk/internal/calendar"
	"rentdesk/internal/capture"
	appLog "rentdesk/internal/log"
	"rentdesk/internal/model"
	"rentdesk/internal/rental"
	"rentdesk/internal/web"
)

func (e *env) calendarCommand() *cli.Command {
	return &cli.Command{
		Name:    "calendar",
		Aliases: []string{"cal"},
		Usage:   "Print booking calendars as text.",
		Subcommands: []*cli.Command{
			{
				Name:      "month",
				Usage:     "Print one month grid",
				ArgsUsage: "<object>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "year", Usage: "Defaults to the current year"},
					&cli.IntFlag{Name: "month", Usage: "1-12, defaults to the current month"},
				},
				Action: e.withObject(func(c *cli.Context, _ *rental.Store, obj model.RentalObject) error {
					cal := e.cfg.Calendar()
					now := time.Now().In(cal.Location)
					year, month := now.Year(), now.Month()
					if c.IsSet("year") {
						year = c.Int("year")
					}
					if c.IsSet("month") {
						m := c.Int("month")
						if m < 1 || m > 12 {
							return cli.Exit("--month must be 1-12", 2)
						}
						month = time.Month(m)
					}
					_, err := fmt.Fprint(c.App.Writer, calendar.FormatMonth(cal.Month(year, month, obj.BookingRanges, now)))
					return err
				}),
			},
			{
				Name:      "year",
				Usage:     "Print the twelve months of a year",
				ArgsUsage: "<object>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "year", Usage: "Defaults to the current year"},
				},
				Action: e.withObject(func(c *cli.Context, _ *rental.Store, obj model.RentalObject) error {
					cal := e.cfg.Calendar()
					now := time.Now().In(cal.Location)
					year := now.Year()
					if c.IsSet("year") {
						year = c.Int("year")
					}
					fmt.Fprintf(c.App.Writer, "%s · %d\n\n", obj.Title, year)
					for _, m := range cal.YearView(year, obj.BookingRanges, now) {
						if _, err := fmt.Fprintln(c.App.Writer, calendar.FormatMonth(m)); err != nil {
							return err
						}
					}
					return nil
				}),
			},
		},
	}
}

func (e *env) captureCommand() *cli.Command {
	return &cli.Command{
		Name:      "capture",
		Usage:     "Render an object's year overview to PNG with headless Chromium.",
		ArgsUsage: "<object>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "year", Usage: "Defaults to the current year"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output PNG (default <data_dir>/<object>-<year>.png)"},
			&cli.IntFlag{Name: "width", Value: capture.DefaultWidth},
			&cli.IntFlag{Name: "height", Value: capture.DefaultHeight},
			&cli.DurationFlag{Name: "timeout", Value: capture.DefaultTimeout},
			&cli.StringFlag{Name: "chrome", Usage: "Chrome/Chromium binary", EnvVars: []string{"RENTDESK_CHROME"}},
		},
		Action: e.withObject(func(c *cli.Context, store *rental.Store, obj model.RentalObject) error {
			year := time.Now().In(e.cfg.Location()).Year()
			if c.IsSet("year") {
				year = c.Int("year")
			}
			out := c.String("out")
			if out == "" {
				out = filepath.Join(e.cfg.DataDir, fmt.Sprintf("%s-%d.png", obj.ID, year))
			}

			// Private loopback server: no auth, no CORS.
			local := *e.cfg
			local.BasicAuth = nil
			local.CORSOrigins = nil
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()
			served := make(chan error, 1)
			go func() {
				served <- web.Serve(ctx, ln, web.NewServer(&local, store, e.snippetStore()).Handler())
			}()

			u := url.URL{
				Scheme:   "http",
				Host:     ln.Addr().String(),
				Path:     "/objects/" + url.PathEscape(obj.ID) + "/year",
				RawQuery: url.Values{"year": {fmt.Sprint(year)}}.Encode(),
			}
			err = capture.CapturePNG(ctx, capture.CaptureOptions{
				URL:        u.String(),
				OutputPath: out,
				Width:      c.Int("width"),
				Height:     c.Int("height"),
				Timeout:    c.Duration("timeout"),
				ExecPath:   c.String("chrome"),
			})
			cancel()
			if serr := <-served; serr != nil {
				appLog.Warn("capture server stopped with error", "reason", serr.Error())
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, out)
			return nil
		}),
	}
}

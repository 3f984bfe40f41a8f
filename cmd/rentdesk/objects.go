package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"rentdesk/internal/booking"
	"rentdesk/internal/model"
	"rentdesk/internal/rental"
)

func (e *env) objectCommand() *cli.Command {
	return &cli.Command{
		Name:    "object",
		Aliases: []string{"obj"},
		Usage:   "Manage rental objects and their bookings.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List objects",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "available", Usage: "Only objects without a confirmed booking"},
					&cli.IntFlag{Name: "min-area", Usage: "Minimum area in m²"},
					&cli.IntFlag{Name: "max-floor", Usage: "Highest floor"},
				},
				Action: e.objectList,
			},
			{
				Name:  "add",
				Usage: "Pin a new object",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "description"},
					&cli.Float64Flag{Name: "lat", Usage: "Latitude"},
					&cli.Float64Flag{Name: "lon", Usage: "Longitude"},
					&cli.IntFlag{Name: "area"},
					&cli.IntFlag{Name: "floor"},
				},
				Action: e.objectAdd,
			},
			{
				Name:      "update",
				Usage:     "Change title, description, area or floor",
				ArgsUsage: "<object>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "description"},
					&cli.IntFlag{Name: "area"},
					&cli.IntFlag{Name: "floor"},
				},
				Action: e.objectUpdate,
			},
			{
				Name:      "show",
				Usage:     "Show an object with its bookings",
				ArgsUsage: "<object>",
				Action:    e.objectShow,
			},
			{
				Name:      "delete",
				Usage:     "Remove an object and its photos",
				ArgsUsage: "<object>",
				Action: e.withObject(func(c *cli.Context, s *rental.Store, obj model.RentalObject) error {
					if err := s.Delete(obj.ID); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "deleted %s\n", obj.ID)
					return nil
				}),
			},
			{
				Name:      "book",
				Usage:     "Book an inclusive date range",
				ArgsUsage: "<object> <start YYYY-MM-DD> <end YYYY-MM-DD>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Value: "confirmed", Usage: "confirmed or tentative"},
				},
				Action: e.objectBook,
			},
			{
				Name:      "unbook",
				Usage:     "Remove one booking",
				ArgsUsage: "<object> <booking-id>",
				Action: e.withObject(func(c *cli.Context, s *rental.Store, obj model.RentalObject) error {
					id := c.Args().Get(1)
					if id == "" {
						return cli.Exit("booking id is required", 2)
					}
					if err := s.RemoveBooking(obj.ID, id); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "removed booking %s\n", id)
					return nil
				}),
			},
			{
				Name:      "clear",
				Usage:     "Remove every booking of an object",
				ArgsUsage: "<object>",
				Action: e.withObject(func(c *cli.Context, s *rental.Store, obj model.RentalObject) error {
					if err := s.RemoveAllBookings(obj.ID); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "cleared %d bookings\n", len(obj.BookingRanges))
					return nil
				}),
			},
			{
				Name:  "photo",
				Usage: "Attach or detach photos",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						ArgsUsage: "<object> <file>",
						Action: e.withObject(func(c *cli.Context, s *rental.Store, obj model.RentalObject) error {
							path, err := s.AddPhoto(obj.ID, c.Args().Get(1))
							if err != nil {
								return err
							}
							fmt.Fprintln(c.App.Writer, path)
							return nil
						}),
					},
					{
						Name:      "remove",
						ArgsUsage: "<object> <stored-path>",
						Action: e.withObject(func(c *cli.Context, s *rental.Store, obj model.RentalObject) error {
							return s.RemovePhoto(obj.ID, c.Args().Get(1))
						}),
					},
				},
			},
			{
				Name:  "stats",
				Usage: "Count objects and bookings",
				Action: func(c *cli.Context) error {
					s, err := e.rentals()
					if err != nil {
						return err
					}
					st := s.Stats()
					fmt.Fprintf(c.App.Writer, "objects %d (rented %d), bookings %d (confirmed %d, tentative %d)\n",
						st.Objects, st.Rented, st.Total, st.Confirmed, st.Tentative)
					return nil
				},
			},
			{
				Name:  "reset",
				Usage: "Delete every saved object",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "yes", Usage: "Confirm"}},
				Action: func(c *cli.Context) error {
					if !c.Bool("yes") {
						return cli.Exit("refusing to reset without --yes", 2)
					}
					s, err := e.rentals()
					if err != nil {
						return err
					}
					return s.Reset()
				},
			},
		},
	}
}

// withObject resolves the first argument to an object before calling fn.
func (e *env) withObject(fn func(*cli.Context, *rental.Store, model.RentalObject) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := e.rentals()
		if err != nil {
			return err
		}
		obj, err := resolveObject(s, c.Args().First())
		if err != nil {
			return err
		}
		return fn(c, s, obj)
	}
}

// resolveObject accepts a full ID or an unambiguous ID prefix.
func resolveObject(s *rental.Store, ref string) (model.RentalObject, error) {
	if ref == "" {
		return model.RentalObject{}, cli.Exit("object id is required", 2)
	}
	if obj, err := s.Get(ref); err == nil {
		return obj, nil
	}
	var match []model.RentalObject
	for _, o := range s.List() {
		if strings.HasPrefix(o.ID, ref) {
			match = append(match, o)
		}
	}
	switch len(match) {
	case 0:
		return model.RentalObject{}, fmt.Errorf("%w: %s", rental.ErrNotFound, ref)
	case 1:
		return match[0], nil
	default:
		return model.RentalObject{}, fmt.Errorf("object prefix %q is ambiguous (%d matches)", ref, len(match))
	}
}

func (e *env) objectList(c *cli.Context) error {
	s, err := e.rentals()
	if err != nil {
		return err
	}
	f := rental.Filter{OnlyAvailable: c.Bool("available")}
	if c.IsSet("min-area") {
		v := c.Int("min-area")
		f.MinArea = &v
	}
	if c.IsSet("max-floor") {
		v := c.Int("max-floor")
		f.MaxFloor = &v
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tAREA\tFLOOR\tBOOKINGS\tTITLE")
	for _, o := range s.Filter(f) {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", o.ID, o.Status, o.Area, o.Floor, len(o.BookingRanges), o.Title)
	}
	return tw.Flush()
}

func (e *env) objectAdd(c *cli.Context) error {
	s, err := e.rentals()
	if err != nil {
		return err
	}
	obj := s.Create(c.String("title"), c.String("description"), model.Coordinate{
		Latitude:  c.Float64("lat"),
		Longitude: c.Float64("lon"),
	})
	if c.IsSet("area") || c.IsSet("floor") {
		if err := s.UpdateDetails(obj.ID, c.Int("area"), c.Int("floor")); err != nil {
			return err
		}
	}
	fmt.Fprintf(c.App.Writer, "created %s\n", obj.ID)
	return nil
}

func (e *env) objectUpdate(c *cli.Context) error {
	s, err := e.rentals()
	if err != nil {
		return err
	}
	obj, err := resolveObject(s, c.Args().First())
	if err != nil {
		return err
	}
	if c.IsSet("title") {
		if err := s.UpdateTitle(obj.ID, c.String("title")); err != nil {
			return err
		}
	}
	if c.IsSet("description") {
		if err := s.UpdateDescription(obj.ID, c.String("description")); err != nil {
			return err
		}
	}
	if c.IsSet("area") || c.IsSet("floor") {
		area, floor := obj.Area, obj.Floor
		if c.IsSet("area") {
			area = c.Int("area")
		}
		if c.IsSet("floor") {
			floor = c.Int("floor")
		}
		if err := s.UpdateDetails(obj.ID, area, floor); err != nil {
			return err
		}
	}
	return nil
}

func (e *env) objectShow(c *cli.Context) error {
	s, err := e.rentals()
	if err != nil {
		return err
	}
	obj, err := resolveObject(s, c.Args().First())
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "%s  %s\n", obj.ID, obj.Title)
	fmt.Fprintf(w, "status: %s  area: %d m²  floor: %d  at %.5f,%.5f\n",
		obj.Status, obj.Area, obj.Floor, obj.Coordinate.Latitude, obj.Coordinate.Longitude)
	if obj.Description != "" {
		fmt.Fprintln(w, obj.Description)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BOOKING\tFROM\tTO\tTYPE\tSOURCE")
	for _, r := range obj.BookingRanges {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.StartDate.Format(time.DateOnly), r.EndDate.Format(time.DateOnly), r.Type, r.Source)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, p := range obj.PhotoPaths {
		fmt.Fprintf(w, "photo: %s\n", p)
	}
	return nil
}

// objectBook replays the two-tap date picker: the second tap reports a
// conflict before anything is stored.
func (e *env) objectBook(c *cli.Context) error {
	s, err := e.rentals()
	if err != nil {
		return err
	}
	obj, err := resolveObject(s, c.Args().First())
	if err != nil {
		return err
	}
	typ, err := model.ParseBookingType(c.String("type"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	loc := s.Location()
	start, err := booking.ParseDay(c.Args().Get(1), loc)
	if err != nil {
		return cli.Exit("start date must be YYYY-MM-DD", 2)
	}
	end, err := booking.ParseDay(c.Args().Get(2), loc)
	if err != nil {
		return cli.Exit("end date must be YYYY-MM-DD", 2)
	}

	var r model.BookingRange
	switch {
	case end.Before(start):
		return booking.ErrInvalidRange
	case end.Equal(start):
		// A single day never completes a two-tap selection.
		if r, err = s.AddBooking(obj.ID, start, end, typ); err != nil {
			return err
		}
	default:
		picker := booking.NewPicker(obj.BookingRanges, loc)
		if _, err := picker.Tap(start); err != nil {
			return err
		}
		if _, err := picker.Tap(end); err != nil {
			if errors.Is(err, booking.ErrConflict) {
				return fmt.Errorf("%s..%s: %w", start.Format(time.DateOnly), end.Format(time.DateOnly), err)
			}
			return err
		}
		if r, err = picker.Confirm(typ); err != nil {
			return err
		}
		if err := s.AddRange(obj.ID, r); err != nil {
			return err
		}
	}
	fmt.Fprintf(c.App.Writer, "booked %s %s..%s (%s)\n", r.ID, r.StartDate.Format(time.DateOnly), r.EndDate.Format(time.DateOnly), r.Type)
	return nil
}

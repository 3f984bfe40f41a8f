package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"rentdesk/internal/model"
	"rentdesk/internal/snippet"
)

func (e *env) snippetCommand() *cli.Command {
	contentFlags := []cli.Flag{
		&cli.StringFlag{Name: "title"},
		&cli.StringFlag{Name: "content", Usage: `Snippet text ("-" reads stdin)`},
		&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
	}
	return &cli.Command{
		Name:    "snippet",
		Aliases: []string{"sn"},
		Usage:   "Manage reusable reply snippets.",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List snippets in display order",
				Action: func(c *cli.Context) error { return printSnippets(c.App.Writer, e.snippetStore().List()) },
			},
			{
				Name:      "search",
				Usage:     "Find snippets by title or tag",
				ArgsUsage: "<query>",
				Action: func(c *cli.Context) error {
					return printSnippets(c.App.Writer, e.snippetStore().Search(strings.Join(c.Args().Slice(), " ")))
				},
			},
			{
				Name:   "add",
				Usage:  "Add a snippet",
				Flags:  contentFlags,
				Action: e.snippetAdd,
			},
			{
				Name:      "update",
				Usage:     "Change a snippet",
				ArgsUsage: "<id>",
				Flags:     contentFlags,
				Action:    e.snippetUpdate,
			},
			{
				Name:      "delete",
				Usage:     "Delete one or more snippets",
				ArgsUsage: "<id>...",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.Exit("at least one id is required", 2)
					}
					n := e.snippetStore().DeleteMany(c.Args().Slice())
					fmt.Fprintf(c.App.Writer, "deleted %d\n", n)
					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "Print a snippet's content",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					sn, ok := e.snippetStore().Get(c.Args().First())
					if !ok {
						return snippet.ErrNotFound
					}
					fmt.Fprintln(c.App.Writer, sn.Content)
					return nil
				},
			},
		},
	}
}

func readContent(c *cli.Context) (string, error) {
	v := c.String("content")
	if v != "-" {
		return v, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func (e *env) snippetAdd(c *cli.Context) error {
	if strings.TrimSpace(c.String("title")) == "" {
		return cli.Exit("--title is required", 2)
	}
	content, err := readContent(c)
	if err != nil {
		return err
	}
	sn, err := e.snippetStore().Add(snippet.New(c.String("title"), content, snippet.ParseTags(c.String("tags"))))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "created %s\n", sn.ID)
	return nil
}

func (e *env) snippetUpdate(c *cli.Context) error {
	store := e.snippetStore()
	sn, ok := store.Get(c.Args().First())
	if !ok {
		return snippet.ErrNotFound
	}
	if c.IsSet("title") {
		sn.Title = c.String("title")
	}
	if c.IsSet("content") {
		content, err := readContent(c)
		if err != nil {
			return err
		}
		sn.Content = content
	}
	if c.IsSet("tags") {
		sn.Tags = snippet.ParseTags(c.String("tags"))
	}
	return store.Update(sn)
}

func printSnippets(w io.Writer, list []model.Snippet) error {
	for _, sn := range list {
		line := sn.Title
		if len(sn.Tags) > 0 {
			line += "  [" + snippet.FormatTags(sn.Tags) + "]"
		}
		if _, err := fmt.Fprintf(w, "%s  %s\n", sn.ID, line); err != nil {
			return err
		}
	}
	return nil
}

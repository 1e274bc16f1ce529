package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/urfave/cli/v3"

	"github.com/starford/webnote/internal"
	"github.com/starford/webnote/internal/extract"
	"github.com/starford/webnote/internal/format"
	"github.com/starford/webnote/internal/mcpserver"
	"github.com/starford/webnote/internal/models"
	"github.com/starford/webnote/internal/notestore"
	"github.com/starford/webnote/internal/page"
)

// withStore opens the configured note store for one command. Logs go to
// stderr so stdout stays clean for output and for the MCP transport.
func withStore(ctx context.Context, cmd *cli.Command, fn func(*internal.Config, *notestore.Store) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(cfg, os.Stderr)
	notes, kv, err := internal.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer kv.Close()
	return fn(cfg, notes)
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the note store as MCP tools over stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withStore(ctx, cmd, func(cfg *internal.Config, notes *notestore.Store) error {
				logger := internal.NewLogger(cfg, os.Stderr)
				srv := mcpserver.New(notes, page.NewLoader(cfg.Page.Loader(), nil, logger))
				return srv.ServeStdio()
			})
		},
	}
}

func notesCommand() *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "Inspect and edit stored notes",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List notes, most recent first",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withStore(ctx, cmd, func(_ *internal.Config, notes *notestore.Store) error {
						all, err := notes.ListAll(ctx)
						if err != nil {
							return err
						}
						notestore.SortByRecency(all)
						return printNotes(os.Stdout, all)
					})
				},
			},
			{
				Name:      "search",
				Usage:     "Search note URLs, titles and content",
				ArgsUsage: "<query>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					query := cmd.Args().First()
					if query == "" {
						return errors.New("query is required")
					}
					return withStore(ctx, cmd, func(_ *internal.Config, notes *notestore.Store) error {
						found, err := notes.Search(ctx, query)
						if err != nil {
							return err
						}
						return printNotes(os.Stdout, found)
					})
				},
			},
			{
				Name:      "get",
				Usage:     "Print the note for a URL",
				ArgsUsage: "<url>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					url := cmd.Args().First()
					if url == "" {
						return errors.New("url is required")
					}
					return withStore(ctx, cmd, func(_ *internal.Config, notes *notestore.Store) error {
						rec, ok, err := notes.Get(ctx, url)
						if err != nil {
							return err
						}
						if !ok {
							return fmt.Errorf("no note for %s", url)
						}
						_, err = fmt.Fprintln(os.Stdout, rec.Content)
						return err
					})
				},
			},
			{
				Name:      "set",
				Usage:     "Replace the note for a URL (blank content deletes it)",
				ArgsUsage: "<url> <content>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Page title stored with the note"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() < 2 {
						return errors.New("url and content are required")
					}
					url, content := cmd.Args().Get(0), cmd.Args().Get(1)
					return withStore(ctx, cmd, func(_ *internal.Config, notes *notestore.Store) error {
						rec, err := notes.Set(ctx, url, content, cmd.String("title"))
						if err != nil {
							return err
						}
						if rec == nil {
							fmt.Fprintf(os.Stderr, "deleted %s\n", url)
						}
						return nil
					})
				},
			},
			{
				Name:      "rm",
				Usage:     "Delete the note for a URL",
				ArgsUsage: "<url>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					url := cmd.Args().First()
					if url == "" {
						return errors.New("url is required")
					}
					return withStore(ctx, cmd, func(_ *internal.Config, notes *notestore.Store) error {
						return notes.Delete(ctx, url)
					})
				},
			},
		},
	}
}

func printNotes(w io.Writer, notes []models.NoteRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, n := range notes {
		updated := "-"
		if n.HasTimestamp() {
			updated = n.UpdatedAt().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", updated, format.DisplayTitle(n), format.DisplayURL(n.URL), format.NotePreview(n.Content))
	}
	return tw.Flush()
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Print the primary text of a saved HTML page",
		ArgsUsage: "<file.html|->",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "markdown", Usage: "Print the clip-to-note Markdown instead of plain text"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			src := cmd.Args().First()
			if src == "" {
				return errors.New("input file is required (use - for stdin)")
			}
			var r io.Reader = os.Stdin
			if src != "-" {
				f, err := os.Open(src)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			out, err := extractFrom(r, cmd.Bool("markdown"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(os.Stdout, out)
			return err
		},
	}
}

func extractFrom(r io.Reader, markdown bool) (string, error) {
	if !markdown {
		return extract.FromReader(r)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}
	return extract.Markdown(doc)
}

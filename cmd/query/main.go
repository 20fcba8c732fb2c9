package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/letmevibethatforyou/wikisearch"
	"github.com/letmevibethatforyou/wikisearch/client"
	"github.com/letmevibethatforyou/wikisearch/session"
	"github.com/letmevibethatforyou/wikisearch/view"
)

const (
	defaultAPI     = "http://localhost:8000"
	defaultTimeout = 10 * time.Second
)

func main() {
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}

	app := &cli.App{
		Name:      "query",
		Usage:     "Search articles through the search API and render the results",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "Base URL of the search API",
				EnvVars: []string{"WIKISEARCH_API"},
				Value:   defaultAPI,
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Query string to search for; positional arg is a fallback",
			},
			&cli.IntFlag{
				Name:    "page",
				Aliases: []string{"p"},
				Usage:   "Result page, starting at 1",
				Value:   1,
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "Results per page",
				Value: wikisearch.DefaultPageSize,
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "Deep link query string, e.g. \"query=cat&page=2&pageSize=10\"; overrides the other search flags",
			},
			&cli.BoolFlag{
				Name:  "suggest",
				Usage: "Print suggestions for the query instead of searching",
			},
			&cli.StringFlag{
				Name:  "theme",
				Usage: "Colour theme: dark or light",
				Value: string(session.ThemeDark),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the session state as JSON",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout for the whole command",
				Value: defaultTimeout,
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func runAction(c *cli.Context) error {
	ctx := c.Context

	query := strings.TrimSpace(c.String("query"))
	if query == "" && c.NArg() > 0 {
		query = strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	}

	page := c.Int("page")
	if page < 1 {
		slog.WarnContext(ctx, "page must be positive; using 1", "page", page)
		page = 1
	}
	pageSize := c.Int("page-size")
	if pageSize < 1 || pageSize > wikisearch.MaxPageSize {
		slog.WarnContext(ctx, "page size out of range; using default", "page_size", pageSize, "default", wikisearch.DefaultPageSize)
		pageSize = wikisearch.DefaultPageSize
	}

	theme, err := parseTheme(c.String("theme"))
	if err != nil {
		return err
	}

	timeout := c.Duration("timeout")
	if timeout <= 0 {
		slog.WarnContext(ctx, "timeout must be positive; using default", "timeout", timeout, "default", defaultTimeout)
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	api, err := client.New(c.String("api"))
	if err != nil {
		return err
	}

	var link string
	coord := session.New(api,
		session.WithTheme(theme),
		session.WithNavigator(session.NavigatorFunc(func(raw string) { link = raw })),
	)
	defer coord.Close()

	coord.CheckAPIHealth(ctx)

	switch {
	case c.Bool("suggest"):
		coord.FetchSuggestions(ctx, query)
		return printSuggestions(os.Stdout, coord.State().Suggestions, c.Bool("json"))

	case c.String("url") != "":
		raw := c.String("url")
		if !coord.InitFromURL(ctx, raw) {
			return errors.Newf("deep link %q has no query", raw)
		}
		link = strings.TrimPrefix(raw, "?")

	case query == "":
		return errors.New("a query is required: pass --query, a positional argument or --url")

	default:
		coord.Submit(ctx, query, page, pageSize)
	}

	state := coord.State()
	if c.Bool("json") {
		return printJSON(os.Stdout, state, link)
	}

	fmt.Print(view.NewRenderer(os.Stdout).Render(view.BuildPage(state, view.Options{})))
	if link != "" && state.Outcome == session.OutcomeSuccess {
		fmt.Printf("\nLink: ?%s\n", link)
	}
	if state.Outcome == session.OutcomeFailed {
		return errors.New("search failed")
	}
	return nil
}

func parseTheme(raw string) (session.Theme, error) {
	switch t := session.Theme(strings.ToLower(strings.TrimSpace(raw))); t {
	case session.ThemeDark, session.ThemeLight:
		return t, nil
	default:
		return "", errors.Newf("unknown theme %q: expected dark or light", raw)
	}
}

func printSuggestions(w io.Writer, suggestions []string, asJSON bool) error {
	if asJSON {
		return writeJSON(w, struct {
			Suggestions []string `json:"suggestions"`
		}{Suggestions: suggestions})
	}
	for _, s := range suggestions {
		fmt.Fprintln(w, s)
	}
	return nil
}

func printJSON(w io.Writer, s session.State, link string) error {
	return writeJSON(w, struct {
		Query       string                    `json:"query"`
		Page        int                       `json:"page"`
		PageSize    int                       `json:"page_size"`
		Total       int64                     `json:"total"`
		TotalPages  int                       `json:"total_pages"`
		Outcome     string                    `json:"outcome"`
		APIHealthy  bool                      `json:"api_healthy"`
		Link        string                    `json:"link,omitempty"`
		Results     []wikisearch.SearchResult `json:"results"`
		Suggestions []string                  `json:"suggestions,omitempty"`
	}{
		Query:       s.Query,
		Page:        s.Page,
		PageSize:    s.PageSize,
		Total:       s.Total,
		TotalPages:  s.TotalPages(),
		Outcome:     s.Outcome.String(),
		APIHealthy:  s.APIHealthy,
		Link:        link,
		Results:     s.Results,
		Suggestions: s.Suggestions,
	})
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal output")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/letmevibethatforyou/wikisearch"
	"github.com/letmevibethatforyou/wikisearch/algolia"
	"github.com/letmevibethatforyou/wikisearch/ingest"
	"github.com/letmevibethatforyou/wikisearch/inmemory"
	"github.com/letmevibethatforyou/wikisearch/internal/api"
	"github.com/letmevibethatforyou/wikisearch/suggest"
)

const (
	backendMemory  = "memory"
	backendAlgolia = "algolia"
)

func main() {
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	app := &cli.App{
		Name:  "server",
		Usage: "Serve the article search API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Address to listen on",
				EnvVars: []string{"ADDR"},
				Value:   ":8000",
			},
			&cli.StringFlag{
				Name:    "backend",
				Aliases: []string{"b"},
				Usage:   "Search backend: memory or algolia",
				EnvVars: []string{"BACKEND"},
				Value:   backendMemory,
			},
			&cli.StringFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "Search index name",
				EnvVars: []string{"ALGOLIA_INDEX", "ES_INDEX"},
				Value:   "wiki_articles",
			},
			&cli.StringFlag{
				Name:    "cors-origins",
				Usage:   "Comma separated origins allowed to call the API, optionally in brackets",
				EnvVars: []string{"CORS_ORIGINS"},
			},
			&cli.StringFlag{
				Name:    "dump-path",
				Usage:   "MediaWiki XML export loaded into the memory backend at startup",
				EnvVars: []string{"DUMP_PATH", "XML_FILE_PATH"},
			},
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Environment name for AWS Secrets Manager",
				EnvVars: []string{"ENVIRONMENT"},
			},
			&cli.StringFlag{
				Name:    "algolia-secret-arn",
				Usage:   "ARN of AWS Secrets Manager secret containing Algolia credentials",
				EnvVars: []string{"ALGOLIA_SECRET_ARN"},
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
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	searcher, err := buildSearcher(ctx, c)
	if err != nil {
		return err
	}

	logger := slog.Default()
	srv := api.New(searcher,
		api.WithLogger(logger),
		api.WithCORSOrigins(api.ParseOrigins(c.String("cors-origins"))...),
		api.WithSuggester(suggest.New(searcher, suggest.WithLogger(logger))),
	)

	addr := c.String("addr")
	slog.InfoContext(ctx, "starting search API", "addr", addr, "backend", c.String("backend"), "index", c.String("index"))
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return errors.Wrap(err, "search API stopped")
	}
	slog.InfoContext(ctx, "search API stopped")
	return nil
}

func buildSearcher(ctx context.Context, c *cli.Context) (wikisearch.Searcher, error) {
	backend := strings.ToLower(strings.TrimSpace(c.String("backend")))
	index := strings.TrimSpace(c.String("index"))

	switch backend {
	case backendMemory:
		searcher := inmemory.New()
		if path := c.String("dump-path"); path != "" {
			if err := loadDump(ctx, searcher, path); err != nil {
				return nil, err
			}
		}
		return searcher, nil

	case backendAlgolia:
		secrets, err := algolia.ResolveSecrets(ctx, c.String("algolia-secret-arn"), c.String("env"), "", "")
		if err != nil {
			return nil, err
		}
		return algolia.NewSearcher(algolia.NewClient(secrets), index), nil

	default:
		return nil, errors.Newf("unknown backend %q: expected %s or %s", backend, backendMemory, backendAlgolia)
	}
}

func loadDump(ctx context.Context, searcher *inmemory.Searcher, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open dump %s", path)
	}
	defer f.Close()

	reader := ingest.NewDumpReader(f)
	stats, err := ingest.NewUploader(searcher).Upload(ctx, ingest.Articles(reader, time.Now, slog.Default()))
	if err != nil {
		return errors.Wrapf(err, "failed to load dump %s", path)
	}
	slog.InfoContext(ctx, "loaded dump into memory backend", "path", path, "articles", stats.Uploaded, "documents", searcher.Size())
	return nil
}

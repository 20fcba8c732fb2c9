package main

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/letmevibethatforyou/wikisearch/algolia"
	"github.com/letmevibethatforyou/wikisearch/ingest"
	"github.com/letmevibethatforyou/wikisearch/internal/ddb"
)

const (
	targetAlgolia  = "algolia"
	targetDynamoDB = "dynamodb"
)

func main() {
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	app := &cli.App{
		Name:  "ingest",
		Usage: "Parse a MediaWiki XML export and upload its articles",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "xml-file",
				Aliases: []string{"f"},
				Usage:   "Path of the MediaWiki XML export",
				EnvVars: []string{"XML_FILE_PATH"},
				Value:   "first_10KB.xml",
			},
			&cli.StringFlag{
				Name:    "target",
				Aliases: []string{"t"},
				Usage:   "Upload target: algolia, or dynamodb to stage for the sync function",
				EnvVars: []string{"TARGET"},
				Value:   targetAlgolia,
			},
			&cli.StringFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "Search index name",
				EnvVars: []string{"ALGOLIA_INDEX", "ES_INDEX"},
				Value:   "wiki_articles",
			},
			&cli.StringFlag{
				Name:    "table-name",
				Usage:   "DynamoDB staging table name (dynamodb target)",
				EnvVars: []string{"TABLE_NAME"},
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Articles per upload batch",
				Value: ingest.DefaultBatchSize,
			},
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
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
	ctx := c.Context
	path := c.String("xml-file")
	target := strings.ToLower(strings.TrimSpace(c.String("target")))
	index := c.String("index")

	slog.InfoContext(ctx, "Starting article ingestion",
		"file", path,
		"target", target,
		"index", index,
		"batch_size", c.Int("batch-size"),
	)

	var sink ingest.Sink
	switch target {
	case targetAlgolia:
		secrets, err := algolia.ResolveSecrets(ctx, c.String("algolia-secret-arn"), c.String("env"), "", "")
		if err != nil {
			return err
		}
		sink = algolia.NewIndexer(algolia.NewClient(secrets), index)

	case targetDynamoDB:
		table := c.String("table-name")
		if table == "" {
			return errors.New("table-name is required for the dynamodb target")
		}
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to load AWS config")
		}
		sink = ddb.NewTableSink(dynamodb.NewFromConfig(cfg), table, index, slog.Default())

	default:
		return errors.Newf("unknown target %q: expected %s or %s", target, targetAlgolia, targetDynamoDB)
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	reader := ingest.NewDumpReader(f)
	uploader := ingest.NewUploader(sink, ingest.WithBatchSize(c.Int("batch-size")))
	stats, err := uploader.Upload(ctx, ingest.Articles(reader, time.Now, slog.Default()))
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Ingestion complete",
		"processed", stats.Processed,
		"uploaded", stats.Uploaded,
		"failed", stats.Failed,
		"truncated", reader.Err() != nil,
	)
	return nil
}

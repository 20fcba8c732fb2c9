package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/urfave/cli/v2"

	"github.com/letmevibethatforyou/wikisearch"
	"github.com/letmevibethatforyou/wikisearch/algolia"
	"github.com/letmevibethatforyou/wikisearch/ingest"
	"github.com/letmevibethatforyou/wikisearch/internal/ddb"
)

// ArticleIndex is the search index a staged article is synced into.
type ArticleIndex interface {
	SaveArticles(ctx context.Context, articles []wikisearch.Article) error
	DeleteArticle(ctx context.Context, id string) error
}

type Handler struct {
	tableName string
	indexFor  func(name string) ArticleIndex
	now       func() time.Time
}

func NewHandler(tableName string, indexFor func(name string) ArticleIndex) *Handler {
	return &Handler{
		tableName: tableName,
		indexFor:  indexFor,
		now:       time.Now,
	}
}

func (h *Handler) HandleDynamoDBEvent(ctx context.Context, e ddb.DynamoDBEvent) error {
	slog.InfoContext(ctx, "Processing DynamoDB stream records", "record_count", len(e.Records), "table", h.tableName)

	for _, record := range e.Records {
		if err := h.processRecord(ctx, record); err != nil {
			slog.ErrorContext(ctx, "Error processing record", "event_id", record.EventID, "error", err)
			return err
		}
	}

	return nil
}

func (h *Handler) processRecord(ctx context.Context, record ddb.DynamoDBEventRecord) error {
	switch ddb.DynamoDBOperationType(record.EventName) {
	case ddb.DynamoDBOperationTypeInsert, ddb.DynamoDBOperationTypeModify:
		if record.Change.NewImage == nil {
			slog.WarnContext(ctx, "No new image for insert/modify operation, skipping record")
			return nil
		}

		staged, err := ddb.UnmarshalRecord(record.Change.NewImage)
		if err != nil {
			slog.WarnContext(ctx, "Failed to unmarshal record, skipping", "error", err)
			return nil
		}
		if staged.ID == "" || staged.IndexName == "" {
			slog.WarnContext(ctx, "Missing pk or sk in record, skipping record", "id", staged.ID, "index", staged.IndexName)
			return nil
		}
		if staged.Object == nil {
			slog.WarnContext(ctx, "Missing object in record, skipping record", "id", staged.ID, "index", staged.IndexName)
			return nil
		}

		article, err := staged.Article()
		if err != nil {
			slog.WarnContext(ctx, "Malformed article in record, skipping", "id", staged.ID, "error", err)
			return nil
		}
		return h.handleUpsert(ctx, staged.IndexName, ingest.Refresh(article, h.now()))

	case ddb.DynamoDBOperationTypeRemove:
		staged, err := ddb.UnmarshalRecord(record.Change.Keys)
		if err != nil {
			slog.WarnContext(ctx, "Failed to unmarshal keys for delete operation, skipping", "error", err)
			return nil
		}
		if staged.ID == "" || staged.IndexName == "" {
			slog.WarnContext(ctx, "Missing pk or sk in delete record, skipping record")
			return nil
		}
		return h.handleDelete(ctx, staged.IndexName, staged.ID)

	default:
		slog.InfoContext(ctx, "Ignoring event type", "event_type", record.EventName)
		return nil
	}
}

func (h *Handler) handleUpsert(ctx context.Context, indexName string, article wikisearch.Article) error {
	slog.InfoContext(ctx, "Saving article to Algolia", "object_id", article.ID, "title", article.Title, "index", indexName)
	return h.indexFor(indexName).SaveArticles(ctx, []wikisearch.Article{article})
}

func (h *Handler) handleDelete(ctx context.Context, indexName, id string) error {
	slog.InfoContext(ctx, "Deleting article from Algolia", "object_id", id, "index", indexName)
	return h.indexFor(indexName).DeleteArticle(ctx, id)
}

func main() {
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	app := &cli.App{
		Name:  "sync-articles",
		Usage: "Sync staged articles from a DynamoDB stream to Algolia",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "table-name",
				Usage:    "DynamoDB staging table name",
				EnvVars:  []string{"TABLE_NAME"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Environment name for AWS Secrets Manager (takes precedence over API key/ID flags)",
				EnvVars: []string{"ENV", "ENVIRONMENT"},
			},
			&cli.StringFlag{
				Name:    "algolia-secret-arn",
				Usage:   "ARN of the Algolia secret in AWS Secrets Manager",
				EnvVars: []string{"ALGOLIA_SECRET_ARN"},
			},
			&cli.StringFlag{
				Name:    "algolia-app-id",
				Usage:   "Algolia application ID",
				EnvVars: []string{"ALGOLIA_APP_ID"},
			},
			&cli.StringFlag{
				Name:    "algolia-api-key",
				Usage:   "Algolia API key",
				EnvVars: []string{"ALGOLIA_API_KEY"},
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
	tableName := c.String("table-name")

	slog.InfoContext(ctx, "Starting DynamoDB to Algolia article sync", "table", tableName)

	secrets, err := algolia.ResolveSecrets(ctx,
		c.String("algolia-secret-arn"),
		c.String("env"),
		c.String("algolia-app-id"),
		c.String("algolia-api-key"),
	)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to resolve Algolia credentials", "error", err)
		return err
	}

	client := algolia.NewClient(secrets)
	handler := NewHandler(tableName, func(name string) ArticleIndex {
		return algolia.NewIndexer(client, name)
	})

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		slog.InfoContext(ctx, "Running in Lambda environment")
		lambda.Start(handler.HandleDynamoDBEvent)
	} else {
		slog.InfoContext(ctx, "Function cannot run outside of AWS Lambda environment")
	}

	return nil
}

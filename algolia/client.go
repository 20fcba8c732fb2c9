// Package algolia stores and searches wiki articles in an Algolia index. The
// underlying client is created lazily on first use from a pluggable secrets
// source.
package algolia

import (
	"context"
	"os"
	"sync"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Secrets holds the Algolia application credentials.
type Secrets struct {
	// AppID is the Algolia application ID.
	AppID string `json:"app_id"`
	// APIKey is an Algolia key allowed to search and, for indexing, to write.
	APIKey string `json:"write_api_key"`
}

// FetchSecrets retrieves Algolia credentials.
type FetchSecrets func() (Secrets, error)

// StaticSecrets returns a FetchSecrets that always yields the given credentials.
func StaticSecrets(appID, apiKey string) FetchSecrets {
	return func() (Secrets, error) {
		return Secrets{
			AppID:  appID,
			APIKey: apiKey,
		}, nil
	}
}

// EnvSecrets reads ALGOLIA_APP_ID and ALGOLIA_API_KEY.
func EnvSecrets() FetchSecrets {
	return func() (Secrets, error) {
		appID := os.Getenv("ALGOLIA_APP_ID")
		if appID == "" {
			return Secrets{}, errors.New("ALGOLIA_APP_ID environment variable is not set")
		}

		apiKey := os.Getenv("ALGOLIA_API_KEY")
		if apiKey == "" {
			return Secrets{}, errors.New("ALGOLIA_API_KEY environment variable is not set")
		}

		return Secrets{
			AppID:  appID,
			APIKey: apiKey,
		}, nil
	}
}

// Client is a lazily initialised, traced Algolia client.
type Client struct {
	getClient func() (*search.Client, error)
	tracer    trace.Tracer
}

// NewClient creates a client that fetches its secrets on first use.
func NewClient(fetchSecrets FetchSecrets) *Client {
	getClient := sync.OnceValues(func() (*search.Client, error) {
		secrets, err := fetchSecrets()
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch secrets")
		}

		if secrets.AppID == "" {
			return nil, errors.New("AppID is empty")
		}

		if secrets.APIKey == "" {
			return nil, errors.New("APIKey is empty")
		}

		return search.NewClient(secrets.AppID, secrets.APIKey), nil
	})

	return &Client{
		getClient: getClient,
		tracer:    otel.Tracer("wikisearch-algolia"),
	}
}

func (c *Client) index(span trace.Span, indexName string) (*search.Index, error) {
	client, err := c.getClient()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get Algolia client")
		return nil, err
	}
	return client.InitIndex(indexName), nil
}

// Exists reports whether indexName exists.
func (c *Client) Exists(ctx context.Context, indexName string) (bool, error) {
	_, span := c.tracer.Start(ctx, "algolia.index_exists",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
		),
	)
	defer span.End()

	index, err := c.index(span, indexName)
	if err != nil {
		return false, err
	}

	exists, err := index.Exists()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check index")
		return false, errors.Wrapf(err, "failed to check Algolia index %s", indexName)
	}

	span.SetAttributes(attribute.Bool("algolia.index_exists", exists))
	span.SetStatus(codes.Ok, "index checked")
	return exists, nil
}

// DeleteObject removes objectID from indexName.
func (c *Client) DeleteObject(ctx context.Context, indexName string, objectID string) error {
	_, span := c.tracer.Start(ctx, "algolia.delete_object",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.String("algolia.object_id", objectID),
		),
	)
	defer span.End()

	index, err := c.index(span, indexName)
	if err != nil {
		return err
	}

	if _, err := index.DeleteObject(objectID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete object from index "+indexName)
		return errors.Wrapf(err, "failed to delete object from Algolia index %s", indexName)
	}

	span.SetStatus(codes.Ok, "object deleted successfully")
	return nil
}

// BatchSaveObjects saves objects, each carrying an objectID, in one batch.
func (c *Client) BatchSaveObjects(ctx context.Context, indexName string, objects []map[string]interface{}) error {
	if len(objects) == 0 {
		return nil
	}

	_, span := c.tracer.Start(ctx, "algolia.batch_save_objects",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.Int("algolia.object_count", len(objects)),
		),
	)
	defer span.End()

	index, err := c.index(span, indexName)
	if err != nil {
		return err
	}

	if _, err := index.SaveObjects(objects); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to batch save objects to index "+indexName)
		return errors.Wrapf(err, "failed to batch save %d objects to Algolia index %s", len(objects), indexName)
	}

	span.SetStatus(codes.Ok, "batch saved")
	return nil
}

package algolia

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/wikisearch"
)

// Indexer writes articles to one Algolia index. It satisfies ingest.Sink.
type Indexer struct {
	client    *Client
	indexName string
}

// NewIndexer creates an indexer for indexName.
func NewIndexer(client *Client, indexName string) *Indexer {
	return &Indexer{client: client, indexName: indexName}
}

// IndexName returns the index the indexer writes to.
func (i *Indexer) IndexName() string { return i.indexName }

// SaveArticles saves articles in one batch, keyed by article ID.
func (i *Indexer) SaveArticles(ctx context.Context, articles []wikisearch.Article) error {
	objects, err := articleObjects(articles)
	if err != nil {
		return err
	}
	return i.client.BatchSaveObjects(ctx, i.indexName, objects)
}

// DeleteArticle removes the article with id.
func (i *Indexer) DeleteArticle(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("article id is empty")
	}
	return i.client.DeleteObject(ctx, i.indexName, id)
}

func articleObjects(articles []wikisearch.Article) ([]map[string]interface{}, error) {
	objects := make([]map[string]interface{}, 0, len(articles))
	for _, a := range articles {
		if a.ID == "" {
			return nil, errors.Newf("article %q has no id", a.Title)
		}
		fields, err := a.Fields()
		if err != nil {
			return nil, err
		}
		fields["objectID"] = a.ID
		objects = append(objects, fields)
	}
	return objects, nil
}

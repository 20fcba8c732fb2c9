package ddb

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/wikisearch"
)

// PutItemAPI is the part of the DynamoDB client TableSink uses.
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// TableSink stages articles in a DynamoDB table. The table's stream feeds
// the sync function that indexes them.
type TableSink struct {
	client    PutItemAPI
	table     string
	indexName string
	logger    *slog.Logger
}

// NewTableSink writes into table, tagging every record with indexName.
func NewTableSink(client PutItemAPI, table, indexName string, logger *slog.Logger) *TableSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableSink{client: client, table: table, indexName: indexName, logger: logger}
}

// SaveArticles puts one item per article. It stops at the first failure.
func (s *TableSink) SaveArticles(ctx context.Context, articles []wikisearch.Article) error {
	for _, a := range articles {
		if err := s.put(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *TableSink) put(ctx context.Context, a wikisearch.Article) error {
	if a.ID == "" {
		return errors.Newf("article %q has no id", a.Title)
	}
	fields, err := a.Fields()
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(Record{ID: a.ID, IndexName: s.indexName, Object: fields})
	if err != nil {
		return errors.Wrapf(err, "failed to marshal article record %s", a.ID)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to put article %s in DynamoDB table %s", a.ID, s.table)
	}

	s.logger.DebugContext(ctx, "staged article", "id", a.ID, "title", a.Title, "index", s.indexName)
	return nil
}

package ingest

import (
	"context"
	"iter"
	"log/slog"

	"github.com/letmevibethatforyou/wikisearch"
)

// DefaultBatchSize is the number of articles sent to a Sink at once.
const DefaultBatchSize = 50

// Sink stores batches of articles.
type Sink interface {
	SaveArticles(ctx context.Context, articles []wikisearch.Article) error
}

// Stats summarises an upload.
type Stats struct {
	Processed int
	Uploaded  int
	Failed    int
}

// Uploader sends articles to a Sink in batches.
type Uploader struct {
	sink      Sink
	batchSize int
	logger    *slog.Logger
}

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader)

// WithBatchSize sets the batch size. Values below one are ignored.
func WithBatchSize(n int) UploaderOption {
	return func(u *Uploader) {
		if n > 0 {
			u.batchSize = n
		}
	}
}

// WithUploaderLogger sets the logger.
func WithUploaderLogger(l *slog.Logger) UploaderOption {
	return func(u *Uploader) { u.logger = l }
}

// NewUploader creates an Uploader writing to sink.
func NewUploader(sink Sink, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		sink:      sink,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload drains articles into the sink. A failed batch is logged and counted
// and the upload carries on. Only cancellation of ctx stops it early, in which
// case the stats so far are returned with the context error.
func (u *Uploader) Upload(ctx context.Context, articles iter.Seq[wikisearch.Article]) (Stats, error) {
	var stats Stats
	batch := make([]wikisearch.Article, 0, u.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := u.sink.SaveArticles(ctx, batch); err != nil {
			stats.Failed += len(batch)
			u.logger.ErrorContext(ctx, "batch upload failed",
				"size", len(batch),
				"first_title", batch[0].Title,
				"error", err,
			)
		} else {
			stats.Uploaded += len(batch)
			u.logger.InfoContext(ctx, "batch uploaded", "size", len(batch), "total", stats.Uploaded)
		}
		batch = batch[:0]
	}

	for a := range articles {
		if err := ctx.Err(); err != nil {
			return stats, wikisearch.ContextError(err)
		}
		batch = append(batch, a)
		stats.Processed++
		if len(batch) >= u.batchSize {
			flush()
		}
	}
	if err := ctx.Err(); err != nil {
		return stats, wikisearch.ContextError(err)
	}
	flush()

	u.logger.InfoContext(ctx, "upload complete",
		"processed", stats.Processed,
		"uploaded", stats.Uploaded,
		"failed", stats.Failed,
	)
	return stats, nil
}

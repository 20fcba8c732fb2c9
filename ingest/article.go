package ingest

import (
	"iter"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/segmentio/ksuid"

	"github.com/letmevibethatforyou/wikisearch"
	"github.com/letmevibethatforyou/wikisearch/wikitext"
)

const (
	// SummaryLength bounds the stored summary.
	SummaryLength = 500
	// MinContentLength is the cleaned text length above which a page has
	// content.
	MinContentLength = 100
	// SubstantialSentences is the sentence count of a substantial page.
	SubstantialSentences = 6
)

// BuildArticle derives the indexed document for p. now stamps indexed_at.
func BuildArticle(p Page, now time.Time) wikisearch.Article {
	text := wikitext.Clean(p.Revision.Text)
	sentences := wikitext.CountSentences(text)
	length := utf8.RuneCountInString(text)

	id := p.ID
	if id == "" {
		id = ksuid.New().String()
	}

	return wikisearch.Article{
		ID:          id,
		Title:       p.Title,
		NS:          p.NS,
		Redirect:    p.RedirectTitle(),
		ContentType: contentType(p),

		RevisionID:          p.Revision.ID,
		ParentID:            p.Revision.ParentID,
		Timestamp:           p.Revision.Timestamp,
		ContributorUsername: p.Revision.Contributor.Username,
		ContributorID:       p.Revision.Contributor.ID,
		Comment:             p.Revision.Comment,
		Origin:              p.Revision.Origin,
		Model:               p.Revision.Model,
		Format:              p.Revision.Format,

		Text:          text,
		RawText:       p.Revision.Text,
		Summary:       wikitext.Excerpt(text, SummaryLength),
		Keywords:      wikitext.Keywords(text, p.Title),
		SentenceCount: sentences,
		QualityScore:  QualityScore(sentences),
		TextLength:    length,

		TitleKeywords: strings.Fields(strings.ToLower(p.Title)),
		HasContent:    length > MinContentLength,
		IsSubstantial: sentences >= SubstantialSentences,

		IndexedAt: now.UTC(),
		URL:       wikisearch.ArticleURL(p.Title),
	}
}

// Refresh re-derives the text fields of a stored article from its raw
// markup. Articles without raw markup are returned unchanged.
func Refresh(a wikisearch.Article, now time.Time) wikisearch.Article {
	if a.RawText == "" {
		return a
	}
	p := Page{
		Title: a.Title,
		NS:    a.NS,
		ID:    a.ID,
		Revision: Revision{
			ID:          a.RevisionID,
			ParentID:    a.ParentID,
			Timestamp:   a.Timestamp,
			Contributor: Contributor{Username: a.ContributorUsername, ID: a.ContributorID},
			Comment:     a.Comment,
			Origin:      a.Origin,
			Model:       a.Model,
			Format:      a.Format,
			Text:        a.RawText,
		},
	}
	if a.Redirect != "" {
		p.Redirect = &Redirect{Title: a.Redirect}
	}
	return BuildArticle(p, now)
}

// QualityScore maps a sentence count onto a 1 to 10 scale.
func QualityScore(sentences int) float64 {
	return min(10, max(1, float64(sentences)/2))
}

func contentType(p Page) string {
	switch p.NS {
	case "1":
		return wikisearch.ContentTypeTalk
	case "6":
		return wikisearch.ContentTypeFile
	case "14":
		return wikisearch.ContentTypeCategory
	}
	if p.RedirectTitle() != "" {
		return wikisearch.ContentTypeRedirect
	}
	return wikisearch.ContentTypeArticle
}

// Indexable reports whether a belongs in the search index: an article with
// content that is not a redirect.
func Indexable(a wikisearch.Article) bool {
	return a.HasContent && a.ContentType == wikisearch.ContentTypeArticle && a.Redirect == ""
}

// Articles builds an article for every page of r and yields the indexable
// ones.
func Articles(r *DumpReader, now func() time.Time, logger *slog.Logger) iter.Seq[wikisearch.Article] {
	if logger == nil {
		logger = slog.Default()
	}
	return func(yield func(wikisearch.Article) bool) {
		count := 0
		for p := range r.Pages() {
			a := BuildArticle(p, now())
			if !Indexable(a) {
				logger.Debug("skipping page", "title", p.Title, "content_type", a.ContentType, "has_content", a.HasContent)
				continue
			}
			count++
			if count%100 == 0 {
				logger.Info("processed articles", "count", count)
			}
			if !yield(a) {
				return
			}
		}
	}
}

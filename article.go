package wikisearch

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ArticleBaseURL is the encyclopedia every article URL is derived from.
const ArticleBaseURL = "https://en.wikipedia.org/wiki/"

// Content types assigned to indexed pages.
const (
	ContentTypeArticle  = "article"
	ContentTypeTalk     = "talk"
	ContentTypeFile     = "file"
	ContentTypeCategory = "category"
	ContentTypeRedirect = "redirect"
)

// ArticleURL derives the public URL of the article titled title. Spaces become
// underscores and the remainder is percent-encoded. An empty title has no URL.
func ArticleURL(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	return ArticleBaseURL + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

// Article is the document stored in a search backend for one wiki page.
type Article struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	NS          string `json:"ns"`
	Redirect    string `json:"redirect"`
	ContentType string `json:"content_type"`

	RevisionID          string `json:"revision_id"`
	ParentID            string `json:"parentid"`
	Timestamp           string `json:"timestamp"`
	ContributorUsername string `json:"contributor_username"`
	ContributorID       string `json:"contributor_id"`
	Comment             string `json:"comment"`
	Origin              string `json:"origin"`
	Model               string `json:"model"`
	Format              string `json:"format"`

	Text          string   `json:"text"`
	RawText       string   `json:"raw_text"`
	Summary       string   `json:"summary"`
	Keywords      []string `json:"keywords"`
	SentenceCount int      `json:"sentence_count"`
	QualityScore  float64  `json:"quality_score"`
	TextLength    int      `json:"text_length"`

	TitleKeywords []string `json:"title_keywords"`
	HasContent    bool     `json:"has_content"`
	IsSubstantial bool     `json:"is_substantial"`

	IndexedAt time.Time `json:"indexed_at"`
	URL       string    `json:"url"`
}

// Fields flattens the article into the generic field map backends index.
func (a Article) Fields() (map[string]interface{}, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal article %s", a.ID)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Wrapf(err, "unmarshal article %s", a.ID)
	}
	return fields, nil
}

// ArticleFromFields rebuilds an article from a field map produced by Fields or
// read back from a backend. Unknown fields are ignored.
func ArticleFromFields(fields map[string]interface{}) (Article, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return Article{}, errors.Wrap(err, "marshal article fields")
	}
	var a Article
	if err := json.Unmarshal(data, &a); err != nil {
		return Article{}, errors.Wrap(err, "unmarshal article fields")
	}
	return a, nil
}

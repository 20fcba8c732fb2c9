package wikisearch

import (
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	// PreviewLength caps the article text returned with each search result.
	PreviewLength = 500

	// MinSuggestionLength is the shortest trimmed prefix worth suggesting for.
	MinSuggestionLength = 2
	// DefaultMaxSuggestions and MaxSuggestions bound suggestion lists.
	DefaultMaxSuggestions = 10
	MaxSuggestions        = 20
)

// SearchQuery is the body of a search request.
type SearchQuery struct {
	Query     string                 `json:"query"`
	Page      int                    `json:"page"`
	PageSize  int                    `json:"page_size"`
	FilterBy  map[string]interface{} `json:"filter_by,omitempty"`
	SortBy    string                 `json:"sort_by,omitempty"`
	SortOrder string                 `json:"sort_order,omitempty"`
}

// Normalize fills in defaults for unset fields.
func (q *SearchQuery) Normalize() {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}

// Validate reports the first constraint the query violates.
func (q SearchQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return ErrEmptyQuery
	}
	if q.Page < 1 {
		return errors.Wrapf(ErrInvalidQuery, "page must be >= 1, got %d", q.Page)
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return errors.Wrapf(ErrInvalidQuery, "page_size must be between 1 and %d, got %d", MaxPageSize, q.PageSize)
	}
	switch q.SortOrder {
	case "", "asc", "desc":
	default:
		return errors.Wrapf(ErrInvalidQuery, "sort_order must be asc or desc, got %q", q.SortOrder)
	}
	return nil
}

// Options translates the query into backend search options.
func (q SearchQuery) Options() ([]SearchOption, error) {
	opts := []SearchOption{
		WithPage(q.Page, q.PageSize),
		WithHighlight(HighlightPreTag, HighlightPostTag),
	}

	filters, err := FilterBy(q.FilterBy)
	if err != nil {
		return nil, err
	}
	for _, f := range filters {
		opts = append(opts, f)
	}

	if q.SortBy != "" {
		opts = append(opts, WithSort(q.SortBy, q.SortOrder != "asc"))
	}
	return opts, nil
}

// Highlights holds highlighted fragments of a result.
type Highlights struct {
	Title []string `json:"title,omitempty"`
	Text  []string `json:"text,omitempty"`
}

// SearchResult is one article in a search response. URL is not sent by the
// API; clients derive it with ArticleURL.
type SearchResult struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Text        string      `json:"text"`
	Contributor string      `json:"contributor,omitempty"`
	Timestamp   string      `json:"timestamp,omitempty"`
	Score       float64     `json:"score"`
	Highlights  *Highlights `json:"highlights,omitempty"`
	URL         string      `json:"url,omitempty"`
}

// SearchResponse is the body of a search response.
type SearchResponse struct {
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Results  []SearchResult `json:"results"`
	Suggest  []string       `json:"suggest,omitempty"`
}

// NewSearchResponse converts backend results into the response for q.
func NewSearchResponse(q SearchQuery, res *Results) SearchResponse {
	resp := SearchResponse{
		Page:     q.Page,
		PageSize: q.PageSize,
		Results:  []SearchResult{},
	}
	if res == nil {
		return resp
	}

	resp.Total = res.Total
	if len(res.Suggest) > 0 {
		resp.Suggest = res.Suggest
	}

	for _, item := range res.Items {
		r := SearchResult{
			ID:          item.ID,
			Title:       item.String("title"),
			Text:        truncateRunes(item.String("text"), PreviewLength),
			Contributor: item.String("contributor_username"),
			Timestamp:   item.String("timestamp"),
			Score:       item.Score,
		}
		if r.Contributor == "" {
			r.Contributor = item.String("contributor")
		}

		title, text := item.Highlights["title"], item.Highlights["text"]
		if len(title) > 0 || len(text) > 0 {
			r.Highlights = &Highlights{Title: title, Text: text}
		}
		resp.Results = append(resp.Results, r)
	}
	return resp
}

// WithURLs returns a copy of results with URL derived from each title.
func WithURLs(results []SearchResult) []SearchResult {
	out := make([]SearchResult, len(results))
	for i, r := range results {
		r.URL = ArticleURL(r.Title)
		out[i] = r
	}
	return out
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// SuggestionQuery asks for completions of a query prefix.
type SuggestionQuery struct {
	Query          string `json:"query"`
	MaxSuggestions int    `json:"max_suggestions"`
}

// Validate checks the suggestion bounds. Short prefixes are not an error; the
// suggestion service answers them with an unsuccessful response.
func (q SuggestionQuery) Validate() error {
	if q.MaxSuggestions < 1 || q.MaxSuggestions > MaxSuggestions {
		return errors.Wrapf(ErrInvalidQuery, "max_suggestions must be between 1 and %d, got %d", MaxSuggestions, q.MaxSuggestions)
	}
	return nil
}

// SuggestionResponse is the body of a suggestion response.
type SuggestionResponse struct {
	Success     bool     `json:"success"`
	Suggestions []string `json:"suggestions"`
	IsStatic    bool     `json:"is_static"`
	Message     string   `json:"message,omitempty"`
}

// HealthStatus is the body of a health response. The backend flag keeps its
// historical wire name.
type HealthStatus struct {
	Status  string `json:"status"`
	Backend bool   `json:"elasticsearch"`
}

// Healthy reports whether both the API and its backend are up.
func (h HealthStatus) Healthy() bool {
	return h.Status == "ok" && h.Backend
}

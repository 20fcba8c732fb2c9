// Package view turns a session snapshot into display-ready values.
package view

import (
	"net/url"
	"strings"
	"time"

	"github.com/letmevibethatforyou/wikisearch"
	"github.com/letmevibethatforyou/wikisearch/session"
	"github.com/letmevibethatforyou/wikisearch/wikitext"
)

const (
	// DefaultFeaturedScore is the minimum score of a featured result.
	DefaultFeaturedScore = 10.0
	// DefaultSummarySentences is the number of sentences in a result summary.
	DefaultSummarySentences = 2
	// DefaultTimeLayout formats revision timestamps.
	DefaultTimeLayout = "Jan 2, 2006"
	// PaginationWindow is the most page numbers shown at once.
	PaginationWindow = 10
)

// Options control how a Page is built.
type Options struct {
	FeaturedScore    float64
	SummarySentences int
	TimeLayout       string
	Sanitizer        *wikitext.Sanitizer
}

func (o Options) withDefaults() Options {
	if o.FeaturedScore <= 0 {
		o.FeaturedScore = DefaultFeaturedScore
	}
	if o.SummarySentences <= 0 {
		o.SummarySentences = DefaultSummarySentences
	}
	if o.TimeLayout == "" {
		o.TimeLayout = DefaultTimeLayout
	}
	if o.Sanitizer == nil {
		o.Sanitizer = wikitext.NewSanitizer()
	}
	return o
}

// Result is one search hit ready for display.
type Result struct {
	ID    string
	Title string
	URL   string
	// DisplayURL is the breadcrumb form of URL, e.g.
	// "en.wikipedia.org › wiki › Domestic_cat".
	DisplayURL string
	// SnippetHTML is sanitized HTML; search terms are wrapped in
	// <span class="highlight">.
	SnippetHTML string
	Summary     string
	Contributor string
	Timestamp   string
	Score       float64
	Featured    bool
}

// Pagination describes the visible page links.
type Pagination struct {
	Current int
	Total   int
	Pages   []int
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Current > 1 }

// HasNext reports whether a following page exists.
func (p Pagination) HasNext() bool { return p.Current < p.Total }

// Page is everything a search results screen shows.
type Page struct {
	Query       string
	Total       int64
	Results     []Result
	Suggestions []string
	Pagination  Pagination
	Loading     bool
	// Empty is set when a finished search found nothing.
	Empty bool
	// Failed is set when the last search could not be completed.
	Failed bool
	// APIWarning is set while the API is believed to be unreachable.
	APIWarning bool
	Theme      session.Theme
}

// BuildPage converts a session snapshot into a Page.
func BuildPage(s session.State, opts Options) Page {
	opts = opts.withDefaults()

	p := Page{
		Query:       s.Query,
		Total:       s.Total,
		Suggestions: s.Suggestions,
		Loading:     s.Loading,
		Failed:      s.Outcome == session.OutcomeFailed,
		APIWarning:  !s.APIHealthy,
		Theme:       s.Theme,
		Pagination:  Paginate(s.Page, s.TotalPages()),
	}
	p.Empty = !s.Loading && s.Outcome == session.OutcomeSuccess && len(s.Results) == 0

	p.Results = make([]Result, 0, len(s.Results))
	for i, r := range s.Results {
		link := r.URL
		if link == "" {
			link = wikisearch.ArticleURL(r.Title)
		}
		p.Results = append(p.Results, Result{
			ID:          r.ID,
			Title:       r.Title,
			URL:         link,
			DisplayURL:  DisplayURL(link),
			SnippetHTML: snippet(r, opts.Sanitizer),
			Summary:     wikitext.Summarize(r.Text, opts.SummarySentences),
			Contributor: r.Contributor,
			Timestamp:   FormatTimestamp(r.Timestamp, opts.TimeLayout),
			Score:       r.Score,
			Featured:    s.Page <= 1 && i == 0 && r.Score >= opts.FeaturedScore,
		})
	}
	return p
}

func snippet(r wikisearch.SearchResult, s *wikitext.Sanitizer) string {
	if r.Highlights != nil && len(r.Highlights.Text) > 0 {
		return s.Sanitize(strings.Join(r.Highlights.Text, " … "))
	}
	return s.Sanitize(r.Text)
}

// Paginate returns the page links for current out of total pages. At most
// PaginationWindow pages are listed, centred on current where possible.
func Paginate(current, total int) Pagination {
	if total < 1 {
		return Pagination{Current: max(current, 1)}
	}
	current = min(max(current, 1), total)

	start := max(1, current-PaginationWindow/2)
	end := min(total, start+PaginationWindow-1)
	start = max(1, end-PaginationWindow+1)

	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return Pagination{Current: current, Total: total, Pages: pages}
}

// DisplayURL renders link as host followed by its path segments separated by
// "›". Unparseable links are returned unchanged.
func DisplayURL(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}
	parts := []string{u.Host}
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, " › ")
}

// FormatTimestamp reformats an RFC 3339 revision timestamp with layout. Other
// values are returned as given.
func FormatTimestamp(ts, layout string) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.UTC().Format(layout)
}

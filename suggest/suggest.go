// Package suggest completes partial queries from article titles, falling back
// to fixed phrasings when the backend cannot help.
package suggest

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/letmevibethatforyou/wikisearch"
)

// titleHits is how many title matches feed the dynamic suggestions.
const titleHits = 10

const shortQueryMessage = "Query must be at least 2 characters long"

// Service produces suggestions for query prefixes.
type Service struct {
	searcher wikisearch.Searcher
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a suggestion service backed by searcher.
func New(searcher wikisearch.Searcher, opts ...Option) *Service {
	s := &Service{
		searcher: searcher,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Suggest never fails: short queries get an unsuccessful response, and a
// backend error leaves only the query variations. The static list is used
// when nothing else is left.
func (s *Service) Suggest(ctx context.Context, q wikisearch.SuggestionQuery) wikisearch.SuggestionResponse {
	n := q.MaxSuggestions
	if n <= 0 {
		n = wikisearch.DefaultMaxSuggestions
	}

	prefix := strings.ToLower(strings.TrimSpace(q.Query))
	if len([]rune(prefix)) < wikisearch.MinSuggestionLength {
		return wikisearch.SuggestionResponse{
			Success:     false,
			Suggestions: []string{},
			Message:     shortQueryMessage,
		}
	}

	titles, err := s.titles(ctx, prefix)
	if err != nil {
		s.logger.ErrorContext(ctx, "title suggestion lookup failed, using variations only", "query", prefix, "error", err)
		titles = nil
	}

	suggestions := Rank(prefix, append(titles, variations(prefix)...))
	if len(suggestions) == 0 {
		return wikisearch.SuggestionResponse{
			Success:     true,
			Suggestions: limit(Static(prefix), n),
			IsStatic:    true,
		}
	}

	s.logger.DebugContext(ctx, "suggestions built", "query", prefix, "titles", len(titles), "count", len(suggestions))
	return wikisearch.SuggestionResponse{
		Success:     true,
		Suggestions: limit(suggestions, n),
	}
}

func (s *Service) titles(ctx context.Context, prefix string) ([]string, error) {
	res, err := s.searcher.Search(ctx, prefix,
		wikisearch.WithFields("title"),
		wikisearch.WithLimit(titleHits),
	)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(res.Items))
	for _, item := range res.Items {
		if title := item.String("title"); title != "" {
			titles = append(titles, title)
		}
	}
	return titles, nil
}

func variations(q string) []string {
	return []string{
		q + " definition",
		q + " examples",
		q + " tutorial",
		"what is " + q,
	}
}

// Static returns the fixed suggestions for q, without q itself.
func Static(q string) []string {
	q = strings.ToLower(strings.TrimSpace(q))
	all := append(variations(q),
		q+" guide",
		q+" vs",
		"learn "+q,
		q+" best practices",
	)
	out := make([]string, 0, len(all))
	for _, v := range all {
		if strings.ToLower(v) != q {
			out = append(out, v)
		}
	}
	return out
}

// Rank deduplicates candidates, drops those equal to q and orders the rest:
// entries starting with q first, then shorter before longer, then
// alphabetically. Comparison with q ignores case.
func Rank(q string, candidates []string) []string {
	q = strings.ToLower(q)
	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if seen[c] || strings.ToLower(c) == q {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi := strings.HasPrefix(strings.ToLower(out[i]), q)
		pj := strings.HasPrefix(strings.ToLower(out[j]), q)
		if pi != pj {
			return pi
		}
		if len(out[i]) != len(out[j]) {
			return len(out[i]) < len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

func limit(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Package inmemory provides a concurrency-safe, in-process article index. It
// backs the development server and the tests of every package that needs a
// wikisearch.Searcher.
package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/wikisearch"
)

// Document represents a JSON document in the in-memory database.
type Document struct {
	// ID is the unique identifier for the document.
	ID string
	// Fields contains the document's data as key-value pairs.
	Fields map[string]interface{}
}

// Searcher implements the wikisearch.Searcher interface using an in-memory store.
type Searcher struct {
	mu        sync.RWMutex
	documents []Document
	idIndex   map[string]int // maps document ID to index in documents slice

	weights map[string]float64
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithFieldWeights limits query matching to the given fields and scores a hit
// in each by its weight. Without it every field matches with weight 1.
func WithFieldWeights(weights map[string]float64) Option {
	return func(s *Searcher) {
		s.weights = weights
	}
}

// New creates a new in-memory searcher.
// The searcher is ready to use and is safe for concurrent operations.
func New(opts ...Option) *Searcher {
	s := &Searcher{
		documents: make([]Document, 0),
		idIndex:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddDocument adds a document to the in-memory store.
// If a document with the same ID already exists, it will be updated.
func (s *Searcher) AddDocument(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, exists := s.idIndex[doc.ID]; exists {
		s.documents[idx] = doc
	} else {
		s.idIndex[doc.ID] = len(s.documents)
		s.documents = append(s.documents, doc)
	}
}

// AddJSON adds a JSON document to the in-memory store by parsing the provided JSON data.
func (s *Searcher) AddJSON(id string, jsonData []byte) error {
	var fields map[string]interface{}
	if err := json.Unmarshal(jsonData, &fields); err != nil {
		return errors.Wrap(err, "failed to unmarshal JSON")
	}

	s.AddDocument(Document{
		ID:     id,
		Fields: fields,
	})
	return nil
}

// SaveArticles stores articles keyed by their ID, replacing earlier versions.
func (s *Searcher) SaveArticles(ctx context.Context, articles []wikisearch.Article) error {
	for _, a := range articles {
		if err := ctx.Err(); err != nil {
			return wikisearch.ContextError(err)
		}
		if a.ID == "" {
			return errors.Newf("article %q has no id", a.Title)
		}
		fields, err := a.Fields()
		if err != nil {
			return err
		}
		s.AddDocument(Document{ID: a.ID, Fields: fields})
	}
	return nil
}

// RemoveDocument removes a document by ID from the in-memory store.
// Returns true if the document was found and removed, false if the document was not found.
func (s *Searcher) RemoveDocument(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, exists := s.idIndex[id]
	if !exists {
		return false
	}

	s.documents = append(s.documents[:idx], s.documents[idx+1:]...)

	delete(s.idIndex, id)
	for i := idx; i < len(s.documents); i++ {
		s.idIndex[s.documents[i].ID] = i
	}

	return true
}

// Clear removes all documents from the store.
func (s *Searcher) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents = make([]Document, 0)
	s.idIndex = make(map[string]int)
}

// Size returns the number of documents currently stored in the in-memory store.
func (s *Searcher) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// Ping implements wikisearch.Pinger. The store is always reachable.
func (s *Searcher) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return wikisearch.ContextError(err)
	}
	return nil
}

// Search implements the wikisearch.Searcher interface.
func (s *Searcher) Search(ctx context.Context, query string, opts ...wikisearch.SearchOption) (*wikisearch.Results, error) {
	startTime := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, wikisearch.ContextError(err)
	}

	cfg := wikisearch.NewSearchConfig(opts...)
	terms := strings.Fields(strings.ToLower(query))
	fields := s.searchFields(cfg)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []scoredDocument
	for _, doc := range s.documents {
		if err := ctx.Err(); err != nil {
			return nil, wikisearch.ContextError(err)
		}

		if !s.matchesFilters(doc, cfg.Filters) {
			continue
		}

		score := s.scoreDocument(doc, terms, fields)
		if score > 0 {
			matches = append(matches, scoredDocument{
				document: doc,
				score:    score,
			})
		}
	}

	s.sortMatches(matches, cfg.Sort)

	total := int64(len(matches))
	start := min(cfg.Offset, len(matches))
	end := min(cfg.Offset+cfg.Limit, len(matches))

	results := &wikisearch.Results{
		Items: make([]wikisearch.Result, 0, end-start),
		Total: total,
		Query: query,
	}

	for i := start; i < end; i++ {
		match := matches[i]
		if match.score > results.MaxScore {
			results.MaxScore = match.score
		}
		item := wikisearch.Result{
			ID:     match.document.ID,
			Score:  match.score,
			Fields: match.document.Fields,
		}
		if cfg.Highlighting() {
			item.Highlights = highlightDocument(match.document, terms, cfg.HighlightPre, cfg.HighlightPost)
		}
		results.Items = append(results.Items, item)
	}

	if end < len(matches) {
		nextOffset := end
		results.NextOffset = &nextOffset
	}

	results.Suggest = s.suggestTerms(terms)
	results.Took = time.Since(startTime).Milliseconds()
	return results, nil
}

type scoredDocument struct {
	document Document
	score    float64
}

// searchFields resolves the weighted fields a query is matched against. A nil
// map means every field with weight 1.
func (s *Searcher) searchFields(cfg *wikisearch.SearchConfig) map[string]float64 {
	if len(cfg.Fields) == 0 {
		return s.weights
	}
	fields := make(map[string]float64, len(cfg.Fields))
	for _, f := range cfg.Fields {
		w, ok := s.weights[f]
		if !ok {
			w = 1
		}
		fields[f] = w
	}
	return fields
}

// scoreDocument calculates the relevance score for a document. Each term adds
// the weight of every field it occurs in; matching all terms boosts the score
// by half.
func (s *Searcher) scoreDocument(doc Document, terms []string, fields map[string]float64) float64 {
	if len(terms) == 0 {
		return 1.0
	}

	score := 0.0
	matchedTerms := 0

	for _, term := range terms {
		termMatched := false
		for name, value := range doc.Fields {
			weight := 1.0
			if fields != nil {
				w, ok := fields[name]
				if !ok {
					continue
				}
				weight = w
			}
			if s.valueContainsTerm(value, term) {
				termMatched = true
				score += weight
			}
		}
		if termMatched {
			matchedTerms++
		}
	}

	if matchedTerms == 0 {
		return 0
	}

	if matchedTerms == len(terms) {
		score *= 1.5
	}

	return score
}

// valueContainsTerm checks if a value contains the search term.
func (s *Searcher) valueContainsTerm(value interface{}, term string) bool {
	switch v := value.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), term)
	case []interface{}:
		for _, item := range v {
			if s.valueContainsTerm(item, term) {
				return true
			}
		}
	case map[string]interface{}:
		for _, item := range v {
			if s.valueContainsTerm(item, term) {
				return true
			}
		}
	case nil:
		return false
	default:
		return strings.Contains(strings.ToLower(fmt.Sprintf("%v", v)), term)
	}
	return false
}

// sortMatches orders matches by the sort configuration, defaulting to score
// descending. Ties keep insertion order.
func (s *Searcher) sortMatches(matches []scoredDocument, sortFields []wikisearch.SortField) {
	if len(sortFields) == 0 {
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].score > matches[j].score
		})
		return
	}

	sort.SliceStable(matches, func(i, j int) bool {
		for _, sf := range sortFields {
			if sf.Field == "_score" {
				if matches[i].score != matches[j].score {
					if sf.Desc {
						return matches[i].score > matches[j].score
					}
					return matches[i].score < matches[j].score
				}
				continue
			}

			cmp := s.compareValues(matches[i].document.Fields[sf.Field], matches[j].document.Fields[sf.Field])
			if cmp != 0 {
				if sf.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
}

// compareValues compares two values for sorting.
func (s *Searcher) compareValues(v1, v2 interface{}) int {
	if v1 == nil && v2 == nil {
		return 0
	}
	if v1 == nil {
		return -1
	}
	if v2 == nil {
		return 1
	}

	if f1, ok1 := toFloat64(v1); ok1 {
		if f2, ok2 := toFloat64(v2); ok2 {
			switch {
			case f1 < f2:
				return -1
			case f1 > f2:
				return 1
			}
			return 0
		}
	}

	return strings.Compare(fmt.Sprintf("%v", v1), fmt.Sprintf("%v", v2))
}

package algolia

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/letmevibethatforyou/wikisearch"
)

// snippetWords is the length of the text snippet Algolia returns per hit.
const snippetWords = 30

// Searcher implements wikisearch.Searcher using Algolia.
type Searcher struct {
	client    *Client
	indexName string
}

// NewSearcher creates a new Algolia searcher for the specified index.
func NewSearcher(client *Client, indexName string) *Searcher {
	return &Searcher{
		client:    client,
		indexName: indexName,
	}
}

// Ping reports ErrBackendUnavailable when the index cannot be reached or does
// not exist.
func (s *Searcher) Ping(ctx context.Context) error {
	exists, err := s.client.Exists(ctx, s.indexName)
	if err != nil {
		return errors.WithSecondaryError(wikisearch.ErrBackendUnavailable, err)
	}
	if !exists {
		return errors.WithSecondaryError(
			wikisearch.ErrBackendUnavailable,
			errors.Newf("index %s does not exist", s.indexName),
		)
	}
	return nil
}

// Search implements wikisearch.Searcher. Unlike the in-memory searcher an empty
// query is passed through; Algolia answers it with every document.
func (s *Searcher) Search(ctx context.Context, query string, opts ...wikisearch.SearchOption) (*wikisearch.Results, error) {
	startTime := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, wikisearch.ContextError(err)
	}

	cfg := wikisearch.NewSearchConfig(opts...)
	indexName := replicaName(s.indexName, cfg.Sort)

	_, span := s.client.tracer.Start(ctx, "algolia.search",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.Int("algolia.limit", cfg.Limit),
			attribute.Int("algolia.offset", cfg.Offset),
		),
	)
	defer span.End()

	index, err := s.client.index(span, indexName)
	if err != nil {
		return nil, errors.WithSecondaryError(
			wikisearch.ErrBackendUnavailable,
			errors.Wrapf(err, "failed to get Algolia client"),
		)
	}

	res, err := index.Search(query, buildSearchParams(cfg)...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, wikisearch.ErrTimeout
		}
		if errors.Is(err, context.Canceled) {
			return nil, wikisearch.ErrCanceled
		}
		return nil, errors.WithSecondaryError(
			wikisearch.ErrBackendUnavailable,
			errors.Wrapf(err, "Algolia search failed"),
		)
	}

	results := convertResults(query, cfg, res)
	results.Took = time.Since(startTime).Milliseconds()
	span.SetAttributes(attribute.Int64("algolia.total", results.Total))
	span.SetStatus(codes.Ok, "search completed")
	return results, nil
}

func convertResults(query string, cfg *wikisearch.SearchConfig, res search.QueryRes) *wikisearch.Results {
	results := &wikisearch.Results{
		Items: make([]wikisearch.Result, 0, len(res.Hits)),
		Total: int64(res.NbHits),
		Query: query,
	}

	for _, hit := range res.Hits {
		objectID, _ := hit["objectID"].(string)

		// Algolia ranks without exposing scores, so position stands in.
		score := calculateScore(len(res.Hits), len(results.Items))
		if score > results.MaxScore {
			results.MaxScore = score
		}

		result := wikisearch.Result{
			ID:     objectID,
			Score:  score,
			Fields: stripMeta(hit),
		}
		if cfg.Highlighting() {
			result.Highlights = extractHighlights(hit)
		}
		results.Items = append(results.Items, result)
	}

	nextPage := res.Page + 1
	if nextPage < res.NbPages {
		nextOffset := nextPage * cfg.Limit
		results.NextOffset = &nextOffset
	}
	return results
}

// buildSearchParams converts a wikisearch.SearchConfig to Algolia search parameters.
func buildSearchParams(cfg *wikisearch.SearchConfig) []interface{} {
	var params []interface{}

	params = append(params, opt.HitsPerPage(cfg.Limit))
	if cfg.Offset > 0 {
		params = append(params, opt.Page(cfg.Offset/cfg.Limit))
	}

	if len(cfg.Filters) > 0 {
		filterStrings := make([]string, 0, len(cfg.Filters))
		for _, expr := range cfg.Filters {
			if filterStr := convertExpressionToFilter(expr); filterStr != "" {
				filterStrings = append(filterStrings, filterStr)
			}
		}
		if len(filterStrings) > 0 {
			params = append(params, opt.Filters(strings.Join(filterStrings, " AND ")))
		}
	}

	if len(cfg.Fields) > 0 {
		params = append(params, opt.RestrictSearchableAttributes(cfg.Fields...))
	}

	if cfg.Highlighting() {
		params = append(params,
			opt.HighlightPreTag(cfg.HighlightPre),
			opt.HighlightPostTag(cfg.HighlightPost),
			opt.AttributesToHighlight("title"),
			opt.AttributesToSnippet(fmt.Sprintf("text:%d", snippetWords)),
		)
	}

	return params
}

// replicaName picks the replica index holding the requested ordering. Algolia
// sorts by index configuration, so each sort field/direction lives in its own
// replica named {index}_{field}_{asc|desc}. Relevance uses the primary.
func replicaName(indexName string, sortFields []wikisearch.SortField) string {
	for _, sf := range sortFields {
		if sf.Field == "" || sf.Field == "_score" {
			continue
		}
		dir := "asc"
		if sf.Desc {
			dir = "desc"
		}
		return indexName + "_" + sf.Field + "_" + dir
	}
	return indexName
}

// extractHighlights reads matched fragments from _highlightResult and
// _snippetResult. Snippets win over full highlights for the same field.
func extractHighlights(hit map[string]interface{}) map[string][]string {
	out := make(map[string][]string)
	for _, key := range []string{"_highlightResult", "_snippetResult"} {
		attrs, ok := hit[key].(map[string]interface{})
		if !ok {
			continue
		}
		for field, raw := range attrs {
			entry, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			if level, _ := entry["matchLevel"].(string); level == "" || level == "none" {
				continue
			}
			if value, ok := entry["value"].(string); ok {
				out[field] = []string{value}
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// stripMeta drops Algolia's underscore-prefixed metadata from a hit.
func stripMeta(hit map[string]interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(hit))
	for k, v := range hit {
		if strings.HasPrefix(k, "_") {
			continue
		}
		fields[k] = v
	}
	return fields
}

// calculateScore creates a rank-based score for Algolia results.
func calculateScore(totalResults, position int) float64 {
	if totalResults == 0 {
		return 1.0
	}
	return float64(totalResults-position) / float64(totalResults)
}

// convertExpressionToFilter converts a wikisearch expression to an Algolia filter string.
func convertExpressionToFilter(expr wikisearch.Expression) string {
	switch e := expr.(type) {
	case wikisearch.AndExpr:
		return joinExpressions(e.Exprs, " AND ")
	case wikisearch.OrExpr:
		return joinExpressions(e.Exprs, " OR ")
	case wikisearch.NotExpr:
		inner := convertExpressionToFilter(e.Inner)
		if inner == "" {
			return ""
		}
		return "NOT (" + inner + ")"
	case wikisearch.CompareExpr:
		return convertCompareExpression(e)
	case wikisearch.RangeExpr:
		return convertRangeExpression(e)
	default:
		return ""
	}
}

func joinExpressions(exprs []wikisearch.Expression, sep string) string {
	filters := make([]string, 0, len(exprs))
	for _, e := range exprs {
		if filter := convertExpressionToFilter(e); filter != "" {
			filters = append(filters, "("+filter+")")
		}
	}
	return strings.Join(filters, sep)
}

var numericOps = map[wikisearch.Operator]string{
	wikisearch.OpGt:  ">",
	wikisearch.OpGte: ">=",
	wikisearch.OpLt:  "<",
	wikisearch.OpLte: "<=",
}

func convertCompareExpression(expr wikisearch.CompareExpr) string {
	field := escapeField(expr.Field)
	switch expr.Op {
	case wikisearch.OpEq:
		return fmt.Sprintf("%s:%s", field, escapeValue(expr.Value))
	case wikisearch.OpNe:
		return fmt.Sprintf("NOT %s:%s", field, escapeValue(expr.Value))
	case wikisearch.OpExists:
		return fmt.Sprintf("%s:*", field)
	}
	if op, ok := numericOps[expr.Op]; ok {
		return fmt.Sprintf("%s %s %s", field, op, escapeNumericValue(expr.Value))
	}
	return ""
}

func convertRangeExpression(expr wikisearch.RangeExpr) string {
	var filters []string

	if expr.Min != nil {
		filters = append(filters, fmt.Sprintf("%s >= %s", escapeField(expr.Field), escapeNumericValue(expr.Min)))
	}

	if expr.Max != nil {
		filters = append(filters, fmt.Sprintf("%s <= %s", escapeField(expr.Field), escapeNumericValue(expr.Max)))
	}

	return strings.Join(filters, " AND ")
}

// escapeField quotes field names containing filter syntax characters.
func escapeField(field string) string {
	if strings.ContainsAny(field, " :-()") {
		return fmt.Sprintf(`"%s"`, field)
	}
	return field
}

// escapeValue quotes a facet value.
func escapeValue(value interface{}) string {
	if value == nil {
		return "null"
	}

	switch v := value.(type) {
	case string:
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	case bool:
		return `"` + strconv.FormatBool(v) + `"`
	default:
		return fmt.Sprintf(`"%v"`, value)
	}
}

// escapeNumericValue renders a number, falling back to a quoted value.
func escapeNumericValue(value interface{}) string {
	if value == nil {
		return "0"
	}

	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", v)
	default:
		str := fmt.Sprintf("%v", value)
		if _, err := strconv.ParseFloat(str, 64); err == nil {
			return str
		}
		return escapeValue(value)
	}
}

package wikisearch

// Result represents a single search result.
type Result struct {
	// ID is the unique identifier of the result.
	ID string

	// Score represents the relevance score of this result.
	Score float64

	// Fields contains the document fields as key-value pairs.
	Fields map[string]interface{}

	// Highlights holds highlighted fragments per field, when requested.
	Highlights map[string][]string
}

// String returns the string value of field, or "" when it is absent or not a
// string.
func (r Result) String(field string) string {
	if s, ok := r.Fields[field].(string); ok {
		return s
	}
	return ""
}

// Results represents a collection of search results with metadata.
type Results struct {
	// Items contains the individual search results.
	Items []Result

	// Total is the total number of matching documents.
	Total int64

	// Took is the time taken to execute the search in milliseconds.
	Took int64

	// MaxScore is the maximum relevance score across all results.
	MaxScore float64

	// Query is the original query string for reference.
	Query string

	// NextOffset can be used for pagination.
	NextOffset *int

	// Suggest holds alternative query terms proposed by the backend.
	Suggest []string
}

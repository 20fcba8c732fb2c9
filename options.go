package wikisearch

const (
	// DefaultPageSize is used when a caller does not ask for a page size.
	DefaultPageSize = 10
	// MaxPageSize bounds the page size accepted by the API.
	MaxPageSize = 100

	// HighlightPreTag and HighlightPostTag wrap matched terms in highlights.
	HighlightPreTag  = "<mark>"
	HighlightPostTag = "</mark>"
)

// DefaultFieldWeights mirrors the relevance boosts applied to article fields.
var DefaultFieldWeights = map[string]float64{
	"title":   3,
	"text":    2,
	"comment": 1,
}

// SearchOption represents a search configuration option.
type SearchOption interface {
	Apply(*SearchConfig)
}

// SearchConfig holds all search configuration parameters.
type SearchConfig struct {
	// Limit specifies the maximum number of results to return.
	Limit int

	// Offset specifies the number of results to skip for pagination.
	Offset int

	// Sort specifies sorting configuration.
	Sort []SortField

	// Filters contains filter expressions to apply.
	Filters []Expression

	// HighlightPre and HighlightPost wrap matched terms. Highlighting is
	// disabled when both are empty.
	HighlightPre  string
	HighlightPost string

	// Fields restricts matching and retrieval to the named fields.
	Fields []string
}

// NewSearchConfig applies opts over the defaults.
func NewSearchConfig(opts ...SearchOption) *SearchConfig {
	cfg := &SearchConfig{}
	for _, opt := range opts {
		opt.Apply(cfg)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultPageSize
	}
	if cfg.Offset < 0 {
		cfg.Offset = 0
	}
	return cfg
}

// Highlighting reports whether highlight tags were requested.
func (c *SearchConfig) Highlighting() bool {
	return c.HighlightPre != "" || c.HighlightPost != ""
}

// SortField represents a field to sort by.
type SortField struct {
	// Field is the name of the field to sort by.
	Field string
	// Desc indicates whether to sort in descending order (true) or ascending order (false).
	Desc bool
}

// optionFunc is a function that implements SearchOption.
type optionFunc func(*SearchConfig)

// Apply implements the SearchOption interface for optionFunc.
func (f optionFunc) Apply(cfg *SearchConfig) {
	f(cfg)
}

// WithLimit sets the maximum number of results to return.
func WithLimit(n int) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.Limit = n
	})
}

// WithOffset sets the number of results to skip for pagination.
func WithOffset(n int) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.Offset = n
	})
}

// WithPage selects a 1-based page of the given size.
func WithPage(page, size int) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		if size <= 0 {
			size = DefaultPageSize
		}
		if page < 1 {
			page = 1
		}
		cfg.Limit = size
		cfg.Offset = (page - 1) * size
	})
}

// WithSort adds a sort field to the search.
func WithSort(field string, desc bool) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.Sort = append(cfg.Sort, SortField{Field: field, Desc: desc})
	})
}

// WithHighlight asks the backend to wrap matched terms in pre and post.
func WithHighlight(pre, post string) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.HighlightPre = pre
		cfg.HighlightPost = post
	})
}

// WithFields restricts the search to the named fields.
func WithFields(fields ...string) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.Fields = append(cfg.Fields, fields...)
	})
}

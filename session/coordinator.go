// Package session holds the state of one interactive search session and
// mediates every call it makes to the search API.
//
// A Coordinator is created by its owner, passed to whatever renders it and
// torn down with Close. All mutations go through its methods; readers take
// snapshots with State or subscribe with WithOnChange.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/letmevibethatforyou/wikisearch"
)

const (
	// DefaultDebounce is the quiet period before suggestions are fetched.
	DefaultDebounce = 300 * time.Millisecond
	// DefaultHealthInterval is the period of background health probes.
	DefaultHealthInterval = 30 * time.Minute
)

// API is the search service a Coordinator talks to.
type API interface {
	Search(ctx context.Context, q wikisearch.SearchQuery) (*wikisearch.SearchResponse, error)
	Suggest(ctx context.Context, query string, limit int) (*wikisearch.SuggestionResponse, error)
	Health(ctx context.Context) (wikisearch.HealthStatus, error)
}

// Coordinator owns a session's State.
type Coordinator struct {
	api    API
	logger *slog.Logger
	tracer trace.Tracer

	debounce       time.Duration
	healthInterval time.Duration
	maxSuggestions int
	navigator      Navigator
	onChange       []func(State)

	mu    sync.Mutex
	state State
	// searchGen and suggestGen identify the latest request of each kind.
	// Responses to older requests are dropped.
	searchGen  uint64
	suggestGen uint64
	// inflight is the parameter key of the latest search while it loads.
	inflight     string
	processedURL string

	group     singleflight.Group
	debouncer *Debouncer
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithOnChange registers fn to receive a snapshot after every state change.
// Callbacks run on the goroutine that made the change, outside the lock.
func WithOnChange(fn func(State)) Option {
	return func(c *Coordinator) { c.onChange = append(c.onChange, fn) }
}

// WithNavigator sets where user-initiated searches write their URL.
func WithNavigator(n Navigator) Option {
	return func(c *Coordinator) { c.navigator = n }
}

// WithDebounce sets the suggestion debounce period.
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) { c.debounce = d }
}

// WithHealthInterval sets the period of Run's health probes.
func WithHealthInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.healthInterval = d }
}

// WithMaxSuggestions sets how many suggestions are requested.
func WithMaxSuggestions(n int) Option {
	return func(c *Coordinator) { c.maxSuggestions = n }
}

// WithTheme sets the initial theme.
func WithTheme(t Theme) Option {
	return func(c *Coordinator) { c.state.Theme = t }
}

// New creates a coordinator. The API is assumed healthy until a probe or a
// failed search says otherwise.
func New(api API, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:            api,
		logger:         slog.Default(),
		tracer:         otel.Tracer("wikisearch-session"),
		debounce:       DefaultDebounce,
		healthInterval: DefaultHealthInterval,
		maxSuggestions: wikisearch.DefaultMaxSuggestions,
		state: State{
			Page:       1,
			PageSize:   wikisearch.DefaultPageSize,
			APIHealthy: true,
			Theme:      ThemeDark,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.debouncer = NewDebouncer(c.debounce)
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// State returns a snapshot of the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// update applies fn under the lock and notifies observers.
func (c *Coordinator) update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	snapshot := c.state.clone()
	c.mu.Unlock()
	c.notify(snapshot)
}

func (c *Coordinator) notify(s State) {
	for _, fn := range c.onChange {
		fn(s)
	}
}

// PerformSearch runs one search and stores its outcome. A blank query clears
// results without touching the network. Failures are logged, clear the
// results and trigger a health check; they are never returned.
//
// A call repeating the parameters of the search currently loading is
// dropped. Overlapping searches with different parameters all run, and only
// the most recently started one may write its results.
func (c *Coordinator) PerformSearch(ctx context.Context, query string, page, pageSize int) {
	p := Params{Query: query, Page: page, PageSize: pageSize}.normalized()

	if strings.TrimSpace(p.Query) == "" {
		c.mu.Lock()
		c.searchGen++
		c.suggestGen++
		c.inflight = ""
		c.state.Query = p.Query
		c.state.Results = nil
		c.state.Total = 0
		c.state.Suggestions = nil
		c.state.Loading = false
		c.state.Outcome = OutcomeNone
		snapshot := c.state.clone()
		c.mu.Unlock()
		c.notify(snapshot)
		return
	}

	key := EncodeParams(p)

	c.mu.Lock()
	if c.state.Loading && c.inflight == key {
		c.mu.Unlock()
		c.logger.DebugContext(ctx, "search already loading", "query", p.Query, "page", p.Page)
		return
	}
	c.searchGen++
	gen := c.searchGen
	c.inflight = key
	c.state.Query = p.Query
	c.state.Loading = true
	snapshot := c.state.clone()
	c.mu.Unlock()
	c.notify(snapshot)

	ctx, span := c.tracer.Start(ctx, "session.search",
		trace.WithAttributes(
			attribute.String("search.query", p.Query),
			attribute.Int("search.page", p.Page),
			attribute.Int("search.page_size", p.PageSize),
		),
	)
	defer span.End()

	// Callers joining a shared search must not fail because the first
	// caller's context was canceled.
	sharedCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		return c.api.Search(sharedCtx, wikisearch.SearchQuery{
			Query:    p.Query,
			Page:     p.Page,
			PageSize: p.PageSize,
		})
	})
	span.SetAttributes(attribute.Bool("search.shared", shared))

	c.mu.Lock()
	if gen != c.searchGen {
		c.mu.Unlock()
		span.SetAttributes(attribute.Bool("search.stale", true))
		c.logger.DebugContext(ctx, "discarding stale search response", "query", p.Query, "page", p.Page)
		return
	}
	c.inflight = ""
	if err != nil {
		c.state.Results = nil
		c.state.Total = 0
		c.state.Suggestions = nil
		c.state.Outcome = OutcomeFailed
	} else {
		resp := v.(*wikisearch.SearchResponse)
		c.state.Page = p.Page
		if resp.Page > 0 {
			c.state.Page = resp.Page
		}
		c.state.PageSize = p.PageSize
		if resp.PageSize > 0 {
			c.state.PageSize = resp.PageSize
		}
		results := resp.Results
		if len(results) > c.state.PageSize {
			c.logger.WarnContext(ctx, "search returned more results than the page size, truncating",
				"query", p.Query, "page_size", c.state.PageSize, "results", len(results))
			results = results[:c.state.PageSize]
		}
		c.state.Results = wikisearch.WithURLs(results)
		c.state.Total = resp.Total
		c.state.Suggestions = resp.Suggest
		c.state.APIHealthy = true
		c.state.Outcome = OutcomeSuccess
	}
	c.state.Loading = false
	snapshot = c.state.clone()
	c.mu.Unlock()
	c.notify(snapshot)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		c.logger.ErrorContext(ctx, "search failed", "query", p.Query, "page", p.Page, "error", err)
		c.CheckAPIHealth(ctx)
		return
	}
	span.SetStatus(codes.Ok, "search completed")
}

// FetchSuggestions stores suggestions for text. Input shorter than two
// characters after trimming is ignored. Errors leave an empty list.
func (c *Coordinator) FetchSuggestions(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < wikisearch.MinSuggestionLength {
		return
	}

	c.mu.Lock()
	c.suggestGen++
	gen := c.suggestGen
	c.mu.Unlock()

	resp, err := c.api.Suggest(ctx, text, c.maxSuggestions)
	var suggestions []string
	if err != nil {
		c.logger.WarnContext(ctx, "suggestions failed", "text", text, "error", err)
	} else if resp != nil {
		suggestions = resp.Suggestions
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	c.mu.Lock()
	if gen != c.suggestGen {
		c.mu.Unlock()
		return
	}
	c.state.Suggestions = suggestions
	snapshot := c.state.clone()
	c.mu.Unlock()
	c.notify(snapshot)
}

// QueueSuggestions fetches suggestions for text after the debounce period,
// unless another call replaces it first.
func (c *Coordinator) QueueSuggestions(text string) {
	c.debouncer.Trigger(func() {
		c.FetchSuggestions(c.ctx, text)
	})
}

// CheckAPIHealth probes the API and records the result. Only an "ok" status
// with a reachable backend counts as healthy.
func (c *Coordinator) CheckAPIHealth(ctx context.Context) bool {
	status, err := c.api.Health(ctx)
	healthy := err == nil && status.Healthy()
	switch {
	case err != nil:
		c.logger.WarnContext(ctx, "api health check failed", "error", err)
	case !healthy:
		c.logger.WarnContext(ctx, "api reported unhealthy", "status", status.Status, "backend", status.Backend)
	}

	c.update(func(s *State) { s.APIHealthy = healthy })
	return healthy
}

// Run probes API health immediately and then periodically until ctx is done
// or the coordinator is closed.
func (c *Coordinator) Run(ctx context.Context) error {
	c.CheckAPIHealth(ctx)

	ticker := time.NewTicker(c.healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return nil
		case <-ticker.C:
			c.CheckAPIHealth(ctx)
		}
	}
}

// SetFilters replaces the display filters.
func (c *Coordinator) SetFilters(f Filters) {
	c.update(func(s *State) { s.Filters = f })
}

// SetTheme sets the display theme.
func (c *Coordinator) SetTheme(t Theme) {
	c.update(func(s *State) { s.Theme = t })
}

// ToggleTheme switches between dark and light.
func (c *Coordinator) ToggleTheme() Theme {
	var t Theme
	c.update(func(s *State) {
		s.Theme = s.Theme.Toggle()
		t = s.Theme
	})
	return t
}

// Close cancels pending suggestion fetches and stops Run.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		c.debouncer.Stop()
		c.cancel()
	})
}

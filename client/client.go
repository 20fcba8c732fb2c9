// Package client talks to the wiki search HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/wikisearch"
)

// DefaultTimeout bounds each request when no HTTP client is supplied.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is read for its detail.
const maxErrorBody = 4096

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("api returned %d: %s", e.Code, e.Detail)
}

// Client is a JSON client for the search API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid api url %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Newf("invalid api url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search posts q to /api/search.
func (c *Client) Search(ctx context.Context, q wikisearch.SearchQuery) (*wikisearch.SearchResponse, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, errors.Wrap(err, "encode search query")
	}

	var resp wikisearch.SearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/search", nil, body, &resp); err != nil {
		return nil, errors.Wrap(err, "search")
	}
	return &resp, nil
}

// Suggest fetches up to limit completions of query. A limit of zero leaves
// the server default.
func (c *Client) Suggest(ctx context.Context, query string, limit int) (*wikisearch.SuggestionResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	if limit > 0 {
		params.Set("max_suggestions", strconv.Itoa(limit))
	}

	var resp wikisearch.SuggestionResponse
	if err := c.do(ctx, http.MethodGet, "/api/suggest", params, nil, &resp); err != nil {
		return nil, errors.Wrap(err, "suggest")
	}
	return &resp, nil
}

// Health probes /api/health.
func (c *Client) Health(ctx context.Context) (wikisearch.HealthStatus, error) {
	var status wikisearch.HealthStatus
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &status); err != nil {
		return wikisearch.HealthStatus{}, errors.Wrap(err, "health")
	}
	return status, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body []byte, out interface{}) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = params.Encode()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.WithSecondaryError(wikisearch.ContextError(ctxErr), err)
		}
		return errors.WithSecondaryError(wikisearch.ErrBackendUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return statusError(res)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}

func statusError(res *http.Response) error {
	se := &StatusError{Code: res.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))

	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil && len(body.Detail) > 0 {
		var s string
		if json.Unmarshal(body.Detail, &s) == nil {
			se.Detail = s
		} else {
			se.Detail = string(body.Detail)
		}
	} else {
		se.Detail = strings.TrimSpace(string(data))
	}
	return se
}

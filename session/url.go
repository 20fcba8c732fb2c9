package session

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/wikisearch"
)

// URL parameter names used for deep links.
const (
	ParamQuery    = "query"
	ParamPage     = "page"
	ParamPageSize = "pageSize"
)

// Params is the search state carried in a deep link.
type Params struct {
	Query    string
	Page     int
	PageSize int
}

func (p Params) normalized() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = wikisearch.DefaultPageSize
	}
	return p
}

// EncodeParams renders p as a URL query string. Page and page size are
// normalized first.
func EncodeParams(p Params) string {
	p = p.normalized()
	v := url.Values{}
	v.Set(ParamQuery, p.Query)
	v.Set(ParamPage, strconv.Itoa(p.Page))
	v.Set(ParamPageSize, strconv.Itoa(p.PageSize))
	return v.Encode()
}

// ParseParams reads a query string produced by EncodeParams or typed by hand.
// A leading '?' is allowed. Missing or non-numeric page values fall back to
// their defaults.
func ParseParams(rawQuery string) (Params, error) {
	v, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return Params{}, errors.Wrapf(err, "parse url parameters %q", rawQuery)
	}
	p := Params{Query: v.Get(ParamQuery)}
	p.Page, _ = strconv.Atoi(v.Get(ParamPage))
	p.PageSize, _ = strconv.Atoi(v.Get(ParamPageSize))
	return p.normalized(), nil
}

// Navigator receives the query string of user-initiated searches.
type Navigator interface {
	Navigate(rawQuery string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(rawQuery string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(rawQuery string) { f(rawQuery) }

// Submit is the user-initiated search path: the parameters are written to the
// navigator and then searched. The written URL is marked processed, so the
// navigation echo passed back to InitFromURL does not search again.
func (c *Coordinator) Submit(ctx context.Context, query string, page, pageSize int) {
	p := Params{Query: query, Page: page, PageSize: pageSize}.normalized()
	raw := EncodeParams(p)

	c.mu.Lock()
	c.processedURL = raw
	c.mu.Unlock()

	if c.navigator != nil {
		c.navigator.Navigate(raw)
	}
	c.PerformSearch(ctx, p.Query, p.Page, p.PageSize)
}

// InitFromURL replays the search encoded in rawQuery, once per distinct
// parameter set. It reports whether a search was started.
func (c *Coordinator) InitFromURL(ctx context.Context, rawQuery string) bool {
	p, err := ParseParams(rawQuery)
	if err != nil {
		c.logger.WarnContext(ctx, "ignoring malformed url parameters", "raw_query", rawQuery, "error", err)
		return false
	}
	if strings.TrimSpace(p.Query) == "" {
		return false
	}

	key := EncodeParams(p)
	c.mu.Lock()
	if key == c.processedURL {
		c.mu.Unlock()
		return false
	}
	c.processedURL = key
	c.mu.Unlock()

	c.PerformSearch(ctx, p.Query, p.Page, p.PageSize)
	return true
}

package api

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"

	"github.com/letmevibethatforyou/wikisearch"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
}

func unprocessable(err error) error {
	return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error()).SetInternal(err)
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			detail = msg
		} else {
			detail = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorBody{Detail: detail})
	}
	if err != nil {
		s.logger.ErrorContext(c.Request().Context(), "failed to write error response", "error", err)
	}
}

func (s *Server) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": welcomeMessage})
}

func (s *Server) health(c echo.Context) error {
	ctx := c.Request().Context()
	status := wikisearch.HealthStatus{Status: "ok", Backend: true}
	if p, ok := s.searcher.(wikisearch.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "backend health check failed", "error", err)
			status.Backend = false
		}
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) searchPost(c echo.Context) error {
	var q wikisearch.SearchQuery
	if err := c.Bind(&q); err != nil {
		return unprocessable(errors.Wrap(wikisearch.ErrInvalidQuery, "malformed search body"))
	}
	return s.search(c, q)
}

func (s *Server) searchGet(c echo.Context) error {
	q := wikisearch.SearchQuery{
		Query:     c.QueryParam("query"),
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
	}
	var err error
	if q.Page, err = intParam(c, "page"); err != nil {
		return unprocessable(err)
	}
	if q.PageSize, err = intParam(c, "page_size"); err != nil {
		return unprocessable(err)
	}
	return s.search(c, q)
}

func (s *Server) search(c echo.Context, q wikisearch.SearchQuery) error {
	ctx := c.Request().Context()

	q.Normalize()
	if err := q.Validate(); err != nil {
		return unprocessable(err)
	}
	opts, err := q.Options()
	if err != nil {
		return unprocessable(err)
	}

	res, err := s.searcher.Search(ctx, q.Query, opts...)
	if err != nil {
		s.logger.ErrorContext(ctx, "search failed", "query", q.Query, "page", q.Page, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Search failed: "+err.Error()).SetInternal(err)
	}

	return c.JSON(http.StatusOK, wikisearch.NewSearchResponse(q, res))
}

func (s *Server) suggest(c echo.Context) error {
	q := wikisearch.SuggestionQuery{
		Query:          c.QueryParam("query"),
		MaxSuggestions: wikisearch.DefaultMaxSuggestions,
	}
	if _, ok := c.QueryParams()["query"]; !ok {
		return unprocessable(errors.Wrap(wikisearch.ErrInvalidQuery, "query is required"))
	}
	if raw := c.QueryParam("max_suggestions"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return unprocessable(errors.Wrapf(wikisearch.ErrInvalidQuery, "max_suggestions must be an integer, got %q", raw))
		}
		q.MaxSuggestions = n
	}
	if err := q.Validate(); err != nil {
		return unprocessable(err)
	}

	return c.JSON(http.StatusOK, s.suggester.Suggest(c.Request().Context(), q))
}

// intParam reads an optional integer query parameter; absent means zero.
func intParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(wikisearch.ErrInvalidQuery, "%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

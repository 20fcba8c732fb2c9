package session

import "github.com/letmevibethatforyou/wikisearch"

// Theme is the display palette.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// Outcome is how the most recent search ended.
type Outcome int

const (
	// OutcomeNone means no search has finished since the last reset.
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	default:
		return "none"
	}
}

// Filters are refinement choices kept for display. They are not sent with
// searches.
type Filters struct {
	TimeRange   string
	ContentType string
	SortBy      string
}

// State is a snapshot of a search session.
type State struct {
	Query    string
	Page     int
	PageSize int
	Total    int64
	// Results carry URLs derived from their titles.
	Results     []wikisearch.SearchResult
	Suggestions []string
	Loading     bool
	APIHealthy  bool
	Outcome     Outcome
	Filters     Filters
	Theme       Theme
}

// TotalPages is the number of pages Total spans at PageSize.
func (s State) TotalPages() int {
	if s.Total <= 0 || s.PageSize <= 0 {
		return 0
	}
	return int((s.Total + int64(s.PageSize) - 1) / int64(s.PageSize))
}

func (s State) clone() State {
	if s.Results != nil {
		s.Results = append([]wikisearch.SearchResult(nil), s.Results...)
	}
	if s.Suggestions != nil {
		s.Suggestions = append([]string(nil), s.Suggestions...)
	}
	return s
}

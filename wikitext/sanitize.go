package wikitext

import (
	"html"
	"log/slog"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/letmevibethatforyou/wikisearch"
)

// HighlightClass is the CSS class given to highlighted search terms.
const HighlightClass = "highlight"

// Sanitizer converts wiki markup into a small, safe subset of HTML.
type Sanitizer struct {
	linkInternal        bool
	linkBase            string
	citationPlaceholder string
	dropExternalLinks   bool
	logger              *slog.Logger

	policy *bluemonday.Policy
	steps  []transform
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithInternalLinks renders [[target|label]] as a hyperlink to the article
// under base instead of bare label text. An empty base selects the default
// encyclopedia.
func WithInternalLinks(base string) Option {
	return func(s *Sanitizer) {
		s.linkInternal = true
		if base != "" {
			s.linkBase = base
		}
	}
}

// WithCitationPlaceholder replaces citation templates with placeholder
// instead of removing them.
func WithCitationPlaceholder(placeholder string) Option {
	return func(s *Sanitizer) {
		s.citationPlaceholder = placeholder
	}
}

// WithoutExternalLinks drops [url label] links entirely instead of keeping
// their label.
func WithoutExternalLinks() Option {
	return func(s *Sanitizer) {
		s.dropExternalLinks = true
	}
}

// WithLogger sets the logger used to report recovered failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sanitizer) {
		s.logger = logger
	}
}

// NewSanitizer creates a Sanitizer. Without options it strips citations,
// renders links as plain text and keeps external link labels.
func NewSanitizer(opts ...Option) *Sanitizer {
	s := &Sanitizer{
		linkBase: wikisearch.ArticleBaseURL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.policy = newPolicy()

	render := plainLink
	if s.linkInternal {
		base := s.linkBase
		render = func(target, label string) string {
			return `<a href="` + html.EscapeString(articleHref(base, target)) + `">` + label + `</a>`
		}
	}

	s.steps = []transform{
		normalizeNewlines,
		stripRefs,
		stripTemplates(s.citationPlaceholder),
		stripTables,
		resolveLinks(render),
		externalLinks(!s.dropExternalLinks),
		stripCitationMarkers,
		emphasisToHTML,
		headingsToHTML,
		marksToHTML,
		paragraphs,
		s.policy.Sanitize,
		strings.TrimSpace,
	}
	return s
}

// newPolicy allows only the elements the pipeline itself produces.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^` + HighlightClass + `$`)).OnElements("span")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.RequireParseableURLs(true)
	p.RequireNoFollowOnLinks(true)
	return p
}

// Sanitize converts raw into minimal HTML. It never panics: on an internal
// failure the original text is returned escaped inside a paragraph.
func (s *Sanitizer) Sanitize(raw string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("wiki markup sanitizer failed, returning original text", "panic", r)
			out = failClosed(raw)
		}
	}()

	out = raw
	for _, step := range s.steps {
		out = step(out)
	}
	return out
}

func failClosed(raw string) string {
	return "<p>" + html.EscapeString(raw) + "</p>"
}

var defaultSanitizer = NewSanitizer()

// Sanitize converts raw into minimal HTML with the default Sanitizer.
func Sanitize(raw string) string {
	return defaultSanitizer.Sanitize(raw)
}

package view

import (
	"fmt"
	"html"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/letmevibethatforyou/wikisearch/session"
	"github.com/letmevibethatforyou/wikisearch/wikitext"
)

// palette holds the colours of one theme.
type palette struct {
	title, url, meta, highlight, warning, featured, muted lipgloss.Color
}

var palettes = map[session.Theme]palette{
	session.ThemeDark: {
		title:     "86",
		url:       "33",
		meta:      "240",
		highlight: "214",
		warning:   "203",
		featured:  "32",
		muted:     "245",
	},
	session.ThemeLight: {
		title:     "25",
		url:       "28",
		meta:      "243",
		highlight: "130",
		warning:   "160",
		featured:  "22",
		muted:     "240",
	},
}

// Renderer draws a Page for a terminal.
type Renderer struct {
	styles map[session.Theme]styles
}

type styles struct {
	header    lipgloss.Style
	title     lipgloss.Style
	url       lipgloss.Style
	meta      lipgloss.Style
	highlight lipgloss.Style
	warning   lipgloss.Style
	featured  lipgloss.Style
	muted     lipgloss.Style
	current   lipgloss.Style
}

// NewRenderer creates a Renderer whose colour support is detected from w.
func NewRenderer(w io.Writer) *Renderer {
	r := lipgloss.NewRenderer(w)
	out := &Renderer{styles: make(map[session.Theme]styles, len(palettes))}
	for theme, p := range palettes {
		out.styles[theme] = styles{
			header:    r.NewStyle().Bold(true).Foreground(p.title).Margin(0, 0, 1, 0),
			title:     r.NewStyle().Bold(true).Foreground(p.title),
			url:       r.NewStyle().Foreground(p.url),
			meta:      r.NewStyle().Foreground(p.meta).Italic(true),
			highlight: r.NewStyle().Bold(true).Foreground(p.highlight),
			warning: r.NewStyle().Bold(true).Foreground(p.warning).
				Border(lipgloss.NormalBorder()).BorderForeground(p.warning).Padding(0, 1),
			featured: r.NewStyle().Border(lipgloss.RoundedBorder()).
				BorderForeground(p.featured).Padding(0, 1),
			muted:   r.NewStyle().Foreground(p.muted).Italic(true),
			current: r.NewStyle().Bold(true).Underline(true).Foreground(p.highlight),
		}
	}
	return out
}

func (r *Renderer) stylesFor(t session.Theme) styles {
	if s, ok := r.styles[t]; ok {
		return s
	}
	return r.styles[session.ThemeDark]
}

// Render draws p.
func (r *Renderer) Render(p Page) string {
	st := r.stylesFor(p.Theme)
	var b strings.Builder

	if p.APIWarning {
		b.WriteString(st.warning.Render("The search service is currently unreachable. Results may be unavailable."))
		b.WriteString("\n\n")
	}

	switch {
	case p.Loading:
		b.WriteString(st.muted.Render(fmt.Sprintf("Searching for %q…", p.Query)))
		b.WriteString("\n")
		return b.String()
	case p.Failed:
		b.WriteString(st.muted.Render(fmt.Sprintf("Search for %q failed. Please try again.", p.Query)))
		b.WriteString("\n")
		return b.String()
	case p.Empty:
		b.WriteString(st.muted.Render(fmt.Sprintf("No results found for %q.", p.Query)))
		b.WriteString("\n")
		r.renderSuggestions(&b, st, p.Suggestions)
		return b.String()
	}

	if p.Query != "" {
		b.WriteString(st.header.Render(fmt.Sprintf("%d results for %q", p.Total, p.Query)))
		b.WriteString("\n")
	}

	for _, res := range p.Results {
		block := r.renderResult(st, res)
		if res.Featured {
			block = st.featured.Render(block)
		}
		b.WriteString(block)
		b.WriteString("\n\n")
	}

	if len(p.Pagination.Pages) > 1 {
		b.WriteString(r.renderPagination(st, p.Pagination))
		b.WriteString("\n")
	}
	r.renderSuggestions(&b, st, p.Suggestions)
	return b.String()
}

func (r *Renderer) renderResult(st styles, res Result) string {
	var b strings.Builder
	b.WriteString(st.title.Render(res.Title))
	b.WriteString("\n")
	b.WriteString(st.url.Render(res.DisplayURL))
	b.WriteString("\n")
	if text := Terminal(res.SnippetHTML, st.highlight); text != "" {
		b.WriteString(text)
		b.WriteString("\n")
	}

	var meta []string
	if res.Contributor != "" {
		meta = append(meta, "by "+res.Contributor)
	}
	if res.Timestamp != "" {
		meta = append(meta, res.Timestamp)
	}
	if len(meta) > 0 {
		b.WriteString(st.meta.Render(strings.Join(meta, " · ")))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Renderer) renderPagination(st styles, p Pagination) string {
	parts := make([]string, 0, len(p.Pages)+2)
	if p.HasPrev() {
		parts = append(parts, st.muted.Render("‹ prev"))
	}
	for _, n := range p.Pages {
		label := strconv.Itoa(n)
		if n == p.Current {
			label = st.current.Render(label)
		}
		parts = append(parts, label)
	}
	if p.HasNext() {
		parts = append(parts, st.muted.Render("next ›"))
	}
	return strings.Join(parts, "  ")
}

func (r *Renderer) renderSuggestions(b *strings.Builder, st styles, suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	b.WriteString(st.muted.Render("Did you mean: " + strings.Join(suggestions, ", ")))
	b.WriteString("\n")
}

var (
	reHighlightSpan = regexp.MustCompile(`(?s)<span class="` + wikitext.HighlightClass + `">(.*?)</span>`)
	reBlockEnd      = regexp.MustCompile(`</p>\s*|<br\s*/?>`)
	reAnyTag        = regexp.MustCompile(`<[^>]*>`)
)

// Terminal reduces sanitized snippet HTML to terminal text. Highlight spans
// are drawn with highlight; every other tag is dropped.
func Terminal(snippetHTML string, highlight lipgloss.Style) string {
	src := reBlockEnd.ReplaceAllString(snippetHTML, "\n")
	plain := func(s string) string {
		return html.UnescapeString(reAnyTag.ReplaceAllString(s, ""))
	}

	var b strings.Builder
	last := 0
	for _, m := range reHighlightSpan.FindAllStringSubmatchIndex(src, -1) {
		b.WriteString(plain(src[last:m[0]]))
		b.WriteString(highlight.Render(plain(src[m[2]:m[3]])))
		last = m[1]
	}
	b.WriteString(plain(src[last:]))
	return strings.TrimSpace(b.String())
}

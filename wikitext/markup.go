// Package wikitext turns lightweight wiki markup into display HTML or plain
// text and picks readable sentences out of article bodies.
//
// Both the HTML sanitizer and the plain-text cleaner are ordered pipelines of
// small string transforms. The order is significant: references go before
// templates, templates before tables, and links are resolved
// before bare bracket markers are removed.
package wikitext

import (
	"net/url"
	"regexp"
	"strings"
)

// transform is one step of a markup pipeline.
type transform func(string) string

// maxNestingPasses bounds the innermost-first passes over nested links.
const maxNestingPasses = 16

var (
	reRefSelfClosing = regexp.MustCompile(`(?i)<ref\b[^>]*/>`)
	reRefBlock       = regexp.MustCompile(`(?is)<ref\b[^>]*>.*?</ref\s*>`)
	reCiteTemplate   = regexp.MustCompile(`(?i)^\{\{\s*cite\b`)
	reTable          = regexp.MustCompile(`(?s)\{\|.*?\|\}`)
	rePipedLink      = regexp.MustCompile(`\[\[([^\[\]|]*)\|([^\[\]]*)\]\]`)
	reLink           = regexp.MustCompile(`\[\[([^\[\]|]+)\]\]`)
	reLabeledExtLink = regexp.MustCompile(`\[((?:https?:)?//[^\s\]]+)\s+([^\]]*)\]`)
	reBareExtLink    = regexp.MustCompile(`\[(?:https?:)?//[^\s\]]*\]`)
	reCitationMarker = regexp.MustCompile(`\[\d+\]`)
	reBoldItalic     = regexp.MustCompile(`'''''(.+?)'''''`)
	reBold           = regexp.MustCompile(`'''(.+?)'''`)
	reItalic         = regexp.MustCompile(`''(.+?)''`)
	reHeading        = regexp.MustCompile(`(?m)^[ \t]*={2,6}[ \t]*(.+?)[ \t]*={2,6}[ \t]*$`)
	reMark           = regexp.MustCompile(`(?is)<mark>(.*?)</mark>`)
	reHTMLTag        = regexp.MustCompile(`<[^>]+>`)
	reBlankLines     = regexp.MustCompile(`\n[ \t]*\n\s*`)
	reWhitespace     = regexp.MustCompile(`\s+`)
)

// mediaNamespaces are link targets that embed media rather than point at an
// article; they are dropped together with their caption.
var mediaNamespaces = []string{"file:", "image:", "media:", "category:"}

func isMediaTarget(target string) bool {
	t := strings.ToLower(strings.TrimSpace(target))
	t = strings.TrimPrefix(t, ":")
	for _, ns := range mediaNamespaces {
		if strings.HasPrefix(t, ns) {
			return true
		}
	}
	return false
}

// untilStable applies step repeatedly until the text stops changing.
func untilStable(s string, step transform) string {
	for i := 0; i < maxNestingPasses; i++ {
		next := step(s)
		if next == s {
			return next
		}
		s = next
	}
	return s
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

func stripRefs(s string) string {
	s = reRefSelfClosing.ReplaceAllString(s, "")
	return reRefBlock.ReplaceAllString(s, "")
}

// stripTemplates removes every balanced {{...}} span, however deeply nested.
// Tables and single braces inside a template are matched as part of it. An
// outermost citation template is replaced by placeholder. An opening {{
// without a matching close is left in place.
func stripTemplates(placeholder string) transform {
	return func(s string) string {
		if !strings.Contains(s, "{{") {
			return s
		}
		var b strings.Builder
		b.Grow(len(s))
		for i := 0; i < len(s); {
			if !strings.HasPrefix(s[i:], "{{") {
				b.WriteByte(s[i])
				i++
				continue
			}
			end := templateEnd(s, i)
			if end < 0 {
				b.WriteString("{{")
				i += 2
				continue
			}
			if reCiteTemplate.MatchString(s[i:end]) {
				b.WriteString(placeholder)
			}
			i = end
		}
		return b.String()
	}
}

// Openers tracked by templateEnd.
const (
	openTemplate = iota
	openTable
	openBrace
)

// templateEnd returns the index just past the template opening at start, or
// -1 when it is never closed.
func templateEnd(s string, start int) int {
	stack := []int{openTemplate}
	for i := start + 2; i < len(s); {
		top := stack[len(stack)-1]
		switch {
		case strings.HasPrefix(s[i:], "{{"):
			stack = append(stack, openTemplate)
			i += 2
		case strings.HasPrefix(s[i:], "{|"):
			stack = append(stack, openTable)
			i += 2
		case s[i] == '{':
			stack = append(stack, openBrace)
			i++
		case top == openTable && strings.HasPrefix(s[i:], "|}"):
			stack = stack[:len(stack)-1]
			i += 2
		case top == openBrace && s[i] == '}':
			stack = stack[:len(stack)-1]
			i++
		case top == openTemplate && strings.HasPrefix(s[i:], "}}"):
			stack = stack[:len(stack)-1]
			i += 2
			if len(stack) == 0 {
				return i
			}
		default:
			i++
		}
	}
	return -1
}

func stripTables(s string) string {
	return reTable.ReplaceAllString(s, "")
}

// resolveLinks rewrites internal links innermost first. render receives the
// link target and its visible label.
func resolveLinks(render func(target, label string) string) transform {
	return func(s string) string {
		return untilStable(s, func(s string) string {
			s = rePipedLink.ReplaceAllStringFunc(s, func(m string) string {
				sub := rePipedLink.FindStringSubmatch(m)
				if isMediaTarget(sub[1]) {
					return ""
				}
				label := strings.TrimSpace(sub[2])
				if label == "" {
					label = strings.TrimSpace(sub[1])
				}
				return render(strings.TrimSpace(sub[1]), label)
			})
			return reLink.ReplaceAllStringFunc(s, func(m string) string {
				sub := reLink.FindStringSubmatch(m)
				if isMediaTarget(sub[1]) {
					return ""
				}
				target := strings.TrimSpace(strings.TrimPrefix(sub[1], ":"))
				return render(target, target)
			})
		})
	}
}

func plainLink(_, label string) string { return label }

// externalLinks keeps the label of [url label] links, or drops them. Bare
// [url] links are always dropped.
func externalLinks(keepLabel bool) transform {
	return func(s string) string {
		if keepLabel {
			s = reLabeledExtLink.ReplaceAllString(s, "$2")
		} else {
			s = reLabeledExtLink.ReplaceAllString(s, "")
		}
		return reBareExtLink.ReplaceAllString(s, "")
	}
}

func stripCitationMarkers(s string) string {
	return reCitationMarker.ReplaceAllString(s, "")
}

func emphasisToHTML(s string) string {
	s = reBoldItalic.ReplaceAllString(s, "<strong><em>$1</em></strong>")
	s = reBold.ReplaceAllString(s, "<strong>$1</strong>")
	return reItalic.ReplaceAllString(s, "<em>$1</em>")
}

func stripEmphasis(s string) string {
	s = reBoldItalic.ReplaceAllString(s, "$1")
	s = reBold.ReplaceAllString(s, "$1")
	return reItalic.ReplaceAllString(s, "$1")
}

func headingsToHTML(s string) string {
	return reHeading.ReplaceAllString(s, "\n\n<strong>$1</strong>\n\n")
}

func stripHeadings(s string) string {
	return reHeading.ReplaceAllString(s, "$1")
}

func marksToHTML(s string) string {
	return reMark.ReplaceAllString(s, `<span class="highlight">$1</span>`)
}

func stripHTMLTags(s string) string {
	return reHTMLTag.ReplaceAllString(s, "")
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// paragraphs turns blank-line separated blocks into <p> elements. Single line
// breaks inside a block are folded into spaces.
func paragraphs(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "<p>") && strings.HasSuffix(s, "</p>") && !reBlankLines.MatchString(s) {
		return s
	}

	blocks := reBlankLines.Split(s, -1)
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		b = collapseWhitespace(b)
		if b == "" {
			continue
		}
		out = append(out, "<p>"+b+"</p>")
	}
	return strings.Join(out, "\n")
}

// articleHref builds the link to an article under base.
func articleHref(base, target string) string {
	return base + url.PathEscape(strings.ReplaceAll(strings.TrimSpace(target), " ", "_"))
}

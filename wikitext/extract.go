package wikitext

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Thresholds a candidate sentence has to meet to count as readable prose.
const (
	MinSentenceLength   = 20
	MinLetterRatio      = 0.6
	MaxMarkupChars      = 3
	MaxNumberSymbolRate = 0.3
)

const markupChars = "{}[]()=|*#:;"

var (
	reSentenceEnd = regexp.MustCompile(`[.!?]+`)
	reCodeLike    = regexp.MustCompile(`^[A-Z_]+\s*[:=]`)
	reNumbered    = regexp.MustCompile(`^\d+\s*[.:)]`)
	reBullet      = regexp.MustCompile(`^[*#•\-]\s`)
	reTitleWord   = regexp.MustCompile(`\b[A-Za-z]{3,}\b`)
	reProperNoun  = regexp.MustCompile(`\b[A-Z][a-z]{2,}\b`)
	reLongWord    = regexp.MustCompile(`\b[a-zA-Z]{4,}\b`)
)

// stopWords are common English function words; prose almost always contains
// at least one, leftover markup rarely does.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an the and or but if of to in on at by for from with
		as into onto over under about after before between through during is are was were be
		been being has have had do does did it its this that these those which who whom whose
		he she they we his her their our not no can could will would may might also than then
		there such`) {
		stopWords[w] = struct{}{}
	}
}

var plainSteps = []transform{
	normalizeNewlines,
	stripRefs,
	stripTemplates(""),
	stripTables,
	resolveLinks(plainLink),
	externalLinks(true),
	stripCitationMarkers,
	stripEmphasis,
	stripHeadings,
	stripHTMLTags,
	collapseWhitespace,
}

// Clean strips wiki markup and HTML from raw and collapses whitespace,
// producing plain text fit for indexing.
func Clean(raw string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("wiki markup cleaner failed, returning original text", "panic", r)
			out = raw
		}
	}()

	out = raw
	for _, step := range plainSteps {
		out = step(out)
	}
	return out
}

// Sentences splits plain text on runs of terminal punctuation and returns the
// trimmed, non-empty candidates.
func Sentences(text string) []string {
	parts := reSentenceEnd.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsReadable reports whether sentence looks like prose rather than leftover
// markup, code or numeric noise. Every check has to pass.
func IsReadable(sentence string) bool {
	s := strings.TrimSpace(sentence)
	n := utf8.RuneCountInString(s)
	if n < MinSentenceLength {
		return false
	}

	var letters, markup, numSym int
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r), unicode.IsPunct(r), unicode.IsSymbol(r):
			numSym++
		}
		if strings.ContainsRune(markupChars, r) {
			markup++
		}
	}

	if float64(letters)/float64(n) < MinLetterRatio {
		return false
	}
	if markup > MaxMarkupChars {
		return false
	}
	if float64(numSym) > MaxNumberSymbolRate*float64(n) {
		return false
	}
	if reCodeLike.MatchString(s) || reNumbered.MatchString(s) || reBullet.MatchString(s) {
		return false
	}
	return hasStopWord(s)
}

func hasStopWord(s string) bool {
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) })
		if _, ok := stopWords[w]; ok {
			return true
		}
	}
	return false
}

// Summarize returns the first n readable sentences of raw, markup removed,
// joined by ". " and terminated by a single period. When nothing qualifies the
// result is just ".". On an internal failure raw is returned unchanged.
func Summarize(raw string, n int) (out string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("sentence extraction failed, returning original text", "panic", r)
			out = raw
		}
	}()

	picked := make([]string, 0, max(n, 0))
	for _, s := range Sentences(Clean(raw)) {
		if len(picked) >= n {
			break
		}
		if IsReadable(s) {
			picked = append(picked, s)
		}
	}
	return strings.TrimRight(strings.Join(picked, ". "), ".") + "."
}

// CountSentences counts sentence candidates longer than ten characters.
func CountSentences(text string) int {
	count := 0
	for _, s := range Sentences(text) {
		if utf8.RuneCountInString(s) > 10 {
			count++
		}
	}
	return count
}

// Excerpt collects leading sentences of plain text until maxLen characters
// would be exceeded. Short, code-like and numbered fragments are skipped. When
// no sentence qualifies the first maxLen characters are returned.
func Excerpt(text string, maxLen int) string {
	if text == "" {
		return ""
	}

	var picked []string
	length := 0
	for _, s := range Sentences(text) {
		n := utf8.RuneCountInString(s)
		if n < MinSentenceLength || reCodeLike.MatchString(s) || reNumbered.MatchString(s) {
			continue
		}
		if length+n > maxLen {
			break
		}
		picked = append(picked, s)
		length += n
	}

	if len(picked) == 0 {
		return prefix(text, maxLen)
	}
	return strings.Join(picked, ". ") + "."
}

// Keywords gathers title words, capitalised words and words repeated in text.
// The result is lower-cased, deduplicated and sorted.
func Keywords(text, title string) []string {
	set := make(map[string]struct{})

	for _, w := range reTitleWord.FindAllString(strings.ToLower(title), -1) {
		set[w] = struct{}{}
	}
	for _, w := range reProperNoun.FindAllString(text, -1) {
		set[strings.ToLower(w)] = struct{}{}
	}

	freq := make(map[string]int)
	var order []string
	for _, w := range reLongWord.FindAllString(strings.ToLower(text), -1) {
		if freq[w] == 0 {
			order = append(order, w)
		}
		freq[w]++
	}
	frequent := 0
	for _, w := range order {
		if frequent == 20 {
			break
		}
		if freq[w] > 1 {
			set[w] = struct{}{}
			frequent++
		}
	}

	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

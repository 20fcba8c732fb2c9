package inmemory

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// fragmentSize is the length in runes of a highlighted text fragment.
	fragmentSize = 150
	// fragmentLead is how many runes of context precede the first hit.
	fragmentLead = 40

	maxSuggestions  = 5
	maxEditDistance = 2
)

// highlightDocument wraps query terms in the title (whole value) and in one
// fragment of the text around the first hit.
func highlightDocument(doc Document, terms []string, pre, post string) map[string][]string {
	re := termPattern(terms)
	if re == nil {
		return nil
	}

	out := make(map[string][]string)
	if title, ok := doc.Fields["title"].(string); ok && re.MatchString(title) {
		out["title"] = []string{wrap(re, title, pre, post)}
	}
	if text, ok := doc.Fields["text"].(string); ok {
		if loc := re.FindStringIndex(text); loc != nil {
			out["text"] = []string{wrap(re, fragment(text, loc[0]), pre, post)}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// termPattern matches any of terms case-insensitively, longest first.
func termPattern(terms []string) *regexp.Regexp {
	if len(terms) == 0 {
		return nil
	}
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	sort.Slice(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}

func wrap(re *regexp.Regexp, s, pre, post string) string {
	return re.ReplaceAllStringFunc(s, func(m string) string {
		return pre + m + post
	})
}

// fragment cuts fragmentSize runes out of text, starting a little before the
// byte offset hit.
func fragment(text string, hit int) string {
	runes := []rune(text)
	if len(runes) <= fragmentSize {
		return text
	}
	start := max(utf8.RuneCountInString(text[:hit])-fragmentLead, 0)
	end := min(start+fragmentSize, len(runes))
	if end-start < fragmentSize {
		start = max(end-fragmentSize, 0)
	}
	return strings.TrimSpace(string(runes[start:end]))
}

// suggestTerms proposes title words close to query terms that do not occur in
// any title. Callers hold the read lock.
func (s *Searcher) suggestTerms(terms []string) []string {
	if len(terms) == 0 {
		return nil
	}

	vocab := make(map[string]int)
	for _, doc := range s.documents {
		title, _ := doc.Fields["title"].(string)
		for _, w := range strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			if utf8.RuneCountInString(w) >= 3 {
				vocab[w]++
			}
		}
	}

	var out []string
	seen := make(map[string]bool)
	for _, term := range terms {
		if _, known := vocab[term]; known || utf8.RuneCountInString(term) < 3 {
			continue
		}
		best, bestFreq, bestDist := "", 0, maxEditDistance+1
		for w, freq := range vocab {
			d := editDistance(term, w)
			if d > maxEditDistance {
				continue
			}
			if d < bestDist || (d == bestDist && (freq > bestFreq || (freq == bestFreq && w < best))) {
				best, bestFreq, bestDist = w, freq, d
			}
		}
		if best != "" && !seen[best] {
			seen[best] = true
			out = append(out, best)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}

// editDistance is the Levenshtein distance between a and b in runes.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

package wikitext

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bold and italic",
			input:    "'''Cat''' is a ''small'' animal.",
			expected: "<p><strong>Cat</strong> is a <em>small</em> animal.</p>",
		},
		{
			name:     "highlight marks",
			input:    "The <mark>cat</mark> sat",
			expected: `<p>The <span class="highlight">cat</span> sat</p>`,
		},
		{
			name:     "internal links as text",
			input:    "See [[Felis catus|domestic cat]] and [[Dog]].",
			expected: "<p>See domestic cat and Dog.</p>",
		},
		{
			name:     "citation and generic templates",
			input:    "Cats purr.{{Cite web|url=x|title=y}} They sleep{{citation needed}}.",
			expected: "<p>Cats purr. They sleep.</p>",
		},
		{
			name:     "references and markers",
			input:    `Water boils.<ref name="a">Some book</ref> Ice melts.<ref name="b"/>[3]`,
			expected: "<p>Water boils. Ice melts.</p>",
		},
		{
			name:     "tables split paragraphs",
			input:    "Intro\n{| class=\"wikitable\"\n|-\n| a || b\n|}\nOutro",
			expected: "<p>Intro</p>\n<p>Outro</p>",
		},
		{
			name:     "external links keep labels",
			input:    "Visit [https://example.org the site] or [https://example.com].",
			expected: "<p>Visit the site or .</p>",
		},
		{
			name:     "headings",
			input:    "== History ==\nCats were domesticated.",
			expected: "<p><strong>History</strong></p>\n<p>Cats were domesticated.</p>",
		},
		{
			name:     "single newlines fold",
			input:    "first line\nsecond line",
			expected: "<p>first line second line</p>",
		},
		{
			name:     "already wrapped",
			input:    "<p>already done</p>",
			expected: "<p>already done</p>",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			if got != tt.expected {
				t.Errorf("Sanitize(%q)\n got: %q\nwant: %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeLeavesNoMarkup(t *testing.T) {
	inputs := []string{
		"{{Infobox|name={{lang|fr|Chat}}}} [[File:Cat.jpg|thumb|A [[cat]]]] Text<ref>x</ref>",
		"{{Cite book|title=Cats}}{{cite web|url=http://x}} [[a|b]] [[c]] <ref group=\"n\">note</ref>",
		"Deep {{a|{{b|{{c|{{d}}}}}}}} nesting [[Category:Felines]] done",
		"'''[[Cat]]''' is a [[mammal|''mammal'']].<ref>[[Source]]</ref>",
		"Intro {{Infobox|data={| class=x\n| a\n|}}} cats are small animals.",
		"The {{math|f(x) = {x}}} function is here.",
		"Deep " + strings.Repeat("{{a|", 20) + strings.Repeat("}}", 20) + " end.",
	}

	for _, input := range inputs {
		got := Sanitize(input)
		for _, residue := range []string{"{{", "[[", "<ref"} {
			if strings.Contains(got, residue) {
				t.Errorf("Sanitize(%q) = %q still contains %q", input, got, residue)
			}
		}
	}
}

func TestStripTemplates(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"table argument", "Intro {{Infobox|data={| class=x\n| a\n|}}} cats", "Intro  cats"},
		{"single braces", "The {{math|f(x) = {x}}} function", "The  function"},
		{"triple braces", "A {{{param|default}}} B", "A  B"},
		{"deep nesting", "Deep " + strings.Repeat("{{a|", 20) + strings.Repeat("}}", 20) + " end", "Deep  end"},
		{"citation", "Purr.{{Cite web|title={{lang|en|x}}}} Sleep.", "Purr.[c] Sleep."},
		{"unclosed", "Open {{a|b {{c}} tail", "Open {{a|b  tail"},
		{"no templates", "Plain {text} here", "Plain {text} here"},
	}

	step := stripTemplates("[c]")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := step(tt.input); got != tt.want {
				t.Errorf("stripTemplates(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeComplexTemplates(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Intro {{Infobox|data={| class=x\n| a\n|}}} cats are small animals.", "<p>Intro cats are small animals.</p>"},
		{"The {{math|f(x) = {x}}} function is here.", "<p>The function is here.</p>"},
		{"Deep " + strings.Repeat("{{a|", 17) + strings.Repeat("}}", 17) + " end.", "<p>Deep end.</p>"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.input); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
	if got := Clean("The {{math|f(x) = {x}}} function is here."); got != "The function is here." {
		t.Errorf("Clean() = %q", got)
	}
}

func TestSanitizeOptions(t *testing.T) {
	t.Run("internal links", func(t *testing.T) {
		s := NewSanitizer(WithInternalLinks(""))
		got := s.Sanitize("A [[Felis catus|cat]] sat.")
		if !strings.Contains(got, `href="https://en.wikipedia.org/wiki/Felis_catus"`) {
			t.Errorf("expected article link, got %q", got)
		}
		if !strings.Contains(got, ">cat</a>") {
			t.Errorf("expected link label, got %q", got)
		}
	})

	t.Run("custom link base", func(t *testing.T) {
		s := NewSanitizer(WithInternalLinks("https://wiki.example.org/w/"))
		got := s.Sanitize("[[Dog]]")
		if !strings.Contains(got, `href="https://wiki.example.org/w/Dog"`) {
			t.Errorf("expected custom base, got %q", got)
		}
	})

	t.Run("citation placeholder", func(t *testing.T) {
		s := NewSanitizer(WithCitationPlaceholder("[citation]"))
		got := s.Sanitize("Cats purr.{{cite journal|title=x}}")
		if got != "<p>Cats purr.[citation]</p>" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("drop external links", func(t *testing.T) {
		s := NewSanitizer(WithoutExternalLinks())
		got := s.Sanitize("Visit [https://example.org the site] today")
		if got != "<p>Visit today</p>" {
			t.Errorf("unexpected output %q", got)
		}
	})
}

func TestSanitizeStripsUnsafeHTML(t *testing.T) {
	got := Sanitize(`Hello <script>alert(1)</script>world <div onclick="x()">there</div>`)
	if strings.Contains(got, "script") || strings.Contains(got, "onclick") || strings.Contains(got, "<div") {
		t.Errorf("unsafe HTML survived: %q", got)
	}
	if !strings.Contains(got, "there") {
		t.Errorf("text content was lost: %q", got)
	}
}

func TestFailClosed(t *testing.T) {
	got := failClosed("<b>x & y")
	want := "<p>&lt;b&gt;x &amp; y</p>"
	if got != want {
		t.Errorf("failClosed = %q, want %q", got, want)
	}
}

func TestSanitizeRecoversFromPanickingStep(t *testing.T) {
	s := NewSanitizer()
	s.steps = append([]transform{func(string) string { panic("boom") }}, s.steps...)

	got := s.Sanitize("plain <text>")
	if got != "<p>plain &lt;text&gt;</p>" {
		t.Errorf("expected fail-closed output, got %q", got)
	}
}

func TestIsMediaTarget(t *testing.T) {
	tests := map[string]bool{
		"File:Cat.jpg":      true,
		"image:Dog.png":     true,
		":Category:Felines": true,
		"Cat":               false,
		"Filet mignon":      false,
	}
	for target, want := range tests {
		if got := isMediaTarget(target); got != want {
			t.Errorf("isMediaTarget(%q) = %v, want %v", target, got, want)
		}
	}
}

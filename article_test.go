package wikisearch

import (
	"testing"
	"time"
)

func TestArticleURL(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Cat", ArticleBaseURL + "Cat"},
		{"Albert Einstein", ArticleBaseURL + "Albert_Einstein"},
		{"  Padded  ", ArticleBaseURL + "Padded"},
		{"AC/DC", ArticleBaseURL + "AC%2FDC"},
		{"Café", ArticleBaseURL + "Caf%C3%A9"},
		{"What?", ArticleBaseURL + "What%3F"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := ArticleURL(tt.title); got != tt.want {
			t.Errorf("ArticleURL(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestArticleFields(t *testing.T) {
	a := Article{
		ID:            "42",
		Title:         "Cat",
		ContentType:   ContentTypeArticle,
		Text:          "The cat is a small mammal.",
		Keywords:      []string{"cat", "mammal"},
		SentenceCount: 1,
		QualityScore:  1,
		HasContent:    false,
		IndexedAt:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		URL:           ArticleURL("Cat"),
	}

	fields, err := a.Fields()
	if err != nil {
		t.Fatalf("Fields() error = %v", err)
	}
	if fields["id"] != "42" || fields["content_type"] != "article" || fields["sentence_count"] != float64(1) {
		t.Errorf("Fields() = %v", fields)
	}
	if fields["indexed_at"] != "2024-01-02T03:04:05Z" {
		t.Errorf("indexed_at = %v", fields["indexed_at"])
	}

	back, err := ArticleFromFields(fields)
	if err != nil {
		t.Fatalf("ArticleFromFields() error = %v", err)
	}
	if back.ID != a.ID || back.Title != a.Title || !back.IndexedAt.Equal(a.IndexedAt) || len(back.Keywords) != 2 {
		t.Errorf("ArticleFromFields() = %+v", back)
	}
}

func TestArticleFromFieldsIgnoresUnknown(t *testing.T) {
	a, err := ArticleFromFields(map[string]interface{}{
		"id":       "7",
		"title":    "Dog",
		"objectID": "7",
		"_extra":   true,
	})
	if err != nil {
		t.Fatalf("ArticleFromFields() error = %v", err)
	}
	if a.ID != "7" || a.Title != "Dog" {
		t.Errorf("ArticleFromFields() = %+v", a)
	}

	if _, err := ArticleFromFields(map[string]interface{}{"sentence_count": "many"}); err == nil {
		t.Error("expected an error for a mistyped field")
	}
}

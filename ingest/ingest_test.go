package ingest

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/wikisearch"
	"github.com/letmevibethatforyou/wikisearch/inmemory"
)

const catMarkup = `The '''domestic cat''' is a small [[carnivore|carnivorous]] mammal.{{cite web|url=x}} ` +
	`It is the only domesticated species in the family [[Felidae]]. ` +
	`Cats are valued by humans for companionship and for hunting vermin. ` +
	`The cat is similar in anatomy to the other felid species. ` +
	`It has a strong flexible body and quick reflexes. ` +
	`Cat communication includes vocalizations such as meowing and purring. ` +
	`Cats are kept as pets in many households around the world.`

func page(id, title, ns, text string) string {
	return `<page><title>` + title + `</title><ns>` + ns + `</ns><id>` + id + `</id>` +
		`<revision><id>r` + id + `</id><timestamp>2024-03-05T10:00:00Z</timestamp>` +
		`<contributor><username>Felix</username><id>7</id></contributor>` +
		`<text xml:space="preserve">` + text + `</text></revision></page>`
}

func dump(pages ...string) string {
	return `<mediawiki xmlns="http://www.mediawiki.org/xml/export-0.11/" version="0.11">` +
		`<siteinfo><sitename>Wikipedia</sitename></siteinfo>` +
		strings.Join(pages, "") + `</mediawiki>`
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDumpReader(t *testing.T) {
	src := dump(
		page("1", "Domestic cat", "0", catMarkup),
		`<page><title>Kitty</title><ns>0</ns><id>2</id><redirect title="Domestic cat" /><revision><text>#REDIRECT [[Domestic cat]]</text></revision></page>`,
	)

	r := NewDumpReader(strings.NewReader(src), WithReaderLogger(quiet()))
	var got []Page
	for p := range r.Pages() {
		got = append(got, p)
	}
	if r.Err() != nil {
		t.Fatalf("unexpected error: %v", r.Err())
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(got))
	}
	first := got[0]
	if first.Title != "Domestic cat" || first.ID != "1" || first.Revision.Contributor.Username != "Felix" {
		t.Errorf("unexpected first page %+v", first)
	}
	if !strings.Contains(first.Revision.Text, "'''domestic cat'''") {
		t.Errorf("raw text not decoded: %q", first.Revision.Text)
	}
	if got[1].RedirectTitle() != "Domestic cat" || first.RedirectTitle() != "" {
		t.Errorf("redirects = %q, %q", first.RedirectTitle(), got[1].RedirectTitle())
	}
}

func TestDumpReaderTruncated(t *testing.T) {
	full := dump(page("1", "Domestic cat", "0", catMarkup), page("2", "Dog", "0", "The dog is a domesticated descendant of the wolf."))
	cut := full[:strings.Index(full, "<title>Dog")+8]

	r := NewDumpReader(strings.NewReader(cut), WithReaderLogger(quiet()))
	var titles []string
	for p := range r.Pages() {
		titles = append(titles, p.Title)
	}
	if !slices.Equal(titles, []string{"Domestic cat"}) {
		t.Errorf("titles = %v", titles)
	}
	if r.Err() == nil {
		t.Error("expected a parse error for a truncated export")
	}
	if _, ok := r.Next(); ok {
		t.Error("reader continued after an error")
	}
}

func TestBuildArticle(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	r := NewDumpReader(strings.NewReader(dump(page("42", "Domestic cat", "0", catMarkup))))
	p, ok := r.Next()
	if !ok {
		t.Fatal("no page decoded")
	}

	a := BuildArticle(p, now)
	if a.ID != "42" || a.RevisionID != "r42" || a.ContributorUsername != "Felix" || a.ContributorID != "7" {
		t.Errorf("metadata not carried: %+v", a)
	}
	if strings.ContainsAny(a.Text, "[]{}'") {
		t.Errorf("markup left in text: %q", a.Text)
	}
	if !strings.HasPrefix(a.Text, "The domestic cat is a small carnivorous mammal.") {
		t.Errorf("Text = %q", a.Text)
	}
	if a.RawText != catMarkup {
		t.Error("raw text not kept")
	}
	if a.SentenceCount != 7 || a.QualityScore != 3.5 || !a.IsSubstantial || !a.HasContent {
		t.Errorf("quality fields = %d %v %v %v", a.SentenceCount, a.QualityScore, a.IsSubstantial, a.HasContent)
	}
	if a.ContentType != wikisearch.ContentTypeArticle {
		t.Errorf("ContentType = %q", a.ContentType)
	}
	if !slices.Equal(a.TitleKeywords, []string{"domestic", "cat"}) {
		t.Errorf("TitleKeywords = %v", a.TitleKeywords)
	}
	if !slices.Contains(a.Keywords, "felidae") || !slices.Contains(a.Keywords, "domestic") {
		t.Errorf("Keywords = %v", a.Keywords)
	}
	if a.URL != wikisearch.ArticleBaseURL+"Domestic_cat" {
		t.Errorf("URL = %q", a.URL)
	}
	if !a.IndexedAt.Equal(now) || a.IndexedAt.Location() != time.UTC {
		t.Errorf("IndexedAt = %v", a.IndexedAt)
	}
	if a.TextLength != len([]rune(a.Text)) {
		t.Errorf("TextLength = %d", a.TextLength)
	}
	if !strings.HasPrefix(a.Summary, "The domestic cat is a small carnivorous mammal") {
		t.Errorf("Summary = %q", a.Summary)
	}
}

func TestBuildArticleContentType(t *testing.T) {
	tests := []struct {
		ns       string
		redirect string
		want     string
	}{
		{"0", "", wikisearch.ContentTypeArticle},
		{"1", "", wikisearch.ContentTypeTalk},
		{"6", "", wikisearch.ContentTypeFile},
		{"14", "", wikisearch.ContentTypeCategory},
		{"0", "Cat", wikisearch.ContentTypeRedirect},
		{"1", "Cat", wikisearch.ContentTypeTalk},
	}

	for _, tt := range tests {
		p := Page{Title: "X", NS: tt.ns, ID: "1"}
		if tt.redirect != "" {
			p.Redirect = &Redirect{Title: tt.redirect}
		}
		if got := BuildArticle(p, time.Now()).ContentType; got != tt.want {
			t.Errorf("ns=%s redirect=%q: got %q, want %q", tt.ns, tt.redirect, got, tt.want)
		}
	}
}

func TestBuildArticleWithoutID(t *testing.T) {
	a := BuildArticle(Page{Title: "Anonymous"}, time.Now())
	b := BuildArticle(Page{Title: "Anonymous"}, time.Now())
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct generated ids, got %q and %q", a.ID, b.ID)
	}
}

func TestQualityScore(t *testing.T) {
	tests := map[int]float64{0: 1, 1: 1, 2: 1, 3: 1.5, 10: 5, 20: 10, 50: 10}
	for n, want := range tests {
		if got := QualityScore(n); got != want {
			t.Errorf("QualityScore(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestIndexable(t *testing.T) {
	base := wikisearch.Article{HasContent: true, ContentType: wikisearch.ContentTypeArticle}
	if !Indexable(base) {
		t.Error("expected a plain article with content to be indexable")
	}

	short := base
	short.HasContent = false
	talk := base
	talk.ContentType = wikisearch.ContentTypeTalk
	redirect := base
	redirect.Redirect = "Cat"

	for name, a := range map[string]wikisearch.Article{"short": short, "talk": talk, "redirect": redirect} {
		if Indexable(a) {
			t.Errorf("%s should not be indexable", name)
		}
	}
}

func TestRefresh(t *testing.T) {
	now := time.Now()
	stored := wikisearch.Article{ID: "1", Title: "Domestic cat", NS: "0", RawText: catMarkup, Text: "stale"}

	got := Refresh(stored, now)
	if got.Text == "stale" || got.SentenceCount != 7 || got.ID != "1" {
		t.Errorf("Refresh did not re-derive text: %+v", got)
	}

	plain := wikisearch.Article{ID: "2", Title: "Dog", Text: "kept"}
	if Refresh(plain, now).Text != "kept" {
		t.Error("article without raw text was changed")
	}
}

type recordingSink struct {
	mu      sync.Mutex
	batches [][]string
	failOn  int
}

func (s *recordingSink) SaveArticles(ctx context.Context, articles []wikisearch.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}
	s.batches = append(s.batches, ids)
	if len(s.batches) == s.failOn {
		return errors.New("bulk rejected")
	}
	return nil
}

func articles(n int) []wikisearch.Article {
	out := make([]wikisearch.Article, n)
	for i := range out {
		out[i] = wikisearch.Article{ID: string(rune('a' + i)), Title: "T"}
	}
	return out
}

func TestUploader(t *testing.T) {
	t.Run("batches and remainder", func(t *testing.T) {
		sink := &recordingSink{}
		u := NewUploader(sink, WithBatchSize(3), WithUploaderLogger(quiet()))

		stats, err := u.Upload(context.Background(), slices.Values(articles(7)))
		if err != nil {
			t.Fatal(err)
		}
		if stats != (Stats{Processed: 7, Uploaded: 7}) {
			t.Errorf("stats = %+v", stats)
		}
		want := [][]string{{"a", "b", "c"}, {"d", "e", "f"}, {"g"}}
		if !slices.EqualFunc(sink.batches, want, slices.Equal[[]string]) {
			t.Errorf("batches = %v", sink.batches)
		}
	})

	t.Run("failed batch is counted and skipped", func(t *testing.T) {
		sink := &recordingSink{failOn: 2}
		u := NewUploader(sink, WithBatchSize(2), WithUploaderLogger(quiet()))

		stats, err := u.Upload(context.Background(), slices.Values(articles(5)))
		if err != nil {
			t.Fatal(err)
		}
		if stats != (Stats{Processed: 5, Uploaded: 3, Failed: 2}) {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		u := NewUploader(&recordingSink{}, WithUploaderLogger(quiet()))

		_, err := u.Upload(ctx, slices.Values(articles(2)))
		if !errors.Is(err, wikisearch.ErrCanceled) {
			t.Errorf("expected ErrCanceled, got %v", err)
		}
	})

	t.Run("invalid batch size keeps default", func(t *testing.T) {
		u := NewUploader(&recordingSink{}, WithBatchSize(0))
		if u.batchSize != DefaultBatchSize {
			t.Errorf("batchSize = %d", u.batchSize)
		}
	})
}

func TestDumpIntoSearcher(t *testing.T) {
	src := dump(
		page("1", "Domestic cat", "0", catMarkup),
		page("2", "Talk:Domestic cat", "1", catMarkup),
		page("3", "Stub", "0", "Too short."),
	)
	r := NewDumpReader(strings.NewReader(src), WithReaderLogger(quiet()))
	searcher := inmemory.New()
	u := NewUploader(searcher, WithUploaderLogger(quiet()))

	stats, err := u.Upload(context.Background(), Articles(r, time.Now, quiet()))
	if err != nil {
		t.Fatal(err)
	}
	if stats.Processed != 1 || stats.Uploaded != 1 || searcher.Size() != 1 {
		t.Fatalf("stats = %+v size = %d", stats, searcher.Size())
	}

	res, err := searcher.Search(context.Background(), "felidae")
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Items[0].String("title") != "Domestic cat" {
		t.Errorf("unexpected results %+v", res)
	}
}

package session

import (
	"context"
	"testing"

	"github.com/letmevibethatforyou/wikisearch"
)

func TestParamsRoundTrip(t *testing.T) {
	queries := []string{
		"cat",
		"domestic cat",
		"C++ & Go? 100% sure",
		"  leading and trailing  ",
		"a=b;c/d#e+f",
		"Ünïcödé – 猫",
		`quotes "double" and 'single'`,
	}

	for _, q := range queries {
		in := Params{Query: q, Page: 3, PageSize: 25}
		out, err := ParseParams(EncodeParams(in))
		if err != nil {
			t.Fatalf("ParseParams(EncodeParams(%q)) failed: %v", q, err)
		}
		if out != in {
			t.Errorf("round trip of %q gave %+v", q, out)
		}
	}
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		raw  string
		want Params
	}{
		{"?query=cat", Params{Query: "cat", Page: 1, PageSize: 10}},
		{"query=cat&page=2&pageSize=20", Params{Query: "cat", Page: 2, PageSize: 20}},
		{"query=cat&page=zero&pageSize=-4", Params{Query: "cat", Page: 1, PageSize: 10}},
		{"", Params{Page: 1, PageSize: 10}},
		{"query=domestic+cat", Params{Query: "domestic cat", Page: 1, PageSize: 10}},
	}

	for _, tt := range tests {
		got, err := ParseParams(tt.raw)
		if err != nil {
			t.Errorf("ParseParams(%q) failed: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseParams(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}

	if _, err := ParseParams("query=%zz"); err == nil {
		t.Error("expected error for malformed escape")
	}
}

func TestSubmitWritesURL(t *testing.T) {
	api := newFakeAPI()
	var urls []string
	c := New(api, quiet(), WithNavigator(NavigatorFunc(func(raw string) { urls = append(urls, raw) })))
	defer c.Close()
	ctx := context.Background()

	c.Submit(ctx, "domestic cat", 2, 0)

	want := EncodeParams(Params{Query: "domestic cat", Page: 2, PageSize: wikisearch.DefaultPageSize})
	if len(urls) != 1 || urls[0] != want {
		t.Fatalf("navigator got %v, want [%s]", urls, want)
	}
	if api.searchCount() != 1 {
		t.Fatalf("expected one search, got %d", api.searchCount())
	}

	// The navigation echo of our own URL must not search again.
	if c.InitFromURL(ctx, "?"+urls[0]) {
		t.Error("InitFromURL replayed a search it had just submitted")
	}
	if api.searchCount() != 1 {
		t.Errorf("expected no extra search, got %d", api.searchCount())
	}
}

func TestInitFromURLReplaysOnce(t *testing.T) {
	api := newFakeAPI()
	api.results["cat"] = []wikisearch.SearchResult{{ID: "1", Title: "Cat"}}
	c := New(api, quiet())
	defer c.Close()
	ctx := context.Background()

	if !c.InitFromURL(ctx, "?query=cat&page=1&pageSize=5") {
		t.Fatal("expected the first URL to start a search")
	}
	s := c.State()
	if s.Query != "cat" || s.PageSize != 5 || len(s.Results) != 1 {
		t.Errorf("unexpected state %+v", s)
	}

	// Same parameter set in a different spelling.
	if c.InitFromURL(ctx, "pageSize=5&query=cat") {
		t.Error("expected an equivalent URL to be ignored")
	}
	if !c.InitFromURL(ctx, "query=cat&page=2&pageSize=5") {
		t.Error("expected a new page to start a search")
	}
	if c.InitFromURL(ctx, "page=3") {
		t.Error("expected a URL without a query to be ignored")
	}
	if c.InitFromURL(ctx, "query=%zz") {
		t.Error("expected a malformed URL to be ignored")
	}
	if got := api.searchCount(); got != 2 {
		t.Errorf("expected 2 searches, got %d", got)
	}
}

// Package ingest turns a MediaWiki XML export into indexed articles.
package ingest

import (
	"encoding/xml"
	"io"
	"iter"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// Page is one <page> element of an export. Element names are matched in any
// namespace, so exports of every schema version decode alike.
type Page struct {
	Title    string    `xml:"title"`
	NS       string    `xml:"ns"`
	ID       string    `xml:"id"`
	Redirect *Redirect `xml:"redirect"`
	Revision Revision  `xml:"revision"`
}

// Redirect names the target of a redirect page.
type Redirect struct {
	Title string `xml:"title,attr"`
}

// Revision is the latest revision of a page.
type Revision struct {
	ID          string      `xml:"id"`
	ParentID    string      `xml:"parentid"`
	Timestamp   string      `xml:"timestamp"`
	Contributor Contributor `xml:"contributor"`
	Comment     string      `xml:"comment"`
	Origin      string      `xml:"origin"`
	Model       string      `xml:"model"`
	Format      string      `xml:"format"`
	Text        string      `xml:"text"`
}

// Contributor is the author of a revision.
type Contributor struct {
	Username string `xml:"username"`
	ID       string `xml:"id"`
}

// RedirectTitle returns the redirect target, or "" for ordinary pages.
func (p Page) RedirectTitle() string {
	if p.Redirect == nil {
		return ""
	}
	return p.Redirect.Title
}

// DumpReader streams pages out of an export.
type DumpReader struct {
	dec    *xml.Decoder
	logger *slog.Logger
	err    error
	pages  int
}

// ReaderOption configures a DumpReader.
type ReaderOption func(*DumpReader)

// WithReaderLogger sets the logger used to report a truncated export.
func WithReaderLogger(l *slog.Logger) ReaderOption {
	return func(r *DumpReader) { r.logger = l }
}

// NewDumpReader reads an export from r.
func NewDumpReader(r io.Reader, opts ...ReaderOption) *DumpReader {
	d := &DumpReader{
		dec:    xml.NewDecoder(r),
		logger: slog.Default(),
	}
	d.dec.Strict = false
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the following page. It returns false at the end of input or at
// the first parse error; pages decoded before the error have already been
// returned. Err reports the parse error, if any.
func (d *DumpReader) Next() (Page, bool) {
	if d.err != nil {
		return Page{}, false
	}
	for {
		tok, err := d.dec.Token()
		if err == io.EOF {
			return Page{}, false
		}
		if err != nil {
			d.fail(err)
			return Page{}, false
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "page" {
			continue
		}

		var p Page
		if err := d.dec.DecodeElement(&p, &start); err != nil {
			d.fail(err)
			return Page{}, false
		}
		d.pages++
		return p, true
	}
}

func (d *DumpReader) fail(err error) {
	d.err = errors.Wrapf(err, "parse export after %d pages", d.pages)
	d.logger.Warn("xml parse error, processing available pages", "pages", d.pages, "error", err)
}

// Err returns the parse error that ended reading, or nil.
func (d *DumpReader) Err() error {
	return d.err
}

// Pages ranges over the remaining pages.
func (d *DumpReader) Pages() iter.Seq[Page] {
	return func(yield func(Page) bool) {
		for {
			p, ok := d.Next()
			if !ok || !yield(p) {
				return
			}
		}
	}
}

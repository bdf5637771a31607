package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"punchsync/internal/punch"
	"punchsync/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("punchsync/page")

// ErrEmptyPage is returned when the source produced no document at all.
var ErrEmptyPage = errors.New("empty page")

// Snapshot is the page as it is at one tick. Every snapshot owns its own
// document, nothing else reads or writes it.
type Snapshot struct {
	Context punch.PageContext
	Doc     *goquery.Document
}

// Root returns the document node of the snapshot.
func (s Snapshot) Root() *html.Node {
	if s.Doc == nil || len(s.Doc.Nodes) == 0 {
		return nil
	}
	return s.Doc.Nodes[0]
}

// Source produces a fresh snapshot of the attendance page each time it is
// asked, it is the only place the page is read from.
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	Close() error
}

// Parse builds a snapshot out of raw html. url is where the body was fetched
// from, when it is empty the document's canonical link or og:url is used.
func Parse(body []byte, url string) (Snapshot, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Snapshot{}, ErrEmptyPage
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse page: %w", err)
	}
	return Snapshot{
		Context: punch.PageContext{
			URL:   documentUrl(doc, url),
			Title: htmlutil.VisibleText(doc.Find("title").First()),
		},
		Doc: doc,
	}, nil
}

func documentUrl(doc *goquery.Document, fallback string) string {
	if fallback != "" {
		return fallback
	}
	canonical, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href")
	if ok && canonical != "" {
		return canonical
	}
	ogUrl, ok := doc.Find(`meta[property="og:url"]`).First().Attr("content")
	if ok && ogUrl != "" {
		return ogUrl
	}
	return ""
}

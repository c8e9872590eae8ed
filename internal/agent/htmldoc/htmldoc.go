// Package htmldoc is an agent.Document over a static HTML snapshot of an
// issues page. Rows are concealed by editing the tree; Render writes it back.
package htmldoc

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/idilsaglam/issuestash/internal/agent"
	"github.com/idilsaglam/issuestash/internal/model"
)

const (
	// RowSelector matches issue rows and, unfortunately, some of their children.
	RowSelector = `[id^="issue_"]`
	// TitleSelector is the primary link inside a row.
	TitleSelector = "a.Link--primary"

	rowPrefix = "issue_"
	// hiddenAttr marks rows we concealed and keeps their previous style.
	hiddenAttr  = "data-issuestash-hidden"
	hiddenStyle = "display: none"
)

// Document is a parsed page. Safe for concurrent use.
type Document struct {
	mu       sync.Mutex
	doc      *goquery.Document
	location string
	owner    *model.OwnerPath
}

var _ agent.Document = (*Document)(nil)

// Parse reads an HTML page that was served from location.
func Parse(r io.Reader, location string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{
		doc:      doc,
		location: location,
		owner:    agent.DescribePage(location).Owner,
	}, nil
}

func (d *Document) Location(context.Context) (string, error) {
	return d.location, nil
}

// Items lists issue rows in document order.
func (d *Document) Items(context.Context) ([]model.Item, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var items []model.Item
	d.eachRow(func(n int, s *goquery.Selection) {
		_, concealed := s.Attr(hiddenAttr)
		items = append(items, model.Item{
			ID:        d.itemID(n, s),
			Ref:       model.ExternalRef{Number: n, Title: strings.TrimSpace(s.Find(TitleSelector).First().Text())},
			IsVisible: !concealed,
		})
	})
	return items, nil
}

// SetVisible conceals or restores the row for id.
func (d *Document) SetVisible(_ context.Context, id string, visible bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var row *goquery.Selection
	d.eachRow(func(n int, s *goquery.Selection) {
		if row == nil && d.itemID(n, s) == id {
			row = s
		}
	})
	if row == nil {
		return fmt.Errorf("%s: %w", id, agent.ErrUnknownItem)
	}

	prev, concealed := row.Attr(hiddenAttr)
	switch {
	case !visible && !concealed:
		style, _ := row.Attr("style")
		row.SetAttr(hiddenAttr, style)
		row.SetAttr("style", hiddenStyle)
	case visible && concealed:
		row.RemoveAttr(hiddenAttr)
		if prev == "" {
			row.RemoveAttr("style")
		} else {
			row.SetAttr("style", prev)
		}
	}
	return nil
}

// Render writes the current tree as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range d.doc.Nodes {
		if err := html.Render(w, n); err != nil {
			return fmt.Errorf("render html: %w", err)
		}
	}
	return nil
}

// eachRow calls fn for every element whose id is issue_<number>.
func (d *Document) eachRow(fn func(number int, s *goquery.Selection)) {
	d.doc.Find(RowSelector).Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		n, err := strconv.Atoi(strings.TrimPrefix(id, rowPrefix))
		if err != nil || n <= 0 {
			return
		}
		fn(n, s)
	})
}

func (d *Document) itemID(n int, s *goquery.Selection) string {
	href, _ := s.Find(TitleSelector).First().Attr("href")
	return agent.RowItemID(href, n, d.owner)
}

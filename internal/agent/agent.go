// Package agent is the page-side half of the messenger: it reads the items a
// page renders, applies show/hide to the document, and writes visibility
// records to the store.
package agent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/idilsaglam/issuestash/internal/logging"
	"github.com/idilsaglam/issuestash/internal/messenger"
	"github.com/idilsaglam/issuestash/internal/model"
	"github.com/idilsaglam/issuestash/internal/store"
)

// Document is the page as the agent sees it.
type Document interface {
	// Location is the page URL.
	Location(ctx context.Context) (string, error)
	// Items lists the rendered issue entries in document order. IsVisible
	// reflects what the document currently shows.
	Items(ctx context.Context) ([]model.Item, error)
	// SetVisible shows or conceals the element for id.
	SetVisible(ctx context.Context, id string, visible bool) error
}

// ErrUnknownItem is returned when a request names an item the page does not render.
var ErrUnknownItem = errors.New("item not rendered on page")

// Agent answers messenger requests for one Document.
type Agent struct {
	doc   Document
	store store.Store
	log   *zap.Logger
}

// New returns an Agent over doc persisting to st.
func New(doc Document, st store.Store, log *zap.Logger) *Agent {
	return &Agent{doc: doc, store: st, log: logging.OrNop(log)}
}

var _ messenger.Handler = (*Agent)(nil)

// Handle implements messenger.Handler.
func (a *Agent) Handle(ctx context.Context, req messenger.Request) (messenger.Response, error) {
	switch req.Kind {
	case messenger.ItemsQuery:
		items, err := a.doc.Items(ctx)
		if err != nil {
			return messenger.Response{}, fmt.Errorf("list items: %w", err)
		}
		return messenger.Response{Items: items}, nil

	case messenger.PageContextQuery:
		loc, err := a.doc.Location(ctx)
		if err != nil {
			return messenger.Response{}, fmt.Errorf("page location: %w", err)
		}
		pc := DescribePage(loc)
		return messenger.Response{Page: &pc}, nil

	case messenger.ItemShow:
		if req.Item == nil || req.Item.ID == "" {
			return messenger.Response{}, errors.New("show: missing item")
		}
		return messenger.Response{}, a.setVisibility(ctx, *req.Item, true)

	case messenger.ItemHide:
		if req.Item == nil || req.Item.ID == "" {
			return messenger.Response{}, errors.New("hide: missing item")
		}
		rendered, err := a.lookup(ctx, req.Item.ID)
		if err != nil {
			return messenger.Response{}, err
		}
		return messenger.Response{}, a.setVisibility(ctx, rendered, false)
	}
	return messenger.Response{}, fmt.Errorf("unsupported kind %q", req.Kind)
}

// setVisibility persists first, then touches the document, so the store
// never lags behind what the page shows.
func (a *Agent) setVisibility(ctx context.Context, it model.Item, visible bool) error {
	it.IsVisible = visible
	if err := a.store.Put(ctx, it); err != nil {
		return fmt.Errorf("persist %s: %w", it.ID, err)
	}
	if err := a.doc.SetVisible(ctx, it.ID, visible); err != nil {
		if errors.Is(err, ErrUnknownItem) {
			// the record is saved; the page just doesn't show this item now
			a.log.Debug("item not on page", zap.String("item", it.ID))
			return nil
		}
		return fmt.Errorf("apply %s: %w", it.ID, err)
	}
	a.log.Info("visibility changed", zap.String("item", it.ID), zap.Bool("visible", visible))
	return nil
}

func (a *Agent) lookup(ctx context.Context, id string) (model.Item, error) {
	items, err := a.doc.Items(ctx)
	if err != nil {
		return model.Item{}, fmt.Errorf("list items: %w", err)
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return model.Item{}, fmt.Errorf("%s: %w", id, ErrUnknownItem)
}

// Sync conceals every rendered item the store marks hidden and returns how
// many it concealed. Called once when the agent attaches to a page.
func (a *Agent) Sync(ctx context.Context) (int, error) {
	items, err := a.doc.Items(ctx)
	if err != nil {
		return 0, fmt.Errorf("list items: %w", err)
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	records, err := a.store.GetMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("read records: %w", err)
	}

	n := 0
	for _, it := range items {
		rec, ok := records[it.ID]
		if !ok || rec.IsVisible || !it.IsVisible {
			continue
		}
		if err := a.doc.SetVisible(ctx, it.ID, false); err != nil {
			return n, fmt.Errorf("conceal %s: %w", it.ID, err)
		}
		n++
	}
	a.log.Info("page synced", zap.Int("rendered", len(items)), zap.Int("concealed", n))
	return n, nil
}

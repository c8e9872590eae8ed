// Package messenger is the typed request/response channel between the popup
// and the page agent of one page instance.
//
// Every call is independent and delivered at most once: no batching, no
// ordering between calls, no retries. Any failure to complete a call is a
// *DeliveryError.
package messenger

import (
	"context"
	"errors"
	"fmt"

	"github.com/idilsaglam/issuestash/internal/model"
)

// InstanceID addresses one page instance (a tab, in browser terms).
type InstanceID string

// Kind names a message type.
type Kind string

const (
	ItemsQuery       Kind = "items.query"
	PageContextQuery Kind = "page.query"
	ItemShow         Kind = "item.show"
	ItemHide         Kind = "item.hide"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case ItemsQuery, PageContextQuery, ItemShow, ItemHide:
		return true
	}
	return false
}

// Request is what the popup sends. Item is set for ItemShow and ItemHide.
type Request struct {
	Kind Kind        `json:"kind"`
	Item *model.Item `json:"item,omitempty"`
}

// Response carries Items for ItemsQuery and Page for PageContextQuery.
// Acks for ItemShow and ItemHide are empty.
type Response struct {
	Items []model.Item       `json:"items,omitempty"`
	Page  *model.PageContext `json:"page,omitempty"`
}

// Messenger sends one request to the page agent of target.
type Messenger interface {
	Send(ctx context.Context, target InstanceID, req Request) (Response, error)
}

// Handler answers requests inside the page context.
type Handler interface {
	Handle(ctx context.Context, req Request) (Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

func (f HandlerFunc) Handle(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

var (
	// ErrNoListener: no page agent is registered for the target.
	ErrNoListener = errors.New("no listener for target")
	// ErrDisconnected: the channel broke while the call was in flight.
	ErrDisconnected = errors.New("disconnected")
)

// DeliveryError reports a call that did not complete.
type DeliveryError struct {
	Target InstanceID
	Kind   Kind
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s to %q: %v", e.Kind, e.Target, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsDeliveryError reports whether err is or wraps a *DeliveryError.
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}

// deliveryError wraps err unless it already is a DeliveryError.
func deliveryError(target InstanceID, kind Kind, err error) error {
	if err == nil || IsDeliveryError(err) {
		return err
	}
	return &DeliveryError{Target: target, Kind: kind, Err: err}
}

// ------- typed helpers -------

// QueryItems asks the page for the items it currently renders, in page order.
func QueryItems(ctx context.Context, m Messenger, target InstanceID) ([]model.Item, error) {
	resp, err := m.Send(ctx, target, Request{Kind: ItemsQuery})
	if err != nil {
		return nil, deliveryError(target, ItemsQuery, err)
	}
	return resp.Items, nil
}

// QueryPageContext asks the page to describe itself.
func QueryPageContext(ctx context.Context, m Messenger, target InstanceID) (model.PageContext, error) {
	resp, err := m.Send(ctx, target, Request{Kind: PageContextQuery})
	if err != nil {
		return model.PageContext{}, deliveryError(target, PageContextQuery, err)
	}
	if resp.Page == nil {
		return model.PageContext{}, &DeliveryError{Target: target, Kind: PageContextQuery, Err: errors.New("empty page context")}
	}
	return *resp.Page, nil
}

// ShowItem asks the page to reveal item and persist it as visible.
func ShowItem(ctx context.Context, m Messenger, target InstanceID, item model.Item) error {
	item.IsVisible = true
	_, err := m.Send(ctx, target, Request{Kind: ItemShow, Item: &item})
	return deliveryError(target, ItemShow, err)
}

// HideItem asks the page to conceal item and persist it as hidden.
// Only item.ID is required; the page fills in the rest.
func HideItem(ctx context.Context, m Messenger, target InstanceID, item model.Item) error {
	item.IsVisible = false
	_, err := m.Send(ctx, target, Request{Kind: ItemHide, Item: &item})
	return deliveryError(target, ItemHide, err)
}

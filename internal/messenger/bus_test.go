package messenger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/idilsaglam/issuestash/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func staticHandler(items []model.Item, page model.PageContext) HandlerFunc {
	return func(_ context.Context, req Request) (Response, error) {
		switch req.Kind {
		case ItemsQuery:
			return Response{Items: items}, nil
		case PageContextQuery:
			return Response{Page: &page}, nil
		}
		return Response{}, nil
	}
}

func TestBus_NoListener(t *testing.T) {
	bus := NewBus()

	_, err := QueryItems(context.Background(), bus, "tab-1")
	require.Error(t, err)

	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, InstanceID("tab-1"), de.Target)
	assert.Equal(t, ItemsQuery, de.Kind)
	assert.ErrorIs(t, err, ErrNoListener)
}

func TestBus_RoutesToRegisteredHandler(t *testing.T) {
	bus := NewBus()
	items := []model.Item{{ID: "a"}, {ID: "b"}}
	page := model.PageContext{IsSupportedSite: true, Section: model.SectionIssues}
	bus.Register("tab-1", staticHandler(items, page))

	got, err := QueryItems(context.Background(), bus, "tab-1")
	require.NoError(t, err)
	assert.Equal(t, items, got)

	pc, err := QueryPageContext(context.Background(), bus, "tab-1")
	require.NoError(t, err)
	assert.Equal(t, page, pc)
}

func TestBus_HandlerErrorIsDeliveryError(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")
	bus.Register("tab-1", HandlerFunc(func(context.Context, Request) (Response, error) {
		return Response{}, boom
	}))

	err := ShowItem(context.Background(), bus, "tab-1", model.Item{ID: "a"})
	assert.True(t, IsDeliveryError(err))
	assert.ErrorIs(t, err, boom)
}

func TestBus_UnregisterDuringCall(t *testing.T) {
	bus := NewBus()
	var unregister func()
	unregister = bus.Register("tab-1", HandlerFunc(func(context.Context, Request) (Response, error) {
		unregister()
		return Response{Items: []model.Item{{ID: "a"}}}, nil
	}))

	_, err := QueryItems(context.Background(), bus, "tab-1")
	assert.ErrorIs(t, err, ErrDisconnected)

	_, err = QueryItems(context.Background(), bus, "tab-1")
	assert.ErrorIs(t, err, ErrNoListener)
}

func TestBus_ReRegisterKeepsNewHandler(t *testing.T) {
	bus := NewBus()
	oldUnregister := bus.Register("tab-1", staticHandler(nil, model.PageContext{}))
	bus.Register("tab-1", staticHandler([]model.Item{{ID: "new"}}, model.PageContext{}))

	oldUnregister()

	got, err := QueryItems(context.Background(), bus, "tab-1")
	require.NoError(t, err)
	assert.Equal(t, []model.Item{{ID: "new"}}, got)
}

func TestBus_ActiveTracking(t *testing.T) {
	bus := NewBus()
	_, ok := bus.Active()
	assert.False(t, ok)

	u1 := bus.Register("tab-1", staticHandler(nil, model.PageContext{}))
	bus.Register("tab-2", staticHandler(nil, model.PageContext{}))

	id, ok := bus.Resolve(context.Background())
	assert.True(t, ok)
	assert.Equal(t, InstanceID("tab-2"), id)

	require.NoError(t, bus.SetActive("tab-1"))
	id, _ = bus.Active()
	assert.Equal(t, InstanceID("tab-1"), id)

	u1()
	_, ok = bus.Active()
	assert.False(t, ok)

	assert.ErrorIs(t, bus.SetActive("tab-9"), ErrNoListener)
	assert.Equal(t, []InstanceID{"tab-2"}, bus.Instances())
}

func TestBus_UnknownKind(t *testing.T) {
	bus := NewBus()
	bus.Register("tab-1", staticHandler(nil, model.PageContext{}))

	_, err := bus.Send(context.Background(), "tab-1", Request{Kind: "bogus"})
	assert.True(t, IsDeliveryError(err))
}

func TestBus_CancelledContext(t *testing.T) {
	bus := NewBus()
	bus.Register("tab-1", staticHandler(nil, model.PageContext{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := QueryItems(ctx, bus, "tab-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueryPageContext_EmptyResponse(t *testing.T) {
	bus := NewBus()
	bus.Register("tab-1", HandlerFunc(func(context.Context, Request) (Response, error) {
		return Response{}, nil
	}))

	_, err := QueryPageContext(context.Background(), bus, "tab-1")
	assert.True(t, IsDeliveryError(err))
}

func TestShowAndHideSetVisibility(t *testing.T) {
	bus := NewBus()
	var seen []Request
	bus.Register("tab-1", HandlerFunc(func(_ context.Context, req Request) (Response, error) {
		seen = append(seen, req)
		return Response{}, nil
	}))

	item := model.Item{ID: "a", IsVisible: false}
	require.NoError(t, ShowItem(context.Background(), bus, "tab-1", item))
	require.NoError(t, HideItem(context.Background(), bus, "tab-1", item.WithVisibility(true)))

	require.Len(t, seen, 2)
	assert.Equal(t, ItemShow, seen[0].Kind)
	assert.True(t, seen[0].Item.IsVisible)
	assert.Equal(t, ItemHide, seen[1].Kind)
	assert.False(t, seen[1].Item.IsVisible)
}

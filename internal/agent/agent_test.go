package agent

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/issuestash/internal/messenger"
	"github.com/idilsaglam/issuestash/internal/model"
	"github.com/idilsaglam/issuestash/internal/store/jsonstore"
)

// memDoc is a Document held in memory.
type memDoc struct {
	mu    sync.Mutex
	loc   string
	items []model.Item
}

func (d *memDoc) Location(context.Context) (string, error) { return d.loc, nil }

func (d *memDoc) Items(context.Context) ([]model.Item, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Item(nil), d.items...), nil
}

func (d *memDoc) SetVisible(_ context.Context, id string, visible bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.items {
		if d.items[i].ID == id {
			d.items[i].IsVisible = visible
			return nil
		}
	}
	return ErrUnknownItem
}

func (d *memDoc) visible(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, it := range d.items {
		if it.ID == id {
			return it.IsVisible
		}
	}
	return false
}

func issue(n int, title string) model.Item {
	return model.Item{ID: model.ItemID("org", "repo", n), Ref: model.ExternalRef{Number: n, Title: title}, IsVisible: true}
}

func newTestAgent(t *testing.T) (*Agent, *memDoc, *jsonstore.Store) {
	t.Helper()
	st, err := jsonstore.Open(filepath.Join(t.TempDir(), "items.json"))
	require.NoError(t, err)
	doc := &memDoc{
		loc:   "https://github.com/org/repo/issues",
		items: []model.Item{issue(5, "Bug A"), issue(2, "Bug B")},
	}
	return New(doc, st, nil), doc, st
}

func TestHandle_ItemsQuery(t *testing.T) {
	a, doc, _ := newTestAgent(t)

	resp, err := a.Handle(context.Background(), messenger.Request{Kind: messenger.ItemsQuery})
	require.NoError(t, err)
	assert.Equal(t, doc.items, resp.Items)
}

func TestHandle_PageContextQuery(t *testing.T) {
	a, _, _ := newTestAgent(t)

	resp, err := a.Handle(context.Background(), messenger.Request{Kind: messenger.PageContextQuery})
	require.NoError(t, err)
	require.NotNil(t, resp.Page)
	assert.True(t, resp.Page.EnablesHiding())
	assert.Equal(t, "org/repo", resp.Page.Owner.String())
}

func TestHandle_HideThenShow(t *testing.T) {
	a, doc, st := newTestAgent(t)
	ctx := context.Background()
	id := model.ItemID("org", "repo", 5)

	_, err := a.Handle(ctx, messenger.Request{Kind: messenger.ItemHide, Item: &model.Item{ID: id}})
	require.NoError(t, err)
	assert.False(t, doc.visible(id))

	recs, err := st.GetMany(ctx, []string{id})
	require.NoError(t, err)
	require.Contains(t, recs, id)
	assert.False(t, recs[id].IsVisible)
	assert.Equal(t, "Bug A", recs[id].Ref.Title, "hide fills the record from the page")

	show := recs[id]
	_, err = a.Handle(ctx, messenger.Request{Kind: messenger.ItemShow, Item: &show})
	require.NoError(t, err)
	assert.True(t, doc.visible(id))

	recs, err = st.GetMany(ctx, []string{id})
	require.NoError(t, err)
	assert.True(t, recs[id].IsVisible)
}

func TestHandle_HideUnknownItem(t *testing.T) {
	a, _, _ := newTestAgent(t)

	_, err := a.Handle(context.Background(), messenger.Request{Kind: messenger.ItemHide, Item: &model.Item{ID: "org/repo#999"}})
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestHandle_ShowItemNotOnPageStillPersists(t *testing.T) {
	a, _, st := newTestAgent(t)
	ctx := context.Background()
	gone := model.Item{ID: "org/repo#77", Ref: model.ExternalRef{Number: 77}}

	_, err := a.Handle(ctx, messenger.Request{Kind: messenger.ItemShow, Item: &gone})
	require.NoError(t, err)

	recs, err := st.GetMany(ctx, []string{gone.ID})
	require.NoError(t, err)
	assert.True(t, recs[gone.ID].IsVisible)
}

func TestHandle_MissingPayload(t *testing.T) {
	a, _, _ := newTestAgent(t)

	_, err := a.Handle(context.Background(), messenger.Request{Kind: messenger.ItemShow})
	assert.Error(t, err)
	_, err = a.Handle(context.Background(), messenger.Request{Kind: messenger.ItemHide, Item: &model.Item{}})
	assert.Error(t, err)
	_, err = a.Handle(context.Background(), messenger.Request{Kind: "bogus"})
	assert.Error(t, err)
}

func TestSync_ConcealsStoredHidden(t *testing.T) {
	a, doc, st := newTestAgent(t)
	ctx := context.Background()
	hiddenID := model.ItemID("org", "repo", 2)
	require.NoError(t, st.Put(ctx, issue(2, "Bug B").WithVisibility(false), issue(5, "Bug A")))

	n, err := a.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, doc.visible(hiddenID))
	assert.True(t, doc.visible(model.ItemID("org", "repo", 5)))

	n, err = a.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "already concealed items are left alone")
}

type failingStore struct{ *jsonstore.Store }

func (failingStore) Put(context.Context, ...model.Item) error { return errors.New("read-only") }

func TestHandle_StoreFailureLeavesDocument(t *testing.T) {
	_, doc, st := newTestAgent(t)
	a := New(doc, failingStore{st}, nil)
	id := model.ItemID("org", "repo", 5)

	_, err := a.Handle(context.Background(), messenger.Request{Kind: messenger.ItemHide, Item: &model.Item{ID: id}})
	assert.ErrorContains(t, err, "read-only")
	assert.True(t, doc.visible(id), "document untouched when persisting fails")
}

func TestAgent_OverBus(t *testing.T) {
	a, _, st := newTestAgent(t)
	ctx := context.Background()
	bus := messenger.NewBus()
	unregister := bus.Register("tab-1", a)
	defer unregister()

	require.NoError(t, messenger.HideItem(ctx, bus, "tab-1", model.Item{ID: model.ItemID("org", "repo", 5)}))

	items, err := messenger.QueryItems(ctx, bus, "tab-1")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	recs, err := st.GetMany(ctx, []string{model.ItemID("org", "repo", 5)})
	require.NoError(t, err)
	assert.False(t, recs[model.ItemID("org", "repo", 5)].IsVisible)
}

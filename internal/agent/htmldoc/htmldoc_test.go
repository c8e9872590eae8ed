package htmldoc

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/issuestash/internal/agent"
	"github.com/idilsaglam/issuestash/internal/messenger"
	"github.com/idilsaglam/issuestash/internal/model"
	"github.com/idilsaglam/issuestash/internal/store/jsonstore"
)

const issuesPage = `<!DOCTYPE html>
<html><head><title>Issues</title></head><body>
<div class="js-navigation-container">
  <div id="issue_5" class="js-issue-row">
    <a id="issue_5_link" class="Link--primary" href="/org/repo/issues/5"> Bug A </a>
  </div>
  <div id="issue_2" class="js-issue-row" style="color: red">
    <a id="issue_2_link" class="Link--primary" href="/org/repo/issues/2">Bug B</a>
  </div>
  <div id="issue_9" class="js-issue-row">
    <a class="Link--primary" href="https://github.com/org/repo/issues/9">Bug C</a>
  </div>
</div>
</body></html>`

const location = "https://github.com/org/repo/issues"

func parse(t *testing.T) *Document {
	t.Helper()
	d, err := Parse(strings.NewReader(issuesPage), location)
	require.NoError(t, err)
	return d
}

func TestItems(t *testing.T) {
	d := parse(t)

	items, err := d.Items(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Item{
		{ID: "org/repo#5", Ref: model.ExternalRef{Number: 5, Title: "Bug A"}, IsVisible: true},
		{ID: "org/repo#2", Ref: model.ExternalRef{Number: 2, Title: "Bug B"}, IsVisible: true},
		{ID: "org/repo#9", Ref: model.ExternalRef{Number: 9, Title: "Bug C"}, IsVisible: true},
	}, items, "child elements with issue_ ids are not rows")
}

func TestSetVisible(t *testing.T) {
	d := parse(t)
	ctx := context.Background()

	require.NoError(t, d.SetVisible(ctx, "org/repo#2", false))
	require.NoError(t, d.SetVisible(ctx, "org/repo#2", false), "concealing twice is a no-op")

	var buf bytes.Buffer
	require.NoError(t, d.Render(&buf))
	assert.Contains(t, buf.String(), `style="display: none"`)
	assert.Contains(t, buf.String(), `data-issuestash-hidden="color: red"`)

	items, err := d.Items(ctx)
	require.NoError(t, err)
	assert.False(t, items[1].IsVisible)
	assert.True(t, items[0].IsVisible)

	require.NoError(t, d.SetVisible(ctx, "org/repo#2", true))
	buf.Reset()
	require.NoError(t, d.Render(&buf))
	assert.NotContains(t, buf.String(), "display: none")
	assert.NotContains(t, buf.String(), "data-issuestash-hidden")
	assert.Contains(t, buf.String(), `style="color: red"`)
}

func TestSetVisible_RestoreWithoutStyle(t *testing.T) {
	d := parse(t)
	ctx := context.Background()

	require.NoError(t, d.SetVisible(ctx, "org/repo#5", false))
	require.NoError(t, d.SetVisible(ctx, "org/repo#5", true))

	var buf bytes.Buffer
	require.NoError(t, d.Render(&buf))
	assert.NotContains(t, buf.String(), "style=")
}

func TestSetVisible_UnknownItem(t *testing.T) {
	d := parse(t)
	err := d.SetVisible(context.Background(), "org/repo#404", false)
	assert.ErrorIs(t, err, agent.ErrUnknownItem)
}

func TestItems_OwnerFromLocation(t *testing.T) {
	page := `<div id="issue_3"><a class="Link--primary" href="#">Relative</a></div>`
	d, err := Parse(strings.NewReader(page), "https://github.com/acme/widgets/issues")
	require.NoError(t, err)

	items, err := d.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "acme/widgets#3", items[0].ID)
}

func TestWithAgent(t *testing.T) {
	ctx := context.Background()
	st, err := jsonstore.Open(filepath.Join(t.TempDir(), "items.json"))
	require.NoError(t, err)
	require.NoError(t, st.Put(ctx, model.Item{ID: "org/repo#9", Ref: model.ExternalRef{Number: 9}}))

	d := parse(t)
	a := agent.New(d, st, nil)

	n, err := a.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	bus := messenger.NewBus()
	defer bus.Register("tab", a)()

	require.NoError(t, messenger.ShowItem(ctx, bus, "tab", model.Item{ID: "org/repo#9", Ref: model.ExternalRef{Number: 9}}))
	items, err := messenger.QueryItems(ctx, bus, "tab")
	require.NoError(t, err)
	for _, it := range items {
		assert.True(t, it.IsVisible, it.ID)
	}

	pc, err := messenger.QueryPageContext(ctx, bus, "tab")
	require.NoError(t, err)
	assert.Equal(t, model.SectionIssues, pc.Section)
}

package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/issuestash/internal/model"
)

// openTestStore creates a migrated Store in a temp dir.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "items.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPut_GetMany_Roundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := model.Item{ID: "org/repo#5", Ref: model.ExternalRef{Number: 5, Title: "Bug A"}}
	b := model.Item{ID: "org/repo#2", Ref: model.ExternalRef{Number: 2, Title: "Bug B"}, IsVisible: true}
	require.NoError(t, s.Put(ctx, a, b))

	got, err := s.GetMany(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]model.Item{a.ID: a, b.ID: b}, got)
}

func TestGetMany_MissingIDsAreAbsent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, model.Item{ID: "x", Ref: model.ExternalRef{Number: 1}}))

	got, err := s.GetMany(ctx, []string{"x", "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NotContains(t, got, "missing")
}

func TestGetMany_NoIDs(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetMany_SpansBatches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var items []model.Item
	var ids []string
	for i := 0; i < maxBatch+25; i++ {
		id := fmt.Sprintf("org/repo#%d", i)
		items = append(items, model.Item{ID: id, Ref: model.ExternalRef{Number: i}})
		ids = append(ids, id)
	}
	require.NoError(t, s.Put(ctx, items...))

	got, err := s.GetMany(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, got, len(ids))
}

func TestPut_UpsertsVisibility(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	it := model.Item{ID: "x", Ref: model.ExternalRef{Number: 7, Title: "old"}}
	require.NoError(t, s.Put(ctx, it))
	it.Ref.Title = "new"
	require.NoError(t, s.Put(ctx, it.WithVisibility(true)))

	got, err := s.GetMany(ctx, []string{"x"})
	require.NoError(t, err)
	assert.True(t, got["x"].IsVisible)
	assert.Equal(t, "new", got["x"].Ref.Title)
}

func TestPut_EmptyIDRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Put(ctx, model.Item{ID: "ok"}, model.Item{})
	require.Error(t, err)

	got, err := s.GetMany(ctx, []string{"ok"})
	require.NoError(t, err)
	assert.Empty(t, got, "partial batch must not be committed")
}

func TestMigrations_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())
	require.NoError(t, runner.Run())

	v, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestReopen_KeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, model.Item{ID: "x", Ref: model.ExternalRef{Number: 3}}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetMany(ctx, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, 3, got["x"].Ref.Number)
}

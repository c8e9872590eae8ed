package jsonstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/issuestash/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "items.json"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMany_EmptyFile(t *testing.T) {
	s := openTestStore(t)

	got, err := s.GetMany(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPut_GetMany_OmitsMissingIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := model.Item{ID: "org/repo#5", Ref: model.ExternalRef{Number: 5, Title: "Bug A"}}
	b := model.Item{ID: "org/repo#2", Ref: model.ExternalRef{Number: 2, Title: "Bug B"}, IsVisible: true}
	require.NoError(t, s.Put(ctx, a, b))

	got, err := s.GetMany(ctx, []string{"org/repo#5", "org/repo#404"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a, got["org/repo#5"])
}

func TestPut_OverwritesRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	it := model.Item{ID: "x", Ref: model.ExternalRef{Number: 1, Title: "t"}}
	require.NoError(t, s.Put(ctx, it))
	require.NoError(t, s.Put(ctx, it.WithVisibility(true)))

	got, err := s.GetMany(ctx, []string{"x"})
	require.NoError(t, err)
	assert.True(t, got["x"].IsVisible)
}

func TestPut_RejectsEmptyID(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.Put(context.Background(), model.Item{}))
}

func TestPut_VisibleToSecondStoreOnSameFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	w, err := Open(path)
	require.NoError(t, err)
	r, err := Open(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, w.Put(ctx, model.Item{ID: "x"}))

	got, err := r.GetMany(ctx, []string{"x"})
	require.NoError(t, err)
	assert.Contains(t, got, "x")
}

func TestGetMany_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	s, err := Open(path)
	require.NoError(t, err)

	_, err = s.GetMany(context.Background(), []string{"x"})
	assert.ErrorContains(t, err, "json unmarshal")
}

package gallery

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)

	params, err := EncodeParams(map[string]any{"group_by": "cluster", "panel_size": 5})
	require.NoError(t, err)

	rec := &Record{Dataset: "pbmc", Kind: "dotplot", Params: params, HTMLPath: "out/p.html"}
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, rec))
	assert.NotEmpty(t, rec.ID, "ID assigned on save")
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "dotplot", got.Kind)
	assert.JSONEq(t, `{"group_by":"cluster","panel_size":5}`, string(got.Params))

	list, err := s.List(ctx, "pbmc", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = s.List(ctx, "other", 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_Validation(t *testing.T) {
	_, err := New(" ")
	assert.Error(t, err)

	s, err := New(filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)
	assert.Error(t, s.Save(context.Background(), nil))

	_, err = s.Get(context.Background(), "missing")
	assert.Error(t, err)
}

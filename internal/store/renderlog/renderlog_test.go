package renderlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_RecordAndRecent(t *testing.T) {
	log, err := Open(filepath.Join(t.TempDir(), "renders.db"))
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	require.NoError(t, log.Record(ctx, Entry{
		Dataset: "pbmc", Kind: "dotplot", DurationMs: 120, Status: "ok",
	}))
	require.NoError(t, log.Record(ctx, Entry{
		Dataset: "pbmc", Kind: "heatmap", DurationMs: 300, Status: "error",
		Detail:    "unknown column",
		Timestamp: time.Now().Add(time.Second),
	}))

	entries, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "heatmap", entries[0].Kind, "newest first")
	assert.Equal(t, "unknown column", entries[0].Detail)
	assert.Equal(t, "dotplot", entries[1].Kind)
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

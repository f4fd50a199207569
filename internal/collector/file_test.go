package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relist/internal/model"
)

func writeSourceFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestFileCollector(t *testing.T) {
	ctx := context.Background()

	t.Run("reads candidates", func(t *testing.T) {
		path := writeSourceFile(t, `[
			{"source_id": "PLID1", "title": "Air Fryer", "category": "Air Fryers",
			 "price": 899, "rating": 4.4, "weight_kg": 4.2,
			 "media_refs": ["https://img.example.com/1.jpg"]},
			{"source_id": "PLID2", "title": "Drill", "price": 1299, "rating": 4.1}
		]`)

		candidates, err := NewFileCollector(path).Collect(ctx, 0)
		require.NoError(t, err)
		require.Len(t, candidates, 2)

		assert.Equal(t, "PLID1", candidates[0].SourceID)
		assert.Equal(t, model.StateDiscovered, candidates[0].State)
		assert.InDelta(t, 899, candidates[0].SourcePrice, 1e-9)
		assert.Equal(t, []string{"https://img.example.com/1.jpg"}, candidates[0].MediaRefs)
	})

	t.Run("truncates to max items", func(t *testing.T) {
		path := writeSourceFile(t, `[
			{"source_id": "PLID1", "title": "A", "price": 1},
			{"source_id": "PLID2", "title": "B", "price": 2},
			{"source_id": "PLID3", "title": "C", "price": 3}
		]`)

		candidates, err := NewFileCollector(path).Collect(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, candidates, 2)
	})

	t.Run("missing file collects nothing instead of failing", func(t *testing.T) {
		candidates, err := NewFileCollector("/nonexistent/source.json").Collect(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("malformed file collects nothing instead of failing", func(t *testing.T) {
		path := writeSourceFile(t, `{"not": "an array"`)

		candidates, err := NewFileCollector(path).Collect(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewFileCollector("whatever.json").Collect(cancelled, 0)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

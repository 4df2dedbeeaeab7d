package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAnalysisCache_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	entry, err := store.GetAnalysis("missing", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, entry)

	err = store.SetAnalysis("abc", &AnalysisCacheEntry{
		Description: "一把椅子，属于家具",
		Tags:        []string{"家具"},
		Confidence:  0.95,
		Model:       "gemini-2.5-flash",
	})
	require.NoError(t, err)

	entry, err = store.GetAnalysis("abc", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "一把椅子，属于家具", entry.Description)
	assert.Equal(t, []string{"家具"}, entry.Tags)
	assert.Equal(t, 0.95, entry.Confidence)
	assert.Equal(t, "gemini-2.5-flash", entry.Model)
}

func TestAnalysisCache_Overwrite(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetAnalysis("k", &AnalysisCacheEntry{Description: "old", Model: "m"}))
	require.NoError(t, store.SetAnalysis("k", &AnalysisCacheEntry{Description: "new", Model: "m"}))

	entry, err := store.GetAnalysis("k", 0)
	require.NoError(t, err)
	assert.Equal(t, "new", entry.Description)
	assert.Equal(t, []string{}, entry.Tags)
}

func TestAnalysisCache_ExpiryAndPrune(t *testing.T) {
	store := newTestStore(t)
	base := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return base }

	require.NoError(t, store.SetAnalysis("old", &AnalysisCacheEntry{Description: "old", Model: "m"}))

	store.now = func() time.Time { return base.Add(2 * time.Hour) }
	require.NoError(t, store.SetAnalysis("fresh", &AnalysisCacheEntry{Description: "fresh", Model: "m"}))

	entry, err := store.GetAnalysis("old", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, entry, "expired entry must not be served")

	removed, err := store.PruneAnalyses(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	entry, err = store.GetAnalysis("fresh", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "fresh", entry.Description)
}

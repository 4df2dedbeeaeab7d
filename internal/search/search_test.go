package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedProvider(honor bool) *TemplateProvider {
	p := NewTemplateProvider(honor)
	p.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestTemplateProvider_Search(t *testing.T) {
	result, err := fixedProvider(false).Search(context.Background(), NewQuery("相机"))
	require.NoError(t, err)

	assert.Equal(t, "相机", result.Query)
	require.Len(t, result.Results, 2)
	assert.Equal(t, Document{
		Title:   "关于相机的搜索结果1",
		Snippet: "这是关于相机的详细信息...",
		URL:     "https://example.com/search1",
	}, result.Results[0])
	assert.Equal(t, "根据维基百科，相机是一种常见的物体，具有以下特点...", result.WikiInfo)
	require.Len(t, result.News, 1)
	assert.Equal(t, "2024-05-01T12:00:00Z", result.News[0].Date)
}

func TestTemplateProvider_IgnoresMaxResults(t *testing.T) {
	p := fixedProvider(false)

	one, err := p.Search(context.Background(), Query{Text: "foo", MaxResults: 1})
	require.NoError(t, err)
	hundred, err := p.Search(context.Background(), Query{Text: "foo", MaxResults: 100})
	require.NoError(t, err)

	assert.Len(t, one.Results, 2)
	assert.Len(t, hundred.Results, 2)
	assert.NotEmpty(t, one.WikiInfo, "include flags are ignored too")
	assert.Len(t, one.News, 1)
}

func TestTemplateProvider_HonorParams(t *testing.T) {
	p := fixedProvider(true)

	result, err := p.Search(context.Background(), Query{Text: "foo", MaxResults: 1})
	require.NoError(t, err)
	assert.Len(t, result.Results, 1)
	assert.Empty(t, result.WikiInfo)
	assert.Empty(t, result.News)

	result, err = p.Search(context.Background(), Query{Text: "foo", MaxResults: 0, IncludeWiki: true, IncludeNews: true})
	require.NoError(t, err)
	assert.Len(t, result.Results, 2)
	assert.NotEmpty(t, result.WikiInfo)
	assert.Len(t, result.News, 1)
}

func TestTemplateProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fixedProvider(false).Search(ctx, NewQuery("foo"))

	assert.ErrorIs(t, err, context.Canceled)
	var unavailable *UnavailableError
	assert.False(t, errors.As(err, &unavailable))
}

func TestEmpty(t *testing.T) {
	result := Empty("q")
	assert.Equal(t, "q", result.Query)
	assert.NotNil(t, result.Results)
	assert.NotNil(t, result.News)
	assert.Empty(t, result.WikiInfo)
}

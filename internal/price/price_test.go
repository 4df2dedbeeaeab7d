package price

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateProvider_FixedTable(t *testing.T) {
	result, err := NewTemplateProvider(false).CheckPrice(context.Background(), "chair", "一把椅子", []string{"ebay"})
	require.NoError(t, err)

	assert.Equal(t, "chair", result.Category)
	assert.Equal(t, "一把椅子", result.Description)
	assert.Equal(t, []string{"ebay"}, result.Sources)
	assert.Len(t, result.Prices, 3, "sources are echoed but not applied")
	assert.Equal(t, Quote{Price: "$45-89", Currency: "USD", Availability: "有货"}, result.Prices[SourceEbay])
	assert.Equal(t, "¥299", result.AveragePrice)
	assert.Equal(t, "¥199-599", result.PriceRange)
}

func TestTemplateProvider_FilterSources(t *testing.T) {
	result, err := NewTemplateProvider(true).CheckPrice(context.Background(), "chair", "d", []string{"ebay", "taobao"})
	require.NoError(t, err)

	assert.Len(t, result.Prices, 2)
	assert.Contains(t, result.Prices, SourceEbay)
	assert.Contains(t, result.Prices, SourceTaobao)
	assert.NotContains(t, result.Prices, SourceAmazon)
}

func TestTemplateProvider_DefaultSources(t *testing.T) {
	result, err := NewTemplateProvider(false).CheckPrice(context.Background(), "c", "d", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSources, result.Sources)
}

func TestTemplateProvider_DoesNotShareTable(t *testing.T) {
	p := NewTemplateProvider(false)
	result, err := p.CheckPrice(context.Background(), "c", "d", nil)
	require.NoError(t, err)
	delete(result.Prices, SourceAmazon)

	again, err := p.CheckPrice(context.Background(), "c", "d", nil)
	require.NoError(t, err)
	assert.Len(t, again.Prices, 3)
}

func TestTemplateProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTemplateProvider(false).CheckPrice(ctx, "c", "d", nil)
	assert.ErrorIs(t, err, context.Canceled)
	var unavailable *UnavailableError
	assert.False(t, errors.As(err, &unavailable))
}

func TestUnknownSources(t *testing.T) {
	assert.Empty(t, UnknownSources([]string{"amazon", "ebay", "taobao", "ebay"}))
	assert.Equal(t, []string{"jd", "walmart"}, UnknownSources([]string{"jd", "amazon", "walmart", "jd"}))
	assert.Empty(t, UnknownSources(nil))
}

package price

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Known marketplace sources.
const (
	SourceAmazon = "amazon"
	SourceEbay   = "ebay"
	SourceTaobao = "taobao"
)

// DefaultSources is used when a caller does not pick sources, and always by
// the combined analysis pipeline.
var DefaultSources = []string{SourceAmazon, SourceEbay, SourceTaobao}

// Quote is one marketplace's price estimate.
type Quote struct {
	Price        string `json:"price"`
	Currency     string `json:"currency"`
	Availability string `json:"availability"`
}

// Result is a price lookup response.
type Result struct {
	Category     string           `json:"category"`
	Description  string           `json:"description"`
	Sources      []string         `json:"sources"`
	Prices       map[string]Quote `json:"prices"`
	AveragePrice string           `json:"average_price"`
	PriceRange   string           `json:"price_range"`
}

// Provider estimates prices for an item.
type Provider interface {
	CheckPrice(ctx context.Context, category, description string, sources []string) (*Result, error)
}

// UnavailableError means the price backend could not answer.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("price lookup unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// UnknownSources returns the entries of sources that are not known marketplaces.
func UnknownSources(sources []string) []string {
	return lo.Without(lo.Uniq(sources), DefaultSources...)
}

var priceTable = map[string]Quote{
	SourceAmazon: {Price: "¥299-599", Currency: "CNY", Availability: "有货"},
	SourceEbay:   {Price: "$45-89", Currency: "USD", Availability: "有货"},
	SourceTaobao: {Price: "¥199-399", Currency: "CNY", Availability: "有货"},
}

const (
	tableAveragePrice = "¥299"
	tableRange        = "¥199-599"
)

// TemplateProvider answers every lookup from a fixed three-source table.
// Unless filterSources is set, the requested sources are echoed back but
// the full table is returned.
type TemplateProvider struct {
	filterSources bool
}

var _ Provider = (*TemplateProvider)(nil)

func NewTemplateProvider(filterSources bool) *TemplateProvider {
	return &TemplateProvider{filterSources: filterSources}
}

func (p *TemplateProvider) CheckPrice(ctx context.Context, category, description string, sources []string) (*Result, error) {
	// A cancelled request is not an unavailable backend
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if sources == nil {
		sources = DefaultSources
	}

	prices := lo.Assign(priceTable)
	if p.filterSources {
		prices = lo.PickByKeys(prices, sources)
	}

	log.Debug().
		Str("category", category).
		Strs("sources", sources).
		Int("quotes", len(prices)).
		Msg("template price lookup")

	return &Result{
		Category:     category,
		Description:  description,
		Sources:      sources,
		Prices:       prices,
		AveragePrice: tableAveragePrice,
		PriceRange:   tableRange,
	}, nil
}

package search

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultMaxResults is used when a caller does not ask for a specific count.
const DefaultMaxResults = 5

// Query is a web search request.
type Query struct {
	Text        string
	MaxResults  int
	IncludeWiki bool
	IncludeNews bool
}

// NewQuery returns a query with the default result count, wiki and news enabled.
func NewQuery(text string) Query {
	return Query{Text: text, MaxResults: DefaultMaxResults, IncludeWiki: true, IncludeNews: true}
}

// Result is the response of a web search.
type Result struct {
	Query    string     `json:"query"`
	Results  []Document `json:"results"`
	WikiInfo string     `json:"wiki_info"`
	News     []News     `json:"news"`
}

// Document is a single search hit.
type Document struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// News is a news item related to the query.
type News struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Date    string `json:"date"`
}

// Empty returns a result with no hits, used when the provider is unavailable.
func Empty(query string) *Result {
	return &Result{Query: query, Results: []Document{}, News: []News{}}
}

// Provider searches the web for a query.
type Provider interface {
	Search(ctx context.Context, q Query) (*Result, error)
}

// UnavailableError means the search backend could not answer.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("search unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// TemplateProvider generates deterministic results from the query text
// without any network access. By default it ignores MaxResults and the
// include flags and always returns two hits, wiki info and one news item.
type TemplateProvider struct {
	honorParams bool
	now         func() time.Time
}

var _ Provider = (*TemplateProvider)(nil)

// NewTemplateProvider creates the stub provider. With honorParams the
// result count is capped by MaxResults and the include flags are respected.
func NewTemplateProvider(honorParams bool) *TemplateProvider {
	return &TemplateProvider{honorParams: honorParams, now: time.Now}
}

func (p *TemplateProvider) Search(ctx context.Context, q Query) (*Result, error) {
	// A cancelled request is not an unavailable backend
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Query: q.Text,
		Results: []Document{
			{
				Title:   fmt.Sprintf("关于%s的搜索结果1", q.Text),
				Snippet: fmt.Sprintf("这是关于%s的详细信息...", q.Text),
				URL:     "https://example.com/search1",
			},
			{
				Title:   fmt.Sprintf("关于%s的搜索结果2", q.Text),
				Snippet: fmt.Sprintf("更多关于%s的信息...", q.Text),
				URL:     "https://example.com/search2",
			},
		},
		WikiInfo: fmt.Sprintf("根据维基百科，%s是一种常见的物体，具有以下特点...", q.Text),
		News: []News{
			{
				Title:   fmt.Sprintf("最新%s相关新闻", q.Text),
				Summary: fmt.Sprintf("关于%s的最新发展...", q.Text),
				Date:    p.now().Format(time.RFC3339),
			},
		},
	}

	if p.honorParams {
		p.applyParams(result, q)
	}

	log.Debug().
		Str("query", q.Text).
		Int("maxResults", q.MaxResults).
		Int("results", len(result.Results)).
		Msg("template search")

	return result, nil
}

func (p *TemplateProvider) applyParams(result *Result, q Query) {
	limit := q.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	if len(result.Results) > limit {
		result.Results = result.Results[:limit]
	}
	if !q.IncludeWiki {
		result.WikiInfo = ""
	}
	if !q.IncludeNews {
		result.News = []News{}
	}
}

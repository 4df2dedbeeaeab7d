package client

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "http://localhost:8000"

type Analysis struct {
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Confidence  float64  `json:"confidence"`
	Model       string   `json:"model"`
}

type CombinedResult struct {
	Description    string         `json:"description"`
	Tags           []string       `json:"tags"`
	Price          *string        `json:"price"`
	WikiInfo       *string        `json:"wiki_info"`
	RelatedImages  []string       `json:"related_images"`
	AdditionalData map[string]any `json:"additional_data"`
}

type SearchDocument struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

type NewsItem struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Date    string `json:"date"`
}

type SearchResult struct {
	Query    string           `json:"query"`
	Results  []SearchDocument `json:"results"`
	WikiInfo string           `json:"wiki_info"`
	News     []NewsItem       `json:"news"`
}

type PriceQuote struct {
	Price        string `json:"price"`
	Currency     string `json:"currency"`
	Availability string `json:"availability"`
}

type PriceResult struct {
	Category     string                `json:"category"`
	Description  string                `json:"description"`
	Sources      []string              `json:"sources"`
	Prices       map[string]PriceQuote `json:"prices"`
	AveragePrice string                `json:"average_price"`
	PriceRange   string                `json:"price_range"`
}

type Health struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

type SearchRequest struct {
	Query       string `json:"query"`
	MaxResults  *int   `json:"max_results,omitempty"`
	IncludeWiki *bool  `json:"include_wiki,omitempty"`
	IncludeNews *bool  `json:"include_news,omitempty"`
}

type PriceRequest struct {
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Sources     []string `json:"sources,omitempty"`
}

type AnalyzeRequest struct {
	Image      []byte
	Filename   string
	Category   string
	Confidence float64
	Prompt     string
}

type LlavaRequest struct {
	Image       []byte
	Filename    string
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature *float64 // nil leaves the server default
}

// APIError is returned for responses with a status code above 399.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("request failed: %s %s (status: %d): %s", e.Method, e.URL, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("request failed: %s %s (status: %d)", e.Method, e.URL, e.StatusCode)
}

type errorBody struct {
	Detail string `json:"detail"`
}

type ClientOpts struct {
	BaseURL string
}

// Client talks to the camera cloud HTTP API.
type Client struct {
	httpClient *resty.Client
	baseURL    string
}

func NewClient(opts ClientOpts) *Client {
	c := Client{baseURL: DefaultBaseURL}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(c.baseURL).
		SetHeader("Accept", "application/json").
		SetError(&errorBody{})

	return &c
}

func (c *Client) req(ctx context.Context, result any) *resty.Request {
	request := c.httpClient.
		NewRequest().
		SetContext(ctx)

	if result != nil {
		request.SetResult(result)
	}

	return request
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	result := &Health{}
	_, err := handleError(c.req(ctx, result).Get("/api/health"))
	return result, err
}

// Analyze runs the combined analyze, search and price flow.
func (c *Client) Analyze(ctx context.Context, r AnalyzeRequest) (*CombinedResult, error) {
	result := &CombinedResult{}
	form := map[string]string{
		"category":   r.Category,
		"confidence": strconv.FormatFloat(r.Confidence, 'f', -1, 64),
	}
	if r.Prompt != "" {
		form["prompt"] = r.Prompt
	}

	_, err := handleError(c.req(ctx, result).
		SetFileReader("image", filename(r.Filename), bytes.NewReader(r.Image)).
		SetFormData(form).
		Post("/api/analyze"))

	return result, err
}

// LlavaAnalyze runs image analysis only.
func (c *Client) LlavaAnalyze(ctx context.Context, r LlavaRequest) (*Analysis, error) {
	result := &Analysis{}
	form := map[string]string{"prompt": r.Prompt}
	if r.Model != "" {
		form["model"] = r.Model
	}
	if r.MaxTokens > 0 {
		form["max_tokens"] = strconv.Itoa(r.MaxTokens)
	}
	if r.Temperature != nil {
		form["temperature"] = strconv.FormatFloat(*r.Temperature, 'f', -1, 64)
	}

	_, err := handleError(c.req(ctx, result).
		SetFileReader("image", filename(r.Filename), bytes.NewReader(r.Image)).
		SetFormData(form).
		Post("/api/llava-analyze"))

	return result, err
}

func (c *Client) WebSearch(ctx context.Context, r SearchRequest) (*SearchResult, error) {
	result := &SearchResult{}
	_, err := handleError(c.req(ctx, result).
		SetBody(r).
		Post("/api/web-search"))
	return result, err
}

func (c *Client) PriceCheck(ctx context.Context, r PriceRequest) (*PriceResult, error) {
	result := &PriceResult{}
	_, err := handleError(c.req(ctx, result).
		SetBody(r).
		Post("/api/price-check"))
	return result, err
}

func filename(name string) string {
	if name == "" {
		return "image"
	}
	return name
}

// handleError turns failing responses (>399 status code) into errors.
// Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		apiErr := &APIError{
			Method:     res.Request.Method,
			URL:        res.Request.URL,
			StatusCode: res.StatusCode(),
		}
		if body, ok := res.Error().(*errorBody); ok && body != nil {
			apiErr.Detail = body.Detail
		}
		return res, apiErr
	}

	return res, nil
}

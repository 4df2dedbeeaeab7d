package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raine/ai-camera-cloud/internal/imaging"
	"github.com/raine/ai-camera-cloud/internal/llm"
	"github.com/raine/ai-camera-cloud/internal/metrics"
	"github.com/raine/ai-camera-cloud/internal/price"
	"github.com/raine/ai-camera-cloud/internal/search"
	"github.com/rs/zerolog/log"
)

// State is a step of the combined analysis flow.
type State string

const (
	StateReceivingInput State = "receiving_input"
	StateAnalyzing      State = "analyzing"
	StateSearching      State = "searching"
	StatePricingLookup  State = "pricing_lookup"
	StateMerging        State = "merging"
	StateDone           State = "done"
)

// searchQueryDescriptionLimit is how many characters of the description
// are appended to the category to form the search query.
const searchQueryDescriptionLimit = 100

// Request is one combined analysis request. It is not modified by the pipeline.
type Request struct {
	Image      []byte
	Category   string
	Confidence float64
	Prompt     string
}

// Result is the merged answer of the combined flow.
type Result struct {
	Description    string         `json:"description"`
	Tags           []string       `json:"tags"`
	Price          *string        `json:"price"`
	WikiInfo       *string        `json:"wiki_info"`
	RelatedImages  []string       `json:"related_images"`
	AdditionalData map[string]any `json:"additional_data"`
}

// StageError records the state in which the flow failed.
type StageError struct {
	State State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Orchestrator sequences image analysis, web search and price lookup. It
// also exposes each step on its own for the single-purpose endpoints.
type Orchestrator struct {
	analyzer llm.Analyzer
	search   search.Provider
	price    price.Provider
	now      func() time.Time

	maxImagePixels int64
}

func New(analyzer llm.Analyzer, searchProvider search.Provider, priceProvider price.Provider) *Orchestrator {
	return &Orchestrator{
		analyzer: analyzer,
		search:   searchProvider,
		price:    priceProvider,
		now:      time.Now,

		maxImagePixels: imaging.DefaultMaxPixels,
	}
}

// SetMaxImagePixels sets the largest width*height accepted for uploads.
func (o *Orchestrator) SetMaxImagePixels(n int64) {
	o.maxImagePixels = n
}

// Live reports whether image analysis runs on a real model backend.
func (o *Orchestrator) Live() bool {
	return o.analyzer.Live()
}

// DefaultPrompt is used when a combined request carries no prompt.
func DefaultPrompt(category string) string {
	return fmt.Sprintf("请详细分析这个%s物体", category)
}

// BuildSearchQuery joins the category with the start of the description.
func BuildSearchQuery(category, description string) string {
	runes := []rune(description)
	if len(runes) > searchQueryDescriptionLimit {
		runes = runes[:searchQueryDescriptionLimit]
	}
	return category + " " + string(runes)
}

// Run executes the combined flow. A search backend that is unavailable is
// replaced by an empty result; any other failure aborts the whole request
// and no partial result is returned.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	start := o.now()
	result, err := o.run(ctx, req)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("failed").Inc()
		log.Error().Err(err).Str("category", req.Category).Msg("combined analysis failed")
		return nil, err
	}

	metrics.PipelineRuns.WithLabelValues("done").Inc()
	log.Info().
		Str("category", req.Category).
		Float64("clientConfidence", req.Confidence).
		Strs("tags", result.Tags).
		Dur("elapsed", o.now().Sub(start)).
		Msg("combined analysis complete")
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request) (*Result, error) {
	img, err := timeStage(StateReceivingInput, func() (*imaging.Image, error) {
		return imaging.Decode(req.Image, o.maxImagePixels)
	})
	if err != nil {
		return nil, &StageError{State: StateReceivingInput, Err: err}
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = DefaultPrompt(req.Category)
	}

	analysis, err := timeStage(StateAnalyzing, func() (*llm.Analysis, error) {
		return o.analyze(ctx, img, prompt, llm.Options{})
	})
	if err != nil {
		return nil, &StageError{State: StateAnalyzing, Err: err}
	}

	query := BuildSearchQuery(req.Category, analysis.Description)
	webResult, err := timeStage(StateSearching, func() (*search.Result, error) {
		return o.search.Search(ctx, search.NewQuery(query))
	})
	if err != nil {
		var unavailable *search.UnavailableError
		if !errors.As(err, &unavailable) {
			return nil, &StageError{State: StateSearching, Err: err}
		}
		log.Warn().Err(err).Str("query", query).Msg("search unavailable, continuing with empty result")
		webResult = search.Empty(query)
	}

	priceResult, err := timeStage(StatePricingLookup, func() (*price.Result, error) {
		return o.price.CheckPrice(ctx, req.Category, analysis.Description, price.DefaultSources)
	})
	if err != nil {
		return nil, &StageError{State: StatePricingLookup, Err: err}
	}

	log.Debug().Str("state", string(StateMerging)).Msg("merging pipeline results")

	return &Result{
		Description:   analysis.Description,
		Tags:          analysis.Tags,
		Price:         optional(priceResult.AveragePrice),
		WikiInfo:      optional(webResult.WikiInfo),
		RelatedImages: []string{},
		AdditionalData: map[string]any{
			"web_search":      webResult,
			"price_info":      priceResult,
			"llava_raw":       analysis,
			"processing_time": o.now().Format(time.RFC3339Nano),
		},
	}, nil
}

// AnalyzeImage decodes an upload and runs image analysis only.
func (o *Orchestrator) AnalyzeImage(ctx context.Context, data []byte, prompt string, opts llm.Options) (*llm.Analysis, error) {
	img, err := imaging.Decode(data, o.maxImagePixels)
	if err != nil {
		return nil, err
	}
	return o.analyze(ctx, img, prompt, opts)
}

// Search runs the web search step only.
func (o *Orchestrator) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	return o.search.Search(ctx, q)
}

// CheckPrice runs the price lookup step only.
func (o *Orchestrator) CheckPrice(ctx context.Context, category, description string, sources []string) (*price.Result, error) {
	return o.price.CheckPrice(ctx, category, description, sources)
}

func (o *Orchestrator) analyze(ctx context.Context, img *imaging.Image, prompt string, opts llm.Options) (*llm.Analysis, error) {
	mode := metrics.Mode(o.analyzer.Live())
	analysis, err := o.analyzer.Analyze(ctx, img, prompt, opts)
	if err != nil {
		metrics.InferenceCalls.WithLabelValues(mode, "error").Inc()
		return nil, err
	}
	metrics.InferenceCalls.WithLabelValues(mode, "ok").Inc()

	if analysis.Tags == nil {
		analysis.Tags = []string{}
	}
	return analysis, nil
}

func timeStage[T any](state State, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	metrics.StageDuration.WithLabelValues(string(state)).Observe(time.Since(start).Seconds())
	log.Debug().Str("state", string(state)).Dur("elapsed", time.Since(start)).Err(err).Msg("pipeline stage finished")
	return v, err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

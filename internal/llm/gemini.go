package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/raine/ai-camera-cloud/internal/imaging"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini 2.5 Flash pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.30
	geminiOutputPricePerMillion = 2.50
)

// liveConfidence is reported for every live answer; the backend does not
// expose a calibrated score.
const liveConfidence = 0.95

var geminiSystemInstruction = strings.TrimSpace(dedent.Dedent(`
	You are the vision assistant of a camera app.
	Describe the main object in the photo: what it is, its material, condition and typical use.
	Answer in Simplified Chinese in plain prose, 2-4 sentences, no markdown.
	If the object clearly belongs to one of these categories, name the category word verbatim:
	电子产品, 家具, 服装, 食品, 交通工具, 建筑, 植物, 动物, 工具, 运动器材.
`))

// GeminiConfig configures the live vision backend.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // Optional override, used for proxies and tests
	Options Options
}

// GeminiModel runs image analysis on Google's Gemini API.
type GeminiModel struct {
	client   *genai.Client
	model    string
	defaults Options
}

var (
	_ Analyzer       = (*GeminiModel)(nil)
	_ OptionResolver = (*GeminiModel)(nil)
)

// NewGeminiModel creates the live backend. It returns ErrBackendUnavailable
// when no API key is configured.
func NewGeminiModel(ctx context.Context, cfg GeminiConfig) (*GeminiModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrBackendUnavailable)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrBackendUnavailable, err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	return &GeminiModel{client: client, model: model, defaults: cfg.Options}, nil
}

func (g *GeminiModel) Live() bool {
	return true
}

// Model returns the configured model name.
func (g *GeminiModel) Model() string {
	return g.model
}

// Analyze sends the image and prompt to Gemini and extracts tags from the
// generated description.
func (g *GeminiModel) Analyze(ctx context.Context, img *imaging.Image, prompt string, opts Options) (*Analysis, error) {
	opts = g.ResolveOptions(opts)

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		{InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType}},
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(geminiSystemInstruction, genai.RoleUser),
		MaxOutputTokens:   int32(opts.MaxTokens),
	}
	if opts.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*opts.Temperature))
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, &InferenceError{Model: g.model, Err: fmt.Errorf("failed to generate content: %w", err)}
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, &InferenceError{Model: g.model, Err: fmt.Errorf("no response from Gemini")}
	}

	description := strings.TrimSpace(result.Text())
	if description == "" {
		return nil, &InferenceError{Model: g.model, Err: fmt.Errorf("empty response from Gemini")}
	}

	if result.UsageMetadata != nil {
		inputTokens := int64(result.UsageMetadata.PromptTokenCount)
		outputTokens := int64(result.UsageMetadata.CandidatesTokenCount)
		event := log.Info().
			Str("model", g.model).
			Int("maxTokens", opts.MaxTokens)
		if opts.Temperature != nil {
			event = event.Float64("temperature", *opts.Temperature)
		}
		event.
			Int64("inputTokens", inputTokens).
			Int64("outputTokens", outputTokens).
			Float64("costUSD", calculateGeminiCost(inputTokens, outputTokens)).
			Msg("vision llm call")
	}

	return &Analysis{
		Description: description,
		Tags:        ExtractTags(description),
		Confidence:  liveConfidence,
		Model:       g.model,
	}, nil
}

// ResolveOptions fills unset fields of opts from the configured defaults.
// An explicit zero temperature is kept.
func (g *GeminiModel) ResolveOptions(opts Options) Options {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = g.defaults.MaxTokens
	}
	if opts.Temperature == nil {
		opts.Temperature = g.defaults.Temperature
	}
	return opts
}

func calculateGeminiCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * geminiInputPricePerMillion
	outputCost := float64(outputTokens) / 1_000_000 * geminiOutputPricePerMillion
	return inputCost + outputCost
}

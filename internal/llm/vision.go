package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/raine/ai-camera-cloud/internal/imaging"
)

// Analysis is the model's reading of a single image.
type Analysis struct {
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Confidence  float64  `json:"confidence"`
	Model       string   `json:"model"`
}

// Options are per-call generation settings. A non-positive MaxTokens or a
// nil Temperature falls back to the analyzer's configured defaults.
type Options struct {
	MaxTokens   int
	Temperature *float64
}

// OptionResolver is implemented by analyzers that fill unset Options from
// their configured defaults.
type OptionResolver interface {
	ResolveOptions(opts Options) Options
}

// Analyzer produces a description of an image for a given prompt.
type Analyzer interface {
	Analyze(ctx context.Context, img *imaging.Image, prompt string, opts Options) (*Analysis, error)
	// Live reports whether a real model backend answers the calls.
	Live() bool
}

// ErrBackendUnavailable means no model backend could be loaded. It is only
// returned at construction time; callers fall back to the simulated model.
var ErrBackendUnavailable = errors.New("vision backend unavailable")

// InferenceError wraps a failed call to a loaded model backend.
type InferenceError struct {
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed (%s): %v", e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

package llm

import (
	"context"
	"fmt"

	"github.com/raine/ai-camera-cloud/internal/imaging"
	"golang.org/x/sync/semaphore"
)

// GatedAnalyzer bounds the number of concurrent calls into the inner
// analyzer. Waiting callers give up when their context is done.
type GatedAnalyzer struct {
	inner Analyzer
	sem   *semaphore.Weighted
}

var _ Analyzer = (*GatedAnalyzer)(nil)

func NewGatedAnalyzer(inner Analyzer, limit int64) *GatedAnalyzer {
	return &GatedAnalyzer{inner: inner, sem: semaphore.NewWeighted(limit)}
}

func (g *GatedAnalyzer) Live() bool {
	return g.inner.Live()
}

func (g *GatedAnalyzer) Analyze(ctx context.Context, img *imaging.Image, prompt string, opts Options) (*Analysis, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire inference slot: %w", err)
	}
	defer g.sem.Release(1)

	return g.inner.Analyze(ctx, img, prompt, opts)
}

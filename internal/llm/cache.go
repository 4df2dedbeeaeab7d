package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"github.com/raine/ai-camera-cloud/internal/imaging"
	"github.com/raine/ai-camera-cloud/internal/storage"
	"github.com/rs/zerolog/log"
)

// AnalysisCache is the persistence CachedAnalyzer needs.
type AnalysisCache interface {
	GetAnalysis(inputHash string, maxAge time.Duration) (*storage.AnalysisCacheEntry, error)
	SetAnalysis(inputHash string, entry *storage.AnalysisCacheEntry) error
}

// CachedAnalyzer wraps a live Analyzer with an expiring cache. Results of a
// simulated analyzer are passed through untouched.
type CachedAnalyzer struct {
	inner Analyzer
	cache AnalysisCache
	ttl   time.Duration
}

var _ Analyzer = (*CachedAnalyzer)(nil)

// NewCachedAnalyzer creates a cached analyzer.
func NewCachedAnalyzer(inner Analyzer, cache AnalysisCache, ttl time.Duration) *CachedAnalyzer {
	return &CachedAnalyzer{inner: inner, cache: cache, ttl: ttl}
}

func (c *CachedAnalyzer) Live() bool {
	return c.inner.Live()
}

// hashInput hashes everything that influences the model output.
// Length prefixes keep field boundaries unambiguous.
func hashInput(img *imaging.Image, prompt string, opts Options) string {
	h := sha256.New()
	for _, field := range [][]byte{img.Data, []byte(img.MIMEType), []byte(prompt)} {
		binary.Write(h, binary.LittleEndian, int64(len(field)))
		h.Write(field)
	}
	binary.Write(h, binary.LittleEndian, int64(opts.MaxTokens))
	if opts.Temperature != nil {
		h.Write([]byte{1})
		binary.Write(h, binary.LittleEndian, math.Float64bits(*opts.Temperature))
	} else {
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *CachedAnalyzer) Analyze(ctx context.Context, img *imaging.Image, prompt string, opts Options) (*Analysis, error) {
	if c.cache == nil || !c.inner.Live() {
		return c.inner.Analyze(ctx, img, prompt, opts)
	}

	// Key on the options the model will actually see
	if r, ok := c.inner.(OptionResolver); ok {
		opts = r.ResolveOptions(opts)
	}
	hash := hashInput(img, prompt, opts)

	cached, err := c.cache.GetAnalysis(hash, c.ttl)
	if err != nil {
		log.Warn().Err(err).Msg("failed to check analysis cache")
	} else if cached != nil {
		log.Debug().Str("hash", hash[:16]).Msg("analysis cache hit")
		return &Analysis{
			Description: cached.Description,
			Tags:        cached.Tags,
			Confidence:  cached.Confidence,
			Model:       cached.Model,
		}, nil
	}

	result, err := c.inner.Analyze(ctx, img, prompt, opts)
	if err != nil {
		return nil, err
	}

	entry := &storage.AnalysisCacheEntry{
		Description: result.Description,
		Tags:        result.Tags,
		Confidence:  result.Confidence,
		Model:       result.Model,
	}
	if err := c.cache.SetAnalysis(hash, entry); err != nil {
		log.Warn().Err(err).Msg("failed to cache analysis")
	} else {
		log.Debug().Str("hash", hash[:16]).Msg("cached analysis")
	}

	return result, nil
}

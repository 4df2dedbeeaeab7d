package janitor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultInterval is the time between prune cycles.
const DefaultInterval = 10 * time.Minute

// Pruner removes cache entries older than maxAge and reports how many.
type Pruner interface {
	PruneAnalyses(maxAge time.Duration) (int64, error)
}

// Service periodically drops expired analysis cache rows.
type Service struct {
	store    Pruner
	maxAge   time.Duration
	interval time.Duration
}

// NewService creates a janitor. A non-positive interval uses DefaultInterval.
func NewService(store Pruner, maxAge, interval time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{store: store, maxAge: maxAge, interval: interval}
}

// Run prunes once, then on every tick. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Dur("maxAge", s.maxAge).Msg("starting cache janitor")

	s.prune()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("cache janitor stopped")
			return
		case <-ticker.C:
			s.prune()
		}
	}
}

func (s *Service) prune() {
	count, err := s.store.PruneAnalyses(s.maxAge)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune analysis cache")
		return
	}
	if count > 0 {
		log.Info().Int64("pruned", count).Msg("pruned expired analyses")
	}
}

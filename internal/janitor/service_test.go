package janitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingPruner struct {
	calls  atomic.Int32
	maxAge atomic.Int64
	err    error
}

func (p *countingPruner) PruneAnalyses(maxAge time.Duration) (int64, error) {
	p.calls.Add(1)
	p.maxAge.Store(int64(maxAge))
	return 3, p.err
}

func TestRun_PrunesUntilCancelled(t *testing.T) {
	p := &countingPruner{}
	s := NewService(p, time.Hour, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return p.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
	assert.Equal(t, int64(time.Hour), p.maxAge.Load())
}

func TestRun_ErrorsDoNotStopLoop(t *testing.T) {
	p := &countingPruner{err: errors.New("database is locked")}
	s := NewService(p, time.Minute, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	assert.Eventually(t, func() bool { return p.calls.Load() >= 2 }, time.Second, time.Millisecond)
}

func TestNewService_DefaultInterval(t *testing.T) {
	s := NewService(&countingPruner{}, time.Minute, 0)
	assert.Equal(t, DefaultInterval, s.interval)
}

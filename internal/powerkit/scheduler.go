package powerkit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/rs/zerolog"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/logging"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
)

// Scheduler runs processing cycles on an interval so the cache stays warm
// and status line renders are served from the FRESH tier.
type Scheduler struct {
	pipeline *Pipeline
	pool     *plugins.WorkerPool
	interval time.Duration
	clock    clock.Clock
	log      zerolog.Logger

	mu      sync.RWMutex
	last    []Output
	lastRun time.Time

	trigger chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	startMu sync.Mutex
	started bool
}

// NewScheduler creates a scheduler running a cycle every interval.
func NewScheduler(p *Pipeline, pool *plugins.WorkerPool, interval time.Duration, c clock.Clock) *Scheduler {
	if c == nil {
		c = clock.New()
	}
	return &Scheduler{
		pipeline: p,
		pool:     pool,
		interval: interval,
		clock:    c,
		log:      logging.Component("scheduler"),
		trigger:  make(chan struct{}, 1),
	}
}

// Start runs an initial cycle and then one per interval until Stop is
// called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.started {
		s.log.Warn().Msg("scheduler already started")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	s.wg.Add(1)
	go s.loop(ctx)

	s.log.Debug().Dur("interval", s.interval).Msg("scheduler started")
}

// Trigger requests an immediate cycle. It never blocks; a pending request
// absorbs further ones.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels the loop and waits for the running cycle to finish.
func (s *Scheduler) Stop() {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if !s.started {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.started = false
	s.log.Debug().Msg("scheduler stopped")
}

// RunOnce runs a single cycle and records its outputs.
func (s *Scheduler) RunOnce(ctx context.Context) []Output {
	outs := s.pipeline.RenderAll(ctx, s.pool)

	s.mu.Lock()
	s.last = outs
	s.lastRun = s.clock.Now()
	s.mu.Unlock()

	visible := 0
	for _, o := range outs {
		if !o.Hidden {
			visible++
		}
	}
	s.log.Debug().Int("plugins", len(outs)).Int("visible", visible).Msg("cycle complete")
	return outs
}

// Latest returns the outputs of the last completed cycle and when it ran.
func (s *Scheduler) Latest() ([]Output, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Output, len(s.last))
	copy(out, s.last)
	return out, s.lastRun
}

// Ready reports an error until a cycle has completed, and again if cycles
// stop completing for three intervals.
func (s *Scheduler) Ready() error {
	_, last := s.Latest()
	if last.IsZero() {
		return errors.New("no cycle completed yet")
	}
	if behind := s.clock.Now().Sub(last); behind > 3*s.interval {
		return fmt.Errorf("last cycle %s ago", behind.Round(time.Second))
	}
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			s.RunOnce(ctx)
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

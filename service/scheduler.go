package service

import (
	"context"
	"time"

	"github.com/database64128/rulesets-go/build"
	"go.uber.org/zap"
)

// Scheduler builds the rulesets on start, then on every tick and every trigger.
// Builds never overlap.
type Scheduler struct {
	logger    *zap.Logger
	builder   *build.Builder
	interval  time.Duration
	triggerCh chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScheduler returns a scheduler that rebuilds every interval.
// If interval is zero, it only rebuilds when triggered.
func NewScheduler(logger *zap.Logger, builder *build.Builder, interval time.Duration) *Scheduler {
	return &Scheduler{
		logger:    logger,
		builder:   builder,
		interval:  interval,
		triggerCh: make(chan struct{}, 1),
	}
}

// ZapField implements [rulesets.Service.ZapField].
func (s *Scheduler) ZapField() zap.Field {
	return zap.String("service", "scheduler")
}

// Start implements [rulesets.Service.Start].
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	var tickCh <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tickCh = ticker.C
	}

	for {
		s.build(ctx)

		select {
		case <-ctx.Done():
			return
		case <-tickCh:
		case <-s.triggerCh:
			s.logger.Info("Rebuild triggered")
		}
	}
}

func (s *Scheduler) build(ctx context.Context) {
	start := time.Now()
	reports, err := s.builder.Build(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("Build finished with errors",
			zap.Int("built", len(reports)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("Build finished",
		zap.Int("built", len(reports)),
		zap.Duration("duration", time.Since(start)),
	)
}

// Trigger requests a rebuild. Requests made during a build are coalesced into one rebuild.
func (s *Scheduler) Trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

// Stop implements [rulesets.Service.Stop].
// It cancels the build in progress and waits for it to return.
func (s *Scheduler) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	<-s.done
	return nil
}

// Package cleanup evicts idle debates from the in-memory registry.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/deliberatorium/pkg/config"
	"github.com/codeready-toolchain/deliberatorium/pkg/debate"
)

// Service periodically removes debates that have been idle longer than the
// configured TTL. Debates with a turn in flight are never removed.
type Service struct {
	config   *config.RetentionConfig
	registry *debate.Registry
	now      func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg *config.RetentionConfig, registry *debate.Registry) *Service {
	return &Service{
		config:   cfg,
		registry: registry,
		now:      time.Now,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"debate_ttl", s.config.DebateTTL,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictIdleDebates()
		}
	}
}

func (s *Service) evictIdleDebates() int {
	count := s.registry.EvictIdle(s.now().Add(-s.config.DebateTTL))
	if count > 0 {
		slog.Info("Retention: evicted idle debates", "count", count, "remaining", s.registry.Len())
	}
	return count
}

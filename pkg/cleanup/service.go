// Package cleanup enforces retention on the conversation store.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/tienda-lubbi/mirador/pkg/memory"
)

// DefaultInterval is how often the retention pass runs.
const DefaultInterval = time.Hour

// Service periodically deletes conversation turns older than the retention
// TTL. Deletion is idempotent and safe to run from multiple instances.
type Service struct {
	store    memory.Store
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a retention service. A non-positive ttl disables it.
func NewService(store memory.Store, ttl, interval time.Duration, logger *slog.Logger) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		store:    store,
		ttl:      ttl,
		interval: interval,
		logger:   logger.With("component", "cleanup"),
	}
}

// Start launches the background retention loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	if s.ttl <= 0 {
		s.logger.Info("conversation retention disabled")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)

	s.logger.Info("retention service started", "ttl", s.ttl, "interval", s.interval)
}

// Stop signals the retention loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("retention service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.pruneOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pruneOnce(ctx)
		}
	}
}

func (s *Service) pruneOnce(ctx context.Context) {
	pruned, err := s.store.Prune(ctx, time.Now().UTC().Add(-s.ttl))
	if err != nil {
		s.logger.Error("retention prune failed", "error", err)
		return
	}
	if pruned > 0 {
		s.logger.Info("pruned expired conversation turns", "count", pruned)
	}
}

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shogun1988/authportal/internal/portal/store"
)

// HousekeepingService periodically clears reset nonces whose tokens have
// already expired. Expired tokens cannot redeem regardless, so the nonces
// are dead state; sweeping them keeps the users table honest.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// NonceTTL must match the reset token lifetime so a nonce is only
	// swept once its token is certainly expired.
	NonceTTL time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping worker. An interval of 0 or
// less defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval, nonceTTL time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		NonceTTL: nonceTTL,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the worker and blocks until any in-progress sweep is done.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep immediately on startup
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) sweep() {
	ctx := context.Background()
	cutoff := time.Now().UTC().Add(-s.NonceTTL)

	cleared, err := s.Store.Users().ClearStaleResetNonces(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to clear stale reset nonces", "error", err)
		return
	}
	if cleared > 0 {
		s.Logger.Info("cleared stale reset nonces", "count", cleared)
	}
}

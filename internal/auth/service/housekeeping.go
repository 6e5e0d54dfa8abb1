package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
)

const defaultHousekeepingInterval = time.Hour

// HousekeepingService sweeps expired login sessions out of the SQL session
// table on a fixed interval. Expired invitations stay listed for admins and
// OAuth records live until disconnect, so neither is swept.
type HousekeepingService struct {
	Sessions store.Sessions
	Logger   *slog.Logger
	Interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewHousekeepingService falls back to an hourly sweep for a non-positive
// interval.
func NewHousekeepingService(sessions store.Sessions, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = defaultHousekeepingInterval
	}
	return &HousekeepingService{Sessions: sessions, Logger: logger, Interval: interval}
}

// Start sweeps once straight away and then on every tick until Stop.
func (s *HousekeepingService) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		tick := time.NewTicker(s.Interval)
		defer tick.Stop()

		for {
			s.Cleanup(ctx)
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
			}
		}
	}()

	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop cancels any sweep in flight and waits for the worker to exit. It is
// safe to call on a service that was never started.
func (s *HousekeepingService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.Logger.Info("housekeeping stopped")
}

// Cleanup runs a single sweep.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	if err := s.Sessions.DeleteExpiredSessions(ctx); err != nil {
		if ctx.Err() == nil {
			s.Logger.Error("failed to delete expired sessions", "error", err)
		}
		return
	}
	s.Logger.Debug("expired sessions swept")
}

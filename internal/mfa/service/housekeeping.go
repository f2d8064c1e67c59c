package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store"
)

// HousekeepingService periodically purges used and expired email OTP codes.
type HousekeepingService struct {
	Codes    store.EmailOTPCodes
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewHousekeepingService creates a housekeeping worker. A non-positive
// interval defaults to one hour.
func NewHousekeepingService(codes store.EmailOTPCodes, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Codes:    codes,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs cleanup immediately and then every Interval until Stop. Only
// the first call starts the worker.
func (s *HousekeepingService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished. It returns at once
// if the worker was never started and is safe to call more than once.
func (s *HousekeepingService) Stop() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}

	s.stopOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
		s.Logger.Info("housekeeping service stopped")
	})
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup deletes used and expired email OTP codes once.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	if err := s.Codes.DeleteExpiredEmailOTPCodes(ctx, s.Now().UTC()); err != nil {
		s.Logger.Error("failed to delete expired email OTP codes", "error", err)
		return
	}
	s.Logger.Debug("deleted expired email OTP codes")
}

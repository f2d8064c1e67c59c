package service

import (
	"time"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/domain"
)

const (
	defaultLockoutThreshold = 5
	defaultLockoutDuration  = 15 * time.Minute
)

// LockStatus is the result of CheckLocked.
type LockStatus struct {
	Locked           bool
	RemainingSeconds int
}

// LockoutGuard tracks failed challenge attempts. Once the counter reaches
// Threshold the user is locked for Duration. An expired lock needs no write
// to be treated as open.
type LockoutGuard struct {
	Threshold int
	Duration  time.Duration
	Now       func() time.Time
}

func (g LockoutGuard) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g LockoutGuard) threshold() int {
	if g.Threshold <= 0 {
		return defaultLockoutThreshold
	}
	return g.Threshold
}

func (g LockoutGuard) duration() time.Duration {
	if g.Duration <= 0 {
		return defaultLockoutDuration
	}
	return g.Duration
}

// CheckLocked reports whether settings are locked at the current time.
func (g LockoutGuard) CheckLocked(settings domain.MFASettings) LockStatus {
	if settings.LockedUntil == nil {
		return LockStatus{}
	}

	remaining := settings.LockedUntil.Sub(g.now())
	if remaining <= 0 {
		return LockStatus{}
	}
	return LockStatus{
		Locked:           true,
		RemainingSeconds: int((remaining + time.Second - 1) / time.Second),
	}
}

// RecordSuccess clears the counter and any lock.
func (g LockoutGuard) RecordSuccess(settings domain.MFASettings) domain.MFASettings {
	settings.FailedAttempts = 0
	settings.LockedUntil = nil
	return settings
}

// RecordFailure increments the counter and arms the lock when the new count
// reaches the threshold. Below the threshold the lock is cleared.
func (g LockoutGuard) RecordFailure(settings domain.MFASettings) domain.MFASettings {
	settings.FailedAttempts++
	if settings.FailedAttempts >= g.threshold() {
		until := g.LockUntil()
		settings.LockedUntil = &until
	} else {
		settings.LockedUntil = nil
	}
	return settings
}

// LockUntil is the lock expiry a failure at the current time would set.
func (g LockoutGuard) LockUntil() time.Time {
	return g.now().Add(g.duration())
}

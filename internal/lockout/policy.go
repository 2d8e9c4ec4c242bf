package lockout

import "time"

// Policy decides when an account transitions between open and locked. It is
// stateless; callers persist the counter and lock timestamp it tells them to.
type Policy struct {
	// MaxAttempts is the failed-attempt count at which the account locks.
	MaxAttempts int
	// LockDuration is how long a lock lasts once triggered.
	LockDuration time.Duration
	// ResetCounterOnLock clears the counter at the moment of locking so the
	// next window starts clean. When false the counter keeps its value and
	// only resets on a successful login.
	ResetCounterOnLock bool
}

// Default returns the policy used when nothing is configured: lock for two
// hours after five consecutive failures, counter reset at lock time.
func Default() Policy {
	return Policy{
		MaxAttempts:        5,
		LockDuration:       2 * time.Hour,
		ResetCounterOnLock: true,
	}
}

// IsLocked reports whether a lock timestamp is still in effect at now.
// Expiry is lazy: a past timestamp simply stops counting as locked.
func (p Policy) IsLocked(lockUntil *time.Time, now time.Time) bool {
	return lockUntil != nil && now.Before(*lockUntil)
}

// ShouldLock reports whether the given failed-attempt count triggers a lock.
func (p Policy) ShouldLock(failedAttempts int) bool {
	return failedAttempts >= p.MaxAttempts
}

// LockedUntil returns the instant a lock triggered at now expires.
func (p Policy) LockedUntil(now time.Time) time.Time {
	return now.Add(p.LockDuration)
}

// AttemptsAfterLock returns the counter value to persist when a lock
// triggers with the given count.
func (p Policy) AttemptsAfterLock(count int) int {
	if p.ResetCounterOnLock {
		return 0
	}
	return count
}

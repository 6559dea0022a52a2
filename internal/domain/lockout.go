package domain

import "time"

// LockoutState is the lockout envelope persisted on an account.
// Invariant: FailedAttempts is 0 whenever LockedUntil is set by a transition.
type LockoutState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// LockoutPolicy drives the OPEN/LOCKED state machine.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// IsLocked is evaluated lazily at login time; an elapsed lock reads as OPEN.
func IsLocked(state LockoutState, now time.Time) bool {
	return state.LockedUntil != nil && now.Before(*state.LockedUntil)
}

// RegisterFailure applies a failed login to state.
// Reaching the threshold locks the account and resets the counter.
// The caller persists the result with a read-modify-write, so concurrent
// failures may lose an increment; locking one attempt late is accepted.
func (p LockoutPolicy) RegisterFailure(state LockoutState, now time.Time) LockoutState {
	next := LockoutState{FailedAttempts: state.FailedAttempts}
	if state.LockedUntil != nil && !now.Before(*state.LockedUntil) {
		// expired lock: start a fresh OPEN cycle
		next.FailedAttempts = 0
	}
	next.FailedAttempts++

	threshold := p.Threshold
	if threshold <= 0 {
		threshold = 1
	}
	if next.FailedAttempts >= threshold {
		until := now.Add(p.Duration).UTC()
		return LockoutState{FailedAttempts: 0, LockedUntil: &until}
	}
	return next
}

// RegisterSuccess returns the OPEN state with a cleared counter.
func (p LockoutPolicy) RegisterSuccess() LockoutState {
	return LockoutState{}
}

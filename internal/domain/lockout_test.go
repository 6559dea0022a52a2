package domain

import (
	"testing"
	"time"
)

func TestRegisterFailureLocksAtThreshold(t *testing.T) {
	t.Parallel()

	policy := LockoutPolicy{Threshold: 3, Duration: 30 * time.Minute}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	state := LockoutState{}
	for i := 1; i < 3; i++ {
		state = policy.RegisterFailure(state, now)
		if state.FailedAttempts != i || state.LockedUntil != nil {
			t.Fatalf("failure %d: unexpected state %+v", i, state)
		}
	}

	state = policy.RegisterFailure(state, now)
	if state.LockedUntil == nil {
		t.Fatalf("expected lock at threshold")
	}
	if state.FailedAttempts != 0 {
		t.Fatalf("expected counter reset on lock, got %d", state.FailedAttempts)
	}
	if !state.LockedUntil.Equal(now.Add(30 * time.Minute)) {
		t.Fatalf("unexpected lock expiry %v", state.LockedUntil)
	}
	if !IsLocked(state, now.Add(29*time.Minute)) {
		t.Fatalf("expected locked before expiry")
	}
	if IsLocked(state, now.Add(30*time.Minute)) {
		t.Fatalf("expected open at expiry")
	}
}

func TestRegisterFailureAfterExpiredLockStartsFresh(t *testing.T) {
	t.Parallel()

	policy := LockoutPolicy{Threshold: 3, Duration: time.Minute}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	until := now.Add(-time.Second)

	state := policy.RegisterFailure(LockoutState{FailedAttempts: 2, LockedUntil: &until}, now)
	if state.FailedAttempts != 1 || state.LockedUntil != nil {
		t.Fatalf("expected fresh cycle with one failure, got %+v", state)
	}
}

func TestRegisterSuccessClearsState(t *testing.T) {
	t.Parallel()

	if got := (LockoutPolicy{Threshold: 5}).RegisterSuccess(); got.FailedAttempts != 0 || got.LockedUntil != nil {
		t.Fatalf("expected cleared state, got %+v", got)
	}
}

func TestThresholdOneLocksOnFirstFailure(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	state := LockoutPolicy{Threshold: 1, Duration: time.Minute}.RegisterFailure(LockoutState{}, now)
	if !IsLocked(state, now) {
		t.Fatalf("expected immediate lock")
	}
}

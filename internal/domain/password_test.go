package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		password string
		ok       bool
	}{
		{name: "blank", password: "      ", ok: false},
		{name: "too short", password: "abc12", ok: false},
		{name: "minimum", password: "abc123", ok: true},
		{name: "bcrypt limit", password: strings.Repeat("a", 72), ok: true},
		{name: "over bcrypt limit", password: strings.Repeat("a", 73), ok: false},
	}
	for _, tc := range cases {
		err := ValidatePassword(tc.password)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	got, err := NormalizeEmail("  Jane.Doe@Campus.EDU ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "jane.doe@campus.edu" {
		t.Fatalf("unexpected normalized email %q", got)
	}

	for _, bad := range []string{"", "not-an-email", "Jane <jane@campus.edu>"} {
		if _, err := NormalizeEmail(bad); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected %q to be rejected, got %v", bad, err)
		}
	}
}

func TestValidationErrorCollectsFields(t *testing.T) {
	t.Parallel()

	verr := NewValidationError()
	if verr.OrNil() != nil {
		t.Fatalf("empty validation error should be nil")
	}
	verr.Check("password", ValidatePassword("x"))
	verr.Check("email", nil)
	verr.Add("password", "second message ignored")

	err := verr.OrNil()
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, ok := verr.Fields["email"]; ok {
		t.Fatalf("nil check should not add a field")
	}
	if !strings.HasPrefix(verr.Fields["password"], "password must be at least") {
		t.Fatalf("unexpected field message %q", verr.Fields["password"])
	}
}

package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestParseRole(t *testing.T) {
	t.Parallel()

	role, err := ParseRole(" Faculty ")
	if err != nil || role != RoleFaculty {
		t.Fatalf("expected faculty, got %q %v", role, err)
	}
	if _, err := ParseRole("superuser"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAuthorizeRolesHasNoHierarchy(t *testing.T) {
	t.Parallel()

	admin := Principal{AccountID: uuid.New(), Role: RoleAdmin}
	if err := AuthorizeRoles(admin, RoleFaculty); !errors.Is(err, ErrForbidden) {
		t.Fatalf("admin must not pass a faculty-only check, got %v", err)
	}
	if err := AuthorizeRoles(admin, RoleFaculty, RoleAdmin); err != nil {
		t.Fatalf("admin listed explicitly should pass: %v", err)
	}
}

func TestAuthorizeOwnerOrRoles(t *testing.T) {
	t.Parallel()

	owner := Principal{AccountID: uuid.New(), Role: RoleStudent}
	other := Principal{AccountID: uuid.New(), Role: RoleStudent}

	if err := AuthorizeOwnerOrRoles(owner, owner.AccountID, RoleAdmin); err != nil {
		t.Fatalf("owner should pass: %v", err)
	}
	if err := AuthorizeOwnerOrRoles(other, owner.AccountID, RoleAdmin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-owner student should be forbidden, got %v", err)
	}
	if err := AuthorizeOwnerOrRoles(owner, uuid.Nil, RoleAdmin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("nil owner id must not match, got %v", err)
	}
}

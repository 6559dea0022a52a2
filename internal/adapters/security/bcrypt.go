package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinProductionCost is the lowest bcrypt cost accepted unless weak hashing is explicitly allowed.
const MinProductionCost = 12

// BcryptHasher implements password hashing via bcrypt.
// Cost is configurable so security/performance can be tuned by environment.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a bcrypt-based hasher. A non-positive cost selects MinProductionCost.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost <= 0 {
		cost = MinProductionCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d,%d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

func (h *BcryptHasher) Cost() int {
	return h.cost
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare is constant-time over the hash; a malformed hash is reported like a mismatch.
func (h *BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

package auth

import "golang.org/x/crypto/bcrypt"

type PasswordHasher interface {
	Hash(pw []byte) ([]byte, error)
	Compare(hash, pw []byte) error
}

// BcryptHasher hashes with bcrypt at Cost, or bcrypt.DefaultCost when unset.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(pw []byte) ([]byte, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return bcrypt.GenerateFromPassword(pw, cost)
}

func (BcryptHasher) Compare(hash, pw []byte) error {
	return bcrypt.CompareHashAndPassword(hash, pw)
}

package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hasher is the salted one way credential hasher. The work factor comes
// from Config so there is no process wide mutable cost setting.
type Hasher struct {
	cost int
}

// NewHasher will create a Hasher with the configured cost.
func NewHasher(cfg Config) *Hasher {
	return &Hasher{cost: cfg.GetHashCost()}
}

// HashPassword will generate a password hash
func (h *Hasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	out, err := bcrypt.GenerateFromPassword([]byte(password), h.hashCost())
	return string(out), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func (h *Hasher) ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

func (h *Hasher) hashCost() int {
	if h.cost <= 0 {
		return defaultHashCost
	}
	return capHashCost(h.cost)
}

var _ PasswordAuthenticator = (*Hasher)(nil)

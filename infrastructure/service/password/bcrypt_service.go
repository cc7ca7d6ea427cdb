package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/tripdesk/tripdesk/application/port/outbound"
)

var (
	ErrEmptyPassword = errors.New("password cannot be empty")
	ErrNoStoredHash  = errors.New("employee has no password hash")
	ErrMismatch      = errors.New("password does not match")
)

// BcryptPasswordService hashes employee passwords for the directory and
// checks them at login.
type BcryptPasswordService struct {
	cost int
}

var _ outbound.PasswordService = (*BcryptPasswordService)(nil)

// NewBcryptPasswordService clamps cost into bcrypt's accepted range; zero
// selects bcrypt.DefaultCost.
func NewBcryptPasswordService(cost int) *BcryptPasswordService {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptPasswordService{cost: cost}
}

func (s *BcryptPasswordService) HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword returns nil on a match and ErrMismatch when the password
// is wrong. Malformed hashes surface as wrapped bcrypt errors.
func (s *BcryptPasswordService) ComparePassword(hash, plain string) error {
	switch {
	case hash == "":
		return ErrNoStoredHash
	case plain == "":
		return ErrEmptyPassword
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}

// Cost reports the work factor new hashes are generated with.
func (s *BcryptPasswordService) Cost() int { return s.cost }

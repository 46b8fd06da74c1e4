package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

var ErrHashingFailed = errors.New("code hashing failed")

// CodeHasher generates and verifies one-time login codes. Codes are bcrypt
// hashed so a database leak doesn't expose live codes.
type CodeHasher interface {
	Generate(digits int) (string, error)
	Hash(code string) (string, error)
	Compare(hash, code string) error
}

type bcryptCodeHasher struct {
	cost int
}

func NewCodeHasher(cost int) CodeHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptCodeHasher{cost: cost}
}

// Generate returns a zero-padded numeric code with crypto/rand entropy.
func (h *bcryptCodeHasher) Generate(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", fmt.Errorf("invalid code length %d", digits)
	}

	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

func (h *bcryptCodeHasher) Hash(code string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", ErrHashingFailed
	}
	return string(bytes), nil
}

func (h *bcryptCodeHasher) Compare(hash, code string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
}

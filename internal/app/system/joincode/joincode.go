// internal/app/system/joincode/joincode.go

// Package joincode issues community invite codes.
//
// A code is a fixed-length string drawn uniformly from the 62 ASCII letters
// and digits using crypto/rand. Codes are checked against existing
// communities before they are handed out and a used code is redrawn.
package joincode

import (
	"context"
	cryptoRand "crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"
)

// Alphabet is the symbol set codes are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	DefaultLength   = 12
	DefaultAttempts = 8
)

// ErrExhausted is returned when every draw collided with an existing code.
var ErrExhausted = errors.New("could not issue a unique join code")

// Generate draws one code of length n.
func Generate(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("join code length must be positive, got %d", n)
	}
	max := big.NewInt(int64(len(Alphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		x, err := cryptoRand.Int(cryptoRand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(Alphabet[x.Int64()])
	}
	return b.String(), nil
}

// Valid reports whether s could have been issued with length n.
func Valid(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(Alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}

// Checker reports whether a community already uses code.
type Checker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// Issuer draws codes until one is unused.
type Issuer struct {
	Length   int
	Attempts int

	// Gen draws a code; Generate by default. Tests replace it to force
	// collisions.
	Gen func(n int) (string, error)

	check Checker
	log   *zap.Logger
}

// NewIssuer returns an issuer with default length and attempt budget.
func NewIssuer(check Checker, logger *zap.Logger) *Issuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Issuer{
		Length:   DefaultLength,
		Attempts: DefaultAttempts,
		Gen:      Generate,
		check:    check,
		log:      logger,
	}
}

// Issue returns a code no existing community uses. A store failure while
// checking is returned as is; exhausting the attempt budget returns
// ErrExhausted. The check is advisory: callers still rely on the store's
// primary key when inserting and call Issue again on a conflict.
func (is *Issuer) Issue(ctx context.Context) (string, error) {
	n := is.Length
	if n <= 0 {
		n = DefaultLength
	}
	attempts := is.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	gen := is.Gen
	if gen == nil {
		gen = Generate
	}

	for i := 0; i < attempts; i++ {
		code, err := gen(n)
		if err != nil {
			return "", fmt.Errorf("generate join code: %w", err)
		}
		taken, err := is.check.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
		is.log.Info("join code collision, redrawing", zap.Int("attempt", i+1))
	}
	return "", ErrExhausted
}

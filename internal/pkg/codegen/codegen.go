// Package codegen generates coupon and referral codes.
package codegen

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// randomBytes yields 6 hex characters.
const randomBytes = 3

// DefaultMaxAttempts bounds collision retries when none is configured.
const DefaultMaxAttempts = 10

// ExistsFunc reports whether a code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator produces prefixed codes, retrying on collision.
type Generator struct {
	Random      io.Reader
	Now         func() time.Time
	MaxAttempts int
}

// New creates a Generator backed by crypto/rand and the wall clock.
func New(maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{Random: rand.Reader, Now: time.Now, MaxAttempts: maxAttempts}
}

// Generate returns prefix followed by 6 uppercase hex characters that exists
// reports as free. After MaxAttempts collisions it returns prefix followed by
// the base36 clock timestamp, so it always terminates.
func (g *Generator) Generate(ctx context.Context, prefix string, exists ExistsFunc) (string, error) {
	buf := make([]byte, randomBytes)
	for attempt := 0; attempt < g.MaxAttempts; attempt++ {
		if _, err := io.ReadFull(g.Random, buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		code := prefix + strings.ToUpper(hex.EncodeToString(buf))

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return g.Fallback(prefix), nil
}

// Fallback returns the timestamp-derived code used after repeated collisions.
func (g *Generator) Fallback(prefix string) string {
	return prefix + strings.ToUpper(strconv.FormatInt(g.Now().UnixNano(), 36))
}

package codegen

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var codePattern = regexp.MustCompile(`^META[0-9A-F]{6}$`)

func never(context.Context, string) (bool, error) { return false, nil }

func TestGenerateFormat(t *testing.T) {
	g := New(0)
	code, err := g.Generate(context.Background(), "META", never)
	require.NoError(t, err)
	assert.Regexp(t, codePattern, code)
}

func TestGenerateDeterministic(t *testing.T) {
	g := &Generator{Random: bytes.NewReader([]byte{0x12, 0xab, 0xef}), Now: time.Now, MaxAttempts: 1}
	code, err := g.Generate(context.Background(), "REF", never)
	require.NoError(t, err)
	assert.Equal(t, "REF12ABEF", code)
}

func TestGenerateFallsBackToTimestamp(t *testing.T) {
	now := time.Unix(0, 1700000000000000000)
	g := &Generator{Random: bytes.NewReader(make([]byte, 64)), Now: func() time.Time { return now }, MaxAttempts: 3}

	calls := 0
	code, err := g.Generate(context.Background(), "META", func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "METACWYVPELGPSE8", code)
}

func TestGeneratePropagatesCheckError(t *testing.T) {
	boom := errors.New("db down")
	_, err := New(0).Generate(context.Background(), "META", func(context.Context, string) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

// TestGenerateTerminatesProperty checks that generation terminates within
// MaxAttempts checks for any collision pattern and never returns a taken code.
func TestGenerateTerminatesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxAttempts := rapid.IntRange(1, 20).Draw(t, "maxAttempts")
		collisions := rapid.IntRange(0, 30).Draw(t, "collisions")

		g := New(maxAttempts)
		taken := map[string]bool{}
		calls := 0
		code, err := g.Generate(context.Background(), "META", func(_ context.Context, c string) (bool, error) {
			calls++
			if calls <= collisions {
				taken[c] = true
				return true, nil
			}
			return false, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls > maxAttempts {
			t.Fatalf("%d checks exceed bound %d", calls, maxAttempts)
		}
		if taken[code] {
			t.Fatalf("returned taken code %s", code)
		}
		if collisions < maxAttempts && !codePattern.MatchString(code) {
			t.Fatalf("expected random code, got %s", code)
		}
	})
}

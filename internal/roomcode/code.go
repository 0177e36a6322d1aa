package roomcode

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Alphabet excludes 0, O, I, 1 and lowercase l so codes survive being
// read aloud or retyped from a screenshot.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	Length      = 6
	maxAttempts = 5
)

// ErrExhausted means the retry budget ran out without finding an unused
// code. With this code space that points at a broken existence check or
// deliberate code squatting, not collision probability.
var ErrExhausted = errors.New("room_code_exhausted")

// Generator produces room codes from an injectable randomness source.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

// Generate returns one candidate code, uniform per position.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	b := make([]byte, Length)
	for i := range b {
		b[i] = Alphabet[g.rng.Intn(len(Alphabet))]
	}
	return string(b)
}

// GenerateUnique retries Generate against the exists predicate until an
// unused code turns up or the attempt budget is spent.
func (g *Generator) GenerateUnique(ctx context.Context, exists func(ctx context.Context, code string) (bool, error)) (string, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		code := g.Generate()
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
		log.Warn().Str("code", code).Int("attempt", attempt).Msg("room code collision")
	}
	return "", ErrExhausted
}

// IsValid reports whether code is exactly Length characters of the
// uppercase Alphabet.
func IsValid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(Alphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

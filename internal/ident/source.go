package ident

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// Source produces identifiers.
type Source interface {
	NewID() (uuid.UUID, error)
}

// ErrExhausted is returned by SequenceSource when it runs out of identifiers.
var ErrExhausted = errors.New("identifier sequence exhausted")

// RandomSource draws cryptographically random version 4 UUIDs.
type RandomSource struct{}

// NewID implements Source.
func (RandomSource) NewID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

// SequenceSource hands out pre-supplied identifiers in order.
type SequenceSource struct {
	mu  sync.Mutex
	ids []uuid.UUID
	pos int
}

// NewSequence builds a SequenceSource from UUID strings. It panics on a
// malformed string; it is meant for fixtures.
func NewSequence(ids ...string) *SequenceSource {
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		parsed = append(parsed, uuid.MustParse(id))
	}
	return &SequenceSource{ids: parsed}
}

// NewID implements Source.
func (s *SequenceSource) NewID() (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.ids) {
		return uuid.Nil, fmt.Errorf("%w after %d ids", ErrExhausted, len(s.ids))
	}
	id := s.ids[s.pos]
	s.pos++
	return id, nil
}

// SeededSource produces version 4 shaped UUIDs from a deterministic stream,
// so the same seed always yields the same package identifiers.
type SeededSource struct {
	mu  sync.Mutex
	rng *rand.ChaCha8
}

// NewSeeded returns a SeededSource keyed by seed.
func NewSeeded(seed string) *SeededSource {
	return &SeededSource{rng: rand.NewChaCha8(sha256.Sum256([]byte(seed)))}
}

// NewID implements Source.
func (s *SeededSource) NewID() (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uuid.NewRandomFromReader(s.rng)
}

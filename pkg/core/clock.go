package core

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time for created/updated stamps.
type Clock interface {
	Now() time.Time
}

// IDSource produces identifiers for new documents.
type IDSource interface {
	NewID() (uuid.UUID, error)
}

// SystemClock reads the wall clock, in UTC at millisecond precision.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// FixedClock always returns the same instant. Used by test mode.
type FixedClock time.Time

func (c FixedClock) Now() time.Time {
	return time.Time(c).UTC()
}

// V7IDs generates time-ordered UUIDv7 identifiers.
type V7IDs struct{}

func (V7IDs) NewID() (uuid.UUID, error) {
	return uuid.NewV7()
}

// SeededIDs generates a deterministic sequence of version 4 UUIDs from a seed.
// Two sources built from the same seed yield the same sequence.
type SeededIDs struct {
	mu      sync.Mutex
	seed    []byte
	counter uint64
}

// NewSeededIDs returns a deterministic IDSource.
func NewSeededIDs(seed string) *SeededIDs {
	return &SeededIDs{seed: []byte(seed)}
}

func (s *SeededIDs) NewID() (uuid.UUID, error) {
	s.mu.Lock()
	n := s.counter
	s.counter++
	s.mu.Unlock()

	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], n)

	h := sha256.New()
	h.Write(s.seed)
	h.Write(ctr[:])
	sum := h.Sum(nil)

	var id uuid.UUID
	copy(id[:], sum[:16])
	id[6] = (id[6] & 0x0f) | 0x40 // version 4
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant
	return id, nil
}

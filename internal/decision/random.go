package decision

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the randomness used by generation and execution sampling.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	// Float64 returns a uniform sample in [0,1).
	Float64() float64
	// IntN returns a uniform sample in [0,n).
	IntN(n int) int
}

// NewSource returns a goroutine-safe PCG source. A zero seed is replaced
// by the current time.
func NewSource(seed uint64) Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return Synchronized(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// Synchronized serialises access to src so it can be shared between the
// tick loop and concurrent executions.
func Synchronized(src Source) Source {
	if ls, ok := src.(*lockedSource); ok {
		return ls
	}
	return &lockedSource{rng: src}
}

type lockedSource struct {
	mu  sync.Mutex
	rng Source
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

package engine

import (
	"math/rand"

	"github.com/nathoo/agtcore/engine/state"
)

// RNG wraps math/rand.Rand with deterministic position tracking.
// Position increments with every roll, so the seed and position stored in
// a save block reproduce the exact sequence after a restore.
type RNG struct {
	seed int64
	src  *rand.Rand
	pos  int64
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

// Roll returns a random integer in [1, sides]. Sides below 1 roll 1.
func (r *RNG) Roll(sides int) int {
	r.pos++
	if sides < 1 {
		r.src.Int63()
		return 1
	}
	return int(r.src.Int63()%int64(sides)) + 1
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 { return r.seed }

// Position returns the number of rolls made since creation.
func (r *RNG) Position() int64 {
	return r.pos
}

// Store records the seed and position in w for the next save.
func (r *RNG) Store(w *state.World) {
	w.RNGSeed, w.RNGPos = r.seed, r.pos
}

// RestoreRNG creates an RNG and advances it to the given position.
func RestoreRNG(seed int64, position int64) *RNG {
	rng := NewRNG(seed)
	for i := int64(0); i < position; i++ {
		rng.src.Int63()
	}
	rng.pos = position
	return rng
}

// RestoreFrom re-creates the RNG recorded in w.
func RestoreFrom(w *state.World) *RNG {
	return RestoreRNG(w.RNGSeed, w.RNGPos)
}

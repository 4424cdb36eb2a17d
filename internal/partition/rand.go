// Package partition assigns whole query groups to train/test/validation
// subsets or to K cross-validation folds.
//
// Every operation draws from a caller-owned generator, in group first-seen
// order, so identical seeds and identical input order always give identical
// assignments. Nothing here touches a process-wide generator.
package partition

import (
	"math/rand/v2"
)

// seedStream is the fixed PCG stream selector; only the seed varies.
const seedStream = 0x6c65746f72 // "letor"

// NewRand returns a generator owned by a single partition request.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seedStream))
}

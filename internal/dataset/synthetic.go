package dataset

import "math/rand/v2"

// DefaultSeed is the seed used when generating synthetic data without an
// explicit one.
const DefaultSeed = 42

// Synthetic generates n vectors of dimension dim with components drawn
// uniformly from [0, 1) and sequential ids 0..n-1. The same seed always
// yields the same dataset.
func Synthetic(n, dim int, seed uint64) *Dataset {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	vectors := make([]float32, n*dim)
	for i := range vectors {
		vectors[i] = rng.Float32()
	}
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = uint64(i)
	}
	return &Dataset{Dim: dim, Vectors: vectors, IDs: ids}
}

package isokernel

import (
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// deriveSeeds expands the root seed into one independent seed per
// estimator. Seeds are drawn in index order before any estimator is
// fitted, so parallel execution order cannot change the ensemble.
func deriveSeeds(rootSeed int64, t int) []int64 {
	root := rand.New(rand.NewSource(rootSeed))
	seeds := make([]int64, t)
	for i := range seeds {
		seeds[i] = root.Int63()
	}
	return seeds
}

// subsample copies psi rows of flat, chosen without replacement, into a
// fresh flat row-major slice.
func subsample(flat []float64, n, dims, psi int, rng *rand.Rand) []float64 {
	idx := rng.Perm(n)[:psi]
	sub := make([]float64, psi*dims)
	for i, j := range idx {
		copy(sub[i*dims:(i+1)*dims], flat[j*dims:(j+1)*dims])
	}
	return sub
}

// fitEnsemble fits NEstimators independent partitions, each on its own
// subsample of size psi. Estimators share no mutable state, so fitting
// is a worker-bounded parallel map; output is identical for any Workers
// value because every estimator owns a pre-derived seed.
func fitEnsemble(flat []float64, n, dims, psi int, rootSeed int64, opts Options) ([]Partition, error) {
	t := opts.NEstimators
	seeds := deriveSeeds(rootSeed, t)
	ensemble := make([]Partition, t)

	fitOne := func(e int) {
		rng := rand.New(rand.NewSource(seeds[e]))
		sub := subsample(flat, n, dims, psi, rng)
		ensemble[e] = newPartition(opts.Method, sub, psi, dims, rng)
	}

	if opts.Workers <= 1 {
		for e := 0; e < t; e++ {
			fitOne(e)
		}
		return ensemble, nil
	}

	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for e := 0; e < t; e++ {
		e := e
		g.Go(func() error {
			fitOne(e)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ensemble, nil
}

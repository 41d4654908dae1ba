package isokernel

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ClusterOptions controls IKDC density clustering.
// Start with [DefaultClusterOptions] and override the fields you need.
type ClusterOptions struct {
	// Options configures the underlying Isolation Kernel.
	Options

	// K is the number of clusters to produce. Must be in [1, n_samples].
	K int

	// KN is the number of nearest neighbors (by similarity) used for
	// the local density estimate. Clamped to n_samples-1.
	// 0 means the default of 5; negative values are an error.
	KN int

	// V is the density threshold in [0, 1]: the fraction of the
	// maximum density below which a point is treated as low-density,
	// both during seed selection and post-processing. Default: 0.1.
	V float64

	// NInitSamples is the size of the candidate pool for centroid
	// seed selection. 0 means min(n_samples, 500).
	NInitSamples int

	// InitCenters optionally fixes the initial centroids as point
	// indices into X, overriding density-based seed selection.
	// Must hold exactly K distinct in-range indices.
	InitCenters []int

	// PostProcess enables a final pass that reassigns low-density
	// points to the cluster of their most similar denser neighbor.
	PostProcess bool

	// MaxIter caps the refinement loop. 0 means the default of 100.
	MaxIter int
}

// DefaultClusterOptions returns ClusterOptions with reasonable defaults
// for k clusters.
func DefaultClusterOptions(k int) ClusterOptions {
	return ClusterOptions{
		Options:     DefaultOptions(),
		K:           k,
		KN:          5,
		V:           0.1,
		PostProcess: true,
	}
}

// Cluster describes one cluster in the final partition.
type Cluster struct {
	// Centroid is the medoid point index into X.
	Centroid int
	// Members holds the sorted indices of the cluster's points.
	Members []int
	// NPoints is len(Members).
	NPoints int
}

// IKDC clusters data with the Isolation Kernel: points are embedded by
// an IsoKernel, local density is estimated from kernel similarity, and
// k clusters are grown from high-density, mutually distant seeds by
// iterative medoid refinement.
type IKDC struct {
	opts ClusterOptions

	fitted     bool
	kernel     *IsoKernel
	labels     []int
	clusters   []Cluster
	iterations int
}

// NewIKDC returns an unfitted IKDC with the given options.
// Option validation happens at FitPredict.
func NewIKDC(opts ClusterOptions) *IKDC {
	applyDefaults(&opts.Options)
	if opts.KN == 0 {
		opts.KN = 5
	}
	if opts.MaxIter == 0 {
		opts.MaxIter = 100
	}
	return &IKDC{opts: opts}
}

func validateClusterOptions(opts *ClusterOptions, n int) error {
	if opts.K <= 0 {
		return fmt.Errorf("isokernel: K must be > 0, got %d", opts.K)
	}
	if opts.K > n {
		return fmt.Errorf("isokernel: K (%d) exceeds the number of samples (%d)", opts.K, n)
	}
	if opts.KN < 0 {
		return fmt.Errorf("isokernel: KN must be >= 0, got %d", opts.KN)
	}
	if opts.V < 0 || opts.V > 1 {
		return fmt.Errorf("isokernel: V must be in [0, 1], got %v", opts.V)
	}
	if opts.NInitSamples < 0 {
		return fmt.Errorf("isokernel: NInitSamples must be >= 0, got %d", opts.NInitSamples)
	}
	if opts.MaxIter < 0 {
		return fmt.Errorf("isokernel: MaxIter must be >= 0, got %d", opts.MaxIter)
	}
	if opts.InitCenters != nil {
		if len(opts.InitCenters) != opts.K {
			return fmt.Errorf("isokernel: InitCenters holds %d indices, expected K = %d", len(opts.InitCenters), opts.K)
		}
		seen := make(map[int]bool, opts.K)
		for _, c := range opts.InitCenters {
			if c < 0 || c >= n {
				return fmt.Errorf("isokernel: InitCenters index %d out of range [0, %d)", c, n)
			}
			if seen[c] {
				return fmt.Errorf("isokernel: InitCenters index %d is duplicated", c)
			}
			seen[c] = true
		}
	}
	return nil
}

// FitPredict fits the kernel and the clustering on X and returns the
// cluster label of every point.
func (c *IKDC) FitPredict(X [][]float64) ([]int, error) {
	n, _, err := checkData(X)
	if err != nil {
		return nil, err
	}
	if err := validateClusterOptions(&c.opts, n); err != nil {
		return nil, err
	}

	// One root seed feeds both the kernel ensemble and the candidate
	// pool draw, each through its own derived sub-seed.
	rootSeed := c.opts.RandomState
	if rootSeed == 0 {
		rootSeed = rand.Int63()
	}
	root := rand.New(rand.NewSource(rootSeed))
	kernelSeed := root.Int63()
	if kernelSeed == 0 {
		// 0 means "draw a fresh seed" to the kernel; keep the derived
		// seed deterministic.
		kernelSeed = 1
	}
	poolRng := rand.New(rand.NewSource(root.Int63()))

	kernelOpts := c.opts.Options
	kernelOpts.RandomState = kernelSeed
	kernel := New(kernelOpts)
	if err := kernel.Fit(X); err != nil {
		return nil, err
	}
	sim, err := kernel.Similarity(X)
	if err != nil {
		return nil, err
	}

	kn := min(c.opts.KN, n-1)
	density := localDensity(sim, kn)

	centroids := c.opts.InitCenters
	if centroids == nil {
		nInit := c.opts.NInitSamples
		if nInit == 0 {
			nInit = min(n, 500)
		}
		centroids = selectSeeds(sim, density, poolRng, c.opts.K, c.opts.V, nInit)
	} else {
		centroids = append([]int(nil), centroids...)
	}

	labels, iterations := refine(sim, centroids, c.opts.MaxIter)

	if c.opts.PostProcess {
		postProcess(sim, labels, centroids, kn, c.opts.V)
	}

	c.kernel = kernel
	c.labels = labels
	c.clusters = buildClusters(labels, centroids, c.opts.K)
	c.iterations = iterations
	c.fitted = true
	return labels, nil
}

// Labels returns the cluster label of every point, or nil before
// FitPredict.
func (c *IKDC) Labels() []int { return c.labels }

// Clusters returns the K clusters of the final partition, or nil
// before FitPredict. Every cluster is non-empty.
func (c *IKDC) Clusters() []Cluster { return c.clusters }

// Iterations returns the number of refinement iterations executed.
func (c *IKDC) Iterations() int { return c.iterations }

// Kernel returns the fitted IsoKernel, usable to embed further points,
// or an error before FitPredict.
func (c *IKDC) Kernel() (*IsoKernel, error) {
	if !c.fitted {
		return nil, ErrNotFitted
	}
	return c.kernel, nil
}

// localDensity estimates the density of every point as its average
// similarity to its kn most similar other points.
func localDensity(sim *mat.Dense, kn int) []float64 {
	n, _ := sim.Dims()
	density := make([]float64, n)
	if kn <= 0 {
		return density
	}
	row := make([]float64, n)
	inds := make([]int, n)
	for i := 0; i < n; i++ {
		copy(row, sim.RawRowView(i))
		// Exclude the point itself: similarities are non-negative,
		// so -1 sorts below every real entry.
		row[i] = -1
		floats.Argsort(row, inds)
		density[i] = floats.Sum(row[n-kn:]) / float64(kn)
	}
	return density
}

// selectSeeds picks k centroid indices from a sampled candidate pool:
// the densest candidate first, then greedily the candidate maximizing
// the minimum kernel distance (1 - similarity) to the centroids already
// chosen, restricted to candidates whose density is at least v times
// the pool maximum. The pool is re-drawn from unsampled points if it
// runs out, and the density floor drops to zero as a last resort, so k
// distinct centroids are always found.
func selectSeeds(sim *mat.Dense, density []float64, rng *rand.Rand, k int, v float64, nInit int) []int {
	n := len(density)
	perm := rng.Perm(n)
	poolSize := min(nInit, n)
	inPool := make([]bool, n)
	for _, p := range perm[:poolSize] {
		inPool[p] = true
	}
	nextDraw := poolSize

	floor := 0.0
	for i := 0; i < n; i++ {
		if inPool[i] && density[i] > floor {
			floor = density[i]
		}
	}
	floor *= v

	chosen := make([]int, 0, k)
	isChosen := make([]bool, n)

	pick := func(p int) {
		chosen = append(chosen, p)
		isChosen[p] = true
	}

	// Densest candidate seeds the first cluster.
	first, firstDensity := -1, -1.0
	for i := 0; i < n; i++ {
		if inPool[i] && density[i] > firstDensity {
			first, firstDensity = i, density[i]
		}
	}
	pick(first)

	for len(chosen) < k {
		// best: maximizes min distance to chosen among dense-enough
		// candidates. fallback: any unchosen candidate, used only if
		// no candidate separates from the chosen set at all.
		best, bestScore := -1, 0.0
		fallback := -1
		for i := 0; i < n; i++ {
			if !inPool[i] || isChosen[i] || density[i] < floor {
				continue
			}
			if fallback < 0 {
				fallback = i
			}
			minDist := 2.0
			for _, c := range chosen {
				if d := 1 - sim.At(i, c); d < minDist {
					minDist = d
				}
			}
			if minDist > bestScore {
				best, bestScore = i, minDist
			}
		}
		switch {
		case best >= 0:
			pick(best)
		case nextDraw < n:
			// Pool exhausted: draw another batch of candidates.
			batch := min(poolSize, n-nextDraw)
			for _, p := range perm[nextDraw : nextDraw+batch] {
				inPool[p] = true
			}
			nextDraw += batch
		case floor > 0:
			floor = 0
		case fallback >= 0:
			pick(fallback)
		default:
			// Every point is in the pool, the floor is zero and all
			// remaining candidates coincide with a centroid. Take the
			// lowest unchosen index; K <= n guarantees one exists.
			for i := 0; i < n; i++ {
				if !isChosen[i] {
					pick(i)
					break
				}
			}
		}
	}
	return chosen
}

// refine runs the assignment/recentering loop until no point changes
// cluster or maxIter is reached. centroids is updated in place with the
// final medoids. Returns the labels and the number of iterations
// executed (always >= 1).
func refine(sim *mat.Dense, centroids []int, maxIter int) (labels []int, iterations int) {
	n, _ := sim.Dims()
	k := len(centroids)
	labels = make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	if maxIter < 1 {
		maxIter = 1
	}

	for it := 0; it < maxIter; it++ {
		iterations++

		changed := assignToCentroids(sim, centroids, labels)
		changed = repairEmptyClusters(sim, centroids, labels) || changed
		if !changed {
			break
		}

		// Medoid update: the member with the highest average
		// similarity to the rest of its cluster. A continuous mean is
		// meaningless in the one-hot embedding space.
		for j := 0; j < k; j++ {
			bestMember, bestScore := centroids[j], -1.0
			for m := 0; m < n; m++ {
				if labels[m] != j {
					continue
				}
				score := 0.0
				for q := 0; q < n; q++ {
					if labels[q] == j {
						score += sim.At(m, q)
					}
				}
				if score > bestScore {
					bestMember, bestScore = m, score
				}
			}
			centroids[j] = bestMember
		}
	}
	return labels, iterations
}

// assignToCentroids gives every point the label of the centroid it is
// most similar to, ties to the lowest cluster id. Reports whether any
// label changed.
func assignToCentroids(sim *mat.Dense, centroids []int, labels []int) bool {
	changed := false
	for i := range labels {
		best, bestSim := 0, sim.At(i, centroids[0])
		for j := 1; j < len(centroids); j++ {
			if s := sim.At(i, centroids[j]); s > bestSim {
				best, bestSim = j, s
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// repairEmptyClusters reseeds any cluster that lost all members to the
// point least covered by the live centroids (minimum best-similarity),
// claiming that point for the cluster. Reports whether any repair
// happened.
func repairEmptyClusters(sim *mat.Dense, centroids []int, labels []int) bool {
	n := len(labels)
	k := len(centroids)
	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}

	repaired := false
	for j := 0; j < k; j++ {
		if counts[j] > 0 {
			continue
		}
		farthest, farthestCover := -1, 2.0
		for i := 0; i < n; i++ {
			if counts[labels[i]] <= 1 {
				// Moving the last member of another cluster would
				// just shift the degeneracy.
				continue
			}
			cover := 0.0
			for _, c := range centroids {
				if s := sim.At(i, c); s > cover {
					cover = s
				}
			}
			if cover < farthestCover {
				farthest, farthestCover = i, cover
			}
		}
		if farthest < 0 {
			continue
		}
		counts[labels[farthest]]--
		centroids[j] = farthest
		labels[farthest] = j
		counts[j]++
		repaired = true
	}
	return repaired
}

// postProcess smooths cluster boundaries: densities are recomputed
// within each final cluster, and every point whose density falls below
// v times its cluster's maximum moves to the cluster of its most
// similar strictly denser neighbor. Centroids never move and a move
// that would empty a cluster is skipped, so k is preserved.
func postProcess(sim *mat.Dense, labels []int, centroids []int, kn int, v float64) {
	n := len(labels)
	k := len(centroids)

	members := make([][]int, k)
	for i, l := range labels {
		members[l] = append(members[l], i)
	}

	density := make([]float64, n)
	maxDensity := make([]float64, k)
	sims := make([]float64, 0, n)
	for j := 0; j < k; j++ {
		knj := min(kn, len(members[j])-1)
		if knj <= 0 {
			continue
		}
		for _, m := range members[j] {
			sims = sims[:0]
			for _, q := range members[j] {
				if q != m {
					sims = append(sims, sim.At(m, q))
				}
			}
			sort.Float64s(sims)
			density[m] = floats.Sum(sims[len(sims)-knj:]) / float64(knj)
			if density[m] > maxDensity[j] {
				maxDensity[j] = density[m]
			}
		}
	}

	isCentroid := make([]bool, n)
	for _, c := range centroids {
		isCentroid[c] = true
	}
	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}

	for p := 0; p < n; p++ {
		if isCentroid[p] || density[p] >= v*maxDensity[labels[p]] {
			continue
		}
		target, targetSim := -1, -1.0
		for q := 0; q < n; q++ {
			if q == p || density[q] <= density[p] {
				continue
			}
			if s := sim.At(p, q); s > targetSim {
				target, targetSim = q, s
			}
		}
		if target < 0 || labels[target] == labels[p] || counts[labels[p]] <= 1 {
			continue
		}
		counts[labels[p]]--
		labels[p] = labels[target]
		counts[labels[p]]++
	}
}

// buildClusters assembles the Cluster records from the final labels and
// medoids.
func buildClusters(labels []int, centroids []int, k int) []Cluster {
	clusters := make([]Cluster, k)
	for j := 0; j < k; j++ {
		clusters[j].Centroid = centroids[j]
	}
	for i, l := range labels {
		clusters[l].Members = append(clusters[l].Members, i)
	}
	for j := range clusters {
		clusters[j].NPoints = len(clusters[j].Members)
	}
	return clusters
}

package isokernel

import "math/rand"

// Partition is one random partitioning of the data space. It maps any
// point to exactly one cell index in [0, NumCells()). Partitions are
// immutable after construction.
type Partition interface {
	// Assign returns the cell index the point falls into.
	Assign(point []float64) int
	// NumCells returns the number of cells in this partition. It is
	// psi for the anne and inne methods and the realized leaf count
	// (at most psi) for iforest.
	NumCells() int
}

// newPartition builds one partition over the given subsample using the
// selected strategy. sub is flat row-major with psi rows of dims
// columns. rng is only consulted by the iforest strategy; the other two
// are fully determined by the subsample.
func newPartition(method Method, sub []float64, psi, dims int, rng *rand.Rand) Partition {
	switch method {
	case MethodINNE:
		return newINNEPartition(sub, psi, dims)
	case MethodIForest:
		return newIForestPartition(sub, psi, dims, rng)
	default:
		return newANNEPartition(sub, psi, dims)
	}
}

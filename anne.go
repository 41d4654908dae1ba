package isokernel

// annePartition implements strict Voronoi assignment: the subsample
// points are the cell centers and a query point belongs to the cell of
// its nearest center. Ties break to the lowest center index.
type annePartition struct {
	centers []float64 // flat row-major, psi rows of dims columns
	psi     int
	dims    int
}

func newANNEPartition(sub []float64, psi, dims int) *annePartition {
	return &annePartition{centers: sub, psi: psi, dims: dims}
}

func (p *annePartition) NumCells() int { return p.psi }

func (p *annePartition) Assign(point []float64) int {
	best := 0
	bestD := squaredEuclidean(point, p.centers[:p.dims])
	for c := 1; c < p.psi; c++ {
		d := squaredEuclidean(point, p.centers[c*p.dims:(c+1)*p.dims])
		if d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

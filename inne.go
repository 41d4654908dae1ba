package isokernel

import "math"

// innePartition implements isolation-ball assignment. Every center c
// carries an isolation radius r(c), the distance from c to its nearest
// neighbor within the subsample. A query point belongs to the cell of
// the nearest center whose ball contains it; a point covered by no ball
// falls back to its nearest center outright, so every point always maps
// to exactly one cell. Ties break to the lowest center index.
type innePartition struct {
	centers []float64 // flat row-major, psi rows of dims columns
	radii   []float64 // squared isolation radius per center
	psi     int
	dims    int
}

func newINNEPartition(sub []float64, psi, dims int) *innePartition {
	radii := make([]float64, psi)
	for c := 0; c < psi; c++ {
		nn := math.Inf(1)
		for o := 0; o < psi; o++ {
			if o == c {
				continue
			}
			d := squaredEuclidean(sub[c*dims:(c+1)*dims], sub[o*dims:(o+1)*dims])
			if d < nn {
				nn = d
			}
		}
		if math.IsInf(nn, 1) {
			// psi == 1: a single center with no neighbor. Radius 0
			// makes every query take the fallback path to center 0.
			nn = 0
		}
		radii[c] = nn
	}
	return &innePartition{centers: sub, radii: radii, psi: psi, dims: dims}
}

func (p *innePartition) NumCells() int { return p.psi }

func (p *innePartition) Assign(point []float64) int {
	bestIn, bestInD := -1, math.Inf(1)
	bestAny, bestAnyD := 0, math.Inf(1)
	for c := 0; c < p.psi; c++ {
		d := squaredEuclidean(point, p.centers[c*p.dims:(c+1)*p.dims])
		if d < bestAnyD {
			bestAny, bestAnyD = c, d
		}
		if d <= p.radii[c] && d < bestInD {
			bestIn, bestInD = c, d
		}
	}
	if bestIn >= 0 {
		return bestIn
	}
	return bestAny
}

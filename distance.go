package isokernel

// squaredEuclidean returns the squared Euclidean (L2) distance between
// a and b. Cell assignment only compares distances, so the final sqrt
// is never needed.
func squaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

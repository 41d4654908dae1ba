package isokernel

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// transformRows fills out with the one-hot embedding of every point:
// row i holds a single 1 per estimator block, at the cell the point is
// assigned to. Rows are independent, so work is split across workers by
// contiguous row ranges; writes never overlap.
func transformRows(out *mat.Dense, X [][]float64, ensemble []Partition, offsets []int, workers int) {
	n := len(X)
	embedRange := func(start, end int) {
		for i := start; i < end; i++ {
			for e, p := range ensemble {
				out.Set(i, offsets[e]+p.Assign(X[i]), 1)
			}
		}
	}

	if workers <= 1 || n <= 1 {
		embedRange(0, n)
		return
	}

	rowsPerWorker := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, n)
		if start >= n {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			embedRange(start, end)
		}(start, end)
	}
	wg.Wait()
}

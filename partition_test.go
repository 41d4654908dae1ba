package isokernel

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestANNEAssignNearest(t *testing.T) {
	// Three 1-D centers at 0, 1, 10.
	p := newANNEPartition([]float64{0, 1, 10}, 3, 1)

	assert.Equal(t, 3, p.NumCells())
	assert.Equal(t, 0, p.Assign([]float64{-2}))
	assert.Equal(t, 0, p.Assign([]float64{0.4}))
	assert.Equal(t, 1, p.Assign([]float64{0.9}))
	assert.Equal(t, 2, p.Assign([]float64{100}))
}

func TestANNEAssignTieBreaksLow(t *testing.T) {
	// Equidistant between centers 0 and 1.
	p := newANNEPartition([]float64{0, 1}, 2, 1)
	assert.Equal(t, 0, p.Assign([]float64{0.5}))

	// Duplicate centers: every query ties, lowest index wins.
	dup := newANNEPartition([]float64{3, 3, 3}, 3, 1)
	assert.Equal(t, 0, dup.Assign([]float64{7}))
}

func TestINNEIsolationRadii(t *testing.T) {
	// Centers 0, 1, 10: the isolation radius of each center is the
	// squared distance to its nearest neighbor in the subsample.
	p := newINNEPartition([]float64{0, 1, 10}, 3, 1)

	assert.Equal(t, []float64{1, 1, 81}, p.radii)
	assert.Equal(t, 3, p.NumCells())
}

func TestINNEAssignBallContainment(t *testing.T) {
	p := newINNEPartition([]float64{0, 1, 10}, 3, 1)

	// Inside the ball of its nearest center.
	assert.Equal(t, 0, p.Assign([]float64{0.4}))
	// Inside center 2's wide ball only.
	assert.Equal(t, 2, p.Assign([]float64{6}))
	// Outside every ball: falls back to the nearest center.
	assert.Equal(t, 2, p.Assign([]float64{25}))
}

func TestINNESingleCenter(t *testing.T) {
	p := newINNEPartition([]float64{5}, 1, 1)
	assert.Equal(t, 0, p.Assign([]float64{-100}))
	assert.Equal(t, 1, p.NumCells())
}

func TestIForestLeafBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	psi, dims := 8, 3
	sub := make([]float64, psi*dims)
	for i := range sub {
		sub[i] = rng.Float64() * 10
	}

	p := newIForestPartition(sub, psi, dims, rng)

	require.Greater(t, p.NumCells(), 0)
	require.LessOrEqual(t, p.NumCells(), psi)

	// Every subsample point and a few random queries land in a valid cell.
	for i := 0; i < psi; i++ {
		cell := p.Assign(sub[i*dims : (i+1)*dims])
		assert.GreaterOrEqual(t, cell, 0)
		assert.Less(t, cell, p.NumCells())
	}
	for i := 0; i < 20; i++ {
		q := []float64{rng.Float64() * 20, rng.Float64() * 20, rng.Float64() * 20}
		cell := p.Assign(q)
		assert.GreaterOrEqual(t, cell, 0)
		assert.Less(t, cell, p.NumCells())
	}
}

func TestIForestSeparatesTwoPoints(t *testing.T) {
	// psi = 2 gives depth cap 1: two well-separated points must end up
	// in distinct leaves.
	rng := rand.New(rand.NewSource(1))
	p := newIForestPartition([]float64{0, 100}, 2, 1, rng)

	require.Equal(t, 2, p.NumCells())
	assert.NotEqual(t, p.Assign([]float64{0}), p.Assign([]float64{100}))
}

func TestIForestDegenerateRange(t *testing.T) {
	// All subsample points identical: no feature can split, a single
	// leaf holds everything.
	rng := rand.New(rand.NewSource(1))
	p := newIForestPartition([]float64{4, 4, 4, 4}, 4, 1, rng)

	assert.Equal(t, 1, p.NumCells())
	assert.Equal(t, 0, p.Assign([]float64{-3}))
}

func TestNewPartitionDispatch(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sub := []float64{0, 1, 2, 3}

	_, ok := newPartition(MethodANNE, sub, 4, 1, rng).(*annePartition)
	assert.True(t, ok)
	_, ok = newPartition(MethodINNE, sub, 4, 1, rng).(*innePartition)
	assert.True(t, ok)
	_, ok = newPartition(MethodIForest, sub, 4, 1, rng).(*iforestPartition)
	assert.True(t, ok)
}

func TestSubsampleWithoutReplacement(t *testing.T) {
	n, dims, psi := 20, 1, 10
	flat := make([]float64, n)
	for i := range flat {
		flat[i] = float64(i)
	}

	rng := rand.New(rand.NewSource(3))
	sub := subsample(flat, n, dims, psi, rng)

	require.Len(t, sub, psi)
	seen := map[float64]bool{}
	for _, v := range sub {
		assert.False(t, seen[v], "sample %v drawn twice", v)
		seen[v] = true
	}
}

func TestDeriveSeedsDeterministic(t *testing.T) {
	a := deriveSeeds(42, 10)
	b := deriveSeeds(42, 10)
	c := deriveSeeds(43, 10)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

package isokernel

import (
	"math"
	"math/rand"
)

// iforestNode is one node of a random-split tree, stored in a flat
// array. Internal nodes route on feature/split; leaves carry their
// ordinal, which is the cell index.
type iforestNode struct {
	feature     int
	split       float64
	left, right int
	leaf        int // leaf ordinal, -1 for internal nodes
}

// iforestPartition partitions space with one random binary tree built
// over the subsample: each internal node picks a random feature and a
// uniform split value within that feature's observed range, recursing
// until a node holds a single point or the depth cap ceil(log2(psi))
// is reached. The cell of a query point is the leaf it reaches.
type iforestPartition struct {
	nodes  []iforestNode
	dims   int
	leaves int
}

func newIForestPartition(sub []float64, psi, dims int, rng *rand.Rand) *iforestPartition {
	depthCap := 0
	if psi > 1 {
		depthCap = int(math.Ceil(math.Log2(float64(psi))))
	}
	p := &iforestPartition{dims: dims}
	pts := make([]int, psi)
	for i := range pts {
		pts[i] = i
	}
	p.build(sub, pts, 0, depthCap, rng)
	return p
}

// build appends the subtree over pts and returns its root node index.
func (p *iforestPartition) build(sub []float64, pts []int, depth, depthCap int, rng *rand.Rand) int {
	node := len(p.nodes)
	p.nodes = append(p.nodes, iforestNode{leaf: -1})

	if len(pts) <= 1 || depth >= depthCap {
		return p.makeLeaf(node)
	}

	feature := rng.Intn(p.dims)
	lo, hi := sub[pts[0]*p.dims+feature], sub[pts[0]*p.dims+feature]
	for _, i := range pts[1:] {
		v := sub[i*p.dims+feature]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		// Zero range on the chosen feature: the node cannot split.
		return p.makeLeaf(node)
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right []int
	for _, i := range pts {
		if sub[i*p.dims+feature] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		// rng.Float64 can return 0, putting the split on the range
		// boundary.
		return p.makeLeaf(node)
	}

	leftIdx := p.build(sub, left, depth+1, depthCap, rng)
	rightIdx := p.build(sub, right, depth+1, depthCap, rng)
	p.nodes[node].feature = feature
	p.nodes[node].split = split
	p.nodes[node].left = leftIdx
	p.nodes[node].right = rightIdx
	return node
}

func (p *iforestPartition) makeLeaf(node int) int {
	p.nodes[node].leaf = p.leaves
	p.leaves++
	return node
}

func (p *iforestPartition) NumCells() int { return p.leaves }

func (p *iforestPartition) Assign(point []float64) int {
	i := 0
	for {
		nd := &p.nodes[i]
		if nd.leaf >= 0 {
			return nd.leaf
		}
		if point[nd.feature] < nd.split {
			i = nd.left
		} else {
			i = nd.right
		}
	}
}

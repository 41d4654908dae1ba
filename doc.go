// Package isokernel implements the Isolation Kernel, a data-dependent
// kernel feature map, and IKDC, a density-based clustering algorithm
// built on top of it.
//
// The Isolation Kernel embeds each point into a high-dimensional binary
// space using an ensemble of random partitions of the data. The inner
// product of two embeddings approximates the probability that the two
// points fall into the same partition cell, which adapts to local data
// density: points in sparse regions are considered similar at larger
// distances than points in dense regions, unlike a fixed-bandwidth
// kernel such as the Gaussian.
//
// Basic usage:
//
//	ik := isokernel.New(isokernel.DefaultOptions())
//	if err := ik.Fit(data); err != nil { ... }
//	emb, _ := ik.Transform(data)   // m × width binary matrix
//	sim, _ := ik.Similarity(data)  // m × m kernel similarity in [0, 1]
//
// For clustering:
//
//	c := isokernel.NewIKDC(isokernel.DefaultClusterOptions(3))
//	labels, err := c.FitPredict(data)
//	// labels[i] is the cluster ID for point i
//	// c.Clusters() describes each cluster (medoid, members, size)
//
// # Partitioning strategies
//
// Three interchangeable strategies build the ensemble, selected by
// Options.Method:
//
//	isokernel.MethodANNE     // Voronoi cells around subsample centers
//	isokernel.MethodINNE     // isolation balls with nearest-center fallback
//	isokernel.MethodIForest  // random-split binary trees
package isokernel

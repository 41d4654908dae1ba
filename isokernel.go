package isokernel

import (
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"

	"gonum.org/v1/gonum/mat"
)

// Method selects the partitioning strategy used to build the ensemble.
type Method string

const (
	// MethodANNE partitions space into Voronoi cells around the
	// subsample points (adaptive nearest-neighbor ensemble).
	MethodANNE Method = "anne"
	// MethodINNE partitions space into isolation balls around the
	// subsample points, with a nearest-center fallback for points
	// outside every ball (isolation nearest-neighbor ensemble).
	MethodINNE Method = "inne"
	// MethodIForest partitions space with random-split binary trees
	// built over the subsample (isolation-forest partition).
	MethodIForest Method = "iforest"
)

type maxSamplesKind int

const (
	maxSamplesAuto maxSamplesKind = iota
	maxSamplesCount
	maxSamplesFraction
)

// MaxSamples selects the subsample size (psi) drawn to train each base
// estimator. The zero value is AutoMaxSamples.
type MaxSamples struct {
	kind  maxSamplesKind
	count int
	frac  float64
}

// AutoMaxSamples resolves to min(16, n_samples).
func AutoMaxSamples() MaxSamples { return MaxSamples{kind: maxSamplesAuto} }

// CountMaxSamples draws exactly n samples per estimator. If n exceeds
// the number of training samples it is clamped with a diagnostic.
func CountMaxSamples(n int) MaxSamples { return MaxSamples{kind: maxSamplesCount, count: n} }

// FractionMaxSamples draws f * n_samples per estimator. f must be in
// (0, 1]; any other value is a configuration error at Fit.
func FractionMaxSamples(f float64) MaxSamples { return MaxSamples{kind: maxSamplesFraction, frac: f} }

// Options controls the Isolation Kernel feature map.
// Start with [DefaultOptions] and override the fields you need.
type Options struct {
	// Method is the partitioning strategy. Default: MethodANNE.
	Method Method

	// NEstimators is the number of base partitions in the ensemble.
	// More estimators give a finer-grained similarity at linear cost.
	// 0 means the default of 200; negative values are an error.
	NEstimators int

	// MaxSamples is the subsample size psi used to build each
	// partition; it bounds the cell count per partition.
	// Default: AutoMaxSamples.
	MaxSamples MaxSamples

	// RandomState seeds all randomness. A fixed non-zero seed makes
	// Fit fully reproducible regardless of Workers. 0 draws a seed
	// from the global generator.
	RandomState int64

	// Workers controls the number of goroutines used to fit the
	// ensemble and transform points. 0 means runtime.NumCPU().
	Workers int

	// Logger receives the non-fatal max-samples clamp diagnostic.
	// nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns Options with reasonable defaults.
func DefaultOptions() Options {
	return Options{
		Method:      MethodANNE,
		NEstimators: 200,
		MaxSamples:  AutoMaxSamples(),
	}
}

func applyDefaults(opts *Options) {
	if opts.Method == "" {
		opts.Method = MethodANNE
	}
	if opts.NEstimators == 0 {
		opts.NEstimators = 200
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
}

func validateOptions(opts *Options) error {
	switch opts.Method {
	case MethodANNE, MethodINNE, MethodIForest:
	default:
		return fmt.Errorf("isokernel: method %q is not supported, valid choices are %q, %q or %q",
			opts.Method, MethodANNE, MethodINNE, MethodIForest)
	}
	if opts.NEstimators <= 0 {
		return fmt.Errorf("isokernel: NEstimators must be > 0, got %d", opts.NEstimators)
	}
	return nil
}

// IsoKernel computes Isolation Kernel feature vectors via the feature
// map of an ensemble of random partitions. Fit builds the ensemble;
// Transform and Similarity are read-only afterwards, so a fitted
// IsoKernel is safe for concurrent use.
type IsoKernel struct {
	opts Options

	fitted   bool
	psi      int
	dims     int
	ensemble []Partition
	offsets  []int // column offset of each estimator block
	width    int   // total embedding width (sum of per-estimator cell counts)
}

// New returns an unfitted IsoKernel with the given options.
// Option validation happens at Fit.
func New(opts Options) *IsoKernel {
	applyDefaults(&opts)
	return &IsoKernel{opts: opts}
}

// checkData validates X and returns its shape.
func checkData(X [][]float64) (n, dims int, err error) {
	n = len(X)
	if n == 0 {
		return 0, 0, fmt.Errorf("isokernel: X has no samples")
	}
	dims = len(X[0])
	if dims == 0 {
		return 0, 0, fmt.Errorf("isokernel: X has no features")
	}
	for i, row := range X {
		if len(row) != dims {
			return 0, 0, fmt.Errorf("isokernel: X row %d has %d features, expected %d", i, len(row), dims)
		}
	}
	return n, dims, nil
}

func flatten(X [][]float64, n, dims int) []float64 {
	flat := make([]float64, n*dims)
	for i, row := range X {
		copy(flat[i*dims:], row)
	}
	return flat
}

// resolveMaxSamples turns the MaxSamples setting into a concrete psi
// for n training samples, clamping oversized counts with a diagnostic.
func (ik *IsoKernel) resolveMaxSamples(n int) (int, error) {
	ms := ik.opts.MaxSamples
	switch ms.kind {
	case maxSamplesAuto:
		return min(16, n), nil
	case maxSamplesCount:
		if ms.count <= 0 {
			return 0, fmt.Errorf("isokernel: MaxSamples count must be > 0, got %d", ms.count)
		}
		if ms.count > n {
			ik.opts.Logger.Warn("max_samples is greater than the total number of samples; clamping to n_samples",
				"max_samples", ms.count,
				"n_samples", n,
			)
			return n, nil
		}
		return ms.count, nil
	default: // fraction
		if !(ms.frac > 0 && ms.frac <= 1) {
			return 0, fmt.Errorf("isokernel: MaxSamples fraction must be in (0, 1], got %v", ms.frac)
		}
		psi := int(ms.frac * float64(n))
		if psi == 0 {
			return 0, fmt.Errorf("isokernel: MaxSamples fraction %v of %d samples resolves to an empty subsample", ms.frac, n)
		}
		return psi, nil
	}
}

// Fit builds the ensemble of partitions on X. Each partition is trained
// on an independent random subsample of size psi, drawn without
// replacement and seeded deterministically from RandomState.
func (ik *IsoKernel) Fit(X [][]float64) error {
	if err := validateOptions(&ik.opts); err != nil {
		return err
	}
	n, dims, err := checkData(X)
	if err != nil {
		return err
	}
	psi, err := ik.resolveMaxSamples(n)
	if err != nil {
		return err
	}

	seed := ik.opts.RandomState
	if seed == 0 {
		seed = rand.Int63()
	}

	flat := flatten(X, n, dims)
	ensemble, err := fitEnsemble(flat, n, dims, psi, seed, ik.opts)
	if err != nil {
		return err
	}

	offsets := make([]int, len(ensemble))
	width := 0
	for e, p := range ensemble {
		offsets[e] = width
		width += p.NumCells()
	}

	ik.psi = psi
	ik.dims = dims
	ik.ensemble = ensemble
	ik.offsets = offsets
	ik.width = width
	ik.fitted = true
	return nil
}

// Transform maps every point of X through every partition in the
// ensemble and concatenates the one-hot cell indicators. The result is
// an m × NumFeatures binary matrix with exactly NEstimators ones per
// row. The fitted ensemble is not modified.
func (ik *IsoKernel) Transform(X [][]float64) (*mat.Dense, error) {
	if !ik.fitted {
		return nil, ErrNotFitted
	}
	n, dims, err := checkData(X)
	if err != nil {
		return nil, err
	}
	if dims != ik.dims {
		return nil, fmt.Errorf("isokernel: X has %d features, model was fitted with %d", dims, ik.dims)
	}

	out := mat.NewDense(n, ik.width, nil)
	transformRows(out, X, ik.ensemble, ik.offsets, ik.opts.Workers)
	return out, nil
}

// FitTransform fits the model on X and returns its embedding.
func (ik *IsoKernel) FitTransform(X [][]float64) (*mat.Dense, error) {
	if err := ik.Fit(X); err != nil {
		return nil, err
	}
	return ik.Transform(X)
}

// Similarity computes the m × m pairwise Isolation Kernel similarity of
// X: the fraction of estimators that place each pair of points in the
// same cell. The matrix is symmetric with a unit diagonal and entries
// in [0, 1].
func (ik *IsoKernel) Similarity(X [][]float64) (*mat.Dense, error) {
	emb, err := ik.Transform(X)
	if err != nil {
		return nil, err
	}
	return gram(emb, ik.opts.NEstimators), nil
}

// gram returns (emb · embᵀ) / t. Entry-wise division keeps the diagonal
// exactly 1.0, since each row of emb holds exactly t ones.
func gram(emb *mat.Dense, t int) *mat.Dense {
	m, _ := emb.Dims()
	sim := mat.NewDense(m, m, nil)
	sim.Mul(emb, emb.T())
	div := float64(t)
	sim.Apply(func(_, _ int, v float64) float64 { return v / div }, sim)
	return sim
}

// NumFeatures returns the embedding width after Fit: the sum of cell
// counts across all partitions (NEstimators × psi for the anne and inne
// methods, possibly less for iforest). 0 before Fit.
func (ik *IsoKernel) NumFeatures() int { return ik.width }

// NumEstimators returns the configured ensemble size.
func (ik *IsoKernel) NumEstimators() int { return ik.opts.NEstimators }

// MaxSamplesResolved returns the subsample size psi actually used
// after resolution and clamping. 0 before Fit.
func (ik *IsoKernel) MaxSamplesResolved() int { return ik.psi }

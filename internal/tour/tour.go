// Package tour finds short closed tours over a decoded distance matrix with
// the lvlath TSP solvers. Tours are closed, so a tour over n vertices has
// n+1 entries and starts and ends at vertex 0.
package tour

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/lvlath/matrix"
	"github.com/katalvlaran/lvlath/tsp"
)

var (
	ErrEmpty            = errors.New("tour: empty matrix")
	ErrUnknownAlgorithm = errors.New("tour: unknown algorithm")
	errReadOnly         = errors.New("tour: weights are read-only")
)

// Weights is a square distance matrix. Diagonal entries are never read.
type Weights interface {
	Len() int
	Value(i, j int) float64
}

// Algorithm selects the tour construction.
type Algorithm string

const (
	// TwoOpt improves the catalog-order ring with 2-opt.
	TwoOpt Algorithm = "2opt"
	// Christofides builds an approximate tour and polishes it with 2-opt.
	Christofides Algorithm = "christofides"
)

// Options tunes the solver. MaxIters caps accepted 2-opt moves (0 means
// until a local optimum); a move is accepted only if it shortens the tour
// by more than Eps.
type Options struct {
	Algorithm Algorithm
	MaxIters  int
	Eps       float64
}

// Result is a solved tour. InitialLen is the length of the ring that visits
// stars in catalog order.
type Result struct {
	Algorithm  Algorithm `json:"algorithm"`
	Order      []int     `json:"order"`
	Length     float64   `json:"length"`
	InitialLen float64   `json:"initial_length"`
}

// Solve finds a closed tour from vertex 0.
func Solve(w Weights, opts Options) (Result, error) {
	n := w.Len()
	if n == 0 {
		return Result{}, ErrEmpty
	}
	o, err := opts.solverOptions()
	if err != nil {
		return Result{}, err
	}
	algo := opts.Algorithm
	if algo == "" {
		algo = TwoOpt
	}

	dist := weights{w}
	ring := catalogRing(n)
	initial, err := tsp.TourCost(dist, ring)
	if err != nil {
		return Result{}, fmt.Errorf("tour: %w", err)
	}
	// every ring over three or fewer vertices is the same cycle
	if n <= 3 {
		return Result{Algorithm: algo, Order: ring, Length: initial, InitialLen: initial}, nil
	}

	res, err := tsp.SolveWithMatrix(dist, nil, o)
	if err != nil {
		return Result{}, fmt.Errorf("tour: %w", err)
	}
	if err := tsp.ValidateTour(res.Tour, n, 0); err != nil {
		return Result{}, fmt.Errorf("tour: %w", err)
	}
	return Result{Algorithm: algo, Order: res.Tour, Length: res.Cost, InitialLen: initial}, nil
}

// Length sums the edges of a closed tour.
func Length(w Weights, order []int) (float64, error) {
	if w.Len() == 0 {
		return 0, ErrEmpty
	}
	if err := tsp.ValidateTour(order, w.Len(), 0); err != nil {
		return 0, fmt.Errorf("tour: %w", err)
	}
	length, err := tsp.TourCost(weights{w}, order)
	if err != nil {
		return 0, fmt.Errorf("tour: %w", err)
	}
	return length, nil
}

func (o Options) solverOptions() (tsp.Options, error) {
	if o.MaxIters < 0 {
		return tsp.Options{}, fmt.Errorf("tour: max iterations %d is negative", o.MaxIters)
	}
	if o.Eps < 0 {
		return tsp.Options{}, fmt.Errorf("tour: eps %v is negative", o.Eps)
	}
	opts := tsp.DefaultOptions()
	switch o.Algorithm {
	case "", TwoOpt:
		opts.Algo = tsp.TwoOptOnly
	case Christofides:
		opts.Algo = tsp.Christofides
	default:
		return tsp.Options{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, o.Algorithm)
	}
	opts.Symmetric = true
	opts.StartVertex = 0
	opts.Eps = o.Eps
	opts.TwoOptMaxIters = o.MaxIters
	opts.EnableLocalSearch = true
	opts.BestImprovement = false
	opts.TimeLimit = 0
	return opts, nil
}

// catalogRing returns 0, 1, ..., n-1, 0.
func catalogRing(n int) []int {
	ring := make([]int, n+1)
	for i := range n {
		ring[i] = i
	}
	return ring
}

// weights adapts Weights to matrix.Matrix. The diagonal reads as zero so
// the grid encoding's -1 sentinel passes the solver's weight checks.
type weights struct {
	w Weights
}

func (a weights) Rows() int { return a.w.Len() }
func (a weights) Cols() int { return a.w.Len() }

func (a weights) At(i, j int) (float64, error) {
	n := a.w.Len()
	if i < 0 || i >= n || j < 0 || j >= n {
		return 0, matrix.ErrIndexOutOfBounds
	}
	if i == j {
		return 0, nil
	}
	return a.w.Value(i, j), nil
}

func (a weights) Set(int, int, float64) error {
	return errReadOnly
}

// Clone materialises the weights into a mutable lvlath dense matrix.
func (a weights) Clone() matrix.Matrix {
	n := a.w.Len()
	d, err := matrix.NewDense(n, n)
	if err != nil {
		return nil
	}
	for i := range n {
		for j := range n {
			v, _ := a.At(i, j)
			_ = d.Set(i, j, v)
		}
	}
	return d
}

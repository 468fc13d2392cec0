package tour

import (
	"math/rand/v2"
	"testing"

	"github.com/katalvlaran/lvlath/matrix"
	"github.com/katalvlaran/lvlath/tsp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/distmatrix"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/matrixio"
)

func square(n int, cells ...float64) *matrixio.Table {
	return &matrixio.Table{N: n, Cells: cells}
}

// crossed is the unit square visited 0=(0,0) 1=(1,1) 2=(1,0) 3=(0,1), so
// catalog order crosses itself.
func crossed() *distmatrix.Matrix {
	return distmatrix.Build([]r3.Vec{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 1}}, distmatrix.Options{})
}

func TestWeights_Adapter(t *testing.T) {
	w := weights{square(3,
		-1, 2, 1,
		2, -1, 1,
		1, 1, -1,
	)}
	assert.Equal(t, 3, w.Rows())
	assert.Equal(t, 3, w.Cols())

	v, err := w.At(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v, "grid diagonal sentinel reads as zero")
	v, err = w.At(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	_, err = w.At(3, 0)
	assert.ErrorIs(t, err, matrix.ErrIndexOutOfBounds)
	_, err = w.At(0, -1)
	assert.ErrorIs(t, err, matrix.ErrIndexOutOfBounds)
	assert.Error(t, w.Set(0, 1, 5))

	c := w.Clone()
	require.NotNil(t, c)
	for i := range 3 {
		for j := range 3 {
			want, _ := w.At(i, j)
			got, err := c.At(i, j)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	}
}

func TestSolve_RemovesCrossing(t *testing.T) {
	for _, algo := range []Algorithm{TwoOpt, Christofides} {
		t.Run(string(algo), func(t *testing.T) {
			res, err := Solve(crossed(), Options{Algorithm: algo})
			require.NoError(t, err)
			assert.Equal(t, algo, res.Algorithm)
			assert.InDelta(t, 4.0, res.Length, 1e-6)
			assert.InDelta(t, 2+2*1.4142135, res.InitialLen, 1e-6)
			require.NoError(t, tsp.ValidateTour(res.Order, 4, 0))
		})
	}
}

func TestSolve_NeverWorseThanCatalogOrder(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	points := make([]r3.Vec, 60)
	for i := range points {
		points[i] = r3.Vec{X: r.Float64() * 100, Y: r.Float64() * 100, Z: r.Float64() * 100}
	}
	m := distmatrix.Build(points, distmatrix.Options{})

	res, err := Solve(m, Options{})
	require.NoError(t, err)
	assert.Equal(t, TwoOpt, res.Algorithm)
	assert.Len(t, res.Order, 61)
	assert.LessOrEqual(t, res.Length, res.InitialLen+1e-9)
	require.NoError(t, tsp.ValidateTour(res.Order, 60, 0))

	check, err := Length(m, res.Order)
	require.NoError(t, err)
	assert.InDelta(t, check, res.Length, 1e-6)
}

func TestSolve_GridDiagonal(t *testing.T) {
	// points on a line at 0, 1, 3, 6 with the grid's -1 diagonal
	w := square(4,
		-1, 1, 3, 6,
		1, -1, 2, 5,
		3, 2, -1, 3,
		6, 5, 3, -1,
	)
	res, err := Solve(w, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 12.0, res.Length, 1e-9)
}

func TestSolve_MaxIters(t *testing.T) {
	res, err := Solve(crossed(), Options{MaxIters: 1})
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Length, res.InitialLen)
	require.NoError(t, tsp.ValidateTour(res.Order, 4, 0))
}

func TestSolve_SmallMatrices(t *testing.T) {
	res, err := Solve(square(1, 0), Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, res.Order)
	assert.Equal(t, 0.0, res.Length)

	res, err = Solve(square(3, 0, 1, 2, 1, 0, 3, 2, 3, 0), Options{Algorithm: Christofides})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 0}, res.Order)
	assert.Equal(t, 6.0, res.Length)
}

func TestErrors(t *testing.T) {
	_, err := Solve(square(0), Options{})
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Solve(square(2, 0, -3, -3, 0), Options{})
	assert.ErrorIs(t, err, tsp.ErrNegativeWeight)

	_, err = Solve(crossed(), Options{Algorithm: "annealing"})
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
	_, err = Solve(crossed(), Options{MaxIters: -1})
	assert.Error(t, err)
	_, err = Solve(crossed(), Options{Eps: -1})
	assert.Error(t, err)

	w := square(3, 0, 1, 1, 1, 0, 1, 1, 1, 0)
	_, err = Length(w, []int{0, 1, 1, 0})
	assert.ErrorIs(t, err, tsp.ErrDimensionMismatch)
	_, err = Length(w, []int{0, 1, 2})
	assert.ErrorIs(t, err, tsp.ErrDimensionMismatch)
	_, err = Length(square(0), []int{0})
	assert.ErrorIs(t, err, ErrEmpty)
}

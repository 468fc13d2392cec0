// Package distmatrix builds the full pairwise Euclidean distance matrix over
// a sequence of projected stars.
//
// Entries are stored as float32 in a single row-major buffer. The reduced
// precision halves the footprint of the N² matrix; the integer encoders
// downstream round from these float32 values, not from float64 distances.
package distmatrix

import "math"

// Matrix is a square, symmetric, zero-diagonal distance matrix. Index i
// corresponds to position i in the star sequence it was built from.
type Matrix struct {
	n    int
	data []float32
}

// New allocates an n×n zero matrix.
func New(n int) *Matrix {
	if n < 0 {
		n = 0
	}
	return &Matrix{n: n, data: make([]float32, n*n)}
}

// Len returns the matrix dimension N.
func (m *Matrix) Len() int {
	return m.n
}

// Empty reports whether the matrix has no rows.
func (m *Matrix) Empty() bool {
	return m.n == 0
}

// At returns the stored float32 distance between i and j.
func (m *Matrix) At(i, j int) float32 {
	return m.data[i*m.n+j]
}

// Value returns At(i, j) widened to float64.
func (m *Matrix) Value(i, j int) float64 {
	return float64(m.data[i*m.n+j])
}

// Row returns row i. The slice aliases the matrix storage.
func (m *Matrix) Row(i int) []float32 {
	return m.data[i*m.n : (i+1)*m.n]
}

// Equal reports bit-for-bit equality of two matrices.
func (m *Matrix) Equal(o *Matrix) bool {
	if m.n != o.n {
		return false
	}
	for k, v := range m.data {
		if math.Float32bits(v) != math.Float32bits(o.data[k]) {
			return false
		}
	}
	return true
}

// Stats summarises matrix entries.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Stats covers every entry, diagonal included. StdDev is the population
// standard deviation. An empty matrix gives zero Stats.
func (m *Matrix) Stats() Stats {
	return accumulate(m.data, func(int) bool { return true })
}

// NonZeroStats skips zero entries, which leaves out the diagonal and any
// coincident pairs.
func (m *Matrix) NonZeroStats() Stats {
	return accumulate(m.data, func(k int) bool { return m.data[k] != 0 })
}

// accumulate streams over data with Welford's update so no float64 copy of
// the matrix is needed.
func accumulate(data []float32, keep func(int) bool) Stats {
	var (
		s    Stats
		mean float64
		m2   float64
	)
	for k, v := range data {
		if !keep(k) {
			continue
		}
		x := float64(v)
		s.Count++
		if s.Count == 1 {
			s.Min, s.Max = x, x
		} else {
			s.Min = math.Min(s.Min, x)
			s.Max = math.Max(s.Max, x)
		}
		delta := x - mean
		mean += delta / float64(s.Count)
		m2 += delta * (x - mean)
	}
	if s.Count == 0 {
		return Stats{}
	}
	s.Mean = mean
	s.StdDev = math.Sqrt(m2 / float64(s.Count))
	return s
}

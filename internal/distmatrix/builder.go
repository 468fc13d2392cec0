package distmatrix

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/projection"
)

// DefaultChunkSize is the number of rows computed per chunk.
const DefaultChunkSize = 500

// ChunkProgress reports a finished chunk of rows [Start, End).
type ChunkProgress struct {
	Start int
	End   int
	Done  int
	Total int
}

// Options tunes matrix construction. The chunk size bounds the rows
// computed per step and never changes the result.
type Options struct {
	ChunkSize int
	OnChunk   func(ChunkProgress)
}

func (o Options) chunkSize() int {
	if o.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return o.ChunkSize
}

// Build computes the distance matrix between points. Rows are filled chunk
// by chunk straight into the preallocated buffer. An empty input yields an
// empty matrix.
func Build(points []r3.Vec, opts Options) *Matrix {
	n := len(points)
	m := New(n)
	size := opts.chunkSize()
	chunks := (n + size - 1) / size

	for c, start := 0, 0; start < n; c, start = c+1, start+size {
		end := min(start+size, n)
		fillRows(m, points, start, end)
		if opts.OnChunk != nil {
			opts.OnChunk(ChunkProgress{Start: start, End: end, Done: c + 1, Total: chunks})
		}
	}
	return m
}

// fillRows writes rows [start, end). Each entry is the norm of the
// coordinate difference, which is sign-symmetric, so m[i][j] and m[j][i]
// are bit-identical and the diagonal is exactly zero.
func fillRows(m *Matrix, points []r3.Vec, start, end int) {
	n := m.n
	for i := start; i < end; i++ {
		row := m.data[i*n : (i+1)*n]
		p := points[i]
		for j, q := range points {
			row[j] = float32(r3.Norm(r3.Sub(p, q)))
		}
	}
}

// FromStars builds the matrix over stars in the given order.
func FromStars(stars []projection.Star, opts Options) *Matrix {
	points := make([]r3.Vec, len(stars))
	for i, s := range stars {
		points[i] = s.Position()
	}
	return Build(points, opts)
}

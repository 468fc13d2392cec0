// Package matrixio encodes distance matrices into the TSP explicit format,
// the formatted integer grid and the annotated raw grid, and decodes all
// three back into tables. Row and column i always refer to the i-th star of
// the ordered sequence the matrix was built from.
package matrixio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/distmatrix"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/projection"
	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
)

// DefaultTSPName is the NAME written in TSP headers.
const DefaultTSPName = "star_distance_tsp"

// Diagonal values written by each encoder.
const (
	GridDiagonal = -1
	TSPDiagonal  = 0
	RawDiagonal  = "0.000000"
)

// RoundDistance rounds a stored distance to the nearest integer, ties to
// even, as the integer encoders do.
func RoundDistance(v float32) int64 {
	return int64(math.RoundToEven(float64(v)))
}

// WriteTSP writes m as a TSPLIB explicit full matrix. The diagonal is 0.
func WriteTSP(w io.Writer, name string, m *distmatrix.Matrix) error {
	if name == "" {
		name = DefaultTSPName
	}
	n := m.Len()
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "NAME: %s\n", name)
	bw.WriteString("TYPE: TSP\n")
	fmt.Fprintf(bw, "DIMENSION: %d\n", n)
	bw.WriteString("EDGE_WEIGHT_TYPE: EXPLICIT\n")
	bw.WriteString("EDGE_WEIGHT_FORMAT: FULL_MATRIX\n")
	bw.WriteString("EDGE_WEIGHT_SECTION\n")

	line := make([]byte, 0, 8*n)
	for i := 0; i < n; i++ {
		line = line[:0]
		for j, v := range m.Row(i) {
			if j > 0 {
				line = append(line, ' ')
			}
			if i == j {
				line = strconv.AppendInt(line, TSPDiagonal, 10)
				continue
			}
			line = strconv.AppendInt(line, RoundDistance(v), 10)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("writing tsp row %d: %w", i, err)
		}
	}
	bw.WriteString("EOF\n")
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing tsp: %w", err)
	}
	return nil
}

// WriteGrid writes the formatted integer grid: N on the first line, then N
// rows of comma-space separated integers with -1 on the diagonal.
func WriteGrid(w io.Writer, m *distmatrix.Matrix) error {
	n := m.Len()
	bw := bufio.NewWriter(w)
	bw.WriteString(strconv.Itoa(n))
	bw.WriteByte('\n')

	line := make([]byte, 0, 8*n)
	for i := 0; i < n; i++ {
		line = line[:0]
		for j, v := range m.Row(i) {
			if j > 0 {
				line = append(line, ", "...)
			}
			if i == j {
				line = strconv.AppendInt(line, GridDiagonal, 10)
				continue
			}
			line = strconv.AppendInt(line, RoundDistance(v), 10)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("writing grid row %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing grid: %w", err)
	}
	return nil
}

// WriteRaw writes the annotated raw grid: a six line '#' header with the
// star count, dimensions, units and statistics over all entries, then N rows
// of space separated values with six decimals.
func WriteRaw(w io.Writer, stars []projection.Star, m *distmatrix.Matrix) error {
	n := m.Len()
	if len(stars) != n {
		return apperrors.Newf(apperrors.ErrDimensionMismatch, 0, "%d stars for a %dx%d matrix", len(stars), n, n)
	}
	st := m.Stats()
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Distance matrix between %d stars\n", n)
	fmt.Fprintf(bw, "# Matrix size: %dx%d\n", n, n)
	bw.WriteString("# Units: parsecs\n")
	fmt.Fprintf(bw, "# Range: %.6f - %.6f\n", st.Min, st.Max)
	fmt.Fprintf(bw, "# Mean distance: %.6f\n", st.Mean)
	fmt.Fprintf(bw, "# Standard deviation: %.6f\n", st.StdDev)

	line := make([]byte, 0, 12*n)
	for i := 0; i < n; i++ {
		line = line[:0]
		for j, v := range m.Row(i) {
			if j > 0 {
				line = append(line, ' ')
			}
			if i == j {
				line = append(line, RawDiagonal...)
				continue
			}
			line = strconv.AppendFloat(line, float64(v), 'f', 6, 64)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("writing raw row %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing raw: %w", err)
	}
	return nil
}

// WriteStars writes the ordered stars as an indented JSON array.
func WriteStars(w io.Writer, stars []projection.Star) error {
	if stars == nil {
		stars = []projection.Star{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stars); err != nil {
		return fmt.Errorf("encoding stars: %w", err)
	}
	return nil
}

// WriteCoordinates writes one "<index> <x> <y>" line per ordered star,
// 1-based, followed by EOF.
func WriteCoordinates(w io.Writer, stars []projection.Star) error {
	bw := bufio.NewWriter(w)
	line := make([]byte, 0, 64)
	for i, s := range stars {
		line = strconv.AppendInt(line[:0], int64(i+1), 10)
		line = append(line, ' ')
		line = strconv.AppendFloat(line, s.X, 'f', 6, 64)
		line = append(line, ' ')
		line = strconv.AppendFloat(line, s.Y, 'f', 6, 64)
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("writing coordinates: %w", err)
		}
	}
	bw.WriteString("EOF\n")
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing coordinates: %w", err)
	}
	return nil
}

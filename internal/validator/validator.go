// Package validator checks catalog batches, projected stars and decoded
// distance matrices and reports problems as errors and warnings. It never
// modifies what it inspects.
package validator

import (
	"fmt"
	"io"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/projection"
)

// Thresholds for warnings.
const (
	MaxStarDistance   = 1000.0
	MinStarDistance   = 0.1
	MaxMatrixDistance = 1000.0
	MinMatrixDistance = 0.01
	MinValidFraction  = 0.5
	relativeTolerance = 1e-5
	absoluteTolerance = 1e-8
)

// Report kinds.
const (
	KindRecords = "records"
	KindStars   = "stars"
	KindMatrix  = "matrix"
)

// DistanceStats summarises distances seen by a validation.
type DistanceStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev,omitempty"`
}

// Report is the outcome of one validation. Valid is true when Errors is
// empty.
type Report struct {
	Kind              string         `json:"kind"`
	Valid             bool           `json:"valid"`
	Errors            []string       `json:"errors,omitempty"`
	Warnings          []string       `json:"warnings,omitempty"`
	Total             int            `json:"total"`
	Count             int            `json:"count"`
	ParallaxCount     int            `json:"parallax_count,omitempty"`
	ProperMotionCount int            `json:"proper_motion_count,omitempty"`
	MatrixSize        int            `json:"matrix_size,omitempty"`
	DistanceStats     *DistanceStats `json:"distance_stats,omitempty"`
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) finish() Report {
	r.Valid = len(r.Errors) == 0
	return *r
}

// ValidityRate is Count / Total, or 0 for an empty input.
func (r Report) ValidityRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Count) / float64(r.Total)
}

// ValidateRecords checks raw catalog records: required fields present and
// numeric, positive parallax, sky coordinates in range, readable proper
// motion.
func ValidateRecords(records []catalog.RawRecord) Report {
	r := &Report{Kind: KindRecords, Total: len(records)}
	if len(records) == 0 {
		r.errorf("empty input")
		return r.finish()
	}

	for i, rec := range records {
		if rec.Malformed {
			r.errorf("record %d: not an object", i)
			continue
		}
		var missing []string
		for _, f := range []struct {
			name  string
			field catalog.Field
		}{
			{catalog.ColSourceID, rec.SourceID},
			{catalog.ColRA, rec.RA},
			{catalog.ColDec, rec.Dec},
			{catalog.ColParallax, rec.Parallax},
		} {
			if !f.field.Present() {
				missing = append(missing, f.name)
			}
		}
		if len(missing) > 0 {
			r.errorf("record %d (source_id %s): missing fields [%s]", i, rec.SourceID, strings.Join(missing, ", "))
			continue
		}

		ra, errRA := rec.RA.Float()
		dec, errDec := rec.Dec.Float()
		parallax, errPlx := rec.Parallax.Float()
		if errRA != nil || errDec != nil || errPlx != nil {
			r.errorf("record %d: bad field types: ra=%s dec=%s parallax=%s", i, rec.RA, rec.Dec, rec.Parallax)
			continue
		}
		if !isFinite(ra) || !isFinite(dec) {
			r.errorf("record %d: non-finite position: ra=%v dec=%v", i, ra, dec)
			continue
		}
		if ra < 0 || ra > 360 {
			r.warnf("record %d: RA outside [0, 360]: %v", i, ra)
		}
		if dec < -90 || dec > 90 {
			r.warnf("record %d: Dec outside [-90, 90]: %v", i, dec)
		}
		if !(parallax > 0) || math.IsInf(parallax, 0) {
			r.errorf("record %d: invalid parallax: %v", i, parallax)
			continue
		}
		r.ParallaxCount++

		if rec.PMRA.Present() && rec.PMDec.Present() {
			_, errA := rec.PMRA.Float()
			_, errB := rec.PMDec.Float()
			if errA != nil || errB != nil {
				r.warnf("record %d: invalid proper motion", i)
			} else {
				r.ProperMotionCount++
			}
		}
		r.Count++
	}

	if r.Count == 0 {
		r.errorf("no valid records")
	}
	if r.Count > 0 && float64(r.Count) < float64(r.Total)*MinValidFraction {
		r.warnf("many invalid records: %d/%d valid", r.Count, r.Total)
	}
	return r.finish()
}

// ValidateStars checks projected stars: positive distance, finite
// coordinates and a plausible distance range.
func ValidateStars(stars []projection.Star) Report {
	r := &Report{Kind: KindStars, Total: len(stars)}
	if len(stars) == 0 {
		r.errorf("empty input")
		return r.finish()
	}

	distances := make([]float64, 0, len(stars))
	for i, s := range stars {
		if !(s.Distance > 0) || math.IsInf(s.Distance, 0) {
			r.errorf("star %d (source_id %d): invalid distance: %v", i, s.SourceID, s.Distance)
			continue
		}
		if !isFinite(s.X) || !isFinite(s.Y) || !isFinite(s.Z) {
			r.errorf("star %d (source_id %d): non-finite coordinates", i, s.SourceID)
			continue
		}
		distances = append(distances, s.Distance)
		r.Count++
	}

	if len(distances) > 0 {
		mean, std := stat.PopMeanStdDev(distances, nil)
		ds := &DistanceStats{
			Min:    floats.Min(distances),
			Max:    floats.Max(distances),
			Mean:   mean,
			StdDev: std,
		}
		r.DistanceStats = ds
		if ds.Max > MaxStarDistance {
			r.warnf("very large distances: up to %.1f pc", ds.Max)
		}
		if ds.Min < MinStarDistance {
			r.warnf("very small distances: from %.3f pc", ds.Min)
		}
	}
	return r.finish()
}

// SquareMatrix is any N×N matrix of distances.
type SquareMatrix interface {
	Len() int
	Value(i, j int) float64
}

// view exposes a SquareMatrix as a gonum matrix without copying it.
type view struct {
	m SquareMatrix
}

func (v view) Dims() (int, int)    { return v.m.Len(), v.m.Len() }
func (v view) At(i, j int) float64 { return v.m.Value(i, j) }
func (v view) T() mat.Matrix       { return mat.Transpose{Matrix: v} }

// ValidateMatrix checks symmetry, the expected diagonal value and the range
// of positive entries. diagonal is 0 for TSP and raw matrices and -1 for the
// formatted grid. Symmetry allows an absolute or relative difference of
// 1e-5, which absorbs the six-decimal rounding of raw files.
func ValidateMatrix(m SquareMatrix, diagonal float64) Report {
	n := m.Len()
	r := &Report{Kind: KindMatrix, MatrixSize: n, Total: n * n}
	if n == 0 {
		r.errorf("empty matrix")
		return r.finish()
	}

	mv := view{m}
	if !mat.EqualApprox(mv, mv.T(), relativeTolerance) {
		r.errorf("matrix is not symmetric")
		return r.finish()
	}

	diagonalOK := true
	var (
		count          int
		sum            float64
		minVal, maxVal float64
	)
	for i := 0; i < n; i++ {
		if !closeTo(m.Value(i, i), diagonal) {
			diagonalOK = false
		}
		for j := 0; j < n; j++ {
			v := m.Value(i, j)
			if v > 0 {
				if count == 0 || v < minVal {
					minVal = v
				}
				if count == 0 || v > maxVal {
					maxVal = v
				}
				sum += v
				count++
			}
		}
	}
	if !diagonalOK {
		r.warnf("diagonal is not %v", diagonal)
	}
	r.Count = count
	if count > 0 {
		r.DistanceStats = &DistanceStats{Min: minVal, Max: maxVal, Mean: sum / float64(count)}
		if maxVal > MaxMatrixDistance {
			r.warnf("very large distances in matrix: up to %.1f", maxVal)
		}
		if minVal < MinMatrixDistance {
			r.warnf("very small distances in matrix: from %.3f", minVal)
		}
	}
	return r.finish()
}

// closeTo is an allclose-style comparison for a single pair.
func closeTo(a, b float64) bool {
	return math.Abs(a-b) <= absoluteTolerance+relativeTolerance*math.Abs(b)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Write prints a human-readable report.
func (r Report) Write(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Validation report (%s)\n", r.Kind)
	if r.Valid {
		b.WriteString("status: valid\n")
	} else {
		b.WriteString("status: INVALID\n")
	}
	switch r.Kind {
	case KindMatrix:
		fmt.Fprintf(&b, "matrix size: %dx%d\n", r.MatrixSize, r.MatrixSize)
		fmt.Fprintf(&b, "positive entries: %d\n", r.Count)
	default:
		fmt.Fprintf(&b, "valid: %d of %d (%.1f%%)\n", r.Count, r.Total, 100*r.ValidityRate())
	}
	if r.Kind == KindRecords {
		fmt.Fprintf(&b, "with parallax: %d\n", r.ParallaxCount)
		fmt.Fprintf(&b, "with proper motion: %d\n", r.ProperMotionCount)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "errors (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "warnings (%d):\n", len(r.Warnings))
		for _, wn := range r.Warnings {
			fmt.Fprintf(&b, "  - %s\n", wn)
		}
	}
	if ds := r.DistanceStats; ds != nil {
		fmt.Fprintf(&b, "distance min/max/mean: %.2f / %.2f / %.2f pc\n", ds.Min, ds.Max, ds.Mean)
		if r.Kind == KindStars {
			fmt.Fprintf(&b, "distance std dev: %.2f pc\n", ds.StdDev)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

package projection

import (
	"errors"
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/catalog"
)

// Reason classifies why a record was rejected.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonMalformed
	ReasonMissingField
	ReasonNotNumeric
	ReasonNonPositiveParallax
	ReasonNonFiniteParallax
	ReasonNonFinitePosition
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMalformed:
		return "malformed"
	case ReasonMissingField:
		return "missing_field"
	case ReasonNotNumeric:
		return "not_numeric"
	case ReasonNonPositiveParallax:
		return "non_positive_parallax"
	case ReasonNonFiniteParallax:
		return "non_finite_parallax"
	case ReasonNonFinitePosition:
		return "non_finite_position"
	default:
		return "unknown"
	}
}

// Rejection describes a record excluded from the projected set.
type Rejection struct {
	Index    int
	SourceID string
	Reason   Reason
	Field    string
	Detail   string
}

func (r Rejection) String() string {
	if r.Field == "" {
		return fmt.Sprintf("record %d (source_id %s): %s", r.Index, r.SourceID, r.Reason)
	}
	return fmt.Sprintf("record %d (source_id %s): %s %s: %s", r.Index, r.SourceID, r.Reason, r.Field, r.Detail)
}

// Result is the outcome of projecting one record: a Star when Rejection is
// nil, otherwise the rejection. Degraded marks a kept star whose proper
// motion could not be read.
type Result struct {
	Star      Star
	Degraded  bool
	Rejection *Rejection
}

// Valid reports whether the record produced a star.
func (r Result) Valid() bool {
	return r.Rejection == nil
}

// ProjectRecord validates and projects a single record. index is the
// record's position in its batch and only feeds diagnostics.
func ProjectRecord(index int, rec catalog.RawRecord) Result {
	reject := func(reason Reason, field string, err error) Result {
		r := &Rejection{
			Index:    index,
			SourceID: rec.SourceID.String(),
			Reason:   reason,
			Field:    field,
		}
		if err != nil {
			r.Detail = err.Error()
		}
		return Result{Rejection: r}
	}

	if rec.Malformed {
		return reject(ReasonMalformed, "", nil)
	}
	required := []struct {
		name  string
		field catalog.Field
	}{
		{catalog.ColSourceID, rec.SourceID},
		{catalog.ColRA, rec.RA},
		{catalog.ColDec, rec.Dec},
		{catalog.ColParallax, rec.Parallax},
	}
	for _, req := range required {
		if !req.field.Present() {
			return reject(ReasonMissingField, req.name, catalog.ErrMissing)
		}
	}

	sourceID, err := rec.SourceID.Int()
	if err != nil {
		return reject(ReasonNotNumeric, catalog.ColSourceID, err)
	}
	ra, err := rec.RA.Float()
	if err != nil {
		return reject(ReasonNotNumeric, catalog.ColRA, err)
	}
	dec, err := rec.Dec.Float()
	if err != nil {
		return reject(ReasonNotNumeric, catalog.ColDec, err)
	}
	if !finite(ra) {
		return reject(ReasonNonFinitePosition, catalog.ColRA, fmt.Errorf("ra %v", ra))
	}
	if !finite(dec) {
		return reject(ReasonNonFinitePosition, catalog.ColDec, fmt.Errorf("dec %v", dec))
	}
	parallax, err := rec.Parallax.Float()
	if err != nil {
		return reject(ReasonNotNumeric, catalog.ColParallax, err)
	}
	if !finite(parallax) {
		return reject(ReasonNonFiniteParallax, catalog.ColParallax, fmt.Errorf("parallax %v", parallax))
	}
	if parallax <= 0 {
		return reject(ReasonNonPositiveParallax, catalog.ColParallax, fmt.Errorf("parallax %v", parallax))
	}

	velocity, degraded := properMotion(rec)
	return Result{
		Star:     NewStar(sourceID, ra, dec, parallax, velocity),
		Degraded: degraded,
	}
}

// properMotion returns the proper-motion magnitude when both components are
// present and readable. A present but unreadable component degrades the
// star to zero velocity.
func properMotion(rec catalog.RawRecord) (float64, bool) {
	if !rec.PMRA.Present() || !rec.PMDec.Present() {
		return 0, false
	}
	pmra, errRA := rec.PMRA.Float()
	pmdec, errDec := rec.PMDec.Float()
	if err := errors.Join(errRA, errDec); err != nil {
		return 0, true
	}
	v := ProperMotionMagnitude(pmra, pmdec)
	if !finite(v) {
		return 0, true
	}
	return v, false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Report aggregates a batch projection. Stars preserve input order.
type Report struct {
	Stars      []Star
	Rejections []Rejection
	Total      int
	Degraded   int
}

// Valid returns the number of projected stars.
func (r Report) Valid() int {
	return len(r.Stars)
}

// Rejected returns the number of excluded records.
func (r Report) Rejected() int {
	return len(r.Rejections)
}

// RejectedBy counts rejections per reason.
func (r Report) RejectedBy() map[Reason]int {
	counts := make(map[Reason]int)
	for _, rej := range r.Rejections {
		counts[rej.Reason]++
	}
	return counts
}

// Project projects every record, dropping invalid ones. It never fails; an
// input without valid records yields a report with no stars.
func Project(records []catalog.RawRecord) Report {
	report := Report{
		Stars: make([]Star, 0, len(records)),
		Total: len(records),
	}
	for i, rec := range records {
		res := ProjectRecord(i, rec)
		if !res.Valid() {
			report.Rejections = append(report.Rejections, *res.Rejection)
			continue
		}
		if res.Degraded {
			report.Degraded++
		}
		report.Stars = append(report.Stars, res.Star)
	}
	return report
}

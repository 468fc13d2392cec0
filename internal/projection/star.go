// Package projection turns raw catalog records into Cartesian stars.
//
// Each record is projected independently into a Result that is either a
// valid Star or a Rejection with a reason. Records with a missing or
// non-numeric identifier, position or parallax, or with a non-positive
// parallax, are rejected. Proper motion is optional: when it is present but
// cannot be read the star is kept with zero velocity and counted as degraded.
//
// Distances use the parallax convention d(pc) = 1000 / parallax(mas), and
// positions the equatorial spherical projection
//
//	x = d cos(dec) cos(ra)
//	y = d cos(dec) sin(ra)
//	z = d sin(dec)
//
// Velocity is the magnitude of the angular proper motion in mas/yr,
// sqrt(pmra² + pmdec²). It is not a tangential velocity; no distance scaling
// or projection correction is applied.
package projection

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// parsecsPerInverseMas converts a parallax in milliarcseconds to parsecs.
const parsecsPerInverseMas = 1000.0

const degToRad = math.Pi / 180

// Star is a projected catalog record. It is never mutated after projection.
type Star struct {
	SourceID int64   `json:"source_id"`
	RA       float64 `json:"ra"`
	Dec      float64 `json:"dec"`
	Parallax float64 `json:"parallax"`
	Distance float64 `json:"distance"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Velocity float64 `json:"velocity"`
}

// Position returns the Cartesian position in parsecs.
func (s Star) Position() r3.Vec {
	return r3.Vec{X: s.X, Y: s.Y, Z: s.Z}
}

// NewStar projects already-validated values. parallax must be finite and
// strictly positive.
func NewStar(sourceID int64, ra, dec, parallax, velocity float64) Star {
	distance := parsecsPerInverseMas / parallax
	raRad := ra * degToRad
	decRad := dec * degToRad
	cosDec := math.Cos(decRad)
	return Star{
		SourceID: sourceID,
		RA:       ra,
		Dec:      dec,
		Parallax: parallax,
		Distance: distance,
		X:        distance * cosDec * math.Cos(raRad),
		Y:        distance * cosDec * math.Sin(raRad),
		Z:        distance * math.Sin(decRad),
		Velocity: velocity,
	}
}

// ProperMotionMagnitude is sqrt(pmra² + pmdec²).
func ProperMotionMagnitude(pmra, pmdec float64) float64 {
	return math.Sqrt(pmra*pmra + pmdec*pmdec)
}

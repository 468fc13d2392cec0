package projection

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SortByDistance returns a copy of stars ordered nearest first. Stars at
// equal distance keep their input order, so identical inputs always give
// identical matrix indices.
func SortByDistance(stars []Star) []Star {
	sorted := slices.Clone(stars)
	slices.SortStableFunc(sorted, func(a, b Star) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	return sorted
}

// Summary describes a set of projected stars.
type Summary struct {
	Count        int     `json:"count"`
	MeanDistance float64 `json:"mean_distance"`
	MinDistance  float64 `json:"min_distance"`
	MaxDistance  float64 `json:"max_distance"`
	MeanVelocity float64 `json:"mean_velocity"`
}

// Summarize computes distance and velocity statistics. An empty input gives
// a zero Summary.
func Summarize(stars []Star) Summary {
	if len(stars) == 0 {
		return Summary{}
	}
	distances := make([]float64, len(stars))
	velocities := make([]float64, len(stars))
	for i, s := range stars {
		distances[i] = s.Distance
		velocities[i] = s.Velocity
	}
	return Summary{
		Count:        len(stars),
		MeanDistance: stat.Mean(distances, nil),
		MinDistance:  floats.Min(distances),
		MaxDistance:  floats.Max(distances),
		MeanVelocity: stat.Mean(velocities, nil),
	}
}

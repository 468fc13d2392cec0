package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortByDistance_Stable(t *testing.T) {
	stars := []Star{
		NewStar(1, 0, 0, 10, 0),
		NewStar(2, 45, 10, 20, 0),
		NewStar(3, 90, -10, 10, 0),
		NewStar(4, 180, 0, 20, 0),
		NewStar(5, 270, 0, 40, 0),
	}

	sorted := SortByDistance(stars)
	require.Len(t, sorted, len(stars))

	ids := make([]int64, len(sorted))
	for i, s := range sorted {
		ids[i] = s.SourceID
	}
	// distances: 100, 50, 100, 50, 25
	assert.Equal(t, []int64{5, 2, 4, 1, 3}, ids)

	// input untouched
	assert.Equal(t, int64(1), stars[0].SourceID)
}

func TestSortByDistance_Empty(t *testing.T) {
	assert.Empty(t, SortByDistance(nil))
}

func TestSummarize(t *testing.T) {
	stars := []Star{
		NewStar(1, 0, 0, 10, 2),
		NewStar(2, 0, 0, 20, 4),
		NewStar(3, 0, 0, 40, 0),
	}
	s := Summarize(stars)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, (100.0+50+25)/3, s.MeanDistance, 1e-9)
	assert.Equal(t, 25.0, s.MinDistance)
	assert.Equal(t, 100.0, s.MaxDistance)
	assert.InDelta(t, 2.0, s.MeanVelocity, 1e-12)

	assert.Equal(t, Summary{}, Summarize(nil))
}

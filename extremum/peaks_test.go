package extremum

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

func TestLocalMaxima(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		want   []int
	}{
		{
			"single peak",
			[]float64{1, 2, 3, 2, 1},
			[]int{2},
		},
		{
			"plateau resolves to its midpoint",
			[]float64{1, 3, 3, 3, 1},
			[]int{2},
		},
		{
			"edges never qualify",
			[]float64{5, 1, 1, 1, 5},
			[]int{},
		},
		{
			"two peaks",
			[]float64{1, 4, 1, 5, 1},
			[]int{1, 3},
		},
		{
			"monotonic series has no peaks",
			[]float64{1, 2, 3, 4, 5},
			[]int{},
		},
	}

	for _, test := range tests {
		got := localMaxima(test.series)
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", test.name, diff)
		}
	}
}

func TestProminence(t *testing.T) {
	// Ensure an isolated peak's prominence reaches down to the higher base.
	series := []float64{10, 10, 10, 12, 10, 10, 10, 8, 10, 10}
	assert.Equal(t, prominence(series, 3), float64(2))

	// Ensure a nested peak's prominence stops at the first higher sample.
	series = []float64{0, 5, 3, 4, 3, 6, 0}
	assert.Equal(t, prominence(series, 3), float64(1))
	assert.Equal(t, prominence(series, 1), float64(2))
}

func TestFindPeaks(t *testing.T) {
	// Ensure an invalid distance is rejected.
	_, err := FindPeaks([]float64{1, 2, 1}, 0, 0.5)
	assert.Error(t, err)

	// Ensure close peaks are suppressed in favor of the higher one.
	series := []float64{0, 3, 2, 4, 0}
	peaks, err := FindPeaks(series, 3, 0.5)
	assert.NoError(t, err)
	assert.Equal(t, peaks, []int{3})

	// Ensure equal-height peaks within the window resolve to the earliest index.
	series = []float64{0, 4, 2, 4, 0}
	peaks, err = FindPeaks(series, 3, 0.5)
	assert.NoError(t, err)
	assert.Equal(t, peaks, []int{1})

	// Ensure sufficiently separated peaks both survive.
	series = []float64{0, 3, 0, 0, 4, 0}
	peaks, err = FindPeaks(series, 2, 0.5)
	assert.NoError(t, err)
	assert.Equal(t, peaks, []int{1, 4})

	// Ensure the prominence constraint filters shallow peaks.
	series = []float64{0, 3, 2.8, 3.1, 0}
	peaks, err = FindPeaks(series, 1, 0.5)
	assert.NoError(t, err)
	assert.Equal(t, peaks, []int{3})

	// Ensure repeated calls produce identical output.
	series = []float64{10, 10, 10, 12, 10, 10, 10, 8, 10, 10}
	first, err := FindPeaks(series, 2, 1.0)
	assert.NoError(t, err)
	second, err := FindPeaks(series, 2, 1.0)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, first, []int{3})
}

// Package extremum locates local maxima and minima of closing price series
// under separation and prominence constraints.
package extremum

import (
	"fmt"
	"math"
	"sort"
)

// localMaxima returns the midpoints of all plateau-aware local maxima of the
// provided series. A candidate needs a strictly smaller sample on both sides
// of its plateau, so series edges never qualify.
func localMaxima(series []float64) []int {
	midpoints := make([]int, 0)
	i := 1
	max := len(series) - 1
	for i < max {
		if series[i-1] < series[i] {
			ahead := i + 1
			for ahead < max && series[ahead] == series[i] {
				ahead++
			}

			if series[ahead] < series[i] {
				left := i
				right := ahead - 1
				midpoints = append(midpoints, (left+right)/2)
				i = ahead
			}
		}

		i++
	}

	return midpoints
}

// prominence returns how much the peak at the provided index stands out from
// its surroundings. It walks in both directions until a strictly higher sample
// or the series edge is reached, the higher of the two interval minima is the
// peak's base.
func prominence(series []float64, peak int) float64 {
	leftMin := series[peak]
	for i := peak; i >= 0 && series[i] <= series[peak]; i-- {
		if series[i] < leftMin {
			leftMin = series[i]
		}
	}

	rightMin := series[peak]
	for i := peak; i < len(series) && series[i] <= series[peak]; i++ {
		if series[i] < rightMin {
			rightMin = series[i]
		}
	}

	return series[peak] - math.Max(leftMin, rightMin)
}

// selectByDistance suppresses peaks closer than the provided distance to a
// higher peak. Peaks are considered in descending height order, ties resolve
// to the earliest index.
func selectByDistance(series []float64, peaks []int, distance int) []int {
	order := make([]int, len(peaks))
	for idx := range order {
		order[idx] = idx
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := peaks[order[i]], peaks[order[j]]
		if series[a] != series[b] {
			return series[a] > series[b]
		}
		return a < b
	})

	keep := make([]bool, len(peaks))
	for idx := range keep {
		keep[idx] = true
	}

	for _, idx := range order {
		if !keep[idx] {
			continue
		}

		for k := idx - 1; k >= 0 && peaks[idx]-peaks[k] < distance; k-- {
			keep[k] = false
		}
		for k := idx + 1; k < len(peaks) && peaks[k]-peaks[idx] < distance; k++ {
			keep[k] = false
		}
	}

	selected := make([]int, 0, len(peaks))
	for idx := range peaks {
		if keep[idx] {
			selected = append(selected, idx)
		}
	}

	out := make([]int, len(selected))
	for i, idx := range selected {
		out[i] = peaks[idx]
	}

	return out
}

// FindPeaks returns the indexes of local maxima of the provided series that
// are at least distance samples apart and stand out from their surroundings by
// at least the provided prominence. Results are in ascending index order and
// the function is deterministic for identical inputs.
func FindPeaks(series []float64, distance int, minProminence float64) ([]int, error) {
	if distance < 1 {
		return nil, fmt.Errorf("peak distance must be at least one, got %d", distance)
	}

	peaks := localMaxima(series)
	peaks = selectByDistance(series, peaks, distance)

	selected := make([]int, 0, len(peaks))
	for _, peak := range peaks {
		if prominence(series, peak) >= minProminence {
			selected = append(selected, peak)
		}
	}

	return selected, nil
}

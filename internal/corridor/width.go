package corridor

import "math"

// WidthParams configures CorridorWidthEnsurer.
type WidthParams struct {
	MinCorridorWidthFactor float64
}

// EnsureWidth guarantees a minimum spread between upper and lower at every
// index, per spec.md §4.4. ampUpperDC/ampLowerDC are the DC-term amplitudes
// (k=0) of the respective BoundaryCurves, used only to derive minWidth and
// the flat-collapse center. The returned int is the number of samples whose
// width was widened, for corridor_width_repairs_total.
func EnsureWidth(upper, lower []Sample, ampUpperDC, ampLowerDC float64, params WidthParams) ([]Sample, []Sample, int) {
	n := len(upper)
	if n == 0 || len(lower) != n {
		return upper, lower, 0
	}

	minWidth := params.MinCorridorWidthFactor * math.Abs(ampUpperDC-ampLowerDC)
	if minWidth <= 0 {
		fallback := math.Max(math.Abs(ampUpperDC), math.Abs(ampLowerDC))
		fallback = math.Max(fallback, 1)
		minWidth = params.MinCorridorWidthFactor * fallback
	}

	breakIdx := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if upper[i].V-lower[i].V >= minWidth {
			breakIdx = append(breakIdx, i)
		}
	}

	outUpper := make([]Sample, n)
	outLower := make([]Sample, n)
	copy(outUpper, upper)
	copy(outLower, lower)

	if len(breakIdx) == 0 {
		center := (ampUpperDC + ampLowerDC) / 2
		half := minWidth / 2
		for i := 0; i < n; i++ {
			outUpper[i] = Sample{T: upper[i].T, V: center + half}
			outLower[i] = Sample{T: lower[i].T, V: center - half}
		}
		return outUpper, outLower, n
	}

	// Indices before the first break point or after the last one take a copy
	// of that adjacent break point (nearestBreakLeft and nearestBreakRight
	// both resolve to it there), so both ends of the time range are covered.

	isBreak := make([]bool, n)
	for _, i := range breakIdx {
		isBreak[i] = true
	}

	repaired := 0
	for i := 0; i < n; i++ {
		if upper[i].V-lower[i].V >= minWidth {
			continue // already healthy, preserved as-is
		}
		repaired++

		// Find the nearest break points to the left and right.
		left := nearestBreakLeft(breakIdx, i)
		right := nearestBreakRight(breakIdx, i)

		if left == right {
			outUpper[i] = Sample{T: upper[i].T, V: upper[left].V}
			outLower[i] = Sample{T: lower[i].T, V: lower[left].V}
			continue
		}

		tLeft, tRight := float64(upper[left].T), float64(upper[right].T)
		w := 0.0
		if tRight != tLeft {
			w = (float64(upper[i].T) - tLeft) / (tRight - tLeft)
		}

		outUpper[i] = Sample{T: upper[i].T, V: upper[left].V + w*(upper[right].V-upper[left].V)}
		outLower[i] = Sample{T: lower[i].T, V: lower[left].V + w*(lower[right].V-lower[left].V)}
	}

	return outUpper, outLower, repaired
}

func nearestBreakLeft(breakIdx []int, i int) int {
	best := breakIdx[0]
	for _, b := range breakIdx {
		if b <= i {
			best = b
		} else {
			break
		}
	}
	return best
}

func nearestBreakRight(breakIdx []int, i int) int {
	for _, b := range breakIdx {
		if b >= i {
			return b
		}
	}
	return breakIdx[len(breakIdx)-1]
}

// Package resample defines the resampling kernels used when moving values
// between pixel grids and the per-dataset/per-variable specification that
// selects them. Real EO products mix categorical variables (which must use
// nearest/mode) and continuous variables (which may use average/bilinear)
// inside one dataset, so a single method per dataset is not enough.
package resample

import (
	"math"
	"sort"
	"strings"

	"github.com/atlaseo/gridalign/pkg/errors"
)

// Method names a resampling kernel.
type Method string

// The fixed set of supported resampling kernels.
const (
	Nearest     Method = "nearest"
	Bilinear    Method = "bilinear"
	Cubic       Method = "cubic"
	CubicSpline Method = "cubic_spline"
	Lanczos     Method = "lanczos"
	Average     Method = "average"
	Mode        Method = "mode"
	Max         Method = "max"
	Min         Method = "min"
	Med         Method = "med"
	Q1          Method = "q1"
	Q3          Method = "q3"
	Sum         Method = "sum"
	RMS         Method = "rms"
)

// Methods lists every supported kernel, in the order they are documented.
var Methods = []Method{
	Nearest, Bilinear, Cubic, CubicSpline, Lanczos,
	Average, Mode, Max, Min, Med, Q1, Q3, Sum, RMS,
}

var methodSet = func() map[Method]bool {
	m := make(map[Method]bool, len(Methods))
	for _, method := range Methods {
		m[method] = true
	}
	return m
}()

// Parse validates a method name (case-insensitive). dataset and variable name
// the error context.
func Parse(name, dataset, variable string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(name)))
	if !methodSet[m] {
		return "", errors.NewResamplingSpecError(dataset, variable, name,
			"unknown resampling method, valid options: "+joinMethods())
	}
	return m, nil
}

func joinMethods() string {
	names := make([]string, len(Methods))
	for i, m := range Methods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// IsReducer reports whether the method aggregates a source-pixel footprint
// (as opposed to interpolating at a point).
func (m Method) IsReducer() bool {
	switch m {
	case Average, Mode, Max, Min, Med, Q1, Q3, Sum, RMS:
		return true
	default:
		return false
	}
}

// Reduce aggregates a footprint of source values, skipping NaN. An empty or
// all-missing footprint reduces to NaN. Only valid for reducer methods.
func (m Method) Reduce(vals []float64) float64 {
	present := vals[:0:0]
	for _, v := range vals {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return math.NaN()
	}

	switch m {
	case Average:
		return mean(present)
	case Sum:
		sum := 0.0
		for _, v := range present {
			sum += v
		}
		return sum
	case Max:
		out := present[0]
		for _, v := range present[1:] {
			out = math.Max(out, v)
		}
		return out
	case Min:
		out := present[0]
		for _, v := range present[1:] {
			out = math.Min(out, v)
		}
		return out
	case Mode:
		return modeOf(present)
	case Med:
		return quantile(present, 0.5)
	case Q1:
		return quantile(present, 0.25)
	case Q3:
		return quantile(present, 0.75)
	case RMS:
		sum := 0.0
		for _, v := range present {
			sum += v * v
		}
		return math.Sqrt(sum / float64(len(present)))
	}
	return math.NaN()
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// modeOf computes the most frequent value with an exact tally. Ties break
// toward the smallest value so the result is deterministic.
func modeOf(vals []float64) float64 {
	counts := make(map[float64]int, len(vals))
	for _, v := range vals {
		counts[v]++
	}
	best := math.NaN()
	bestCount := 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}

// quantile computes the q-th quantile with linear interpolation between
// order statistics.
func quantile(vals []float64, q float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

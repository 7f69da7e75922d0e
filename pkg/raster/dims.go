package raster

import "github.com/atlaseo/gridalign/pkg/errors"

// Candidate horizontal axis names, in resolution order. Each input source may
// use a different convention, so inference runs per dataset, never globally.
var (
	XCandidates = []string{"x", "longitude", "lon"}
	YCandidates = []string{"y", "latitude", "lat"}
)

// InferXDim returns the name of the variable's x axis: the first XCandidates
// entry declared by the variable. dataset and variable name the error context.
func InferXDim(dataset, variable string, v *Variable) (string, error) {
	for _, d := range XCandidates {
		if v.HasDim(d) {
			return d, nil
		}
	}
	return "", errors.NewDimensionInferenceError(dataset, variable, "x", XCandidates)
}

// InferYDim returns the name of the variable's y axis, first YCandidates
// match wins.
func InferYDim(dataset, variable string, v *Variable) (string, error) {
	for _, d := range YCandidates {
		if v.HasDim(d) {
			return d, nil
		}
	}
	return "", errors.NewDimensionInferenceError(dataset, variable, "y", YCandidates)
}

// CanonicalOrder returns the variable's dimensions reordered so the y axis
// is second to last and the x axis last; non-spatial dimensions keep their
// relative order in front (time before y before x).
func CanonicalOrder(v *Variable, xDim, yDim string) []string {
	order := make([]string, 0, len(v.Dims))
	for _, d := range v.Dims {
		if d != xDim && d != yDim {
			order = append(order, d)
		}
	}
	return append(order, yDim, xDim)
}

package raster

import (
	"fmt"

	"github.com/atlaseo/gridalign/pkg/errors"
)

// NamedDataset pairs a dataset with the key it was supplied under, so merge
// conflicts can name their offenders.
type NamedDataset struct {
	Name    string
	Dataset *Dataset
}

// Merge combines datasets with an exact-match join: every shared dimension
// must agree on its coordinate values, element for element. Any mismatch is a
// MergeError — broadcasting or dropping data here could silently pair two
// physically different pixels that happen to share an index.
//
// The result carries the union of all variables. A variable name appearing in
// more than one dataset is a conflict, not a silent overwrite.
func Merge(entries []NamedDataset) (*Dataset, error) {
	if len(entries) == 0 {
		return nil, errors.NewValidationError("datasets", nil, "no datasets to merge")
	}

	out := NewDataset()
	coordOwner := make(map[string]string) // dimension -> dataset that set it
	varOwner := make(map[string]string)   // variable -> dataset that set it

	for _, entry := range entries {
		ds := entry.Dataset
		if ds == nil {
			return nil, errors.NewTypeConformanceError(entry.Name, "nil")
		}

		for dim, coord := range ds.Coords {
			prev, ok := out.Coords[dim]
			if !ok {
				out.Coords[dim] = append([]float64(nil), coord...)
				coordOwner[dim] = entry.Name
				continue
			}
			if err := coordsEqual(dim, prev, coord, coordOwner[dim], entry.Name); err != nil {
				return nil, err
			}
		}

		for _, name := range ds.VarNames() {
			if owner, taken := varOwner[name]; taken {
				return nil, errors.NewMergeError("", []string{owner, entry.Name},
					fmt.Sprintf("both datasets define variable %q", name))
			}
			v, _ := ds.Var(name)
			out.SetVar(name, v.Copy())
			varOwner[name] = entry.Name
		}

		for k, v := range ds.Attrs {
			if _, ok := out.Attrs[k]; !ok {
				out.Attrs[k] = v
			}
		}
	}

	return out, nil
}

// coordsEqual requires bit-exact equality of shared-dimension coordinates.
func coordsEqual(dim string, a, b []float64, ownerA, ownerB string) error {
	who := []string{ownerA, ownerB}
	if len(a) != len(b) {
		return errors.NewMergeError(dim, who,
			fmt.Sprintf("coordinate lengths differ (%d vs %d)", len(a), len(b)))
	}
	for i := range a {
		if a[i] != b[i] {
			return errors.NewMergeError(dim, who,
				fmt.Sprintf("coordinate values differ at index %d (%v vs %v)", i, a[i], b[i]))
		}
	}
	return nil
}

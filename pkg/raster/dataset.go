package raster

import (
	"context"

	"github.com/atlaseo/gridalign/pkg/lazy"
)

// Attribute keys used for CRS carriage, mirroring CF conventions.
const (
	// AttrCRS is the plain string CRS attribute.
	AttrCRS = "crs"
	// AttrSpatialRef is the embedded spatial reference attribute.
	AttrSpatialRef = "spatial_ref"
	// AttrCRSWKT is the CRS description attribute on a grid-mapping variable.
	AttrCRSWKT = "crs_wkt"
)

// Dataset is a named collection of co-dimensioned variables with shared
// coordinates. Variable order is preserved. The engine never mutates a
// dataset it received; every pipeline stage derives a new one.
type Dataset struct {
	names []string
	vars  map[string]*Variable

	// Coords maps a dimension name to its coordinate values.
	Coords map[string][]float64
	// Attrs holds dataset-level metadata such as the CRS.
	Attrs map[string]string
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		vars:   make(map[string]*Variable),
		Coords: make(map[string][]float64),
		Attrs:  make(map[string]string),
	}
}

// SetVar adds or replaces a variable, preserving first-insertion order.
func (d *Dataset) SetVar(name string, v *Variable) {
	if _, exists := d.vars[name]; !exists {
		d.names = append(d.names, name)
	}
	d.vars[name] = v
}

// Var returns the named variable.
func (d *Dataset) Var(name string) (*Variable, bool) {
	v, ok := d.vars[name]
	return v, ok
}

// VarNames returns variable names in insertion order.
func (d *Dataset) VarNames() []string {
	return append([]string(nil), d.names...)
}

// NumVars returns the number of variables.
func (d *Dataset) NumVars() int {
	return len(d.names)
}

// SetCoord sets the coordinate values for a dimension.
func (d *Dataset) SetCoord(dim string, values []float64) {
	d.Coords[dim] = values
}

// Coord returns the coordinate values for a dimension.
func (d *Dataset) Coord(dim string) ([]float64, bool) {
	c, ok := d.Coords[dim]
	return c, ok
}

// CRS returns the plain CRS attribute, if any.
func (d *Dataset) CRS() (string, bool) {
	c, ok := d.Attrs[AttrCRS]
	return c, ok
}

// SetCRS writes the CRS as a plain attribute.
func (d *Dataset) SetCRS(crs string) {
	d.Attrs[AttrCRS] = crs
}

// Dims returns the union of all variable dimensions, in first-appearance
// order across variables.
func (d *Dataset) Dims() []string {
	var dims []string
	seen := make(map[string]bool)
	for _, name := range d.names {
		for _, dim := range d.vars[name].Dims {
			if !seen[dim] {
				seen[dim] = true
				dims = append(dims, dim)
			}
		}
	}
	return dims
}

// Copy returns a dataset with copied metadata and variable views. Buffers are
// shared; the engine treats buffer contents as immutable.
func (d *Dataset) Copy() *Dataset {
	out := NewDataset()
	for _, name := range d.names {
		out.SetVar(name, d.vars[name].Copy())
	}
	for dim, coord := range d.Coords {
		out.Coords[dim] = append([]float64(nil), coord...)
	}
	for k, v := range d.Attrs {
		out.Attrs[k] = v
	}
	return out
}

// RenameDims returns a copy with dimensions (and their coordinates) renamed
// per the mapping.
func (d *Dataset) RenameDims(mapping map[string]string) *Dataset {
	out := NewDataset()
	for _, name := range d.names {
		out.SetVar(name, d.vars[name].Rename(mapping))
	}
	for dim, coord := range d.Coords {
		name := dim
		if n, ok := mapping[dim]; ok {
			name = n
		}
		out.Coords[name] = append([]float64(nil), coord...)
	}
	for k, v := range d.Attrs {
		out.Attrs[k] = v
	}
	return out
}

// Buffers returns the lazy buffers of all variables, in variable order.
func (d *Dataset) Buffers() []*lazy.Buffer {
	bufs := make([]*lazy.Buffer, 0, len(d.names))
	for _, name := range d.names {
		bufs = append(bufs, d.vars[name].Buffer())
	}
	return bufs
}

// Materialize forces every variable buffer with bounded parallelism. This is
// the explicit boundary where deferred transforms execute.
func (d *Dataset) Materialize(ctx context.Context, limit int) error {
	return lazy.Materialize(ctx, limit, d.Buffers()...)
}

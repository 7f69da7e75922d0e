// Package crs resolves the coordinate reference system of a dataset and
// provides point transforms between supported CRSs. Resolution never assumes
// a default projection: a dataset with no discoverable CRS fails loudly,
// because defaulting here would corrupt every downstream pixel alignment
// without any assertion failure.
package crs

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/atlaseo/gridalign/pkg/errors"
	"github.com/atlaseo/gridalign/pkg/raster"
)

// Well-known CRS identifiers with transform support.
const (
	EPSG4326 = "EPSG:4326"
	EPSG3857 = "EPSG:3857"
)

// gridMappingVars are the conventional CF grid-mapping variable names checked
// during resolution, in order.
var gridMappingVars = []string{"spatial_ref", "crs"}

// Resolve infers the CRS of a dataset. Resolution order:
//  1. dataset-level embedded spatial reference attribute;
//  2. a CF-style grid-mapping variable ("spatial_ref" or "crs") carrying a
//     crs_wkt or spatial_ref attribute;
//  3. a plain "crs" string attribute.
//
// name identifies the dataset in the returned CRSResolutionError.
func Resolve(ds *raster.Dataset, name string) (string, error) {
	if ds == nil {
		return "", errors.NewTypeConformanceError(name, "nil")
	}

	if ref, ok := ds.Attrs[raster.AttrSpatialRef]; ok && ref != "" {
		return ref, nil
	}

	for _, varName := range gridMappingVars {
		v, ok := ds.Var(varName)
		if !ok || v.Attrs == nil {
			continue
		}
		if wkt := v.Attrs[raster.AttrCRSWKT]; wkt != "" {
			return wkt, nil
		}
		if ref := v.Attrs[raster.AttrSpatialRef]; ref != "" {
			return ref, nil
		}
	}

	if c, ok := ds.CRS(); ok && c != "" {
		return c, nil
	}

	return "", errors.NewCRSResolutionError(name,
		"dataset carries no embedded spatial reference, grid-mapping variable, or crs attribute")
}

// Normalize canonicalizes a CRS identifier for comparison: surrounding
// whitespace is dropped and EPSG-style codes are upper-cased.
func Normalize(code string) string {
	c := strings.TrimSpace(code)
	if strings.ContainsAny(c, "[(") {
		// WKT or PROJ string, keep verbatim
		return c
	}
	return strings.ToUpper(c)
}

// Equal reports whether two CRS identifiers name the same system.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Transformer maps a point from one CRS to another.
type Transformer func(x, y float64) (float64, float64)

// NewTransformer returns a point transform from src to dst. Identical CRSs
// yield the identity transform; the EPSG:4326/EPSG:3857 pair is supported in
// both directions. Any other pair fails with a CRSResolutionError naming the
// pair — guessing a transform is worse than refusing one.
func NewTransformer(src, dst string) (Transformer, error) {
	s, d := Normalize(src), Normalize(dst)

	if s == d {
		return func(x, y float64) (float64, float64) { return x, y }, nil
	}

	switch {
	case s == EPSG4326 && d == EPSG3857:
		return func(x, y float64) (float64, float64) {
			p := project.WGS84.ToMercator(orb.Point{x, y})
			return p[0], p[1]
		}, nil
	case s == EPSG3857 && d == EPSG4326:
		return func(x, y float64) (float64, float64) {
			p := project.Mercator.ToWGS84(orb.Point{x, y})
			return p[0], p[1]
		}, nil
	}

	return nil, errors.NewCRSResolutionError("",
		fmt.Sprintf("no transform available from %q to %q", src, dst))
}

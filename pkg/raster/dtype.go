package raster

// DType identifies the declared element type of a variable. Values are stored
// in a float64 buffer regardless of dtype; the dtype tag drives policy
// decisions such as the automatic coarsening aggregation (integer-coded
// variables keep categorical codes, floating-point variables keep magnitude).
type DType string

// Supported variable dtypes.
const (
	Float32 DType = "float32"
	Float64 DType = "float64"
	Int8    DType = "int8"
	Int16   DType = "int16"
	Int32   DType = "int32"
	Int64   DType = "int64"
	Uint8   DType = "uint8"
	Uint16  DType = "uint16"
	Uint32  DType = "uint32"
	Uint64  DType = "uint64"
)

// IsInteger reports whether the dtype is an integer type.
func (d DType) IsInteger() bool {
	switch d {
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64:
		return true
	default:
		return false
	}
}

// IsFloat reports whether the dtype is a floating-point type.
func (d DType) IsFloat() bool {
	return d == Float32 || d == Float64
}

// Package raster defines the generic raster-source abstraction the codec
// reads from, together with an in-memory implementation used by tests and
// by mosaic materialization. Sample values travel as float64 regardless of
// the storage type; missing samples are NaN.
package raster

import "math"

// DataType enumerates the sample types a source can report.
type DataType int

const (
	Byte DataType = iota
	UInt16
	Int16
	UInt32
	Int32
	Float32
	Float64
)

func (dt DataType) String() string {
	switch dt {
	case Byte:
		return "Byte"
	case UInt16:
		return "UInt16"
	case Int16:
		return "Int16"
	case UInt32:
		return "UInt32"
	case Int32:
		return "Int32"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	}
	return "unknown"
}

// IsInteger reports whether the type stores integers.
func (dt DataType) IsInteger() bool {
	switch dt {
	case Byte, UInt16, Int16, UInt32, Int32:
		return true
	}
	return false
}

// IsSigned reports whether the type can store negative values.
func (dt DataType) IsSigned() bool {
	switch dt {
	case Int16, Int32, Float32, Float64:
		return true
	}
	return false
}

// Size returns the storage size in bytes.
func (dt DataType) Size() int {
	switch dt {
	case Byte:
		return 1
	case UInt16, Int16:
		return 2
	case UInt32, Int32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// Range returns the representable integer value range. Float types return
// (-inf, +inf).
func (dt DataType) Range() (min, max float64) {
	switch dt {
	case Byte:
		return 0, math.MaxUint8
	case UInt16:
		return 0, math.MaxUint16
	case Int16:
		return math.MinInt16, math.MaxInt16
	case UInt32:
		return 0, math.MaxUint32
	case Int32:
		return math.MinInt32, math.MaxInt32
	}
	return math.Inf(-1), math.Inf(1)
}

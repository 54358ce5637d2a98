// Package crs models the closed set of spatial references the WPS Binary
// format can describe, maps between generic reference descriptions and the
// format's projection identifiers, and performs the point transforms needed
// to derive grid anchors.
package crs

import "fmt"

// WRFEarthRadius is the sphere radius (meters) assumed by the weather model
// for all sphere-based projections.
const WRFEarthRadius = 6370000.0

// ProjectionID identifies one of the projections the index file can declare.
type ProjectionID string

const (
	RegularLL   ProjectionID = "regular_ll"
	Lambert     ProjectionID = "lambert"
	Mercator    ProjectionID = "mercator"
	AlbersNAD83 ProjectionID = "albers_nad83"
	Polar       ProjectionID = "polar"
	PolarWGS84  ProjectionID = "polar_wgs84"
)

// KnownProjectionID reports whether id is one of the supported identifiers.
func KnownProjectionID(id ProjectionID) bool {
	switch id {
	case RegularLL, Lambert, Mercator, AlbersNAD83, Polar, PolarWGS84:
		return true
	}
	return false
}

// Method is a named map-projection method of a projected reference.
type Method int

const (
	// MethodNone marks a geographic (unprojected) reference.
	MethodNone Method = iota
	MethodAlbersConicEqualArea
	MethodLambertConformalConic2SP
	MethodMercator2SP
	MethodPolarStereographic
	// MethodUnknown stands for any method outside the supported set; the
	// original name is carried in SpatialReference.MethodName.
	MethodUnknown
)

func (m Method) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodAlbersConicEqualArea:
		return "Albers_Conic_Equal_Area"
	case MethodLambertConformalConic2SP:
		return "Lambert_Conformal_Conic_2SP"
	case MethodMercator2SP:
		return "Mercator_2SP"
	case MethodPolarStereographic:
		return "Polar_Stereographic"
	}
	return "unknown"
}

// Datum describes the reference ellipsoid (or sphere) of a spatial reference.
type Datum struct {
	Name      string
	SemiMajor float64 // meters
	SemiMinor float64 // meters
}

// Predefined datums used by the supported projections.
var (
	DatumWRFSphere = Datum{Name: "WRF_Sphere", SemiMajor: WRFEarthRadius, SemiMinor: WRFEarthRadius}
	DatumWGS84     = Datum{Name: "WGS_1984", SemiMajor: 6378137.0, SemiMinor: 6356752.314245179}
	DatumNAD83     = Datum{Name: "North_American_Datum_1983", SemiMajor: 6378137.0, SemiMinor: 6356752.314140356}
)

// IsWRFSphere reports whether the datum is the perfect sphere the model expects.
func (d Datum) IsWRFSphere() bool {
	return d.SemiMajor == WRFEarthRadius && d.SemiMinor == WRFEarthRadius
}

// Flattening returns (a-b)/a, zero for a sphere.
func (d Datum) Flattening() float64 {
	if d.SemiMajor == 0 {
		return 0
	}
	return (d.SemiMajor - d.SemiMinor) / d.SemiMajor
}

// Eccentricity2 returns the first eccentricity squared.
func (d Datum) Eccentricity2() float64 {
	f := d.Flattening()
	return f * (2 - f)
}

func (d Datum) String() string {
	if d.Name != "" {
		return d.Name
	}
	return fmt.Sprintf("a=%gm b=%gm", d.SemiMajor, d.SemiMinor)
}

// Parameters holds the projection parameters of a projected reference.
// Unused fields are zero.
type Parameters struct {
	StandardParallel1 float64
	StandardParallel2 float64
	CentralMeridian   float64 // longitude of center for Albers
	LatitudeOfOrigin  float64
	FalseEasting      float64
	FalseNorthing     float64
}

// SpatialReference is a generic description of a coordinate reference system,
// restricted to the properties the codec needs: geographic vs. projected,
// the projection method and its parameters, and the datum.
type SpatialReference struct {
	Geographic bool
	// LatLongOrder is true for geographic references whose axis order is
	// latitude first. The format requires lon/lat order.
	LatLongOrder bool
	Method       Method
	// MethodName carries the source's method name when Method is
	// MethodUnknown, for error reporting.
	MethodName string
	Datum      Datum
	Params     Parameters
}

// Describe returns a short human-readable form for logs and errors.
func (sr SpatialReference) Describe() string {
	if sr.Geographic {
		return fmt.Sprintf("geographic (%s)", sr.Datum)
	}
	name := sr.MethodName
	if name == "" {
		name = sr.Method.String()
	}
	return fmt.Sprintf("%s (%s)", name, sr.Datum)
}

// UnsupportedProjectionError reports a reference outside the supported set.
type UnsupportedProjectionError struct {
	Method string
	Datum  string
	Reason string
}

func (e *UnsupportedProjectionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported projection: %s", e.Reason)
	}
	return fmt.Sprintf("unsupported projection/datum: %s; %s", e.Method, e.Datum)
}

// DatumMismatch records the difference between the datum the format expects
// for a projection and the datum the source actually uses.
type DatumMismatch struct {
	Expected string
	Actual   string
}

func (m DatumMismatch) String() string {
	return fmt.Sprintf("expected %s, got %s", m.Expected, m.Actual)
}

// DatumMismatchError is returned by Classify in strict mode when the source
// datum differs from the one the format assumes. In non-strict mode the
// mismatch is returned as advisory data instead.
type DatumMismatchError struct {
	Mismatch DatumMismatch
}

func (e *DatumMismatchError) Error() string {
	return fmt.Sprintf("datum mismatch: %s (model output would be subtly offset; pass strict_datum=false to write anyway)", e.Mismatch)
}

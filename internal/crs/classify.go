package crs

// Projection holds the index-file projection identifier together with the
// parameters the format stores alongside it. Truelat2 and StandLon are only
// meaningful for the projections that declare them.
type Projection struct {
	ID       ProjectionID
	Truelat1 *float64
	Truelat2 *float64
	StandLon *float64
}

const wrfSphereDescription = "WRF Sphere (6370km)"

// Classify maps a generic spatial reference onto the format's closed set of
// projection identifiers and extracts the parameters the index file needs.
//
// When the datum differs from the one the format assumes for the matched
// projection, strict mode fails with *DatumMismatchError; otherwise the
// mismatch is returned as advisory data and the classification proceeds.
// Polar stereographic is the exception: the datum selects between the
// "polar" and "polar_wgs84" identifiers, so a third datum cannot be
// downgraded to a warning without the choice becoming ambiguous.
func Classify(sr SpatialReference, strict bool) (Projection, *DatumMismatch, error) {
	if sr.Geographic {
		if sr.LatLongOrder {
			return Projection{}, nil, &UnsupportedProjectionError{
				Reason: "axis order is Lat/Lon, must be Lon/Lat",
			}
		}
		var mismatch *DatumMismatch
		if !sr.Datum.IsWRFSphere() {
			mismatch = &DatumMismatch{Expected: wrfSphereDescription, Actual: sr.Datum.String()}
			if strict {
				return Projection{}, nil, &DatumMismatchError{Mismatch: *mismatch}
			}
		}
		return Projection{ID: RegularLL}, mismatch, nil
	}

	p := sr.Params
	var (
		proj     Projection
		mismatch *DatumMismatch
	)

	switch sr.Method {
	case MethodAlbersConicEqualArea:
		proj = Projection{
			ID:       AlbersNAD83,
			Truelat1: f64(p.StandardParallel1),
			Truelat2: f64(p.StandardParallel2),
			StandLon: f64(p.CentralMeridian),
		}
		if sr.Datum.Name != DatumNAD83.Name {
			mismatch = &DatumMismatch{Expected: "NAD83", Actual: sr.Datum.String()}
		}

	case MethodLambertConformalConic2SP:
		proj = Projection{
			ID:       Lambert,
			Truelat1: f64(p.StandardParallel1),
			Truelat2: f64(p.StandardParallel2),
			StandLon: f64(p.CentralMeridian),
		}
		if !sr.Datum.IsWRFSphere() {
			mismatch = &DatumMismatch{Expected: wrfSphereDescription, Actual: sr.Datum.String()}
		}

	case MethodMercator2SP:
		proj = Projection{
			ID:       Mercator,
			Truelat1: f64(p.StandardParallel1),
			StandLon: f64(p.CentralMeridian),
		}
		if !sr.Datum.IsWRFSphere() {
			mismatch = &DatumMismatch{Expected: wrfSphereDescription, Actual: sr.Datum.String()}
		}

	case MethodPolarStereographic:
		proj = Projection{
			Truelat1: f64(p.LatitudeOfOrigin),
			StandLon: f64(p.CentralMeridian),
		}
		switch {
		case sr.Datum.Name == DatumWGS84.Name:
			proj.ID = PolarWGS84
		case sr.Datum.IsWRFSphere():
			proj.ID = Polar
		default:
			return Projection{}, nil, &UnsupportedProjectionError{
				Method: sr.Method.String(), Datum: sr.Datum.String(),
			}
		}

	default:
		name := sr.MethodName
		if name == "" {
			name = sr.Method.String()
		}
		return Projection{}, nil, &UnsupportedProjectionError{Method: name, Datum: sr.Datum.String()}
	}

	if mismatch != nil && strict {
		return Projection{}, nil, &DatumMismatchError{Mismatch: *mismatch}
	}
	return proj, mismatch, nil
}

// Reference performs the inverse mapping: it builds a spatial reference for a
// projection identifier read from an index file. See the comments inline for
// why the latitude/longitude of origin can be chosen arbitrarily.
func Reference(p Projection) (SpatialReference, error) {
	switch p.ID {
	case RegularLL:
		return SpatialReference{Geographic: true, Datum: DatumWRFSphere}, nil

	case Lambert:
		// The map distortion of a Lambert conformal projection is fully
		// defined by the two true latitudes. The grid georeferencing is
		// anchored by a geographic reference coordinate, not projected
		// coordinates, so the latitude of origin carries no information
		// here and any fixed choice works. The midpoint keeps projected
		// y values small over the domain.
		if p.Truelat1 == nil || p.Truelat2 == nil || p.StandLon == nil {
			return SpatialReference{}, &UnsupportedProjectionError{Reason: "lambert requires truelat1, truelat2 and stdlon"}
		}
		return SpatialReference{
			Method: MethodLambertConformalConic2SP,
			Datum:  DatumWRFSphere,
			Params: Parameters{
				StandardParallel1: *p.Truelat1,
				StandardParallel2: *p.Truelat2,
				CentralMeridian:   *p.StandLon,
				LatitudeOfOrigin:  (*p.Truelat1 + *p.Truelat2) / 2,
			},
		}, nil

	case Mercator:
		// True latitude fixes the distortion; the longitude of origin is
		// arbitrary for the same reason as the Lambert case above.
		if p.Truelat1 == nil {
			return SpatialReference{}, &UnsupportedProjectionError{Reason: "mercator requires truelat1"}
		}
		return SpatialReference{
			Method: MethodMercator2SP,
			Datum:  DatumWRFSphere,
			Params: Parameters{StandardParallel1: *p.Truelat1, CentralMeridian: 0},
		}, nil

	case AlbersNAD83:
		if p.Truelat1 == nil || p.Truelat2 == nil || p.StandLon == nil {
			return SpatialReference{}, &UnsupportedProjectionError{Reason: "albers_nad83 requires truelat1, truelat2 and stdlon"}
		}
		return SpatialReference{
			Method: MethodAlbersConicEqualArea,
			Datum:  DatumNAD83,
			Params: Parameters{
				StandardParallel1: *p.Truelat1,
				StandardParallel2: *p.Truelat2,
				CentralMeridian:   *p.StandLon,
				LatitudeOfOrigin:  (*p.Truelat1 + *p.Truelat2) / 2,
			},
		}, nil

	case Polar, PolarWGS84:
		if p.Truelat1 == nil || p.StandLon == nil {
			return SpatialReference{}, &UnsupportedProjectionError{Reason: string(p.ID) + " requires truelat1 and stdlon"}
		}
		datum := DatumWRFSphere
		if p.ID == PolarWGS84 {
			datum = DatumWGS84
		}
		// The pole is implied by the sign of the true latitude.
		return SpatialReference{
			Method: MethodPolarStereographic,
			Datum:  datum,
			Params: Parameters{
				LatitudeOfOrigin: *p.Truelat1,
				CentralMeridian:  *p.StandLon,
			},
		}, nil
	}

	return SpatialReference{}, &UnsupportedProjectionError{Reason: "projection " + string(p.ID) + " is not supported"}
}

func f64(v float64) *float64 { return &v }

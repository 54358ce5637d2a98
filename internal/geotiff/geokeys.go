package geotiff

import (
	"fmt"
	"strings"

	"github.com/geosim/geo2wps/internal/crs"
)

// GeoKey IDs (GeoTIFF 1.1).
const (
	keyModelType          = 1024
	keyRasterType         = 1025
	keyCitation           = 1026
	keyGeodeticCRS        = 2048
	keyGeodeticCitation   = 2049
	keyGeodeticDatum      = 2050
	keyEllipsoid          = 2056
	keyEllipsoidSemiMajor = 2057
	keyEllipsoidSemiMinor = 2058
	keyInvFlattening      = 2059
	keyProjectedCRS       = 3072
	keyProjectedCitation  = 3073
	keyProjection         = 3074
	keyProjMethod         = 3075
	keyStdParallel1       = 3078
	keyStdParallel2       = 3079
	keyNatOriginLong      = 3080
	keyNatOriginLat       = 3081
	keyFalseEasting       = 3082
	keyFalseNorthing      = 3083
	keyFalseOriginLong    = 3084
	keyFalseOriginLat     = 3085
	keyFalseOriginEasting = 3086
	keyFalseOriginNorth   = 3087
	keyCenterLong         = 3088
	keyCenterLat          = 3089
	keyStraightVertPole   = 3095
)

// ModelType values.
const (
	modelProjected  = 1
	modelGeographic = 2
)

const userDefined = 32767

// geoKeys holds the decoded geokey directory, with values resolved from the
// short, double and ascii parameter arrays.
type geoKeys struct {
	shorts  map[uint16]uint16
	doubles map[uint16]float64
	asciis  map[uint16]string
}

// parseGeoKeys decodes the GeoKeyDirectoryTag. The directory is groups of
// four shorts: key ID, value location (0 = inline, else a tag ID), count,
// and value or offset.
func parseGeoKeys(d *ifd) (*geoKeys, error) {
	dir := d.GeoKeys
	if len(dir) < 4 {
		return nil, fmt.Errorf("geokey directory too short (%d values)", len(dir))
	}
	if dir[0] != 1 {
		return nil, fmt.Errorf("unsupported geokey directory version %d", dir[0])
	}
	numKeys := int(dir[3])
	if len(dir) < 4+4*numKeys {
		return nil, fmt.Errorf("geokey directory truncated: %d keys, %d values", numKeys, len(dir))
	}

	g := &geoKeys{
		shorts:  make(map[uint16]uint16),
		doubles: make(map[uint16]float64),
		asciis:  make(map[uint16]string),
	}

	for i := 0; i < numKeys; i++ {
		key := dir[4+4*i]
		loc := dir[4+4*i+1]
		count := int(dir[4+4*i+2])
		value := dir[4+4*i+3]

		switch loc {
		case 0:
			g.shorts[key] = value
		case tagGeoDoubleParamsTag:
			if int(value) >= len(d.GeoDoubleParams) {
				return nil, fmt.Errorf("geokey %d: double param offset %d out of range", key, value)
			}
			g.doubles[key] = d.GeoDoubleParams[value]
		case tagGeoAsciiParamsTag:
			end := int(value) + count
			if end > len(d.GeoAsciiParams) {
				end = len(d.GeoAsciiParams)
			}
			s := d.GeoAsciiParams[value:end]
			g.asciis[key] = strings.TrimRight(s, "|\x00")
		default:
			return nil, fmt.Errorf("geokey %d: unknown value location tag %d", key, loc)
		}
	}

	return g, nil
}

func (g *geoKeys) short(key uint16) (uint16, bool) {
	v, ok := g.shorts[key]
	return v, ok
}

func (g *geoKeys) double(key uint16) (float64, bool) {
	v, ok := g.doubles[key]
	return v, ok
}

// firstDouble returns the first present value among keys, or 0.
func (g *geoKeys) firstDouble(keys ...uint16) float64 {
	for _, k := range keys {
		if v, ok := g.doubles[k]; ok {
			return v
		}
	}
	return 0
}

// Geographic CRS codes with a known datum.
var geographicDatums = map[uint16]crs.Datum{
	4326: crs.DatumWGS84,
	4269: crs.DatumNAD83,
	4267: {Name: "North_American_Datum_1927", SemiMajor: 6378206.4, SemiMinor: 6356583.8},
	4047: {Name: "Sphere_GRS_1980_Authalic", SemiMajor: 6371007.0, SemiMinor: 6371007.0},
}

// Well-known projected CRS codes, spelled out so rasters carrying only an
// EPSG code still classify.
var projectedCRS = map[uint16]crs.SpatialReference{
	// NAD83 / Conus Albers
	5070: {
		Method: crs.MethodAlbersConicEqualArea,
		Datum:  crs.DatumNAD83,
		Params: crs.Parameters{
			StandardParallel1: 29.5,
			StandardParallel2: 45.5,
			CentralMeridian:   -96,
			LatitudeOfOrigin:  23,
		},
	},
	// WGS 84 / Antarctic Polar Stereographic
	3031: {
		Method: crs.MethodPolarStereographic,
		Datum:  crs.DatumWGS84,
		Params: crs.Parameters{
			StandardParallel1: -71,
			CentralMeridian:   0,
			LatitudeOfOrigin:  -90,
		},
	},
	// WGS 84 / Arctic Polar Stereographic
	3995: {
		Method: crs.MethodPolarStereographic,
		Datum:  crs.DatumWGS84,
		Params: crs.Parameters{
			StandardParallel1: 71,
			CentralMeridian:   0,
			LatitudeOfOrigin:  90,
		},
	},
}

// Coordinate transformation method codes (geokey 3075).
var methodCodes = map[uint16]crs.Method{
	7:  crs.MethodMercator2SP,
	8:  crs.MethodLambertConformalConic2SP,
	11: crs.MethodAlbersConicEqualArea,
	15: crs.MethodPolarStereographic,
}

// spatialReference interprets the geokeys as one of the reference systems
// the codec understands.
func (g *geoKeys) spatialReference() (crs.SpatialReference, error) {
	model, ok := g.short(keyModelType)
	if !ok {
		return crs.SpatialReference{}, fmt.Errorf("geokeys missing model type")
	}

	switch model {
	case modelGeographic:
		datum, err := g.datum()
		if err != nil {
			return crs.SpatialReference{}, err
		}
		return crs.SpatialReference{Geographic: true, Datum: datum}, nil

	case modelProjected:
		if code, ok := g.short(keyProjectedCRS); ok && code != userDefined {
			if sr, ok := projectedCRS[code]; ok {
				return sr, nil
			}
			return crs.SpatialReference{}, &crs.UnsupportedProjectionError{
				Reason: fmt.Sprintf("projected CRS EPSG:%d is not in the supported set", code),
			}
		}
		return g.userDefinedProjection()

	default:
		return crs.SpatialReference{}, fmt.Errorf("unsupported geokey model type %d", model)
	}
}

func (g *geoKeys) datum() (crs.Datum, error) {
	if code, ok := g.short(keyGeodeticCRS); ok && code != userDefined {
		if d, ok := geographicDatums[code]; ok {
			return d, nil
		}
		return crs.Datum{}, fmt.Errorf("unsupported geodetic CRS EPSG:%d", code)
	}

	a, okA := g.double(keyEllipsoidSemiMajor)
	if !okA {
		return crs.Datum{}, fmt.Errorf("user-defined datum without ellipsoid semi-major axis")
	}
	b, okB := g.double(keyEllipsoidSemiMinor)
	if !okB {
		if inv, ok := g.double(keyInvFlattening); ok && inv != 0 {
			b = a * (1 - 1/inv)
		} else {
			// No flattening given: a sphere.
			b = a
		}
	}
	name := g.asciis[keyGeodeticCitation]
	return crs.Datum{Name: name, SemiMajor: a, SemiMinor: b}, nil
}

func (g *geoKeys) userDefinedProjection() (crs.SpatialReference, error) {
	datum, err := g.datum()
	if err != nil {
		return crs.SpatialReference{}, err
	}

	methodCode, ok := g.short(keyProjMethod)
	if !ok {
		return crs.SpatialReference{}, fmt.Errorf("user-defined projection without method geokey")
	}

	method, known := methodCodes[methodCode]
	if !known {
		return crs.SpatialReference{
			Method:     crs.MethodUnknown,
			MethodName: fmt.Sprintf("CT_%d", methodCode),
			Datum:      datum,
		}, nil
	}

	params := crs.Parameters{
		StandardParallel1: g.firstDouble(keyStdParallel1),
		StandardParallel2: g.firstDouble(keyStdParallel2),
		CentralMeridian:   g.firstDouble(keyNatOriginLong, keyFalseOriginLong, keyCenterLong, keyStraightVertPole),
		LatitudeOfOrigin:  g.firstDouble(keyNatOriginLat, keyFalseOriginLat, keyCenterLat),
		FalseEasting:      g.firstDouble(keyFalseEasting, keyFalseOriginEasting),
		FalseNorthing:     g.firstDouble(keyFalseNorthing, keyFalseOriginNorth),
	}

	return crs.SpatialReference{Method: method, Datum: datum, Params: params}, nil
}

package crs

import "math"

// Transform converts between geographic coordinates (degrees, on the
// reference's own datum; no datum shift is applied) and projected
// coordinates in CRS units.
type Transform interface {
	// Forward converts lon/lat (degrees) to projected x/y.
	Forward(lon, lat float64) (x, y float64)

	// Inverse converts projected x/y back to lon/lat (degrees).
	Inverse(x, y float64) (lon, lat float64)
}

const degToRad = math.Pi / 180

// NewTransform builds the point transform for a supported spatial reference.
func NewTransform(sr SpatialReference) (Transform, error) {
	if sr.Geographic {
		return lonLatIdentity{}, nil
	}
	p := sr.Params
	switch sr.Method {
	case MethodLambertConformalConic2SP:
		return newLambertConformal(sr.Datum.SemiMajor,
			p.StandardParallel1, p.StandardParallel2, p.LatitudeOfOrigin, p.CentralMeridian,
			p.FalseEasting, p.FalseNorthing), nil
	case MethodMercator2SP:
		return &mercatorSphere{
			r:    sr.Datum.SemiMajor,
			k0:   math.Cos(p.StandardParallel1 * degToRad),
			lon0: p.CentralMeridian,
			fe:   p.FalseEasting,
			fn:   p.FalseNorthing,
		}, nil
	case MethodPolarStereographic:
		if sr.Datum.Eccentricity2() > 1e-12 {
			return newPolarStereoEllipsoid(sr.Datum, p.LatitudeOfOrigin, p.CentralMeridian,
				p.FalseEasting, p.FalseNorthing), nil
		}
		return newPolarStereoSphere(sr.Datum.SemiMajor, p.LatitudeOfOrigin, p.CentralMeridian,
			p.FalseEasting, p.FalseNorthing), nil
	case MethodAlbersConicEqualArea:
		return newAlbers(sr.Datum,
			p.StandardParallel1, p.StandardParallel2, p.LatitudeOfOrigin, p.CentralMeridian,
			p.FalseEasting, p.FalseNorthing), nil
	}
	name := sr.MethodName
	if name == "" {
		name = sr.Method.String()
	}
	return nil, &UnsupportedProjectionError{Method: name, Datum: sr.Datum.String()}
}

// lonLatIdentity is the no-op transform for geographic references.
type lonLatIdentity struct{}

func (lonLatIdentity) Forward(lon, lat float64) (float64, float64) { return lon, lat }
func (lonLatIdentity) Inverse(x, y float64) (float64, float64)     { return x, y }

// lambertConformal is the spherical Lambert conformal conic with two
// standard parallels (Snyder 1987, eq. 15-1..15-5).
type lambertConformal struct {
	r      float64
	n      float64
	f      float64
	rho0   float64
	lon0   float64
	fe, fn float64
}

func newLambertConformal(r, lat1, lat2, lat0, lon0, fe, fn float64) *lambertConformal {
	p1 := lat1 * degToRad
	p2 := lat2 * degToRad
	p0 := lat0 * degToRad

	var n float64
	if math.Abs(p1-p2) < 1e-10 {
		n = math.Sin(p1)
	} else {
		n = math.Log(math.Cos(p1)/math.Cos(p2)) /
			math.Log(math.Tan(math.Pi/4+p2/2)/math.Tan(math.Pi/4+p1/2))
	}
	f := math.Cos(p1) * math.Pow(math.Tan(math.Pi/4+p1/2), n) / n
	rho0 := r * f / math.Pow(math.Tan(math.Pi/4+p0/2), n)

	return &lambertConformal{r: r, n: n, f: f, rho0: rho0, lon0: lon0, fe: fe, fn: fn}
}

func (t *lambertConformal) Forward(lon, lat float64) (float64, float64) {
	phi := lat * degToRad
	rho := t.r * t.f / math.Pow(math.Tan(math.Pi/4+phi/2), t.n)
	theta := t.n * normLon(lon-t.lon0) * degToRad
	x := rho * math.Sin(theta)
	y := t.rho0 - rho*math.Cos(theta)
	return x + t.fe, y + t.fn
}

func (t *lambertConformal) Inverse(x, y float64) (float64, float64) {
	x -= t.fe
	y -= t.fn
	rho := math.Hypot(x, t.rho0-y)
	sign := 1.0
	if t.n < 0 {
		rho = -rho
		sign = -1
	}
	theta := math.Atan2(sign*x, sign*(t.rho0-y))
	phi := 2*math.Atan(math.Pow(t.r*t.f/rho, 1/t.n)) - math.Pi/2
	lon := t.lon0 + theta/t.n/degToRad
	return normLon(lon), phi / degToRad
}

// mercatorSphere is the spherical Mercator with a true-scale latitude
// (Snyder eq. 7-1..7-5 with k0 = cos(lat_ts)).
type mercatorSphere struct {
	r      float64
	k0     float64
	lon0   float64
	fe, fn float64
}

func (t *mercatorSphere) Forward(lon, lat float64) (float64, float64) {
	phi := lat * degToRad
	x := t.r * t.k0 * normLon(lon-t.lon0) * degToRad
	y := t.r * t.k0 * math.Log(math.Tan(math.Pi/4+phi/2))
	return x + t.fe, y + t.fn
}

func (t *mercatorSphere) Inverse(x, y float64) (float64, float64) {
	x -= t.fe
	y -= t.fn
	phi := 2*math.Atan(math.Exp(y/(t.r*t.k0))) - math.Pi/2
	lon := t.lon0 + x/(t.r*t.k0)/degToRad
	return normLon(lon), phi / degToRad
}

// polarStereoSphere is the spherical polar stereographic with a standard
// parallel (Snyder eq. 21-33/21-34); the pole is implied by the sign of
// the standard parallel.
type polarStereoSphere struct {
	r      float64
	k0     float64
	lon0   float64
	north  bool
	fe, fn float64
}

func newPolarStereoSphere(r, latTS, lon0, fe, fn float64) *polarStereoSphere {
	phiC := latTS * degToRad
	north := latTS >= 0
	k0 := (1 + math.Abs(math.Sin(phiC))) / 2
	return &polarStereoSphere{r: r, k0: k0, lon0: lon0, north: north, fe: fe, fn: fn}
}

func (t *polarStereoSphere) Forward(lon, lat float64) (float64, float64) {
	phi := lat * degToRad
	dlam := normLon(lon-t.lon0) * degToRad
	var rho, y float64
	if t.north {
		rho = 2 * t.r * t.k0 * math.Tan(math.Pi/4-phi/2)
		y = -rho * math.Cos(dlam)
	} else {
		rho = 2 * t.r * t.k0 * math.Tan(math.Pi/4+phi/2)
		y = rho * math.Cos(dlam)
	}
	x := rho * math.Sin(dlam)
	return x + t.fe, y + t.fn
}

func (t *polarStereoSphere) Inverse(x, y float64) (float64, float64) {
	x -= t.fe
	y -= t.fn
	rho := math.Hypot(x, y)
	var phi, dlam float64
	if t.north {
		phi = math.Pi/2 - 2*math.Atan(rho/(2*t.r*t.k0))
		dlam = math.Atan2(x, -y)
	} else {
		phi = 2*math.Atan(rho/(2*t.r*t.k0)) - math.Pi/2
		dlam = math.Atan2(x, y)
	}
	if rho == 0 {
		dlam = 0
	}
	return normLon(t.lon0 + dlam/degToRad), phi / degToRad
}

// polarStereoEllipsoid is the ellipsoidal polar stereographic with a
// standard parallel (Snyder eq. 21-32..21-40, 3-5 for the inverse series).
type polarStereoEllipsoid struct {
	a      float64
	e      float64
	scale  float64 // a * m(latc) / t(latc)
	lon0   float64
	north  bool
	fe, fn float64
}

func newPolarStereoEllipsoid(d Datum, latTS, lon0, fe, fn float64) *polarStereoEllipsoid {
	e := math.Sqrt(d.Eccentricity2())
	north := latTS >= 0
	phiC := math.Abs(latTS) * degToRad
	mc := math.Cos(phiC) / math.Sqrt(1-e*e*math.Sin(phiC)*math.Sin(phiC))
	tc := tsfn(phiC, e)
	return &polarStereoEllipsoid{
		a: d.SemiMajor, e: e, scale: d.SemiMajor * mc / tc,
		lon0: lon0, north: north, fe: fe, fn: fn,
	}
}

// tsfn is Snyder's t(phi) auxiliary (eq. 15-9), phi in radians.
func tsfn(phi, e float64) float64 {
	s := math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-e*s)/(1+e*s), e/2)
}

func (t *polarStereoEllipsoid) Forward(lon, lat float64) (float64, float64) {
	phi := lat * degToRad
	dlam := normLon(lon-t.lon0) * degToRad
	if !t.north {
		phi = -phi
		dlam = -dlam
	}
	rho := t.scale * tsfn(phi, t.e)
	x := rho * math.Sin(dlam)
	y := -rho * math.Cos(dlam)
	if !t.north {
		x = -x
		y = -y
	}
	return x + t.fe, y + t.fn
}

func (t *polarStereoEllipsoid) Inverse(x, y float64) (float64, float64) {
	x -= t.fe
	y -= t.fn
	if !t.north {
		x = -x
		y = -y
	}
	rho := math.Hypot(x, y)
	ts := rho / t.scale
	chi := math.Pi/2 - 2*math.Atan(ts)

	e2 := t.e * t.e
	e4 := e2 * e2
	e6 := e4 * e2
	e8 := e6 * e2
	phi := chi +
		(e2/2+5*e4/24+e6/12+13*e8/360)*math.Sin(2*chi) +
		(7*e4/48+29*e6/240+811*e8/11520)*math.Sin(4*chi) +
		(7*e6/120+81*e8/1120)*math.Sin(6*chi) +
		(4279*e8/161280)*math.Sin(8*chi)

	dlam := math.Atan2(x, -y)
	if rho == 0 {
		dlam = 0
	}
	if !t.north {
		phi = -phi
		dlam = -dlam
	}
	return normLon(t.lon0 + dlam/degToRad), phi / degToRad
}

// albersConic is the ellipsoidal Albers equal-area conic (Snyder
// eq. 14-1..14-21); degenerates cleanly to the spherical case.
type albersConic struct {
	a      float64
	e      float64
	n      float64
	c      float64
	rho0   float64
	lon0   float64
	fe, fn float64
}

func newAlbers(d Datum, lat1, lat2, lat0, lon0, fe, fn float64) *albersConic {
	e := math.Sqrt(d.Eccentricity2())
	p1 := lat1 * degToRad
	p2 := lat2 * degToRad
	p0 := lat0 * degToRad

	m1 := msfn(p1, e)
	q1 := qsfn(p1, e)
	var n float64
	if math.Abs(p1-p2) < 1e-10 {
		n = math.Sin(p1)
	} else {
		m2 := msfn(p2, e)
		q2 := qsfn(p2, e)
		n = (m1*m1 - m2*m2) / (q2 - q1)
	}
	c := m1*m1 + n*q1
	rho0 := d.SemiMajor * math.Sqrt(c-n*qsfn(p0, e)) / n

	return &albersConic{a: d.SemiMajor, e: e, n: n, c: c, rho0: rho0, lon0: lon0, fe: fe, fn: fn}
}

// msfn is cos(phi)/sqrt(1 - e^2 sin^2 phi) (Snyder eq. 14-15).
func msfn(phi, e float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-e*e*s*s)
}

// qsfn is Snyder's q auxiliary (eq. 3-12); 2 sin(phi) on a sphere.
func qsfn(phi, e float64) float64 {
	if e < 1e-12 {
		return 2 * math.Sin(phi)
	}
	s := math.Sin(phi)
	es := e * s
	return (1 - e*e) * (s/(1-es*es) - (1/(2*e))*math.Log((1-es)/(1+es)))
}

func (t *albersConic) Forward(lon, lat float64) (float64, float64) {
	phi := lat * degToRad
	rho := t.a * math.Sqrt(t.c-t.n*qsfn(phi, t.e)) / t.n
	theta := t.n * normLon(lon-t.lon0) * degToRad
	x := rho * math.Sin(theta)
	y := t.rho0 - rho*math.Cos(theta)
	return x + t.fe, y + t.fn
}

func (t *albersConic) Inverse(x, y float64) (float64, float64) {
	x -= t.fe
	y -= t.fn
	rho := math.Hypot(x, t.rho0-y)
	sign := 1.0
	if t.n < 0 {
		sign = -1
	}
	theta := math.Atan2(sign*x, sign*(t.rho0-y))
	q := (t.c - rho*rho*t.n*t.n/(t.a*t.a)) / t.n

	var phi float64
	if t.e < 1e-12 {
		phi = math.Asin(q / 2)
	} else {
		// Iterate Snyder eq. 3-16; converges in a handful of steps.
		phi = math.Asin(math.Min(math.Max(q/2, -1), 1))
		for i := 0; i < 15; i++ {
			s := math.Sin(phi)
			es := t.e * s
			d := (1 - es*es) * (1 - es*es) / (2 * math.Cos(phi)) *
				(q/(1-t.e*t.e) - s/(1-es*es) + (1/(2*t.e))*math.Log((1-es)/(1+es)))
			phi += d
			if math.Abs(d) < 1e-12 {
				break
			}
		}
	}
	lon := t.lon0 + theta/t.n/degToRad
	return normLon(lon), phi / degToRad
}

// normLon wraps a longitude difference into [-180, 180].
func normLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

package geo

import "math"

const (
	utmScale         = 0.9996
	utmFalseEasting  = 500000.0
	utmFalseNorthing = 10000000.0
)

// UTMToLonLat converts UTM easting/northing (meters) to longitude/latitude (degrees)
// on the given ellipsoid.
//
// It applies the inverse transverse Mercator series (Snyder, USGS PP 1395, p. 63)
// around the central meridian lon0 given in degrees.
func UTMToLonLat(easting, northing, lon0 float64, south bool, e Ellipsoid) (lon, lat float64) {
	a := e.A
	f := 1 / e.InvF
	e2 := f * (2 - f)
	ep2 := e2 / (1 - e2)

	x := easting - utmFalseEasting
	y := northing
	if south {
		y -= utmFalseNorthing
	}

	// footpoint latitude
	m := y / utmScale
	mu := m / (a * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	sq := math.Sqrt(1 - e2)
	e1 := (1 - sq) / (1 + sq)
	e1p2 := e1 * e1
	e1p3 := e1p2 * e1
	e1p4 := e1p3 * e1

	phi1 := mu +
		(3*e1/2-27*e1p3/32)*math.Sin(2*mu) +
		(21*e1p2/16-55*e1p4/32)*math.Sin(4*mu) +
		(151*e1p3/96)*math.Sin(6*mu) +
		(1097*e1p4/512)*math.Sin(8*mu)

	sinPhi := math.Sin(phi1)
	cosPhi := math.Cos(phi1)
	tanPhi := math.Tan(phi1)

	c1 := ep2 * cosPhi * cosPhi
	t1 := tanPhi * tanPhi
	w := 1 - e2*sinPhi*sinPhi
	n1 := a / math.Sqrt(w)
	r1 := a * (1 - e2) / (w * math.Sqrt(w))
	d := x / (n1 * utmScale)

	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	latRad := phi1 - (n1*tanPhi/r1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d4/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d6/720)

	lonRad := (d -
		(1+2*t1+c1)*d3/6 +
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d5/120) / cosPhi

	lat = latRad * (180.0 / math.Pi)
	lon = lon0 + lonRad*(180.0/math.Pi)

	return lon, lat
}

package geo

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNonFinite is returned when an input component is NaN or infinite.
	ErrNonFinite = errors.New("coordinate is not a finite number")
	// ErrOutOfDomain is returned when an input lies outside the source system.
	ErrOutOfDomain = errors.New("coordinate outside reference system domain")
)

// UTM eastings are bounded by the zone width, northings by the hemisphere.
const (
	maxEasting  = 1000000.0
	maxNorthing = 10000000.0
)

// Projected is an easting/northing pair in meters.
type Projected struct {
	Easting  float64
	Northing float64
}

// Geographic is a longitude/latitude pair in degrees.
type Geographic struct {
	Lon float64
	Lat float64
}

// Reprojector converts coordinates from a source to a target reference system.
// It holds no mutable state and is safe for concurrent use.
type Reprojector struct {
	source Definition
	target Definition
}

// NewReprojector pairs two definitions. The target must be geographic;
// the source may be UTM or geographic (identity). Only WGS84 and GRS80
// ellipsoids are parsed, so no datum shift is applied.
func NewReprojector(source, target Definition) (*Reprojector, error) {
	if !target.Geographic() {
		return nil, fmt.Errorf("%w: target %s is not geographic", ErrUnsupportedDefinition, target)
	}

	return &Reprojector{source: source, target: target}, nil
}

// NewReprojectorFromStrings parses both definitions and pairs them.
func NewReprojectorFromStrings(source, target string) (*Reprojector, error) {
	src, err := ParseDefinition(source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	dst, err := ParseDefinition(target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	return NewReprojector(src, dst)
}

// DefaultReprojector converts UTM zone 33N to WGS84.
func DefaultReprojector() *Reprojector {
	r, err := NewReprojectorFromStrings(DefaultSource, DefaultTarget)
	if err != nil {
		panic(err)
	}
	return r
}

// Source returns the source definition.
func (r *Reprojector) Source() Definition { return r.source }

// Target returns the target definition.
func (r *Reprojector) Target() Definition { return r.target }

// Forward converts p into the target system.
func (r *Reprojector) Forward(p Projected) (Geographic, error) {
	if !isFinite(p.Easting) || !isFinite(p.Northing) {
		return Geographic{}, fmt.Errorf("%w: (%v, %v)", ErrNonFinite, p.Easting, p.Northing)
	}

	if r.source.Geographic() {
		if math.Abs(p.Easting) > 180 || math.Abs(p.Northing) > 90 {
			return Geographic{}, fmt.Errorf("%w: (%v, %v)", ErrOutOfDomain, p.Easting, p.Northing)
		}
		return Geographic{Lon: p.Easting, Lat: p.Northing}, nil
	}

	if p.Easting <= 0 || p.Easting >= maxEasting || p.Northing < 0 || p.Northing > maxNorthing {
		return Geographic{}, fmt.Errorf("%w: (%v, %v)", ErrOutOfDomain, p.Easting, p.Northing)
	}

	lon, lat := UTMToLonLat(p.Easting, p.Northing, r.source.CentralMeridian(), r.source.South, r.source.Ellipsoid)
	if !isFinite(lon) || !isFinite(lat) || math.Abs(lat) > 90 {
		return Geographic{}, fmt.Errorf("%w: (%v, %v)", ErrOutOfDomain, p.Easting, p.Northing)
	}

	return Geographic{Lon: normalizeLon(lon), Lat: lat}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func normalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

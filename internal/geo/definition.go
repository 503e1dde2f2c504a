package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultSource is UTM zone 33 north on WGS84 (EPSG:32633).
	DefaultSource = "+proj=utm +zone=33 +datum=WGS84 +units=m +no_defs"
	// DefaultTarget is geographic WGS84 (EPSG:4326).
	DefaultTarget = "+proj=longlat +datum=WGS84 +no_defs"
)

const (
	ProjUTM     = "utm"
	ProjLongLat = "longlat"
)

// ErrUnsupportedDefinition is returned for reference systems this package cannot express.
var ErrUnsupportedDefinition = errors.New("unsupported reference system definition")

// Ellipsoid is a reference ellipsoid given by semi-major axis and inverse flattening.
type Ellipsoid struct {
	Name string
	A    float64
	InvF float64
}

var (
	WGS84 = Ellipsoid{Name: "WGS84", A: 6378137.0, InvF: 298.257223563}
	GRS80 = Ellipsoid{Name: "GRS80", A: 6378137.0, InvF: 298.257222101}
)

var ellipsoids = map[string]Ellipsoid{
	"wgs84": WGS84,
	"grs80": GRS80,
}

// Definition is a parsed coordinate reference system.
type Definition struct {
	Raw        string
	Projection string
	Zone       int
	South      bool
	Ellipsoid  Ellipsoid
}

// Geographic reports whether the definition is a longitude/latitude system.
func (d Definition) Geographic() bool {
	return d.Projection == ProjLongLat
}

// CentralMeridian returns the central meridian of a UTM zone in degrees.
func (d Definition) CentralMeridian() float64 {
	return float64(d.Zone-1)*6 - 180 + 3
}

func (d Definition) String() string {
	if d.Raw != "" {
		return d.Raw
	}
	if d.Projection == ProjUTM {
		hemisphere := "N"
		if d.South {
			hemisphere = "S"
		}
		return fmt.Sprintf("UTM %d%s %s", d.Zone, hemisphere, d.Ellipsoid.Name)
	}
	return "longlat " + d.Ellipsoid.Name
}

// ParseDefinition reads a proj4 style definition such as
// "+proj=utm +zone=33 +datum=WGS84 +units=m" or an EPSG code
// in the 326xx/327xx (UTM north/south) or 4326 range.
func ParseDefinition(s string) (Definition, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Definition{}, fmt.Errorf("%w: empty definition", ErrUnsupportedDefinition)
	}

	if code, ok := strings.CutPrefix(strings.ToUpper(raw), "EPSG:"); ok {
		return parseEPSG(raw, code)
	}

	def := Definition{Raw: raw, Ellipsoid: WGS84}
	for _, token := range strings.Fields(raw) {
		token = strings.TrimPrefix(token, "+")
		key, value, _ := strings.Cut(token, "=")

		switch strings.ToLower(key) {
		case "proj":
			switch strings.ToLower(value) {
			case "utm":
				def.Projection = ProjUTM
			case "longlat", "latlong", "lonlat", "latlon":
				def.Projection = ProjLongLat
			default:
				return Definition{}, fmt.Errorf("%w: projection %q", ErrUnsupportedDefinition, value)
			}

		case "zone":
			zone, err := strconv.Atoi(value)
			if err != nil {
				return Definition{}, fmt.Errorf("%w: zone %q", ErrUnsupportedDefinition, value)
			}
			def.Zone = zone

		case "south":
			def.South = true

		case "datum", "ellps":
			e, ok := ellipsoids[strings.ToLower(value)]
			if !ok {
				return Definition{}, fmt.Errorf("%w: %s %q", ErrUnsupportedDefinition, key, value)
			}
			def.Ellipsoid = e

		case "units":
			if def.Projection == ProjUTM && value != "m" {
				return Definition{}, fmt.Errorf("%w: units %q", ErrUnsupportedDefinition, value)
			}

		case "no_defs", "type", "towgs84", "wktext":
			// no effect on WGS84 based systems

		default:
			return Definition{}, fmt.Errorf("%w: parameter %q", ErrUnsupportedDefinition, key)
		}
	}

	return def, def.validate()
}

func parseEPSG(raw, code string) (Definition, error) {
	n, err := strconv.Atoi(code)
	if err != nil {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnsupportedDefinition, raw)
	}

	def := Definition{Raw: raw, Ellipsoid: WGS84}
	switch {
	case n == 4326:
		def.Projection = ProjLongLat
	case n > 32600 && n <= 32660:
		def.Projection = ProjUTM
		def.Zone = n - 32600
	case n > 32700 && n <= 32760:
		def.Projection = ProjUTM
		def.Zone = n - 32700
		def.South = true
	default:
		return Definition{}, fmt.Errorf("%w: %q", ErrUnsupportedDefinition, raw)
	}

	return def, def.validate()
}

func (d Definition) validate() error {
	switch d.Projection {
	case ProjUTM:
		if d.Zone < 1 || d.Zone > 60 {
			return fmt.Errorf("%w: utm zone %d out of range 1..60", ErrUnsupportedDefinition, d.Zone)
		}
	case ProjLongLat:
	default:
		return fmt.Errorf("%w: missing +proj", ErrUnsupportedDefinition)
	}

	return nil
}

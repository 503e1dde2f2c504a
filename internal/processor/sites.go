// Package processor converts site registers into GeoJSON feature collections.
package processor

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/woozymasta/geosites/internal/geo"
	"github.com/woozymasta/geosites/internal/table"
)

// Columns names the source columns consumed per row.
// Names are matched exactly, including surrounding whitespace.
type Columns struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Street     string `yaml:"street"`
	PostalCode string `yaml:"postal_code"`
	City       string `yaml:"city"`
	Owner      string `yaml:"owner"`
	X          string `yaml:"x"`
	Y          string `yaml:"y"`
}

// DefaultColumns returns the header names of the site register template.
func DefaultColumns() Columns {
	return Columns{
		ID:         "Lfd. Nr.",
		Name:       "Name ",
		Street:     "Straße",
		PostalCode: "PLZ",
		City:       "Ort",
		Owner:      "Träger bzw. Verantwortlicher",
		X:          "X-Koordinate",
		Y:          "Y-Koordinate",
	}
}

// WithDefaults fills empty names from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	return Columns{
		ID:         cmp.Or(c.ID, d.ID),
		Name:       cmp.Or(c.Name, d.Name),
		Street:     cmp.Or(c.Street, d.Street),
		PostalCode: cmp.Or(c.PostalCode, d.PostalCode),
		City:       cmp.Or(c.City, d.City),
		Owner:      cmp.Or(c.Owner, d.Owner),
		X:          cmp.Or(c.X, d.X),
		Y:          cmp.Or(c.Y, d.Y),
	}
}

// Required lists every consumed column.
func (c Columns) Required() []string {
	return []string{c.ID, c.Name, c.Street, c.PostalCode, c.City, c.Owner, c.X, c.Y}
}

// Builder turns decoded rows into site features.
type Builder struct {
	Columns     Columns
	Reprojector *geo.Reprojector
}

// NewBuilder returns a builder for the given columns, defaulting to the
// template columns and UTM zone 33N when zero values are passed.
func NewBuilder(columns Columns, r *geo.Reprojector) *Builder {
	if r == nil {
		r = geo.DefaultReprojector()
	}
	return &Builder{Columns: columns.WithDefaults(), Reprojector: r}
}

// CheckHeader reports the first consumed column absent from h.
func (b *Builder) CheckHeader(h *table.Header) error {
	for _, name := range b.Columns.Required() {
		if !h.Has(name) {
			return &Error{Kind: KindFieldMissing, Column: name}
		}
	}
	return nil
}

// Build maps one row to a point feature.
func (b *Builder) Build(row table.Row) (geo.GeoJSONFeature, error) {
	x, err := b.number(row, b.Columns.X)
	if err != nil {
		return geo.GeoJSONFeature{}, err
	}
	y, err := b.number(row, b.Columns.Y)
	if err != nil {
		return geo.GeoJSONFeature{}, err
	}

	pos, err := b.Reprojector.Forward(geo.Projected{Easting: x, Northing: y})
	if err != nil {
		return geo.GeoJSONFeature{}, &Error{Kind: KindReprojectionFailure, Row: row.Number, Err: err}
	}

	var text [6]string
	for i, name := range []string{
		b.Columns.ID, b.Columns.Name, b.Columns.Street,
		b.Columns.PostalCode, b.Columns.City, b.Columns.Owner,
	} {
		v, ok := row.Get(name)
		if !ok {
			return geo.GeoJSONFeature{}, &Error{Kind: KindFieldMissing, Row: row.Number, Column: name}
		}
		text[i] = v
	}

	return geo.NewPointFeature(pos, geo.SiteProperties{
		ID:      text[0],
		Name:    text[1],
		Address: FormatAddress(text[2], text[3], text[4]),
		Owner:   text[5],
	}), nil
}

func (b *Builder) number(row table.Row, column string) (float64, error) {
	raw, ok := row.Get(column)
	if !ok {
		return 0, &Error{Kind: KindFieldMissing, Row: row.Number, Column: column}
	}

	v, err := ParseNumber(raw)
	if err != nil {
		return 0, &Error{Kind: KindFieldUnparsable, Row: row.Number, Column: column, Err: err}
	}
	return v, nil
}

// FormatAddress joins the street line and the postal code/city line.
func FormatAddress(street, postalCode, city string) string {
	return street + "\n" + postalCode + " " + city
}

// ParseNumber reads a finite decimal number. A single decimal comma
// is accepted when no point is present.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty value")
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	// ParseFloat accepts "NaN" and "Inf"
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}

package processor

import (
	"strings"
	"testing"

	"github.com/woozymasta/geosites/internal/geo"
	"github.com/woozymasta/geosites/internal/table"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const templateHeader = "Lfd. Nr.,Name ,Straße,PLZ,Ort,Träger bzw. Verantwortlicher,X-Koordinate,Y-Koordinate"

func decodeRows(t *testing.T, text string) (*table.Decoder, []table.Row) {
	t.Helper()

	dec, err := table.NewDecoder(strings.NewReader(text), ',')
	require.NoError(t, err)

	var rows []table.Row
	for row, err := range dec.All() {
		require.NoError(t, err)
		rows = append(rows, row)
	}
	return dec, rows
}

func TestBuilder_Build(t *testing.T) {
	_, rows := decodeRows(t, templateHeader+"\n1,Library A,Main St,10115,Berlin,City,392000,5819000\n")
	b := NewBuilder(Columns{}, nil)

	got, err := b.Build(rows[0])
	require.NoError(t, err)

	wantProps := geo.SiteProperties{
		ID:      "1",
		Name:    "Library A",
		Address: "Main St\n10115 Berlin",
		Owner:   "City",
	}
	if diff := cmp.Diff(wantProps, got.Properties); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, geo.TypeFeature, got.Type)
	assert.Equal(t, geo.TypePoint, got.Geometry.Type)
	require.Len(t, got.Geometry.Coordinates, 2)
	assert.InDelta(t, 13.4, got.Geometry.Coordinates[0], 0.1)
	assert.InDelta(t, 52.5, got.Geometry.Coordinates[1], 0.1)
}

func TestBuilder_PropertiesMatchColumns(t *testing.T) {
	_, rows := decodeRows(t, templateHeader+"\n"+
		"7,Bücherbox,Allee 3,10365,Berlin,Verein e.V.,396000,5822000\n"+
		"8,\"Regal, Nord\",,13051,Berlin,,397000,5828000\n")
	b := NewBuilder(Columns{}, nil)

	for _, row := range rows {
		f, err := b.Build(row)
		require.NoError(t, err)

		m := row.Map()
		assert.Equal(t, m["Lfd. Nr."], f.Properties.ID)
		assert.Equal(t, m["Name "], f.Properties.Name)
		assert.Equal(t, m["Straße"]+"\n"+m["PLZ"]+" "+m["Ort"], f.Properties.Address)
		assert.Equal(t, m["Träger bzw. Verantwortlicher"], f.Properties.Owner)
	}
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name   string
		row    string
		kind   Kind
		column string
	}{
		{"non numeric x", "1,A,S,1,C,O,abc,5819000", KindFieldUnparsable, "X-Koordinate"},
		{"empty y", "1,A,S,1,C,O,392000,", KindFieldUnparsable, "Y-Koordinate"},
		{"nan x", "1,A,S,1,C,O,NaN,5819000", KindFieldUnparsable, "X-Koordinate"},
		{"out of zone", "1,A,S,1,C,O,-5,5819000", KindReprojectionFailure, ""},
	}

	b := NewBuilder(Columns{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rows := decodeRows(t, templateHeader+"\n"+tt.row+"\n")

			_, err := b.Build(rows[0])
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))

			var ce *Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, 1, ce.Row)
			assert.Equal(t, tt.column, ce.Column)
		})
	}
}

func TestBuilder_MissingColumn(t *testing.T) {
	dec, rows := decodeRows(t, "Lfd. Nr.,Name,Straße,PLZ,Ort,Träger bzw. Verantwortlicher,X-Koordinate,Y-Koordinate\n"+
		"1,A,S,1,C,O,392000,5819000\n")
	b := NewBuilder(Columns{}, nil)

	err := b.CheckHeader(dec.Header())
	assert.ErrorIs(t, err, ErrFieldMissing)

	_, err = b.Build(rows[0])
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindFieldMissing, ce.Kind)
	assert.Equal(t, "Name ", ce.Column)
}

func TestBuilder_CustomColumns(t *testing.T) {
	_, rows := decodeRows(t, "id,name,street,zip,city,owner,east,north\n1,A,S,1,C,O,392000,5819000\n")
	b := NewBuilder(Columns{
		ID: "id", Name: "name", Street: "street", PostalCode: "zip",
		City: "city", Owner: "owner", X: "east", Y: "north",
	}, nil)

	f, err := b.Build(rows[0])
	require.NoError(t, err)
	assert.Equal(t, "S\n1 C", f.Properties.Address)
}

func TestColumns_WithDefaults(t *testing.T) {
	c := Columns{X: "east"}.WithDefaults()

	assert.Equal(t, "east", c.X)
	assert.Equal(t, "Name ", c.Name)
	assert.Len(t, c.Required(), 8)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"392000", 392000, true},
		{" 392000.25 ", 392000.25, true},
		{"392000,25", 392000.25, true},
		{"-1e3", -1000, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1.000,5", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"1e400", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNumber(tt.input)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

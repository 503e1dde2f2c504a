package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefinition(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Definition
	}{
		{
			name:  "default source",
			input: DefaultSource,
			want:  Definition{Raw: DefaultSource, Projection: ProjUTM, Zone: 33, Ellipsoid: WGS84},
		},
		{
			name:  "default target",
			input: DefaultTarget,
			want:  Definition{Raw: DefaultTarget, Projection: ProjLongLat, Ellipsoid: WGS84},
		},
		{
			name:  "south on GRS80",
			input: "+proj=utm +zone=32 +south +ellps=GRS80",
			want:  Definition{Raw: "+proj=utm +zone=32 +south +ellps=GRS80", Projection: ProjUTM, Zone: 32, South: true, Ellipsoid: GRS80},
		},
		{
			name:  "epsg north",
			input: "EPSG:32633",
			want:  Definition{Raw: "EPSG:32633", Projection: ProjUTM, Zone: 33, Ellipsoid: WGS84},
		},
		{
			name:  "epsg south lower case",
			input: "epsg:32733",
			want:  Definition{Raw: "epsg:32733", Projection: ProjUTM, Zone: 33, South: true, Ellipsoid: WGS84},
		},
		{
			name:  "epsg geographic",
			input: "EPSG:4326",
			want:  Definition{Raw: "EPSG:4326", Projection: ProjLongLat, Ellipsoid: WGS84},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDefinition(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDefinition_Errors(t *testing.T) {
	for _, input := range []string{
		"",
		"+proj=merc +datum=WGS84",
		"+proj=utm +zone=61",
		"+proj=utm +zone=abc",
		"+proj=utm +zone=33 +datum=NAD27",
		"+proj=utm +zone=33 +units=ft",
		"+zone=33",
		"+proj=utm +zone=33 +k=1",
		"EPSG:3857",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDefinition(input)
			assert.ErrorIs(t, err, ErrUnsupportedDefinition)
		})
	}
}

func TestDefinition_CentralMeridian(t *testing.T) {
	assert.Equal(t, 15.0, Definition{Projection: ProjUTM, Zone: 33}.CentralMeridian())
	assert.Equal(t, -177.0, Definition{Projection: ProjUTM, Zone: 1}.CentralMeridian())
	assert.Equal(t, 177.0, Definition{Projection: ProjUTM, Zone: 60}.CentralMeridian())
}

func TestNewPointFeature(t *testing.T) {
	f := NewPointFeature(Geographic{Lon: 13.4, Lat: 52.5}, SiteProperties{ID: "1"})

	assert.Equal(t, TypeFeature, f.Type)
	assert.Equal(t, TypePoint, f.Geometry.Type)
	assert.Equal(t, []float64{13.4, 52.5}, f.Geometry.Coordinates)
	assert.Equal(t, "1", f.Properties.ID)
}

func TestNewFeatureCollection_Empty(t *testing.T) {
	fc := NewFeatureCollection(0)

	assert.Equal(t, TypeFeatureCollection, fc.Type)
	assert.NotNil(t, fc.Features)
	assert.Empty(t, fc.Features)
}

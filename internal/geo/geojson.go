// Package geo handles geographic data structures and coordinate conversions.
package geo

const (
	TypeFeatureCollection = "FeatureCollection"
	TypeFeature           = "Feature"
	TypePoint             = "Point"
)

// GeoJSONFeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type GeoJSONFeatureCollection struct {
	Type     string           `json:"type" yaml:"type"`
	Features []GeoJSONFeature `json:"features" yaml:"features"`
}

// GeoJSONFeature represents a single site as a point feature.
type GeoJSONFeature struct {
	Type       string          `json:"type" yaml:"type"`
	Geometry   GeoJSONGeometry `json:"geometry" yaml:"geometry"`
	Properties SiteProperties  `json:"properties" yaml:"properties"`
}

// GeoJSONGeometry represents the geometry of a feature.
type GeoJSONGeometry struct {
	Type        string    `json:"type" yaml:"type"`
	Coordinates []float64 `json:"coordinates" yaml:"coordinates"` // [Lon, Lat]
}

// SiteProperties are the properties attached to every site feature.
type SiteProperties struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
	Owner   string `json:"owner" yaml:"owner"`
}

// NewFeatureCollection returns an empty collection that encodes
// its features as [] rather than null.
func NewFeatureCollection(capacity int) GeoJSONFeatureCollection {
	return GeoJSONFeatureCollection{
		Type:     TypeFeatureCollection,
		Features: make([]GeoJSONFeature, 0, capacity),
	}
}

// NewPointFeature builds a point feature at the given geographic position.
func NewPointFeature(pos Geographic, props SiteProperties) GeoJSONFeature {
	return GeoJSONFeature{
		Type: TypeFeature,
		Geometry: GeoJSONGeometry{
			Type:        TypePoint,
			Coordinates: []float64{pos.Lon, pos.Lat},
		},
		Properties: props,
	}
}

package processor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/woozymasta/geosites/internal/geo"

	"github.com/rs/zerolog/log"
)

// Artifacts are the per-conversion files, keyed by the conversion id.
type Artifacts struct {
	Intermediate string
	Output       string
}

// ArtifactPaths returns the artifact locations for id under dir.
func ArtifactPaths(dir, id string) Artifacts {
	return Artifacts{
		Intermediate: filepath.Join(dir, id+".csv"),
		Output:       filepath.Join(dir, id+".geojson"),
	}
}

// saveGeoJSON marshals the feature collection and writes it to path.
// The content goes to a temporary sibling first so that path only ever
// holds a complete collection.
func saveGeoJSON(path string, fc geo.GeoJSONFeatureCollection, indent string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}

	if err = enc.Encode(fc); err != nil {
		_ = f.Close()
		return err
	}

	// We care about write errors on close
	if err = f.Close(); err != nil {
		log.Error().Err(err).Str("path", f.Name()).Msg("Failed to close file")
		return err
	}

	return os.Rename(f.Name(), path)
}

// LoadGeoJSON reads a feature collection artifact.
func LoadGeoJSON(path string) (geo.GeoJSONFeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return geo.GeoJSONFeatureCollection{}, err
	}

	var fc geo.GeoJSONFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return geo.GeoJSONFeatureCollection{}, fmt.Errorf("decode %s: %w", path, err)
	}

	return fc, nil
}

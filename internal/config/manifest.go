package config

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Manifest maps each spatial layer to its GeoJSON file and names the species
// catalog. It replaces hard-coded module-level paths: deployments describe
// their inputs in one small YAML file.
type Manifest struct {
	SpeciesFile string            `yaml:"species_file"`
	LayerFiles  map[string]string `yaml:"layer_files"`
}

// defaultManifest holds the conventional filenames used when no manifest file
// exists or an entry is missing.
var defaultManifest = Manifest{
	SpeciesFile: "species.json",
	LayerFiles: map[string]string{
		"distribution":   "distribution.geojson",
		"observations":   "observations.geojson",
		"modeled":        "modeled.geojson",
		"breeding_sites": "breeding_sites.geojson",
	},
}

// LoadManifest reads the dataset manifest for the given data config. A
// missing manifest file falls back to conventional filenames under data.dir;
// a present but unparsable one is an error.
func LoadManifest(data DataConfig) (*Manifest, error) {
	m := Manifest{
		SpeciesFile: defaultManifest.SpeciesFile,
		LayerFiles:  map[string]string{},
	}
	for k, v := range defaultManifest.LayerFiles {
		m.LayerFiles[k] = v
	}

	path := data.Manifest
	if path == "" {
		path = filepath.Join(data.Dir, "manifest.yaml")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &m, nil
		}
		return nil, eris.Wrapf(err, "config: read manifest %s", path)
	}

	var loaded Manifest
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return nil, eris.Wrapf(err, "config: parse manifest %s", path)
	}

	if loaded.SpeciesFile != "" {
		m.SpeciesFile = loaded.SpeciesFile
	}
	for k, v := range loaded.LayerFiles {
		if v != "" {
			m.LayerFiles[k] = v
		}
	}

	return &m, nil
}

// SpeciesPath returns the absolute or dir-relative path of the species file.
func (m *Manifest) SpeciesPath(dir string) string {
	return joinUnlessAbs(dir, m.SpeciesFile)
}

// LayerPath returns the path of a layer's GeoJSON file.
func (m *Manifest) LayerPath(dir, layer string) string {
	return joinUnlessAbs(dir, m.LayerFiles[layer])
}

func joinUnlessAbs(dir, file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// pluginFile is the on-disk shape of one plugin's descriptor file.
type pluginFile struct {
	Settings []Descriptor `yaml:"settings"`
}

// LoadFile parses one plugin descriptor file. The plugin identity is the
// file name without its extension.
func LoadFile(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor file: %w", err)
	}

	plugin := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var pf pluginFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse descriptor file %s: %w", filepath.Base(path), err)
	}

	descriptors := make([]Descriptor, 0, len(pf.Settings))
	for _, d := range pf.Settings {
		if d.Name == "" {
			return nil, fmt.Errorf("descriptor file %s: setting with empty name", filepath.Base(path))
		}
		if !d.Kind.Valid() {
			return nil, fmt.Errorf("descriptor file %s: setting %s has unknown kind %q", filepath.Base(path), d.Name, d.Kind)
		}
		d.Plugin = plugin
		descriptors = append(descriptors, d)
	}

	return descriptors, nil
}

// LoadDir parses every plugin descriptor file (*.yaml, *.yml) in dir.
func LoadDir(dir string) ([]Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read descriptor directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var descriptors []Descriptor
	for _, name := range names {
		ds, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, ds...)
	}

	return descriptors, nil
}

// Dir is a registry backed by the core descriptor set plus a directory of
// plugin descriptor files. The directory is re-read on every call, so plugin
// install and uninstall are observed immediately.
type Dir struct {
	dir  string
	core []Descriptor
}

// NewDir creates a directory-backed registry. The directory may be empty or
// absent; an absent directory contributes no plugin descriptors.
func NewDir(dir string) *Dir {
	return &Dir{dir: dir, core: CoreDescriptors()}
}

func (d *Dir) load() *Static {
	descriptors := make([]Descriptor, 0, len(d.core))
	descriptors = append(descriptors, d.core...)
	if d.dir != "" {
		if ds, err := LoadDir(d.dir); err == nil {
			descriptors = append(descriptors, ds...)
		}
	}
	return NewStatic(descriptors)
}

// Lookup returns the descriptor for (plugin, name), if installed.
func (d *Dir) Lookup(plugin, name string) (Descriptor, bool) {
	return d.load().Lookup(plugin, name)
}

// All returns every installed descriptor, ordered by plugin then name.
func (d *Dir) All() []Descriptor {
	return d.load().All()
}

// Package registry enumerates the configuration settings known to the site:
// the built-in core settings plus one descriptor set per installed plugin.
//
// A registry is a pure lookup surface. A missing descriptor is a normal,
// expected outcome (the setting's plugin was uninstalled, or the snapshot
// came from a newer version); callers classify such entries rather than
// treating the miss as an error.
package registry

import (
	"fmt"
	"sort"
)

// CorePlugin is the plugin identity used for the site's built-in settings.
const CorePlugin = "core"

// Kind is the declared value type of a setting.
type Kind string

const (
	KindText        Kind = "text"
	KindBoolean     Kind = "boolean"
	KindSelect      Kind = "select"
	KindPassword    Kind = "password"
	KindMultiSelect Kind = "multiselect"
)

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindBoolean, KindSelect, KindPassword, KindMultiSelect:
		return true
	}
	return false
}

// Option is one allowed value of a select or multiselect setting.
type Option struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// Descriptor describes one configuration setting. Descriptors are immutable;
// they are sourced from the registry and never persisted.
type Descriptor struct {
	Plugin    string   `yaml:"-"`
	Name      string   `yaml:"name"`
	Kind      Kind     `yaml:"kind"`
	Default   string   `yaml:"default"`
	Sensitive bool     `yaml:"sensitive"`
	Options   []Option `yaml:"options,omitempty"`
}

// OptionLabel returns the label for an option value, or the value itself
// when the descriptor declares no matching option.
func (d Descriptor) OptionLabel(value string) string {
	for _, o := range d.Options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

// AllowsValue reports whether value is one of the descriptor's declared
// option values. Only meaningful for select and multiselect kinds.
func (d Descriptor) AllowsValue(value string) bool {
	for _, o := range d.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Registry provides lookup over the currently installed settings.
//
// All returns a snapshot of the installed settings at call time; it must not
// cache across plugin install/uninstall events.
type Registry interface {
	Lookup(plugin, name string) (Descriptor, bool)
	All() []Descriptor
}

// Static is an in-memory registry over a fixed descriptor set.
type Static struct {
	descriptors []Descriptor
	index       map[string]int
}

// NewStatic builds a registry from a fixed descriptor list. Duplicate
// (plugin, name) pairs keep the last descriptor.
func NewStatic(descriptors []Descriptor) *Static {
	s := &Static{
		descriptors: make([]Descriptor, len(descriptors)),
		index:       make(map[string]int, len(descriptors)),
	}
	copy(s.descriptors, descriptors)
	for i, d := range s.descriptors {
		s.index[descriptorKey(d.Plugin, d.Name)] = i
	}
	return s
}

// Lookup returns the descriptor for (plugin, name), if installed.
func (s *Static) Lookup(plugin, name string) (Descriptor, bool) {
	i, ok := s.index[descriptorKey(plugin, name)]
	if !ok {
		return Descriptor{}, false
	}
	return s.descriptors[i], true
}

// All returns every descriptor, ordered by plugin then name.
func (s *Static) All() []Descriptor {
	out := make([]Descriptor, len(s.descriptors))
	copy(out, s.descriptors)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Plugin != out[j].Plugin {
			return out[i].Plugin < out[j].Plugin
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func descriptorKey(plugin, name string) string {
	return fmt.Sprintf("%s\x00%s", plugin, name)
}

// CoreDescriptors returns the site's built-in settings.
func CoreDescriptors() []Descriptor {
	return []Descriptor{
		{Plugin: CorePlugin, Name: "site_title", Kind: KindText, Default: "My Site"},
		{Plugin: CorePlugin, Name: "site_url", Kind: KindText, Default: ""},
		{Plugin: CorePlugin, Name: "maintenance_mode", Kind: KindBoolean, Default: "0"},
		{Plugin: CorePlugin, Name: "allow_registration", Kind: KindBoolean, Default: "1"},
		{Plugin: CorePlugin, Name: "default_language", Kind: KindSelect, Default: "en", Options: []Option{
			{Value: "en", Label: "English"},
			{Value: "fr", Label: "French"},
			{Value: "de", Label: "German"},
			{Value: "es", Label: "Spanish"},
		}},
		{Plugin: CorePlugin, Name: "theme", Kind: KindSelect, Default: "standard", Options: []Option{
			{Value: "standard", Label: "Standard"},
			{Value: "minimal", Label: "Minimal"},
			{Value: "classic", Label: "Classic"},
		}},
		{Plugin: CorePlugin, Name: "enabled_modules", Kind: KindMultiSelect, Default: "news,calendar", Options: []Option{
			{Value: "news", Label: "News"},
			{Value: "calendar", Label: "Calendar"},
			{Value: "gallery", Label: "Gallery"},
			{Value: "forum", Label: "Forum"},
		}},
		{Plugin: CorePlugin, Name: "smtp_host", Kind: KindText, Default: "localhost"},
		{Plugin: CorePlugin, Name: "smtp_password", Kind: KindPassword, Default: "", Sensitive: true},
		{Plugin: CorePlugin, Name: "api_key", Kind: KindPassword, Default: "", Sensitive: true},
	}
}

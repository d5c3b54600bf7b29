package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptors() []Descriptor {
	return []Descriptor{
		{Plugin: "core", Name: "site_title", Kind: KindText, Default: "My Site"},
		{Plugin: "core", Name: "maintenance_mode", Kind: KindBoolean, Default: "0"},
		{Plugin: "gallery", Name: "thumbnail_size", Kind: KindSelect, Default: "medium", Options: []Option{
			{Value: "small", Label: "Small"},
			{Value: "medium", Label: "Medium"},
			{Value: "large", Label: "Large"},
		}},
	}
}

func TestStatic_Lookup(t *testing.T) {
	reg := NewStatic(testDescriptors())

	d, ok := reg.Lookup("gallery", "thumbnail_size")
	require.True(t, ok)
	assert.Equal(t, KindSelect, d.Kind)
	assert.Equal(t, "medium", d.Default)

	_, ok = reg.Lookup("gallery", "no_such_setting")
	assert.False(t, ok)

	_, ok = reg.Lookup("uninstalled_plugin", "thumbnail_size")
	assert.False(t, ok)
}

func TestStatic_All_Ordered(t *testing.T) {
	reg := NewStatic(testDescriptors())

	all := reg.All()
	require.Len(t, all, 3)
	assert.Equal(t, "maintenance_mode", all[0].Name)
	assert.Equal(t, "site_title", all[1].Name)
	assert.Equal(t, "thumbnail_size", all[2].Name)
}

func TestDescriptor_OptionLabel(t *testing.T) {
	d := testDescriptors()[2]
	assert.Equal(t, "Large", d.OptionLabel("large"))
	assert.Equal(t, "bogus", d.OptionLabel("bogus"))
	assert.True(t, d.AllowsValue("small"))
	assert.False(t, d.AllowsValue("huge"))
}

const galleryYAML = `settings:
  - name: thumbnail_size
    kind: select
    default: medium
    options:
      - value: small
        label: Small
      - value: medium
        label: Medium
  - name: api_token
    kind: password
    sensitive: true
`

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gallery.yaml"), []byte(galleryYAML), 0644))

	descriptors, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)

	assert.Equal(t, "gallery", descriptors[0].Plugin)
	assert.Equal(t, "thumbnail_size", descriptors[0].Name)
	assert.Equal(t, KindSelect, descriptors[0].Kind)
	assert.Len(t, descriptors[0].Options, 2)

	assert.Equal(t, "api_token", descriptors[1].Name)
	assert.True(t, descriptors[1].Sensitive)
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"not yaml", "{{{{"},
		{"missing name", "settings:\n  - kind: text\n"},
		{"bad kind", "settings:\n  - name: x\n    kind: integer\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0644))

			_, err := LoadFile(path)
			assert.Error(t, err)
		})
	}
}

func TestDir_ObservesPluginInstall(t *testing.T) {
	dir := t.TempDir()
	reg := NewDir(dir)

	// Core settings only before the plugin file appears.
	_, ok := reg.Lookup("gallery", "thumbnail_size")
	assert.False(t, ok)
	coreCount := len(reg.All())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "gallery.yaml"), []byte(galleryYAML), 0644))

	_, ok = reg.Lookup("gallery", "thumbnail_size")
	assert.True(t, ok)
	assert.Len(t, reg.All(), coreCount+2)

	// Uninstall is observed too.
	require.NoError(t, os.Remove(filepath.Join(dir, "gallery.yaml")))
	_, ok = reg.Lookup("gallery", "thumbnail_size")
	assert.False(t, ok)
}

func TestWatcher_InvalidatesOnChange(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	_, ok := w.Lookup("gallery", "thumbnail_size")
	require.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "gallery.yaml"), []byte(galleryYAML), 0644))

	assert.Eventually(t, func() bool {
		_, ok := w.Lookup("gallery", "thumbnail_size")
		return ok
	}, 2*time.Second, 10*time.Millisecond, "watcher did not pick up new plugin descriptors")
}

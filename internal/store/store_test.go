package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presetctl/internal/diff"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "presets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPresets_CreateGet(t *testing.T) {
	s := createTestStore(t)

	document := []byte(`{"preset": {"name": "Baseline"}}`)
	id, err := s.CreatePreset("Baseline", document)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	p, err := s.GetPreset(id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "Baseline", p.Name)
	assert.Equal(t, document, p.Document)
}

func TestPresets_GetAbsent(t *testing.T) {
	s := createTestStore(t)

	p, err := s.GetPreset(999)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPresets_IDsMonotonic(t *testing.T) {
	s := createTestStore(t)

	first, err := s.CreatePreset("a", []byte("{}"))
	require.NoError(t, err)
	second, err := s.CreatePreset("b", []byte("{}"))
	require.NoError(t, err)
	assert.Greater(t, second, first)

	// Deleting does not free the id for reuse.
	require.NoError(t, s.DeletePreset(second))
	third, err := s.CreatePreset("c", []byte("{}"))
	require.NoError(t, err)
	assert.Greater(t, third, second)
}

func TestPresets_List(t *testing.T) {
	s := createTestStore(t)

	idA, err := s.CreatePreset("Baseline", []byte("{}"))
	require.NoError(t, err)
	_, err = s.CreatePreset("Experiment", []byte("{}"))
	require.NoError(t, err)

	all, err := s.ListPresets(Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Baseline", all[0].Name)
	assert.Equal(t, "Experiment", all[1].Name)

	byID, err := s.ListPresets(Filter{ID: &idA})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, idA, byID[0].ID)

	byName, err := s.ListPresets(Filter{Name: "Experiment"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Experiment", byName[0].Name)

	none, err := s.ListPresets(Filter{Name: "nope"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPresets_Delete(t *testing.T) {
	s := createTestStore(t)

	id, err := s.CreatePreset("Baseline", []byte("{}"))
	require.NoError(t, err)

	require.NoError(t, s.DeletePreset(id))

	p, err := s.GetPreset(id)
	require.NoError(t, err)
	assert.Nil(t, p)

	err = s.DeletePreset(id)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSettings_GetSetAll(t *testing.T) {
	s := createTestStore(t)

	_, ok, err := s.Setting("core", "site_title")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetSetting("core", "site_title", "Prod"))
	require.NoError(t, s.SetSetting("gallery", "thumbnail_size", "large"))

	value, ok, err := s.Setting("core", "site_title")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Prod", value)

	// Overwrite.
	require.NoError(t, s.SetSetting("core", "site_title", "Staging"))
	value, _, err = s.Setting("core", "site_title")
	require.NoError(t, err)
	assert.Equal(t, "Staging", value)

	all, err := s.AllSettings()
	require.NoError(t, err)
	assert.Equal(t, diff.Values{
		{Plugin: "core", Name: "site_title"}:        "Staging",
		{Plugin: "gallery", Name: "thumbnail_size"}: "large",
	}, all)
}

// Package preset orchestrates preset operations: exporting the live
// configuration into stored snapshots, importing preset documents, and
// applying stored snapshots back onto the live configuration.
package preset

import (
	"errors"
	"fmt"
	"time"

	"presetctl/internal/diff"
	"presetctl/internal/logging"
	"presetctl/internal/registry"
	"presetctl/internal/snapshot"
	"presetctl/internal/store"
)

// ErrPresetNotFound indicates a preset id that resolves to no record.
var ErrPresetNotFound = errors.New("preset not found")

// LiveConfig is the site's live configuration: an externally synchronized
// mapping from (plugin, name) to a string value. Reads and writes may fail;
// a write may be rejected per-setting (read-only setting, validation rule).
type LiveConfig interface {
	All() (diff.Values, error)
	Set(plugin, name, value string) error
}

// PresetStore is the persistence contract the service needs. *store.Store
// satisfies it.
type PresetStore interface {
	CreatePreset(name string, document []byte) (int64, error)
	GetPreset(id int64) (*store.Preset, error)
	ListPresets(f store.Filter) ([]store.Summary, error)
	DeletePreset(id int64) error
}

// Result reports the outcome of an apply, entry by entry, in diff order.
// Applied holds the entries that were written (or, in simulate mode, would
// have been); Skipped holds everything else with its classification.
type Result struct {
	Applied []diff.Entry
	Skipped []diff.Entry
}

// Service wires the preset store, registry, codec, and live configuration
// together. All collaborators are injected; the service holds no globals.
type Service struct {
	store  PresetStore
	reg    registry.Registry
	codec  *snapshot.Codec
	live   LiveConfig
	differ *diff.Engine
	log    *logging.Logger

	now func() time.Time
	// version is recorded as the snapshot's source version on export.
	version string
}

// NewService creates a preset service.
func NewService(st PresetStore, reg registry.Registry, live LiveConfig, version string, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Default()
	}
	return &Service{
		store:   st,
		reg:     reg,
		codec:   snapshot.NewCodec(reg),
		live:    live,
		differ:  diff.NewEngine(reg),
		log:     log,
		now:     time.Now,
		version: version,
	}
}

// Export captures the current live value of every registered setting into a
// new stored preset and returns its id. Settings without a live value are
// captured at their descriptor default. Sensitive values are omitted from
// the document unless includeSensitive is set.
func (s *Service) Export(name, comments, author string, includeSensitive bool) (int64, error) {
	current, err := s.live.All()
	if err != nil {
		return 0, fmt.Errorf("read live configuration: %w", err)
	}

	descriptors := s.reg.All()
	values := make([]snapshot.SettingValue, 0, len(descriptors))
	for _, d := range descriptors {
		value, ok := current[diff.Key{Plugin: d.Plugin, Name: d.Name}]
		if !ok {
			value = d.Default
		}
		values = append(values, snapshot.SettingValue{
			Plugin:       d.Plugin,
			Name:         d.Name,
			Value:        value,
			VisibleValue: diff.VisibleValue(d, value),
		})
	}

	meta := snapshot.Metadata{
		Name:          name,
		Comments:      comments,
		Author:        author,
		ExportedAt:    s.now(),
		SourceVersion: s.version,
	}

	document, err := s.codec.Encode(values, meta, includeSensitive)
	if err != nil {
		return 0, err
	}

	id, err := s.store.CreatePreset(name, document)
	if err != nil {
		return 0, fmt.Errorf("store preset: %w", err)
	}

	s.log.Info("exported preset", "id", id, "name", name, "settings", len(values))
	return id, nil
}

// Import validates a preset document and stores it as a new preset. A
// malformed document aborts the import with nothing persisted. When name is
// empty the document's own metadata name is used.
func (s *Service) Import(document []byte, name string) (*store.Preset, error) {
	snap, err := s.codec.Decode(document)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = snap.Metadata.Name
	}

	id, err := s.store.CreatePreset(name, document)
	if err != nil {
		return nil, fmt.Errorf("store preset: %w", err)
	}

	s.log.Info("imported preset", "id", id, "name", name, "settings", len(snap.Values))
	return &store.Preset{ID: id, Name: name, Document: document}, nil
}

// Download returns the exact document bytes stored for a preset.
func (s *Service) Download(id int64) ([]byte, error) {
	p, err := s.store.GetPreset(id)
	if err != nil {
		return nil, fmt.Errorf("load preset: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("preset %d: %w", id, ErrPresetNotFound)
	}
	return p.Document, nil
}

// Apply pushes a stored preset onto the live configuration. With simulate
// set, entries are classified identically but nothing is written; applicable
// entries are still reported in Applied to represent "would be applied".
//
// Apply is not transactional. A rejected write reclassifies that entry as
// skipped-write-failed and the remaining entries are still attempted;
// earlier writes stay in effect. Only a store or live-configuration outage
// aborts the whole call.
func (s *Service) Apply(id int64, simulate bool) (*Result, error) {
	p, err := s.store.GetPreset(id)
	if err != nil {
		return nil, fmt.Errorf("load preset: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("preset %d: %w", id, ErrPresetNotFound)
	}

	snap, err := s.codec.Decode(p.Document)
	if err != nil {
		return nil, err
	}

	current, err := s.live.All()
	if err != nil {
		return nil, fmt.Errorf("read live configuration: %w", err)
	}

	entries := s.differ.Diff(snap, current)

	result := &Result{}
	for _, entry := range entries {
		if entry.Classification != diff.Applicable {
			result.Skipped = append(result.Skipped, entry)
			continue
		}

		if !simulate {
			if err := s.live.Set(entry.Plugin, entry.Name, entry.NewValue); err != nil {
				s.log.Warn("setting write rejected",
					"plugin", entry.Plugin, "setting", entry.Name, "error", err)
				entry.Classification = diff.SkippedWriteFailed
				result.Skipped = append(result.Skipped, entry)
				continue
			}
		}

		result.Applied = append(result.Applied, entry)
	}

	s.log.Info("applied preset",
		"id", id, "name", p.Name, "simulate", simulate,
		"applied", len(result.Applied), "skipped", len(result.Skipped))
	return result, nil
}

// Delete permanently removes a preset.
func (s *Service) Delete(id int64) error {
	if err := s.store.DeletePreset(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("preset %d: %w", id, ErrPresetNotFound)
		}
		return err
	}
	s.log.Info("deleted preset", "id", id)
	return nil
}

// List returns preset summaries matching the filter.
func (s *Service) List(f store.Filter) ([]store.Summary, error) {
	return s.store.ListPresets(f)
}

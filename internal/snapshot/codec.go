package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"presetctl/internal/registry"
)

// ErrMalformedDocument indicates a preset document that is structurally
// invalid: not JSON, missing required metadata, or an unparsable settings
// row. An unknown (plugin, name) is NOT malformed; unknown rows decode fine
// and are classified later by the diff engine.
var ErrMalformedDocument = errors.New("malformed preset document")

// documentSchema is the structural contract for preset documents. Validation
// runs before unmarshaling so that decode failures carry a precise reason.
const documentSchema = `{
	"type": "object",
	"required": ["preset", "settings"],
	"properties": {
		"preset": {
			"type": "object",
			"required": ["name", "exported_at"],
			"properties": {
				"name": {"type": "string", "minLength": 1},
				"comments": {"type": "string"},
				"author": {"type": "string"},
				"exported_at": {"type": "string"},
				"source_version": {"type": "string"}
			}
		},
		"settings": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["plugin", "name"],
				"properties": {
					"plugin": {"type": "string", "minLength": 1},
					"name": {"type": "string", "minLength": 1},
					"value": {"type": "string"},
					"visible_value": {"type": "string"},
					"omitted": {"type": "boolean"}
				},
				"anyOf": [
					{"required": ["value"]},
					{"properties": {"omitted": {"const": true}}, "required": ["omitted"]}
				]
			}
		}
	}
}`

var compiledSchema = jsonschema.MustCompileString("preset-document.schema.json", documentSchema)

// document is the wire shape of a serialized snapshot.
type document struct {
	Preset   documentMeta      `json:"preset"`
	Settings []documentSetting `json:"settings"`
}

type documentMeta struct {
	Name          string `json:"name"`
	Comments      string `json:"comments,omitempty"`
	Author        string `json:"author,omitempty"`
	ExportedAt    string `json:"exported_at"`
	SourceVersion string `json:"source_version,omitempty"`
}

type documentSetting struct {
	Plugin       string  `json:"plugin"`
	Name         string  `json:"name"`
	Value        *string `json:"value,omitempty"`
	VisibleValue string  `json:"visible_value,omitempty"`
	Omitted      bool    `json:"omitted,omitempty"`
}

// Codec serializes snapshots to preset documents and back. It consults the
// registry at encode time to decide which values are sensitive.
type Codec struct {
	reg registry.Registry
}

// NewCodec creates a codec over the given registry.
func NewCodec(reg registry.Registry) *Codec {
	return &Codec{reg: reg}
}

// Encode serializes values plus metadata into a preset document. Sensitive
// values (per the registry) are omitted from the document unless
// includeSensitive is set; omission is irreversible, decoding the resulting
// document cannot recover them. Output is byte-stable for identical input.
func (c *Codec) Encode(values []SettingValue, meta Metadata, includeSensitive bool) ([]byte, error) {
	doc := document{
		Preset: documentMeta{
			Name:          meta.Name,
			Comments:      meta.Comments,
			Author:        meta.Author,
			ExportedAt:    meta.ExportedAt.UTC().Format(time.RFC3339Nano),
			SourceVersion: meta.SourceVersion,
		},
		Settings: make([]documentSetting, 0, len(values)),
	}

	for _, v := range values {
		row := documentSetting{
			Plugin:       v.Plugin,
			Name:         v.Name,
			VisibleValue: v.VisibleValue,
		}
		if v.Omitted || (c.isSensitive(v.Plugin, v.Name) && !includeSensitive) {
			row.Omitted = true
		} else {
			value := v.Value
			row.Value = &value
		}
		doc.Settings = append(doc.Settings, row)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode preset document: %w", err)
	}
	return append(data, '\n'), nil
}

func (c *Codec) isSensitive(plugin, name string) bool {
	d, ok := c.reg.Lookup(plugin, name)
	return ok && d.Sensitive
}

// Decode parses a preset document into a Snapshot. It fails with
// ErrMalformedDocument when the document is structurally invalid, and never
// fails merely because a settings row names a setting unknown to the current
// registry: such rows are carried through untyped for later classification.
func (c *Codec) Decode(data []byte) (*Snapshot, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := compiledSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	exportedAt, err := time.Parse(time.RFC3339Nano, doc.Preset.ExportedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid exported_at: %v", ErrMalformedDocument, err)
	}

	snap := &Snapshot{
		Metadata: Metadata{
			Name:          doc.Preset.Name,
			Comments:      doc.Preset.Comments,
			Author:        doc.Preset.Author,
			ExportedAt:    exportedAt,
			SourceVersion: doc.Preset.SourceVersion,
		},
		Values: make([]SettingValue, 0, len(doc.Settings)),
	}

	for _, row := range doc.Settings {
		v := SettingValue{
			Plugin:       row.Plugin,
			Name:         row.Name,
			VisibleValue: row.VisibleValue,
			Omitted:      row.Omitted || row.Value == nil,
		}
		if row.Value != nil && !row.Omitted {
			v.Value = *row.Value
		}
		snap.Values = append(snap.Values, v)
	}

	return snap, nil
}

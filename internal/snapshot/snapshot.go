// Package snapshot defines the immutable snapshot of setting values that a
// preset stores, and the codec that serializes snapshots to and from the
// preset document format.
package snapshot

import "time"

// SettingValue is one captured setting. Value is the raw stored
// representation; VisibleValue is a human-readable rendering (decoded enum
// label, masked secret). Omitted marks a sensitive value that was excluded
// at encode time; such a value can never be recovered from the document.
type SettingValue struct {
	Plugin       string
	Name         string
	Value        string
	VisibleValue string
	Omitted      bool
}

// Metadata describes where a snapshot came from.
type Metadata struct {
	Name          string
	Comments      string
	Author        string
	ExportedAt    time.Time
	SourceVersion string
}

// Snapshot is an ordered collection of setting values plus metadata. It is
// immutable once created; it is the unit of export, import, and storage.
type Snapshot struct {
	Metadata Metadata
	Values   []SettingValue
}

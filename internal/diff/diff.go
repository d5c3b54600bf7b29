// Package diff compares a snapshot of setting values against the current
// configuration and classifies, per setting, whether the snapshot value can
// be applied.
package diff

import (
	"sort"
	"strings"

	"presetctl/internal/registry"
	"presetctl/internal/snapshot"
)

// Classification says what the application engine should do with one entry.
type Classification int

const (
	// Applicable entries carry a new value that can be written.
	Applicable Classification = iota
	// SkippedUnknownSetting marks a setting absent from the registry.
	SkippedUnknownSetting
	// SkippedSensitive marks a sensitive value that was omitted at encode time.
	SkippedSensitive
	// SkippedIdentical marks a value equal to the current configuration.
	SkippedIdentical
	// SkippedIncompatibleType marks a value that cannot be coerced to the
	// setting's declared kind.
	SkippedIncompatibleType
	// SkippedWriteFailed marks an applicable entry whose write was rejected
	// by the configuration store.
	SkippedWriteFailed
)

// String returns the classification name.
func (c Classification) String() string {
	switch c {
	case Applicable:
		return "applicable"
	case SkippedUnknownSetting:
		return "skipped-unknown-setting"
	case SkippedSensitive:
		return "skipped-sensitive"
	case SkippedIdentical:
		return "skipped-identical"
	case SkippedIncompatibleType:
		return "skipped-incompatible-type"
	case SkippedWriteFailed:
		return "skipped-write-failed"
	default:
		return "unknown"
	}
}

// Key identifies one setting.
type Key struct {
	Plugin string
	Name   string
}

// Values is an in-memory view of the current configuration. A key absent
// from the map means the setting has no current value, which is still
// comparable (it compares as the empty string).
type Values map[Key]string

// Entry is one setting-level difference.
type Entry struct {
	Plugin          string
	Name            string
	OldValue        string
	NewValue        string
	OldVisibleValue string
	NewVisibleValue string
	Classification  Classification
}

// Engine computes diffs using descriptor metadata from a registry.
type Engine struct {
	reg registry.Registry
}

// NewEngine creates a diff engine over the given registry.
func NewEngine(reg registry.Registry) *Engine {
	return &Engine{reg: reg}
}

// Diff classifies every value in snap against current. Output order matches
// the snapshot's stored order, and each snapshot row yields exactly one
// entry. The checks run in a fixed order: unknown setting, omitted sensitive
// value, identical value, incompatible value, applicable. Identical wins
// over incompatible, so a stale enum value that matches the current one
// reports as identical rather than incompatible.
func (e *Engine) Diff(snap *snapshot.Snapshot, current Values) []Entry {
	entries := make([]Entry, 0, len(snap.Values))

	for _, v := range snap.Values {
		entry := Entry{
			Plugin:          v.Plugin,
			Name:            v.Name,
			NewValue:        v.Value,
			NewVisibleValue: v.VisibleValue,
		}

		desc, known := e.reg.Lookup(v.Plugin, v.Name)
		if !known {
			// No descriptor, so the raw current value is recorded but the
			// entry is never interpreted as a typed value.
			entry.OldValue = current[Key{Plugin: v.Plugin, Name: v.Name}]
			entry.Classification = SkippedUnknownSetting
			entries = append(entries, entry)
			continue
		}

		if v.Omitted {
			entry.Classification = SkippedSensitive
			entries = append(entries, entry)
			continue
		}

		old := current[Key{Plugin: v.Plugin, Name: v.Name}]
		entry.OldValue = old
		entry.OldVisibleValue = VisibleValue(desc, old)
		entry.NewVisibleValue = VisibleValue(desc, v.Value)

		if equalForKind(desc, v.Value, old) {
			entry.Classification = SkippedIdentical
			entries = append(entries, entry)
			continue
		}

		if !coercible(desc, v.Value) {
			entry.Classification = SkippedIncompatibleType
			entries = append(entries, entry)
			continue
		}

		entry.Classification = Applicable
		entries = append(entries, entry)
	}

	return entries
}

// equalForKind applies the wire convention of the descriptor's kind before
// comparing. Canonicalization failures are not equality failures; an
// uncanonicalizable value simply compares unequal and falls through to the
// coercibility check.
func equalForKind(desc registry.Descriptor, a, b string) bool {
	switch desc.Kind {
	case registry.KindBoolean:
		ca, aok := canonicalBool(a)
		cb, bok := canonicalBool(b)
		if aok && bok {
			return ca == cb
		}
		return a == b
	case registry.KindMultiSelect:
		return equalSets(splitMulti(a), splitMulti(b))
	default:
		return a == b
	}
}

// canonicalBool maps the accepted boolean spellings onto the "1"/"0" wire
// convention. The empty string reads as false: an unset boolean is off.
func canonicalBool(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return "1", true
	case "0", "false", "no", "off", "":
		return "0", true
	}
	return "", false
}

// splitMulti splits a multiselect value into its members, preserving order.
func splitMulti(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// equalSets compares two member lists as sets: reordering a multiselect
// value is not a difference.
func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// coercible reports whether value can be interpreted as the descriptor's
// declared kind.
func coercible(desc registry.Descriptor, value string) bool {
	switch desc.Kind {
	case registry.KindBoolean:
		_, ok := canonicalBool(value)
		return ok
	case registry.KindSelect:
		return desc.AllowsValue(value)
	case registry.KindMultiSelect:
		for _, member := range splitMulti(value) {
			if !desc.AllowsValue(member) {
				return false
			}
		}
		return true
	default:
		// Text and password settings accept any string.
		return true
	}
}

// VisibleValue renders a raw value for display according to the
// descriptor's kind: option labels for enumerations, yes/no for booleans,
// a mask for passwords.
func VisibleValue(desc registry.Descriptor, value string) string {
	switch desc.Kind {
	case registry.KindSelect:
		return desc.OptionLabel(value)
	case registry.KindMultiSelect:
		members := splitMulti(value)
		labels := make([]string, 0, len(members))
		for _, m := range members {
			labels = append(labels, desc.OptionLabel(m))
		}
		return strings.Join(labels, ", ")
	case registry.KindBoolean:
		if c, ok := canonicalBool(value); ok && c == "1" {
			return "yes"
		}
		return "no"
	case registry.KindPassword:
		if value == "" {
			return ""
		}
		return "********"
	default:
		return value
	}
}

// Package store persists preset records and the site's live configuration
// settings in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"presetctl/internal/diff"
)

// ErrNotFound indicates a preset id that resolves to no record.
var ErrNotFound = errors.New("preset not found")

// Schema for the preset store.
const schema = `
CREATE TABLE IF NOT EXISTS presets (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL,
    document    BLOB NOT NULL,
    created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_presets_name ON presets(name);

CREATE TABLE IF NOT EXISTS settings (
    plugin  TEXT NOT NULL,
    name    TEXT NOT NULL,
    value   TEXT NOT NULL,
    PRIMARY KEY (plugin, name)
);
`

// Store is the SQLite-backed preset store. It also holds the settings table
// that backs the site's live configuration.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path and applies
// the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Preset is one stored preset record.
type Preset struct {
	ID        int64
	Name      string
	Document  []byte
	CreatedAt time.Time
}

// Summary is the listing view of a preset.
type Summary struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Filter narrows a preset listing. Zero fields match everything.
type Filter struct {
	ID   *int64
	Name string
}

// CreatePreset inserts a new preset record and returns its id. Presets are
// append-only; ids are assigned by the store and never reused.
func (s *Store) CreatePreset(name string, document []byte) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO presets (name, document, created_at)
		VALUES (?, ?, ?)`,
		name, document, time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert preset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}

	return id, nil
}

// GetPreset retrieves a preset by id. Returns (nil, nil) when absent.
func (s *Store) GetPreset(id int64) (*Preset, error) {
	var p Preset
	var createdAt int64

	err := s.db.QueryRow(`
		SELECT id, name, document, created_at
		FROM presets WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Document, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get preset: %w", err)
	}

	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

// ListPresets returns preset summaries matching the filter, ordered by id.
func (s *Store) ListPresets(f Filter) ([]Summary, error) {
	query := `SELECT id, name, created_at FROM presets`
	var conds []string
	var args []any
	if f.ID != nil {
		conds = append(conds, "id = ?")
		args = append(args, *f.ID)
	}
	if f.Name != "" {
		conds = append(conds, "name = ?")
		args = append(args, f.Name)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query presets: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		var createdAt int64
		if err := rows.Scan(&sum.ID, &sum.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		sum.CreatedAt = time.Unix(createdAt, 0)
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presets: %w", err)
	}

	return summaries, nil
}

// DeletePreset permanently removes a preset. Returns ErrNotFound when no
// record has the given id.
func (s *Store) DeletePreset(id int64) error {
	result, err := s.db.Exec(`DELETE FROM presets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("delete preset %d: %w", id, ErrNotFound)
	}

	return nil
}

// Setting reads one live configuration value.
func (s *Store) Setting(plugin, name string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`
		SELECT value FROM settings WHERE plugin = ? AND name = ?`,
		plugin, name,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get setting: %w", err)
	}
	return value, true, nil
}

// SetSetting writes one live configuration value.
func (s *Store) SetSetting(plugin, name, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (plugin, name, value)
		VALUES (?, ?, ?)
		ON CONFLICT(plugin, name) DO UPDATE SET value = excluded.value`,
		plugin, name, value,
	)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// AllSettings returns every live configuration value.
func (s *Store) AllSettings() (diff.Values, error) {
	rows, err := s.db.Query(`SELECT plugin, name, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	values := make(diff.Values)
	for rows.Next() {
		var plugin, name, value string
		if err := rows.Scan(&plugin, &name, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		values[diff.Key{Plugin: plugin, Name: name}] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}

	return values, nil
}

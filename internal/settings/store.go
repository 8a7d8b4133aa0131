package settings

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store persists settings in the SQLite settings table.
type Store struct {
	db *sql.DB
}

// NewStore creates a store on an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns a raw value and whether it is set.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores a raw value.
func (s *Store) Set(key, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown setting %q", key)
	}
	now := time.Now().UTC().Unix()
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, now)
	if err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	return nil
}

// Delete removes a value so it falls back to its default.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// All returns every stored raw value.
func (s *Store) All() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Load reads and parses all settings.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	raw, err := s.All()
	if err != nil {
		return Defaults(), err
	}
	return FromMap(raw), nil
}

// Seed stores values only for keys that are not already set.
func (s *Store) Seed(values map[string]string) error {
	for k, v := range values {
		if _, ok, err := s.Get(k); err != nil {
			return err
		} else if ok {
			continue
		}
		if err := s.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

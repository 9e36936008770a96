// Package credentials persists the provider API key in a local SQLite file,
// the server-side stand-in for the browser's local storage.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// KeyName is the settings entry holding the Gemini API key.
const KeyName = "gemini_api_key"

const schema = `CREATE TABLE IF NOT EXISTS settings (
	name       TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the settings database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open credentials db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init credentials schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// APIKey returns the stored key for scope, or "" when none is saved. The
// empty scope is the single local user.
func (s *Store) APIKey(ctx context.Context, scope string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE name = ?`, keyName(scope)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read api key: %w", err)
	}
	return strings.TrimSpace(value), nil
}

// SetAPIKey saves key for scope. An empty key removes the entry.
func (s *Store) SetAPIKey(ctx context.Context, scope, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.DeleteAPIKey(ctx, scope)
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO settings (name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, keyName(scope), key)
	if err != nil {
		return fmt.Errorf("save api key: %w", err)
	}
	return nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, scope string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE name = ?`, keyName(scope)); err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	return nil
}

func keyName(scope string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return KeyName
	}
	return KeyName + ":" + scope
}

// Mask hides all but the last four characters of a key for display.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("•", len(key))
	}
	return strings.Repeat("•", 8) + key[len(key)-4:]
}

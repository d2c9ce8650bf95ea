// Package prefs stores the face's small key/value preferences, chiefly the
// preferred weather location, in the same SQLite file as the forecasts.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// KeyLocation holds the preferred weather location.
const KeyLocation = "location"

// ErrNotFound is returned when a preference has never been set.
var ErrNotFound = errors.New("prefs: not found")

// Store reads and writes preferences.
type Store struct {
	db *sql.DB
}

// New creates the preferences table if needed.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS preferences (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`); err != nil {
		return nil, fmt.Errorf("prefs: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("prefs: get %s: %w", key, err)
	}
	return v, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
		return fmt.Errorf("prefs: set %s: %w", key, err)
	}
	return nil
}

// PreferredLocation returns the stored location.
func (s *Store) PreferredLocation(ctx context.Context) (string, error) {
	return s.Get(ctx, KeyLocation)
}

// SetPreferredLocation stores loc as the preferred location.
func (s *Store) SetPreferredLocation(ctx context.Context, loc string) error {
	return s.Set(ctx, KeyLocation, loc)
}

// Seed stores def as the preferred location unless one is already set, and
// returns whichever is in effect.
func (s *Store) Seed(ctx context.Context, def string) (string, error) {
	loc, err := s.PreferredLocation(ctx)
	if err == nil {
		return loc, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	if err := s.SetPreferredLocation(ctx, def); err != nil {
		return "", err
	}
	return def, nil
}

// Package kvstore is the sqlite-backed durable local store: a single
// key/value table written through on every mutation. The mutation queue and
// the wizard draft snapshot both live here, under their own fixed keys.
package kvstore

import (
	"database/sql"
	"errors"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db}
}

func (s *Store) Read(key string) (string, bool, error) {
	var value string
	err := s.db.
		QueryRow("SELECT value FROM local_kv WHERE key = ?", key).
		Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) Write(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO local_kv (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

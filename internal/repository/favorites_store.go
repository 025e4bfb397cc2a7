package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// favoritesKey is the single settings key the favorite IDs live under.
const favoritesKey = "favorite_coin_ids"

// SQLiteFavoritesStore keeps the favorite set as a JSON string list
// under one fixed key in a sqlite settings table.
type SQLiteFavoritesStore struct {
	db *sql.DB
}

func NewSQLiteFavoritesStore(dbPath string) (*SQLiteFavoritesStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create settings table: %w", err)
	}

	return &SQLiteFavoritesStore{db: db}, nil
}

func (s *SQLiteFavoritesStore) Save(ids map[string]struct{}) error {
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	sort.Strings(list)

	value, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal favorites: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		favoritesKey, string(value), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert favorites: %w", err)
	}
	return nil
}

// Load returns an empty set when the key is absent. Absence is not an
// error.
func (s *SQLiteFavoritesStore) Load() (map[string]struct{}, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, favoritesKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}

	var list []string
	if err := json.Unmarshal([]byte(value), &list); err != nil {
		return nil, fmt.Errorf("unmarshal favorites: %w", err)
	}

	ids := make(map[string]struct{}, len(list))
	for _, id := range list {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (s *SQLiteFavoritesStore) Close() error {
	return s.db.Close()
}

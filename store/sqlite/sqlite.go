package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"git.wyat.me/zwagit/object"
	"git.wyat.me/zwagit/store"
)

type SQLiteStore struct {
	db *sql.DB
}

func New(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, store.Unavailable("open sqlite", err)
	}

	// SQLite only supports one writer at a time. Limiting to a single
	// connection ensures all goroutines serialize through one connection,
	// keeping PRAGMA settings active and avoiding SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)

	// WAL mode allows concurrent reads, serializes writes
	// busy_timeout makes writers wait instead of immediately erroring
	for _, pragma := range []string{`PRAGMA journal_mode=WAL`, `PRAGMA busy_timeout=5000`} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, store.Unavailable(pragma, err)
		}
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS objects (
            id       TEXT PRIMARY KEY,
            envelope BLOB NOT NULL
        )
    `)
	if err != nil {
		db.Close()
		return nil, store.Unavailable("create table", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Put(obj *object.Object) (string, error) {
	envelope, id, err := store.Seal(obj)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(
		`INSERT OR IGNORE INTO objects (id, envelope) VALUES (?, ?)`,
		id, envelope,
	)
	if err != nil {
		return "", store.Unavailable("insert", err)
	}

	return id, nil
}

func (s *SQLiteStore) Get(id string) ([]byte, error) {
	if err := store.ValidateID(id); err != nil {
		return nil, err
	}

	var envelope []byte
	err := s.db.QueryRow(`SELECT envelope FROM objects WHERE id = ?`, id).Scan(&envelope)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, store.Unavailable("select", err)
	}
	return envelope, nil
}

func (s *SQLiteStore) Exists(id string) (bool, error) {
	if err := store.ValidateID(id); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM objects WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, store.Unavailable("exists query", err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLite is the production KV backend, a single-file SQLite database.
// Writes are last-write-wins; there is no cross-process locking beyond
// what SQLite itself provides.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens or creates the database at path. ":memory:" gives an
// ephemeral store, which the tests use.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// A single connection keeps :memory: databases coherent across the
	// pool and sidesteps SQLITE_BUSY under concurrent writes.
	conn.SetMaxOpenConns(1)
	// WAL mode for better concurrency between the web adapter and
	// one-shot exports.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	s := &SQLite{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		bucket TEXT NOT NULL,
		key    TEXT NOT NULL,
		value  BLOB NOT NULL,
		PRIMARY KEY (bucket, key)
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the underlying connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) Get(bucket, key string) ([]byte, bool, error) {
	var value []byte
	err := s.conn.QueryRow(
		"SELECT value FROM kv WHERE bucket = ? AND key = ?", bucket, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *SQLite) Put(bucket, key string, value []byte) error {
	_, err := s.conn.Exec(
		"INSERT INTO kv (bucket, key, value) VALUES (?, ?, ?) "+
			"ON CONFLICT (bucket, key) DO UPDATE SET value = excluded.value",
		bucket, key, value,
	)
	return err
}

func (s *SQLite) Delete(bucket, key string) error {
	_, err := s.conn.Exec("DELETE FROM kv WHERE bucket = ? AND key = ?", bucket, key)
	return err
}

func (s *SQLite) List(bucket string) (map[string][]byte, error) {
	rows, err := s.conn.Query("SELECT key, value FROM kv WHERE bucket = ? ORDER BY key", bucket)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, rows.Err()
}

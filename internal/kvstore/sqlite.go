package kvstore

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a Store backed by a single SQLite file. Expiry is enforced
// lazily at read time plus a periodic sweep, so a hard process restart
// never serves expired entries.
type SQLite struct {
	db   *sql.DB
	stop chan struct{}
}

// NewSQLite opens (and if needed creates) the store at path.
func NewSQLite(path string) (*SQLite, error) {
	// WAL and a busy timeout keep concurrent request handlers from
	// tripping over the single writer.
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS kv_entries (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0 -- unix milliseconds, 0 = never
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db, stop: make(chan struct{})}
	go s.sweepLoop(time.Minute)
	return s, nil
}

// Get retrieves a value, treating expired entries as absent.
func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM kv_entries WHERE key = ?", key,
	).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if expiresAt > 0 && time.Now().UnixMilli() > expiresAt {
		return "", false, nil
	}
	return value, true, nil
}

// Put stores a value with the given TTL. ttl <= 0 means no expiry.
func (s *SQLite) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	return err
}

// Delete removes a key.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = ?", key)
	return err
}

// Close stops the sweeper and closes the database.
func (s *SQLite) Close() error {
	close(s.stop)
	return s.db.Close()
}

func (s *SQLite) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.db.Exec("DELETE FROM kv_entries WHERE expires_at > 0 AND expires_at < ?", time.Now().UnixMilli())
		case <-s.stop:
			return
		}
	}
}

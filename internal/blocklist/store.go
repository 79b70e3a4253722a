// Package blocklist stores the addresses of devices barred from the HFP
// audio gateway. Some headsets negotiate HFP but mishandle the SCO link;
// listing them here keeps them on A2DP only.
package blocklist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dirPermissions = 0750

	// connectionTimeout bounds the startup connectivity check.
	connectionTimeout = 5 * time.Second

	// busyTimeout is the SQLite lock wait in milliseconds.
	busyTimeout = 5000
)

const schema = `
CREATE TABLE IF NOT EXISTS hfp_blocklist (
	address    TEXT PRIMARY KEY,
	note       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is the persistent HFP blocklist.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the blocklist database and bootstraps its schema.
// The special path ":memory:" yields an ephemeral store.
func Open(path string) (*Store, error) {
	connStr := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating blocklist directory: %w", err)
		}
		connStr = fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL", path, busyTimeout)
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening blocklist database: %w", err)
	}

	// SQLite supports a single writer; one connection avoids lock churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying blocklist database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrapping blocklist schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Contains reports whether the address is blocklisted. Lookup is
// case-insensitive; addresses are stored uppercase.
func (s *Store) Contains(address string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM hfp_blocklist WHERE address = ?",
		normalize(address),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying blocklist: %w", err)
	}
	return n > 0, nil
}

// Add inserts an address with an optional operator note. Re-adding a known
// address updates the note.
func (s *Store) Add(address, note string) error {
	_, err := s.db.Exec(
		`INSERT INTO hfp_blocklist (address, note) VALUES (?, ?)
		 ON CONFLICT(address) DO UPDATE SET note = excluded.note`,
		normalize(address), note,
	)
	if err != nil {
		return fmt.Errorf("adding to blocklist: %w", err)
	}
	return nil
}

// Remove deletes an address. Removing an unknown address is a no-op.
func (s *Store) Remove(address string) error {
	if _, err := s.db.Exec("DELETE FROM hfp_blocklist WHERE address = ?", normalize(address)); err != nil {
		return fmt.Errorf("removing from blocklist: %w", err)
	}
	return nil
}

// HealthCheck verifies the store is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("blocklist health check: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func normalize(address string) string {
	return strings.ToUpper(strings.TrimSpace(address))
}

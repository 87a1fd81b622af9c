package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists endpoint rows in the rcon_config table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS rcon_config (
		tenant TEXT PRIMARY KEY,
		host TEXT,
		port INTEGER,
		password TEXT,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ReadEndpoint implements Store.
func (s *SQLiteStore) ReadEndpoint(ctx context.Context, key string) (StoredEndpoint, bool, error) {
	var host, port, password sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT host, port, password FROM rcon_config WHERE tenant = ?", key,
	).Scan(&host, &port, &password)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredEndpoint{}, false, nil
	}
	if err != nil {
		return StoredEndpoint{}, false, fmt.Errorf("querying rcon_config: %w", err)
	}

	return StoredEndpoint{
		Host:     host.String,
		Port:     port.String,
		Password: password.String,
	}, true, nil
}

// UpsertEndpoint implements Store.
func (s *SQLiteStore) UpsertEndpoint(ctx context.Context, key, host string, port int, password string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rcon_config (tenant, host, port, password)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant) DO UPDATE SET
			host = excluded.host,
			port = excluded.port,
			password = excluded.password,
			updated_at = CURRENT_TIMESTAMP
	`, key, host, port, password); err != nil {
		return fmt.Errorf("upserting rcon_config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

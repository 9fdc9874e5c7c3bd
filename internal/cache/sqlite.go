package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStorage keeps all partitions in one table keyed by (partition, key).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the database file at path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time; the refresh path is the only writer anyway.
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStorage) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS cache_entries (
			partition TEXT NOT NULL,
			key TEXT NOT NULL,
			payload BLOB NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY(partition, key)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite cache: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) Open(ctx context.Context, name string) (Partition, error) {
	if !IsKnownPartition(name) {
		return nil, ErrUnknownPartition
	}
	if err := s.db.PingContext(ctx); err != nil {
		return nil, convertSQLErr(err)
	}
	return &sqlitePartition{db: s.db, name: name}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type sqlitePartition struct {
	db   *sql.DB
	name string
}

func (p *sqlitePartition) Name() string { return p.name }

func (p *sqlitePartition) Match(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT payload FROM cache_entries WHERE partition = ? AND key = ?`,
		p.name, key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, convertSQLErr(err)
	}
	if payload == nil {
		payload = []byte{}
	}
	return payload, true, nil
}

func (p *sqlitePartition) Put(ctx context.Context, key string, payload []byte) error {
	if payload == nil {
		payload = []byte{}
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO cache_entries(partition, key, payload, updated_at) VALUES(?, ?, ?, ?)
		ON CONFLICT(partition, key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		p.name, key, payload, time.Now().UTC(),
	)
	return convertSQLErr(err)
}

func convertSQLErr(err error) error {
	if err != nil && strings.Contains(err.Error(), "database is closed") {
		return ErrStorageClosed
	}
	return err
}

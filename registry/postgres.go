package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver "pgx"
)

// PostgresConfig configures a [PostgresStore] connection pool.
type PostgresConfig struct {
	URL             string
	Table           string
	PingTimeout     time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultTable is the table used when [PostgresConfig.Table] is empty.
const DefaultTable = "itom_programs"

// Validate reports whether c describes a usable connection.
func (c PostgresConfig) Validate() error {
	switch {
	case c.URL == "":
		return errors.New("database URL is required")
	case c.MaxOpenConns < 0 || c.MaxIdleConns < 0:
		return errors.New("connection limits must be >= 0")
	case c.MaxOpenConns > 0 && c.MaxIdleConns > c.MaxOpenConns:
		return errors.New("max idle connections must be <= max open connections")
	}

	return nil
}

// PostgresStore is a [Store] that keeps one row per program in a PostgreSQL
// table. The record is stored as jsonb next to the editable source text.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// OpenPostgres connects to the database described by cfg, verifies the
// connection, and creates the program table if it does not exist.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, ErrStore.Wrap(err)
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, ErrStore.Wrap(fmt.Errorf("open: %w", err))
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()

		return nil, ErrStore.Wrap(fmt.Errorf("ping: %w", err))
	}

	s, err := NewPostgresStore(db, cfg.Table)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	return s, nil
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB, table string) (*PostgresStore, error) {
	if db == nil {
		return nil, ErrStore.Wrap(errors.New("database handle is required"))
	}

	if table == "" {
		table = DefaultTable
	}

	if !validIdentifier(table) {
		return nil, ErrStore.Wrap(errors.New("invalid table name")).
			With(slog.String("table", table))
	}

	return &PostgresStore{db: db, table: table}, nil
}

// Close closes the database handle.
func (s *PostgresStore) Close() error { return s.db.Close() }

// Migrate creates the program table if needed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
	name       text PRIMARY KEY,
	record     jsonb,
	source     text NOT NULL DEFAULT '',
	updated_at timestamptz NOT NULL DEFAULT now()
)`)
	if err != nil {
		return ErrStore.Wrap(fmt.Errorf("migrate: %w", err)).
			With(slog.String("table", s.table))
	}

	return nil
}

// Names implements [Store].
func (s *PostgresStore) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM `+s.table+` WHERE record IS NOT NULL ORDER BY name`)
	if err != nil {
		return nil, ErrStore.Wrap(err)
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, ErrStore.Wrap(err)
		}

		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, ErrStore.Wrap(err)
	}

	return names, nil
}

// Load implements [Store].
func (s *PostgresStore) Load(ctx context.Context, name string) (*Record, error) {
	var data []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM `+s.table+` WHERE name = $1 AND record IS NOT NULL`,
		name,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(name)
		}

		return nil, ErrStore.Wrap(err).With(programAttr(name))
	}

	rec := new(Record)
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, ErrStore.Wrap(err).With(programAttr(name))
	}

	rec.normalize()

	return rec, nil
}

// Save implements [Store].
func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	name := rec.Metadata.Name

	data, err := json.Marshal(rec)
	if err != nil {
		return ErrStore.Wrap(err).With(programAttr(name))
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO `+s.table+` (name, record)
VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET record = EXCLUDED.record, updated_at = now()`,
		name, data,
	)
	if err != nil {
		return ErrStore.Wrap(err).With(programAttr(name))
	}

	return nil
}

// Source implements [Store].
func (s *PostgresStore) Source(ctx context.Context, name string) (string, error) {
	var src string

	err := s.db.QueryRowContext(ctx,
		`SELECT source FROM `+s.table+` WHERE name = $1`, name,
	).Scan(&src)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", notFound(name)
		}

		return "", ErrStore.Wrap(err).With(programAttr(name))
	}

	return src, nil
}

// WriteSource implements [Store].
func (s *PostgresStore) WriteSource(ctx context.Context, name, source string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO `+s.table+` (name, source)
VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET source = EXCLUDED.source, updated_at = now()`,
		name, source,
	)
	if err != nil {
		return ErrStore.Wrap(err).With(programAttr(name))
	}

	return nil
}

// validIdentifier reports whether s is a plain SQL identifier that can be
// interpolated into statements without quoting.
func validIdentifier(s string) bool {
	if s == "" || len(s) > 63 {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}

	return true
}

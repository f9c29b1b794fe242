package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour of the backing database.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return 0, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// rebind rewrites ? placeholders for dialects that number their parameters.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store reads articles and categories from a relational database.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the database for driver ("sqlite" or "postgres").
func Open(driver, dsn string) (*Store, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	if dialect == SQLite {
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if dialect == SQLite {
		// SQLite allows a single writer; keep one connection so in-memory
		// databases are shared across queries.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	return New(db, dialect), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Dialect returns the SQL flavour in use.
func (s *Store) Dialect() Dialect { return s.dialect }

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if s.dialect == Postgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		category_id  INTEGER REFERENCES categories(id),
		title        TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		content      TEXT NOT NULL DEFAULT '',
		source       TEXT,
		author       TEXT,
		url          TEXT NOT NULL DEFAULT '',
		image_url    TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_author ON articles(author)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id           BIGSERIAL PRIMARY KEY,
		category_id  BIGINT REFERENCES categories(id),
		title        TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		content      TEXT NOT NULL DEFAULT '',
		source       TEXT,
		author       TEXT,
		url          TEXT NOT NULL DEFAULT '',
		image_url    TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_author ON articles(author)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at)`,
}

// ensureSQLiteDir creates the parent directory of a file-backed SQLite DSN.
func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database dir: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/letwinventory/harnessgraph/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (harnesses, harness_history)
// 1 - Added harness_edges reverse index, backfilled from stored documents
const currentSchemaVersion = 1

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Store provides durable storage for harness rows and their history.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path (":memory:"
// for an in-memory database). Applies pragmas, schema and migrations.
//
// This function is idempotent - safe to call multiple times on one file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is the handle a unit of work reads and writes through.
type Tx struct {
	q querier
}

// RunInTx runs fn in one transaction. The transaction commits only if fn
// returns nil; any error or a cancelled ctx rolls everything back.
func (s *Store) RunInTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback() // No-op if committed

	if err := fn(&Tx{q: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Read returns a handle for standalone reads outside any transaction.
// Do not call it while a RunInTx callback is running.
func (s *Store) Read() *Tx {
	return &Tx{q: s.db}
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 backfills harness_edges from the documents of databases
// created before the index existed. The table itself comes from schema.sql.
func migrateToV1(db *sql.DB) error {
	ctx := context.Background()
	rows, err := db.QueryContext(ctx, `SELECT id, harness_data FROM harnesses WHERE harness_data IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	type pending struct {
		parent   string
		children []string
	}
	var backfill []pending
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			rows.Close()
			return fmt.Errorf("migrate to v1: %w", err)
		}
		doc, err := model.ParseDocument([]byte(data))
		if err != nil {
			// Undecodable legacy documents have no usable edges.
			continue
		}
		backfill = append(backfill, pending{parent: id, children: doc.SubHarnessTargets()})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("migrate to v1: %w", err)
	}
	rows.Close()

	for _, p := range backfill {
		for _, child := range p.children {
			if _, err := db.ExecContext(ctx,
				`INSERT OR IGNORE INTO harness_edges (parent_id, child_id) VALUES (?, ?)`,
				p.parent, child); err != nil {
				return fmt.Errorf("migrate to v1: %w", err)
			}
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

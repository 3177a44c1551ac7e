package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"

	"tessera-api/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS boards (
		board_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_boards_owner ON boards(owner_id);

	CREATE TABLE IF NOT EXISTS board_members (
		board_id TEXT NOT NULL REFERENCES boards(board_id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		PRIMARY KEY (board_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_board_members_user ON board_members(user_id);

	CREATE TABLE IF NOT EXISTS columns (
		column_id TEXT PRIMARY KEY,
		board_id TEXT NOT NULL REFERENCES boards(board_id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE (board_id, position)
	);

	CREATE TABLE IF NOT EXISTS tasks (
		task_id TEXT PRIMARY KEY,
		column_id TEXT NOT NULL REFERENCES columns(column_id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL,
		created_by TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE (column_id, position)
	);`

const (
	defaultListPageSize = 30
	maxListPageSize     = 100
)

// Storage persists boards and their ordered contents in SQLite.
type Storage struct {
	db           *sql.DB
	readDB       *sql.DB
	listPageSize int
}

// New opens or creates the SQLite database at path and ensures the schema.
// listPageSize is the board page size applied when a request does not name
// one; values below 1 select the default. Transactions on the write handle
// take the write lock up front so structural writes serialize instead of
// failing mid-flight.
func New(path string, listPageSize int) (*Storage, error) {
	if listPageSize <= 0 {
		listPageSize = defaultListPageSize
	}
	// txlock, busy_timeout and foreign_keys are per-connection settings and
	// must ride the DSN: a PRAGMA executed on the pool configures only the
	// one connection that happens to run it, not the connections the pool
	// opens later.
	db, err := sql.Open("sqlite3", path+"?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// journal_mode persists in the database file, so once is enough.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	// Multi-query reads run on their own handle without the immediate
	// txlock: a deferred WAL read transaction sees one consistent snapshot
	// without queueing for the write lock.
	readDB, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite read handle: %w", err)
	}

	return &Storage{db: db, readDB: readDB, listPageSize: listPageSize}, nil
}

// Close closes both database handles.
func (s *Storage) Close() error {
	return errors.Join(s.db.Close(), s.readDB.Close())
}

// Ping reports whether the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a single transaction and rolls back on any error, so
// partially renumbered sibling sets are never visible to other requests.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSqliteErr(fmt.Errorf("begin: %w", err))
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return mapSqliteErr(err)
	}
	if err := tx.Commit(); err != nil {
		return mapSqliteErr(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// withReadTx runs fn inside a deferred transaction on the read handle. The
// queries share one consistent view of the database while writers proceed in
// parallel.
func (s *Storage) withReadTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.readDB.BeginTx(ctx, nil)
	if err != nil {
		return mapSqliteErr(fmt.Errorf("begin read: %w", err))
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return mapSqliteErr(err)
	}
	return nil
}

// mapSqliteErr translates low-level SQLite failures into domain errors. Lock
// timeouts and uniqueness violations both mean the write lost a race over a
// sibling set; dangling foreign keys mean the referenced row is gone.
func mapSqliteErr(err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}
	switch {
	case se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked:
		return fmt.Errorf("%w: %v", domain.ErrPositionConflict, err)
	case se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %v", domain.ErrPositionConflict, err)
	case se.ExtendedCode == sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: referenced row is gone", domain.ErrNotFound)
	}
	return err
}

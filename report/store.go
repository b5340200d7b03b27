// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/slotenwacht/slotenbot/lib/clock"
)

// Statuses a report moves through. New reports start pending; the
// group marks them done once the paperwork is handled.
const (
	StatusPending = "pending"
	StatusDone    = "done"
)

// columnPattern constrains configured column names to safe SQL
// identifiers. They are interpolated into DDL and column lists, never
// bound as parameters.
var columnPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// reservedColumns are the table's fixed columns; configured value
// columns must not collide with them.
var reservedColumns = map[string]bool{
	"id":         true,
	"author_id":  true,
	"created_at": true,
	"status":     true,
}

// Report is one completed intervention submission: who filed it, when,
// its workflow status, and the per-column field values.
type Report struct {
	ID        int64
	AuthorID  int64
	CreatedAt time.Time
	Status    string

	// Values maps column name to answer, one entry per configured
	// column.
	Values map[string]string
}

// Store is the durable record of completed reports, backed by SQLite
// in WAL mode. Once Insert returns, the row survives process restart —
// the store is the durability boundary for the whole bot.
//
// The table's value columns are configured at open time. Opening a
// store against a database created with fewer columns performs an
// additive column migration; dropping or renaming columns is not
// supported.
type Store struct {
	pool    *sqlitex.Pool
	columns []string
	clock   clock.Clock
	logger  *slog.Logger
}

// Config holds the parameters for opening a Store.
type Config struct {
	// Path is the SQLite database file. The parent directory must
	// exist; the file is created if missing. Required.
	Path string

	// Columns names the report's value columns, in order. Required
	// and non-empty; each name must be a lowercase identifier.
	Columns []string

	// PoolSize is the number of pooled connections. Defaults to 2:
	// the bot has a single writer and at most one concurrent reader.
	PoolSize int

	// Clock stamps created_at. If nil, the real clock is used.
	Clock clock.Clock

	// Logger receives operational messages. If nil, logging is
	// discarded.
	Logger *slog.Logger
}

// Open opens (and if needed creates) the reports database, applies
// WAL pragmas per connection, creates the table, and adds any
// configured value columns missing from an existing database.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("report: Path is required")
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("report: Columns is required")
	}
	seen := make(map[string]bool, len(cfg.Columns))
	for _, column := range cfg.Columns {
		if !columnPattern.MatchString(column) {
			return nil, fmt.Errorf("report: column name %q is not a valid identifier", column)
		}
		if reservedColumns[column] {
			return nil, fmt.Errorf("report: column name %q is reserved", column)
		}
		if seen[column] {
			return nil, fmt.Errorf("report: duplicate column name %q", column)
		}
		seen[column] = true
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 2
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("report: opening %s: %w", cfg.Path, err)
	}

	store := &Store{
		pool:    pool,
		columns: append([]string(nil), cfg.Columns...),
		clock:   clk,
		logger:  logger,
	}

	if err := store.migrate(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("report store opened",
		"path", cfg.Path,
		"columns", len(cfg.Columns),
	)
	return store, nil
}

// prepareConnection applies the standard pragmas once per pooled
// connection: WAL for crash-safe concurrent access, NORMAL sync (WAL
// makes FULL unnecessary), and a busy timeout so a slow checkpoint
// fails the single operation instead of wedging the process.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("report: %s: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the connection pool. Blocks until borrowed connections
// are returned.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("report: closing pool: %w", err)
	}
	return nil
}

// migrate creates the reports table and adds any configured value
// columns an existing database lacks. Additive only: columns are never
// dropped or retyped.
func (s *Store) migrate(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("report: migrate: %w", err)
	}
	defer s.pool.Put(conn)

	var createColumns strings.Builder
	for _, column := range s.columns {
		fmt.Fprintf(&createColumns, ",\n\t%s TEXT NOT NULL DEFAULT ''", column)
	}

	// Column names were validated as identifiers by Open; they are the
	// only non-literal text in this statement.
	createStatement := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS reports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	author_id INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT '%s'%s
);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);`,
		StatusPending, createColumns.String())

	if err := sqlitex.ExecuteScript(conn, createStatement, nil); err != nil {
		return fmt.Errorf("report: creating table: %w", err)
	}

	existing := make(map[string]bool)
	err = sqlitex.Execute(conn, "PRAGMA table_info(reports)", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			existing[stmt.ColumnText(1)] = true
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("report: reading table info: %w", err)
	}

	for _, column := range s.columns {
		if existing[column] {
			continue
		}
		alter := fmt.Sprintf("ALTER TABLE reports ADD COLUMN %s TEXT NOT NULL DEFAULT ''", column)
		if err := sqlitex.ExecuteTransient(conn, alter, nil); err != nil {
			return fmt.Errorf("report: adding column %s: %w", column, err)
		}
		s.logger.Info("added report column", "column", column)
	}

	return nil
}

// Insert appends one report with a fresh id and the current time.
// Every configured column must have a non-empty value: partial data
// never reaches the store. Any underlying I/O failure is returned
// wrapped; the caller must not finalize the conversation nor notify
// the group when Insert fails.
func (s *Store) Insert(ctx context.Context, authorID int64, values map[string]string) (Report, error) {
	for _, column := range s.columns {
		if strings.TrimSpace(values[column]) == "" {
			return Report{}, fmt.Errorf("report: insert missing value for column %s", column)
		}
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("report: insert: %w", err)
	}
	defer s.pool.Put(conn)

	createdAt := s.clock.Now().UTC()

	columns := []string{"author_id", "created_at", "status"}
	args := []any{authorID, createdAt.Format(time.RFC3339), StatusPending}
	for _, column := range s.columns {
		columns = append(columns, column)
		args = append(args, values[column])
	}

	insert := fmt.Sprintf("INSERT INTO reports (%s) VALUES (%s)",
		strings.Join(columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return Report{}, fmt.Errorf("report: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	if err = sqlitex.Execute(conn, insert, &sqlitex.ExecOptions{Args: args}); err != nil {
		return Report{}, fmt.Errorf("report: insert: %w", err)
	}

	id := conn.LastInsertRowID()
	s.logger.Info("report stored", "report_id", id, "author_id", authorID)

	inserted := Report{
		ID:        id,
		AuthorID:  authorID,
		CreatedAt: createdAt,
		Status:    StatusPending,
		Values:    make(map[string]string, len(s.columns)),
	}
	for _, column := range s.columns {
		inserted.Values[column] = values[column]
	}
	return inserted, nil
}

// ListRecent returns up to limit reports, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 10
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: list recent: %w", err)
	}
	defer s.pool.Put(conn)

	columns := []string{"id", "author_id", "created_at", "status"}
	columns = append(columns, s.columns...)

	query := fmt.Sprintf("SELECT %s FROM reports ORDER BY id DESC LIMIT ?",
		strings.Join(columns, ", "))

	var reports []Report
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{limit},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			createdAt, parseErr := time.Parse(time.RFC3339, stmt.ColumnText(2))
			if parseErr != nil {
				return fmt.Errorf("report: row %d created_at: %w", stmt.ColumnInt64(0), parseErr)
			}
			row := Report{
				ID:        stmt.ColumnInt64(0),
				AuthorID:  stmt.ColumnInt64(1),
				CreatedAt: createdAt,
				Status:    stmt.ColumnText(3),
				Values:    make(map[string]string, len(s.columns)),
			}
			for i, column := range s.columns {
				row.Values[column] = stmt.ColumnText(4 + i)
			}
			reports = append(reports, row)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("report: list recent: %w", err)
	}
	return reports, nil
}

// SetStatus updates a report's workflow status. Fails when the report
// does not exist or the status is unknown.
func (s *Store) SetStatus(ctx context.Context, id int64, status string) error {
	if status != StatusPending && status != StatusDone {
		return fmt.Errorf("report: unknown status %q", status)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("report: set status: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "UPDATE reports SET status = ? WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{status, id},
	})
	if err != nil {
		return fmt.Errorf("report: set status: %w", err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("report: no report with id %d", id)
	}
	return nil
}

// Count returns the total number of stored reports.
func (s *Store) Count(ctx context.Context) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("report: count: %w", err)
	}
	defer s.pool.Put(conn)

	count := 0
	err = sqlitex.Execute(conn, "SELECT COUNT(*) FROM reports", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("report: count: %w", err)
	}
	return count, nil
}

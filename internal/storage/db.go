// Package storage persists bot data in SQLite and exposes it to handlers
// through scoped units of work.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/garyellow/chatbot-go/internal/config"
	domerrors "github.com/garyellow/chatbot-go/internal/errors"
	"github.com/garyellow/chatbot-go/internal/metrics"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps the SQLite connection pool.
type DB struct {
	conn    *sql.DB
	path    string
	metrics *metrics.Metrics
	txCount atomic.Int64
}

// New opens the database at dbPath, applies connection pragmas and creates
// the schema.
func New(ctx context.Context, dbPath string) (*DB, error) {
	inMemory := dbPath == MemoryPath
	if !inMemory {
		if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", buildDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to :memory: would be a separate database.
	if inMemory {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(4)
		conn.SetMaxIdleConns(2)
	}
	conn.SetConnMaxLifetime(config.DatabaseConnMaxLifetime)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := InitSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// NewTestDB opens an isolated in-memory database for tests.
func NewTestDB() (*DB, error) {
	return New(context.Background(), MemoryPath)
}

// buildDSN attaches per-connection pragmas so every pooled connection gets
// them, not only the first.
func buildDSN(dbPath string) string {
	pragmas := []string{
		fmt.Sprintf("busy_timeout(%d)", config.DatabaseBusyTimeout.Milliseconds()),
		"foreign_keys(1)",
	}
	if dbPath != MemoryPath {
		pragmas = append(pragmas, "journal_mode(WAL)", "synchronous(NORMAL)")
	}

	var b strings.Builder
	b.WriteString("file:")
	b.WriteString(dbPath)
	for i, p := range pragmas {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString("_pragma=")
		b.WriteString(p)
	}
	return b.String()
}

// SetMetrics attaches a recorder for transaction outcomes.
func (db *DB) SetMetrics(m *metrics.Metrics) {
	db.metrics = m
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Ping checks that the database is reachable. Used by the readiness probe.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Transactions returns how many units of work have been opened.
func (db *DB) Transactions() int64 {
	return db.txCount.Load()
}

// WithSession runs fn inside one transaction. The transaction commits when
// fn returns nil and rolls back when fn returns an error or panics. A panic
// is re-raised after the rollback. Errors from the store itself come back as
// *errors.StoreError; errors returned by fn pass through unchanged.
func (db *DB) WithSession(ctx context.Context, fn func(s *Session) error) error {
	start := time.Now()
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		db.metrics.RecordStoreTransaction("begin_error")
		return domerrors.NewStoreError("begin", err)
	}
	db.txCount.Add(1)

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "failed to roll back transaction", "error", rbErr)
		}
		db.metrics.RecordStoreTransaction("rollback")
	}()

	if err := fn(&Session{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return domerrors.NewStoreError("commit", err)
	}
	committed = true
	db.metrics.RecordStoreTransaction("commit")

	if d := time.Since(start); d > config.SlowQueryThreshold {
		slog.WarnContext(ctx, "slow database transaction",
			"duration_ms", d.Milliseconds())
	}
	return nil
}

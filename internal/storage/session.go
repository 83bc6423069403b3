package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domerrors "github.com/garyellow/chatbot-go/internal/errors"
)

// Entity is one row keyed by column name.
type Entity map[string]any

// String returns the named column as a string, or "" when absent.
func (e Entity) String(col string) string {
	switch v := e[col].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the named column as an int64, or 0 when absent.
func (e Entity) Int(col string) int64 {
	if v, ok := e[col].(int64); ok {
		return v
	}
	return 0
}

// Session is a unit of work bound to one transaction. It is only valid
// inside the callback passed to DB.WithSession.
type Session struct {
	tx *sql.Tx
}

// GetEntity loads the row of table whose key column equals key.
// Returns ErrNotFound when no row matches.
func (s *Session) GetEntity(ctx context.Context, table, key string) (Entity, error) {
	keyCol, ok := entityKeys[table]
	if !ok {
		return nil, domerrors.NewValidationError("table", "unknown table "+table)
	}
	rows, err := s.Query(ctx, fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", table, keyCol), key)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %q: %w", table, key, domerrors.ErrNotFound)
	}
	return rows[0], nil
}

// Query runs an ad-hoc read and returns every row.
func (s *Session) Query(ctx context.Context, query string, args ...any) ([]Entity, error) {
	rows, err := s.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domerrors.NewStoreError("query", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, domerrors.NewStoreError("query", err)
	}

	var out []Entity
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, domerrors.NewStoreError("scan", err)
		}
		row := make(Entity, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = vals[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, domerrors.NewStoreError("query", err)
	}
	return out, nil
}

// Exec runs a write and returns the number of affected rows.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, domerrors.NewStoreError("exec", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domerrors.NewStoreError("exec", err)
	}
	return n, nil
}

func (s *Session) queryRow(ctx context.Context, op string, query string, args []any, dest ...any) error {
	err := s.tx.QueryRowContext(ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return domerrors.ErrNotFound
	}
	return domerrors.NewStoreError(op, err)
}

package storage

import (
	"context"
	"database/sql"
	"errors"

	domerrors "github.com/garyellow/chatbot-go/internal/errors"
)

// Authorizer decides whether a user may run privileged commands. Configured
// admins are always allowed; anyone else must be in approved_users.
type Authorizer struct {
	db     *DB
	admins map[string]struct{}
}

// NewAuthorizer builds an Authorizer. db may be nil, in which case only
// admins are approved.
func NewAuthorizer(db *DB, admins []string) *Authorizer {
	set := make(map[string]struct{}, len(admins))
	for _, id := range admins {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return &Authorizer{db: db, admins: set}
}

// IsAdmin reports whether userID is a configured admin.
func (a *Authorizer) IsAdmin(userID string) bool {
	_, ok := a.admins[userID]
	return ok
}

// IsApproved reports whether userID may run privileged commands. It reads
// outside any unit of work.
func (a *Authorizer) IsApproved(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if a.IsAdmin(userID) {
		return true, nil
	}
	if a.db == nil {
		return false, nil
	}
	var one int
	err := a.db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM approved_users WHERE user_id = ?`, userID).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, domerrors.NewStoreError("authorize", err)
	}
	return true, nil
}

package storage

import (
	"context"
	"time"

	domerrors "github.com/garyellow/chatbot-go/internal/errors"
)

// User is a cached chat-platform profile.
type User struct {
	ID          string
	Name        string
	RealName    string
	DisplayName string
	UpdatedAt   time.Time
}

// Quote is a saved message.
type Quote struct {
	ID        int64
	Text      string
	Author    string
	AddedBy   string
	CreatedAt time.Time
}

// Emoji maps a short name to an image URL.
type Emoji struct {
	Name      string
	URL       string
	AddedBy   string
	CreatedAt time.Time
}

// ReactionCount is how often a reaction has been used.
type ReactionCount struct {
	Reaction string
	Count    int64
}

// Score is one user's game total.
type Score struct {
	UserID string
	Score  int64
}

// Setting is an admin-managed key/value pair.
type Setting struct {
	Key       string
	Value     string
	UpdatedBy string
}

// SaveUser inserts or updates a user profile.
func (s *Session) SaveUser(ctx context.Context, u User) error {
	_, err := s.Exec(ctx, `
		INSERT INTO users (user_id, name, real_name, display_name, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			real_name = excluded.real_name,
			display_name = excluded.display_name,
			updated_at = excluded.updated_at`,
		u.ID, u.Name, u.RealName, u.DisplayName, time.Now().Unix())
	return err
}

// GetUser returns the cached profile for id.
func (s *Session) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	var updated int64
	err := s.queryRow(ctx, "get user",
		`SELECT user_id, name, real_name, display_name, updated_at FROM users WHERE user_id = ?`,
		[]any{id}, &u.ID, &u.Name, &u.RealName, &u.DisplayName, &updated)
	if err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Unix(updated, 0)
	return &u, nil
}

// AddQuote saves a quote and returns its id.
func (s *Session) AddQuote(ctx context.Context, text, author, addedBy string) (int64, error) {
	if text == "" {
		return 0, domerrors.NewValidationError("text", "quote is empty")
	}
	var id int64
	err := s.queryRow(ctx, "add quote",
		`INSERT INTO quotes (text, author, added_by, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		[]any{text, author, addedBy, time.Now().Unix()}, &id)
	return id, err
}

// RandomQuote returns one saved quote at random.
func (s *Session) RandomQuote(ctx context.Context) (*Quote, error) {
	var q Quote
	var created int64
	err := s.queryRow(ctx, "random quote",
		`SELECT id, text, author, added_by, created_at FROM quotes ORDER BY RANDOM() LIMIT 1`,
		nil, &q.ID, &q.Text, &q.Author, &q.AddedBy, &created)
	if err != nil {
		return nil, err
	}
	q.CreatedAt = time.Unix(created, 0)
	return &q, nil
}

// CountQuotes returns the number of saved quotes.
func (s *Session) CountQuotes(ctx context.Context) (int64, error) {
	var n int64
	err := s.queryRow(ctx, "count quotes", `SELECT COUNT(*) FROM quotes`, nil, &n)
	return n, err
}

// AddEmoji registers a new emoji. Names are unique.
func (s *Session) AddEmoji(ctx context.Context, e Emoji) error {
	if e.Name == "" || e.URL == "" {
		return domerrors.NewValidationError("emoji", "name and url are required")
	}
	if _, err := s.GetEmoji(ctx, e.Name); err == nil {
		return domerrors.NewValidationError("name", "emoji "+e.Name+" already exists")
	} else if !domerrors.IsNotFound(err) {
		return err
	}
	_, err := s.Exec(ctx,
		`INSERT INTO emoji (name, url, added_by, created_at) VALUES (?, ?, ?, ?)`,
		e.Name, e.URL, e.AddedBy, time.Now().Unix())
	return err
}

// GetEmoji looks up an emoji by name.
func (s *Session) GetEmoji(ctx context.Context, name string) (*Emoji, error) {
	var e Emoji
	var created int64
	err := s.queryRow(ctx, "get emoji",
		`SELECT name, url, added_by, created_at FROM emoji WHERE name = ?`,
		[]any{name}, &e.Name, &e.URL, &e.AddedBy, &created)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = time.Unix(created, 0)
	return &e, nil
}

// IncrementReaction bumps the counter for reaction and returns the new total.
func (s *Session) IncrementReaction(ctx context.Context, reaction string) (int64, error) {
	var n int64
	err := s.queryRow(ctx, "increment reaction", `
		INSERT INTO reaction_counts (reaction, count) VALUES (?, 1)
		ON CONFLICT(reaction) DO UPDATE SET count = count + 1
		RETURNING count`,
		[]any{reaction}, &n)
	return n, err
}

// TopReactions returns the most used reactions, highest first.
func (s *Session) TopReactions(ctx context.Context, limit int) ([]ReactionCount, error) {
	rows, err := s.Query(ctx,
		`SELECT reaction, count FROM reaction_counts ORDER BY count DESC, reaction ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ReactionCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, ReactionCount{Reaction: r.String("reaction"), Count: r.Int("count")})
	}
	return out, nil
}

// AddScore adds delta to a user's score and returns the new total.
func (s *Session) AddScore(ctx context.Context, userID string, delta int64) (int64, error) {
	var n int64
	err := s.queryRow(ctx, "add score", `
		INSERT INTO scores (user_id, score, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			score = score + excluded.score,
			updated_at = excluded.updated_at
		RETURNING score`,
		[]any{userID, delta, time.Now().Unix()}, &n)
	return n, err
}

// TopScores returns the leaderboard, highest first.
func (s *Session) TopScores(ctx context.Context, limit int) ([]Score, error) {
	rows, err := s.Query(ctx,
		`SELECT user_id, score FROM scores ORDER BY score DESC, user_id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Score, 0, len(rows))
	for _, r := range rows {
		out = append(out, Score{UserID: r.String("user_id"), Score: r.Int("score")})
	}
	return out, nil
}

// SetSetting stores value under key.
func (s *Session) SetSetting(ctx context.Context, key, value, updatedBy string) error {
	if key == "" {
		return domerrors.NewValidationError("key", "setting key is empty")
	}
	_, err := s.Exec(ctx, `
		INSERT INTO settings (key, value, updated_by, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`,
		key, value, updatedBy, time.Now().Unix())
	return err
}

// GetSetting returns the value stored under key.
func (s *Session) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.queryRow(ctx, "get setting", `SELECT value FROM settings WHERE key = ?`, []any{key}, &v)
	return v, err
}

// ListSettings returns every setting ordered by key.
func (s *Session) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := s.Query(ctx, `SELECT key, value, updated_by FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	out := make([]Setting, 0, len(rows))
	for _, r := range rows {
		out = append(out, Setting{Key: r.String("key"), Value: r.String("value"), UpdatedBy: r.String("updated_by")})
	}
	return out, nil
}

// Approve grants userID access to privileged commands.
func (s *Session) Approve(ctx context.Context, userID, approvedBy string) error {
	if userID == "" {
		return domerrors.NewValidationError("user_id", "user id is empty")
	}
	_, err := s.Exec(ctx, `
		INSERT INTO approved_users (user_id, approved_by, approved_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		userID, approvedBy, time.Now().Unix())
	return err
}

// IsApproved reports whether userID has been approved.
func (s *Session) IsApproved(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.queryRow(ctx, "is approved",
		`SELECT 1 FROM approved_users WHERE user_id = ?`, []any{userID}, &one)
	if domerrors.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

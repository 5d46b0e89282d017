package store

import (
	"context"
	"time"

	"github.com/pavelanni/tutorquiz/internal/model"
)

// TouchUser records a caller, refreshing their display name, role and last-seen time.
func (s *Store) TouchUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, display_name, role, last_seen_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, role = excluded.role,
		 last_seen_at = excluded.last_seen_at`,
		u.ID, u.DisplayName, u.Role, time.Now().UTC(),
	)
	return err
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, role, last_seen_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.DisplayName, &u.Role, &u.LastSeenAt)
	if err != nil {
		return model.User{}, notFound(err)
	}
	return u, nil
}

// UserCount returns the total number of users.
func (s *Store) UserCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

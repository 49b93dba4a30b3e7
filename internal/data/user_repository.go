package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrUserNotFound is returned when no user matches a lookup.
var ErrUserNotFound = errors.New("user not found")

// SQLUserRepository reads and writes users with sqlx.
type SQLUserRepository struct {
	db *sqlx.DB
}

// NewSQLUserRepository creates a new SQLUserRepository.
func NewSQLUserRepository(db *sqlx.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

// FindBySubject retrieves a single user by its authentication subject.
func (r *SQLUserRepository) FindBySubject(ctx context.Context, subject string) (*User, error) {
	var user User
	query := r.db.Rebind(`SELECT id, subject, display_name, auth_hash, is_active, created_at FROM users WHERE subject = ?`)
	if err := r.db.GetContext(ctx, &user, query, subject); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by subject: %w", err)
	}
	return &user, nil
}

// CreateUser inserts a new user and sets its ID.
func (r *SQLUserRepository) CreateUser(ctx context.Context, user *User) error {
	query := `INSERT INTO users (subject, display_name, auth_hash, is_active) VALUES (:subject, :display_name, :auth_hash, :is_active)`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("failed to execute create user query: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted user id: %w", err)
	}
	user.ID = id
	return nil
}

// SetActive enables or disables the user with the given subject.
func (r *SQLUserRepository) SetActive(ctx context.Context, subject string, active bool) error {
	query := r.db.Rebind(`UPDATE users SET is_active = ? WHERE subject = ?`)
	result, err := r.db.ExecContext(ctx, query, active, subject)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

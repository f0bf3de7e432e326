package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	authcore "github.com/pagelinkhq/authcore"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	email           TEXT NOT NULL,
	username        TEXT NOT NULL,
	email_verified  BOOLEAN NOT NULL DEFAULT FALSE,
	onboarding_step INTEGER NOT NULL DEFAULT 0,
	category        TEXT,
	is_active       BOOLEAN NOT NULL DEFAULT TRUE,
	last_login_at   TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email);
CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (username);

CREATE TABLE IF NOT EXISTS username_history (
	old_username TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL REFERENCES users (id),
	expires_at   TIMESTAMPTZ NOT NULL
);
`

type userRow struct {
	ID             string         `db:"id"`
	Email          string         `db:"email"`
	Username       string         `db:"username"`
	EmailVerified  bool           `db:"email_verified"`
	OnboardingStep int            `db:"onboarding_step"`
	Category       sql.NullString `db:"category"`
	IsActive       bool           `db:"is_active"`
	LastLoginAt    sql.NullTime   `db:"last_login_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type historyRow struct {
	OldUsername string    `db:"old_username"`
	UserID      string    `db:"user_id"`
	ExpiresAt   time.Time `db:"expires_at"`
}

// Store is a PostgreSQL-backed authcore.UserStore.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects and pings.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(db), nil
}

// EnsureSchema creates the tables and indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*authcore.User, error) {
	return s.getUser(ctx, `SELECT * FROM users WHERE id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*authcore.User, error) {
	return s.getUser(ctx, `SELECT * FROM users WHERE email = $1`, email)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*authcore.User, error) {
	return s.getUser(ctx, `SELECT * FROM users WHERE username = $1`, username)
}

func (s *Store) getUser(ctx context.Context, query, arg string) (*authcore.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authcore.ErrUserNotFound
		}
		return nil, err
	}
	return rowToUser(&row), nil
}

func (s *Store) CreateUser(ctx context.Context, user *authcore.User) error {
	row := userToRow(user)
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, email, username, email_verified, onboarding_step,
			category, is_active, last_login_at, created_at, updated_at)
		VALUES (:id, :email, :username, :email_verified, :onboarding_step,
			:category, :is_active, :last_login_at, :created_at, :updated_at)`, row)
	return mapError(err)
}

func (s *Store) UpdateUser(ctx context.Context, user *authcore.User) error {
	row := userToRow(user)
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE users SET email = :email, username = :username,
			email_verified = :email_verified, onboarding_step = :onboarding_step,
			category = :category, is_active = :is_active,
			last_login_at = :last_login_at, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
	return exists, err
}

func (s *Store) ClaimUsername(ctx context.Context, userID, username string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET username = $1, updated_at = NOW() WHERE id = $2`,
		username, userID)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

// ArchiveUsername upserts the redirect row. A re-archived name points at its
// latest holder with a fresh expiry.
func (s *Store) ArchiveUsername(ctx context.Context, entry authcore.UsernameHistory) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO username_history (old_username, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (old_username)
		DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at`,
		entry.OldUsername, entry.UserID, entry.ExpiresAt)
	return err
}

func (s *Store) GetUsernameHistory(ctx context.Context, oldUsername string) (*authcore.UsernameHistory, error) {
	var row historyRow
	err := s.db.GetContext(ctx, &row,
		`SELECT old_username, user_id, expires_at FROM username_history WHERE old_username = $1`,
		oldUsername)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authcore.ErrUsernameNotFound
		}
		return nil, err
	}
	return &authcore.UsernameHistory{
		OldUsername: row.OldUsername,
		UserID:      row.UserID,
		ExpiresAt:   row.ExpiresAt,
	}, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%w: %s", authcore.ErrDuplicate, pqErr.Constraint)
	}
	return err
}

func rowToUser(row *userRow) *authcore.User {
	user := &authcore.User{
		ID:             row.ID,
		Email:          row.Email,
		Username:       row.Username,
		EmailVerified:  row.EmailVerified,
		OnboardingStep: row.OnboardingStep,
		IsActive:       row.IsActive,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.Category.Valid {
		user.Category = authcore.Category(row.Category.String)
	}
	if row.LastLoginAt.Valid {
		user.LastLoginAt = row.LastLoginAt.Time
	}
	return user
}

func userToRow(user *authcore.User) *userRow {
	row := &userRow{
		ID:             user.ID,
		Email:          user.Email,
		Username:       user.Username,
		EmailVerified:  user.EmailVerified,
		OnboardingStep: user.OnboardingStep,
		IsActive:       user.IsActive,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
	if user.Category != authcore.CategoryNone {
		row.Category = sql.NullString{String: string(user.Category), Valid: true}
	}
	if !user.LastLoginAt.IsZero() {
		row.LastLoginAt = sql.NullTime{Time: user.LastLoginAt, Valid: true}
	}
	return row
}

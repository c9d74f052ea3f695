package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// UserService authenticates operators and serves as the Reauthenticator for
// the ledger's password-confirmed delete path.
type UserService interface {
	Authenticate(ctx context.Context, username, password string) (*User, error)
	GetByID(ctx context.Context, id int) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, username, password, fullName, role string) (*User, error)

	Reauthenticator
}

type userService struct {
	pool *pgxpool.Pool
}

func NewUserService(pool *pgxpool.Pool) UserService {
	return &userService{pool: pool}
}

const userColumns = `id, username, password_hash, full_name, role, is_active, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate verifies a login. A missing user and a wrong password produce
// the same error so the response does not reveal which usernames exist.
func (s *userService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrReauthenticationFailed
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrReauthenticationFailed
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrReauthenticationFailed
	}
	return u, nil
}

// VerifyCredential rechecks an already-authenticated user's password. The
// soft-delete path calls this before touching any ledger entry.
func (s *userService) VerifyCredential(ctx context.Context, userID int, password string) error {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrReauthenticationFailed
		}
		return err
	}
	if !u.IsActive {
		return ErrReauthenticationFailed
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return ErrReauthenticationFailed
	}
	return nil
}

func (s *userService) GetByID(ctx context.Context, id int) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "user", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return u, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "user"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return u, nil
}

func (s *userService) Create(ctx context.Context, username, password, fullName, role string) (*User, error) {
	if username == "" {
		return nil, &ValidationError{Field: "username", Message: "username is required"}
	}
	if len(password) < 8 {
		return nil, &ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	if role == "" {
		role = "staff"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u, err := scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		username, string(hash), fullName, role))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", mapPgError(err))
	}
	return u, nil
}

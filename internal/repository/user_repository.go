package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/stanstork/workforce-api/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByID(ctx context.Context, userID string) (models.User, error)
	ListUsers(ctx context.Context, role models.UserRole) ([]models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (u *userRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO tenant.users (id, email, name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, role = EXCLUDED.role
		RETURNING id, email, name, role, created_at`

	row := u.db.QueryRowContext(ctx, query,
		strings.TrimSpace(user.ID),
		strings.ToLower(strings.TrimSpace(user.Email)),
		strings.TrimSpace(user.Name),
		user.Role,
	)
	return scanUser(row)
}

func (u *userRepository) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	const query = `
		SELECT id, email, name, role, created_at
		FROM tenant.users
		WHERE id = $1`
	return scanUser(u.db.QueryRowContext(ctx, query, userID))
}

// ListUsers returns every user, or only those holding role when it is set.
func (u *userRepository) ListUsers(ctx context.Context, role models.UserRole) ([]models.User, error) {
	const query = `
		SELECT id, email, name, role, created_at
		FROM tenant.users
		WHERE $1::text = '' OR role = $1::text
		ORDER BY created_at ASC`

	rows, err := u.db.QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func scanUser(s scanner) (models.User, error) {
	var (
		user models.User
		role string
	)
	if err := s.Scan(&user.ID, &user.Email, &user.Name, &role, &user.CreatedAt); err != nil {
		return models.User{}, err
	}
	user.Role = models.ParseRole(role)
	return user, nil
}

package repository

import (
	"context"

	"github.com/signupform/signup/api/internal/domain"
)

// UserRepository persists users. CreateUser must enforce email uniqueness
// atomically and report a clash as ErrDuplicateEmail; on success it fills in
// user.ID.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CountUsers(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

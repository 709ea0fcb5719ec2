package repository

import (
	"context"
	"errors"

	"github.com/dom/accounts-api/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate username or email")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// GetByUsernameOrEmail matches either column; empty arguments never match.
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	// ExistsOther reports whether a user other than exclude owns username or email.
	ExistsOther(ctx context.Context, exclude uuid.UUID, username, email string) (bool, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error
	// RotateRefreshToken replaces the stored token only if it still equals current.
	RotateRefreshToken(ctx context.Context, id uuid.UUID, current, next string) (bool, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateDetails(ctx context.Context, id uuid.UUID, username, email, fullName string) error
	UpdateAvatar(ctx context.Context, id uuid.UUID, url string) error
	UpdateCoverImage(ctx context.Context, id uuid.UUID, url string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type Repositories struct {
	User UserRepository
}

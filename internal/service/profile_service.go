package service

import (
	"context"
	"errors"
	"strings"

	"github.com/dom/accounts-api/internal/domain"
	"github.com/dom/accounts-api/internal/repository"
	"github.com/dom/accounts-api/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ProfileService struct {
	userRepo repository.UserRepository
	uploader storage.Uploader
}

func NewProfileService(userRepo repository.UserRepository, uploader storage.Uploader) *ProfileService {
	return &ProfileService{
		userRepo: userRepo,
		uploader: uploader,
	}
}

// UpdateDetailsInput contains the editable account fields
type UpdateDetailsInput struct {
	Username string
	Email    string
	FullName string
}

// UpdateAccountDetails changes username, email and full name in one write
func (s *ProfileService) UpdateAccountDetails(ctx context.Context, userID uuid.UUID, input UpdateDetailsInput) (*domain.User, error) {
	username := normalizeUsername(input.Username)
	email := strings.TrimSpace(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	if username == "" || email == "" || fullName == "" {
		return nil, domain.Validation("All fields are required")
	}

	taken, err := s.userRepo.ExistsOther(ctx, userID, username, email)
	if err != nil {
		return nil, domain.Internal("Failed to update account details", err)
	}
	if taken {
		return nil, domain.Conflict("User with this email or username already exists")
	}

	if err := s.userRepo.UpdateDetails(ctx, userID, username, email, fullName); err != nil {
		return nil, s.translate(err, "Failed to update account details")
	}

	return s.reload(ctx, userID)
}

// UpdateAvatar replaces the avatar; the old object is removed best-effort
func (s *ProfileService) UpdateAvatar(ctx context.Context, userID uuid.UUID, file *storage.LocalFile) (*domain.User, error) {
	return s.replaceImage(ctx, userID, file, "Avatar",
		func(u *domain.User) string { return u.Avatar },
		s.userRepo.UpdateAvatar,
	)
}

// UpdateCoverImage replaces the cover image; the old object is removed best-effort
func (s *ProfileService) UpdateCoverImage(ctx context.Context, userID uuid.UUID, file *storage.LocalFile) (*domain.User, error) {
	return s.replaceImage(ctx, userID, file, "Cover image",
		func(u *domain.User) string { return u.CoverImage },
		s.userRepo.UpdateCoverImage,
	)
}

func (s *ProfileService) replaceImage(
	ctx context.Context,
	userID uuid.UUID,
	file *storage.LocalFile,
	label string,
	current func(*domain.User) string,
	save func(context.Context, uuid.UUID, string) error,
) (*domain.User, error) {
	defer file.Release()

	if file == nil {
		return nil, domain.Validation(label + " file is missing")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, s.translate(err, "Failed to update "+strings.ToLower(label))
	}
	previous := current(user)

	url, err := s.uploader.Upload(ctx, file)
	if err != nil || url == "" {
		log.Warn().Err(err).Str("user_id", userID.String()).Msgf("%s upload failed", strings.ToLower(label))
		return nil, domain.Validation("Error while uploading " + strings.ToLower(label))
	}

	if err := save(ctx, userID, url); err != nil {
		return nil, s.translate(err, "Failed to update "+strings.ToLower(label))
	}

	if previous != "" && previous != url {
		if err := s.uploader.Delete(ctx, previous); err != nil {
			log.Warn().Err(err).Str("url", previous).Msg("failed to delete replaced image")
		}
	}

	return s.reload(ctx, userID)
}

func (s *ProfileService) reload(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, s.translate(err, "Failed to load user")
	}
	return user.Sanitized(), nil
}

func (s *ProfileService) translate(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return domain.NotFound("User does not exist")
	case errors.Is(err, repository.ErrDuplicate):
		return domain.Conflict("User with this email or username already exists")
	default:
		return domain.Internal(msg, err)
	}
}

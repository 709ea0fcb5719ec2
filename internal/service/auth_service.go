package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/dom/accounts-api/internal/auth"
	"github.com/dom/accounts-api/internal/domain"
	"github.com/dom/accounts-api/internal/repository"
	"github.com/dom/accounts-api/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AuthService owns the account session lifecycle: registration, login,
// logout, refresh-token rotation and password changes. A user has at most one
// live refresh token, stored on the user record.
type AuthService struct {
	userRepo repository.UserRepository
	hasher   *auth.PasswordHasher
	tokens   TokenIssuer
	uploader storage.Uploader
}

// TokenIssuer signs and verifies session tokens. *auth.TokenIssuer is the
// production implementation.
type TokenIssuer interface {
	IssueAccessToken(userID uuid.UUID) (string, error)
	IssueRefreshToken(userID uuid.UUID) (string, error)
	Verify(tokenString string, kind auth.TokenKind) (*auth.Claims, error)
}

func NewAuthService(userRepo repository.UserRepository, hasher *auth.PasswordHasher, tokens TokenIssuer, uploader storage.Uploader) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		uploader: uploader,
	}
}

type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	FullName   string
	Avatar     *storage.LocalFile
	CoverImage *storage.LocalFile
}

type LoginInput struct {
	Username string
	Email    string
	Password string
}

type ChangePasswordInput struct {
	OldPassword string
	NewPassword string
}

// AuthResult carries a sanitized user and a freshly minted token pair.
type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	defer input.Avatar.Release()
	defer input.CoverImage.Release()

	username := normalizeUsername(input.Username)
	email := strings.TrimSpace(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	if username == "" || email == "" || fullName == "" || strings.TrimSpace(input.Password) == "" {
		return nil, domain.Validation("All fields are required")
	}

	existing, err := s.userRepo.GetByUsernameOrEmail(ctx, username, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Internal("Failed to look up user", err)
	}
	if existing != nil {
		return nil, domain.Conflict("User with this email or username already exists")
	}

	if input.Avatar == nil {
		return nil, domain.Validation("Avatar is required")
	}

	avatarURL, err := s.uploader.Upload(ctx, input.Avatar)
	if err != nil || avatarURL == "" {
		log.Warn().Err(err).Str("username", username).Msg("avatar upload failed")
		return nil, domain.Validation("Avatar upload failed")
	}

	var coverURL string
	if input.CoverImage != nil {
		coverURL, err = s.uploader.Upload(ctx, input.CoverImage)
		if err != nil {
			log.Warn().Err(err).Str("username", username).Msg("cover image upload failed, continuing without it")
			coverURL = ""
		}
	}

	hashed, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		FullName:     fullName,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.discardUploads(ctx, avatarURL, coverURL)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.Conflict("User with this email or username already exists")
		}
		return nil, domain.Internal("Something went wrong while registering the user", err)
	}

	created, err := s.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal("Something went wrong while registering the user", err)
	}

	return created.Sanitized(), nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	username := normalizeUsername(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" && email == "" {
		return nil, domain.Validation("Username or email is required")
	}
	if input.Password == "" {
		return nil, domain.Validation("Password is required")
	}

	user, err := s.userRepo.GetByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("User does not exist")
		}
		return nil, domain.Internal("Failed to look up user", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, domain.Unauthorized("Invalid user credentials")
	}

	access, refresh, err := s.mintPair(user.ID)
	if err != nil {
		return nil, err
	}

	// Overwriting the stored token ends any other session for this account.
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, domain.Internal("Something went wrong while generating tokens", err)
	}
	return &AuthResult{User: user.Sanitized(), AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.SetRefreshToken(ctx, userID, ""); err != nil {
		return domain.Internal("Failed to log out", err)
	}
	return nil
}

func (s *AuthService) RefreshSession(ctx context.Context, presented string) (*AuthResult, error) {
	if presented == "" {
		return nil, domain.Unauthorized("Unauthorized request")
	}

	claims, err := s.tokens.Verify(presented, auth.KindRefresh)
	if err != nil {
		return nil, domain.Unauthorized("Invalid refresh token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, domain.Unauthorized("Invalid refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Unauthorized("Invalid refresh token")
		}
		return nil, domain.Internal("Failed to look up user", err)
	}

	if user.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(presented)) != 1 {
		return nil, domain.Unauthorized("Refresh token is expired or used")
	}

	access, refresh, err := s.mintPair(user.ID)
	if err != nil {
		return nil, err
	}

	rotated, err := s.userRepo.RotateRefreshToken(ctx, user.ID, presented, refresh)
	if err != nil {
		return nil, domain.Internal("Something went wrong while generating tokens", err)
	}
	if !rotated {
		return nil, domain.Unauthorized("Refresh token is expired or used")
	}
	return &AuthResult{User: user.Sanitized(), AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	if input.OldPassword == "" || strings.TrimSpace(input.NewPassword) == "" {
		return domain.Validation("Old and new password are required")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound("User does not exist")
		}
		return domain.Internal("Failed to look up user", err)
	}

	if !s.hasher.Verify(input.OldPassword, user.PasswordHash) {
		return domain.Unauthorized("Invalid old password")
	}

	hashed, err := s.hashPassword(input.NewPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, hashed); err != nil {
		return domain.Internal("Failed to update password", err)
	}
	return nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("User does not exist")
		}
		return nil, domain.Internal("Failed to look up user", err)
	}
	return user.Sanitized(), nil
}

// Authenticate resolves an access token to its user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	if accessToken == "" {
		return nil, domain.Unauthorized("Unauthorized request")
	}

	claims, err := s.tokens.Verify(accessToken, auth.KindAccess)
	if err != nil {
		return nil, domain.Unauthorized("Invalid access token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, domain.Unauthorized("Invalid access token")
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.Unauthorized("Invalid access token")
		}
		return nil, err
	}
	return user, nil
}

// discardUploads removes blobs published for a registration that did not
// complete. Failures are logged only.
func (s *AuthService) discardUploads(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.uploader.Delete(ctx, url); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("failed to delete orphaned upload")
		}
	}
}

// mintPair signs both tokens before anything is written.
func (s *AuthService) mintPair(userID uuid.UUID) (string, string, error) {
	access, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		return "", "", domain.Internal("Something went wrong while generating tokens", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(userID)
	if err != nil {
		return "", "", domain.Internal("Something went wrong while generating tokens", err)
	}
	return access, refresh, nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return "", domain.Validation("Password is too long")
		}
		return "", domain.Internal("Failed to hash password", err)
	}
	return hashed, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

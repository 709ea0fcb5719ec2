package service

import (
	"github.com/dom/accounts-api/internal/auth"
	"github.com/dom/accounts-api/internal/repository"
	"github.com/dom/accounts-api/internal/storage"
)

type Services struct {
	Auth    *AuthService
	Profile *ProfileService
}

func NewServices(repos *repository.Repositories, hasher *auth.PasswordHasher, tokens TokenIssuer, uploader storage.Uploader) *Services {
	return &Services{
		Auth:    NewAuthService(repos.User, hasher, tokens, uploader),
		Profile: NewProfileService(repos.User, uploader),
	}
}

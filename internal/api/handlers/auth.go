package handlers

import (
	"net/http"

	"github.com/dom/accounts-api/internal/api/middleware"
	"github.com/dom/accounts-api/internal/domain"
	"github.com/dom/accounts-api/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	uploads     UploadOptions
	cookies     CookieOptions
}

func NewAuthHandler(authService *service.AuthService, uploads UploadOptions, cookies CookieOptions) *AuthHandler {
	return &AuthHandler{authService: authService, uploads: uploads, cookies: cookies}
}

type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// AuthResponse is the data payload of login and refresh
type AuthResponse struct {
	User         *domain.PublicUser `json:"user,omitempty"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

// Register creates an account from a multipart form with a required avatar
// and an optional cover image.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := h.uploads.parse(w, r); err != nil {
		WriteError(w, r, err)
		return
	}
	defer cleanupForm(r)

	avatar, err := h.uploads.stage(r.MultipartForm, "avatar")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	defer avatar.Release()

	cover, err := h.uploads.stage(r.MultipartForm, "coverImage")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	defer cover.Release()

	user, err := h.authService.Register(r.Context(), service.RegisterInput{
		Username:   r.FormValue("username"),
		Email:      r.FormValue("email"),
		Password:   r.FormValue("password"),
		FullName:   r.FormValue("fullName"),
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user.Public(), "User registered successfully")
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	h.cookies.setSession(w, result.AccessToken, result.RefreshToken)
	writeJSON(w, http.StatusOK, AuthResponse{
		User:         result.User.Public(),
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, "User logged in successfully")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		WriteError(w, r, domain.Unauthorized("Unauthorized request"))
		return
	}

	if err := h.authService.Logout(r.Context(), userID); err != nil {
		WriteError(w, r, err)
		return
	}

	h.cookies.clearSession(w)
	writeJSON(w, http.StatusOK, struct{}{}, "User logged out")
}

// RefreshAccessToken rotates the session. The refresh token comes from the
// refreshToken cookie or, failing that, the JSON body.
func (h *AuthHandler) RefreshAccessToken(w http.ResponseWriter, r *http.Request) {
	var presented string
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = c.Value
	}
	if presented == "" && r.ContentLength != 0 {
		var req RefreshRequest
		if err := decodeJSON(r, &req); err == nil {
			presented = req.RefreshToken
		}
	}

	result, err := h.authService.RefreshSession(r.Context(), presented)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	h.cookies.setSession(w, result.AccessToken, result.RefreshToken)
	writeJSON(w, http.StatusOK, AuthResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, "Access token refreshed")
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		WriteError(w, r, domain.Unauthorized("Unauthorized request"))
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.authService.ChangePassword(r.Context(), userID, service.ChangePasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	}); err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{}, "Password changed successfully")
}

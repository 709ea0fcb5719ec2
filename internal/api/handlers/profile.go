package handlers

import (
	"context"
	"net/http"

	"github.com/dom/accounts-api/internal/api/middleware"
	"github.com/dom/accounts-api/internal/domain"
	"github.com/dom/accounts-api/internal/service"
	"github.com/dom/accounts-api/internal/storage"
	"github.com/google/uuid"
)

type ProfileHandler struct {
	profileService *service.ProfileService
	uploads        UploadOptions
}

func NewProfileHandler(profileService *service.ProfileService, uploads UploadOptions) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, uploads: uploads}
}

// UpdateDetailsRequest is the request body for changing account details
type UpdateDetailsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// GetUser returns the authenticated user
func (h *ProfileHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		WriteError(w, r, domain.Unauthorized("Unauthorized request"))
		return
	}

	writeJSON(w, http.StatusOK, user.Public(), "User fetched successfully")
}

func (h *ProfileHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		WriteError(w, r, domain.Unauthorized("Unauthorized request"))
		return
	}

	var req UpdateDetailsRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.profileService.UpdateAccountDetails(r.Context(), userID, service.UpdateDetailsInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user.Public(), "Account details updated successfully")
}

func (h *ProfileHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.profileService.UpdateAvatar, "Avatar updated successfully")
}

func (h *ProfileHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.profileService.UpdateCoverImage, "Cover image updated successfully")
}

func (h *ProfileHandler) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(context.Context, uuid.UUID, *storage.LocalFile) (*domain.User, error),
	message string,
) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		WriteError(w, r, domain.Unauthorized("Unauthorized request"))
		return
	}

	file, err := h.uploads.stageSingle(w, r, field)
	defer cleanupForm(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	defer file.Release()

	user, err := update(r.Context(), userID, file)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user.Public(), message)
}

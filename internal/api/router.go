package api

import (
	"net/http"
	"time"

	"github.com/dom/accounts-api/internal/api/handlers"
	"github.com/dom/accounts-api/internal/api/middleware"
	"github.com/dom/accounts-api/internal/config"
	"github.com/dom/accounts-api/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(services *service.Services, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	uploads := handlers.UploadOptions{
		TempDir:  cfg.UploadTempDir,
		MaxBytes: cfg.MaxUploadBytes,
	}
	cookies := handlers.CookieOptions{
		Secure:     cfg.CookieSecure,
		AccessTTL:  cfg.AccessTokenExpiry,
		RefreshTTL: cfg.RefreshTokenExpiry,
	}

	authHandler := handlers.NewAuthHandler(services.Auth, uploads, cookies)
	profileHandler := handlers.NewProfileHandler(services.Profile, uploads)

	// API v1 routes
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refreshAccessToken", authHandler.RefreshAccessToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth))

			r.Post("/logout", authHandler.Logout)
			r.Post("/changePassword", authHandler.ChangePassword)
			r.Get("/getUser", profileHandler.GetUser)
			r.Post("/update-details", profileHandler.UpdateDetails)
			r.Post("/updateAvatar", profileHandler.UpdateAvatar)
			r.Post("/updateCoverImage", profileHandler.UpdateCoverImage)
		})
	})

	return r
}

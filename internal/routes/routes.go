package routes

import (
	"log/slog"
	"net/http"

	"github.com/BradenHooton/labsy/internal/auth"
	"github.com/BradenHooton/labsy/internal/handlers"
	"github.com/BradenHooton/labsy/internal/middleware"
	"github.com/BradenHooton/labsy/internal/models"
	"github.com/go-chi/chi/v5"
)

// Handlers groups the HTTP handlers served by the API
type Handlers struct {
	Auth    *handlers.AuthHandler
	User    *handlers.UserHandler
	Admin   *handlers.AdminHandler
	Catalog *handlers.CatalogHandler
	Upload  *handlers.UploadHandler
	Health  *handlers.HealthHandler
}

// Guards holds what the authentication pipeline needs
type Guards struct {
	Verifier  auth.IdentityVerifier
	Accounts  auth.AccountLoader
	RateLimit middleware.RateLimitConfig
	Logger    *slog.Logger
}

// RegisterRoutes registers all application routes. static, when non-nil, serves locally stored
// uploads under /uploads/.
func RegisterRoutes(router chi.Router, h Handlers, g Guards, static http.Handler) {
	authenticate := auth.Authenticate(g.Verifier, g.Logger)
	loadAccount := auth.LoadAccount(g.Accounts, g.Logger)
	rateLimit := middleware.RateLimitByIP(g.RateLimit)

	router.Get("/health", h.Health.Health)

	// Token endpoints - rate limited per client IP
	router.Group(func(r chi.Router) {
		r.Use(rateLimit)
		r.Post("/auth/verify", h.Auth.Verify)
		r.Post("/auth/complete-registration", h.Auth.CompleteRegistration)
	})

	// Identity without an account yet
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Use(auth.RequireNoAccount(g.Accounts, g.Logger))
		r.Post("/users/register/customer", h.User.RegisterCustomer)
		r.Post("/users/register/creator", h.User.RegisterCreator)
	})

	// Any active account
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Use(loadAccount)

		r.Get("/auth/me", h.Auth.Me)

		r.Get("/users/profile", h.User.GetProfile)
		r.Put("/users/profile", h.User.UpdateProfile)
		r.Post("/users/profile/picture", h.User.UploadProfilePicture)
		r.Delete("/users/profile/picture", h.User.DeleteProfilePicture)

		r.Post("/uploads/file", h.Upload.UploadFile)
	})

	// Admin console
	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(loadAccount)
		r.Use(auth.RequireRole(models.RoleAdmin))

		r.Post("/users/factory", h.Admin.CreateFactory)
		r.With(auth.RequireAdminLevel(models.AdminLevelSuperAdmin)).Post("/users/admin", h.Admin.CreateAdmin)
		r.Get("/users", h.Admin.ListUsers)
		r.Get("/users/{id}", h.Admin.GetUser)
		r.Put("/users/{id}/status", h.Admin.UpdateUserStatus)
		r.Delete("/users/{id}", h.Admin.DeleteUser)
	})

	router.Route("/catalog", func(r chi.Router) {
		// Public
		r.Get("/", h.Catalog.ListProducts)
		r.Get("/search/{query}", h.Catalog.SearchProducts)
		r.Get("/category/{category}", h.Catalog.ListByCategory)
		r.Get("/brand/{brand}", h.Catalog.ListByBrand)
		r.Get("/stats/overview", h.Catalog.StatsOverview)
		r.Get("/stats/basic", h.Catalog.StatsBasic)
		r.Get("/{id}", h.Catalog.GetProduct)

		// Admin-only writes
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(loadAccount)
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Post("/", h.Catalog.CreateProduct)
			r.Patch("/{id}", h.Catalog.UpdateProduct)
			r.Delete("/{id}", h.Catalog.RemoveProduct)
			r.Delete("/{id}/hard", h.Catalog.HardDeleteProduct)
			r.Patch("/{id}/restore", h.Catalog.RestoreProduct)
		})
	})

	if static != nil {
		router.Method(http.MethodGet, "/uploads/*", http.StripPrefix("/uploads/", static))
	}
}

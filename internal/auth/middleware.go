package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/labsy/internal/models"
	pkghttp "github.com/BradenHooton/labsy/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// IdentityContextKey holds the verified *Identity of the request
	IdentityContextKey contextKey = "identity"
	// AccountContextKey holds the loaded *models.Account of the request
	AccountContextKey contextKey = "account"
)

// AccountLoader finds the account bound to a verified identity.
type AccountLoader interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.Account, error)
}

// Authenticate verifies the bearer token and stores the identity in the request context.
func Authenticate(verifier IdentityVerifier, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := pkghttp.BearerToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, "Missing or invalid authorization header")
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Debug("token verification failed", slog.Any("error", err))
				pkghttp.WriteUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// LoadAccount loads the active account of the authenticated identity. It must run after
// Authenticate.
func LoadAccount(accounts AccountLoader, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentityFromContext(r)
			if identity == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			account, err := accounts.GetByExternalID(r.Context(), identity.ExternalID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "User not found")
					return
				}
				logger.Error("failed to load account",
					slog.String("external_id", identity.ExternalID),
					slog.Any("error", err),
				)
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}

			if !account.IsActive() {
				pkghttp.WriteUnauthorized(w, "Account is not active")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
		})
	}
}

// RequireRole rejects accounts of any other role. It must run after LoadAccount.
func RequireRole(role models.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := GetAccountFromContext(r)
			if account == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			if account.Role != role {
				if role == models.RoleAdmin {
					pkghttp.WriteForbidden(w, "Admin access required")
					return
				}
				pkghttp.WriteForbidden(w, "forbidden: insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminLevel rejects admins ranked below level. It must run after RequireRole(admin).
func RequireAdminLevel(level models.AdminLevel) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := GetAccountFromContext(r)
			if account == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			admin, ok := account.Admin()
			if !ok || admin.AdminLevel.Rank() < level.Rank() {
				if level == models.AdminLevelSuperAdmin {
					pkghttp.WriteForbidden(w, "Super admin access required")
					return
				}
				pkghttp.WriteForbidden(w, "forbidden: insufficient admin level")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireNoAccount lets through only identities without an account, for self-registration.
func RequireNoAccount(accounts AccountLoader, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentityFromContext(r)
			if identity == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			_, err := accounts.GetByExternalID(r.Context(), identity.ExternalID)
			switch {
			case err == nil:
				pkghttp.WriteConflict(w, "User already registered")
				return
			case !errors.Is(err, models.ErrNotFound):
				logger.Error("failed to check existing account",
					slog.String("external_id", identity.ExternalID),
					slog.Any("error", err),
				)
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a copy of ctx carrying the identity.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

// WithAccount returns a copy of ctx carrying the account.
func WithAccount(ctx context.Context, account *models.Account) context.Context {
	return context.WithValue(ctx, AccountContextKey, account)
}

// GetIdentityFromContext extracts the verified identity from the request context
func GetIdentityFromContext(r *http.Request) *Identity {
	identity, ok := r.Context().Value(IdentityContextKey).(*Identity)
	if !ok {
		return nil
	}
	return identity
}

// GetAccountFromContext extracts the loaded account from the request context
func GetAccountFromContext(r *http.Request) *models.Account {
	account, ok := r.Context().Value(AccountContextKey).(*models.Account)
	if !ok {
		return nil
	}
	return account
}

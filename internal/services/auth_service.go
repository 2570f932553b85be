package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/labsy/internal/auth"
	"github.com/BradenHooton/labsy/internal/models"
	"github.com/BradenHooton/labsy/internal/repositories"
	"github.com/BradenHooton/labsy/pkg/logger"
)

// AccountRepository defines the account data access used by the services.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetPendingByEmail(ctx context.Context, email string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) (*models.Account, error)
	Claim(ctx context.Context, id string, identity repositories.ClaimIdentity) (*models.Account, error)
	List(ctx context.Context, filter models.AccountFilter) ([]*models.Account, int64, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
}

// ManagedURLs recognises URLs of objects the API stored itself.
type ManagedURLs interface {
	KeyFromURL(url string) (string, bool)
}

// AuthService resolves verified identities to local accounts.
type AuthService struct {
	verifier auth.IdentityVerifier
	accounts AccountRepository
	managed  ManagedURLs
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService. managed may be nil, in which case the
// provider picture always replaces the stored one on login.
func NewAuthService(verifier auth.IdentityVerifier, accounts AccountRepository, managed ManagedURLs, logger *slog.Logger) *AuthService {
	return &AuthService{
		verifier: verifier,
		accounts: accounts,
		managed:  managed,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// VerifyToken verifies a provider token and returns the synced account, creating a
// customer account on first sight. Suspended and deleted accounts are refused after
// the sync.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*models.Account, error) {
	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		s.logger.Info("token verification failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	account, err := s.Resolve(ctx, identity, models.RoleCustomer)
	if err != nil {
		return nil, err
	}

	switch account.Status {
	case models.StatusSuspended:
		return nil, models.ErrAccountSuspended
	case models.StatusDeleted:
		return nil, models.ErrAccountInactive
	}

	return account, nil
}

// Resolve finds the account bound to the identity and refreshes it from the provider.
// Without a bound account it claims a pending invitation for the same email, or creates
// a new account of defaultRole. Only self-service roles can be created this way.
func (s *AuthService) Resolve(ctx context.Context, identity *auth.Identity, defaultRole models.Role) (*models.Account, error) {
	account, err := s.accounts.GetByExternalID(ctx, identity.ExternalID)
	if err == nil {
		return s.sync(ctx, account, identity)
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to get account by external id", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if identity.Email != "" {
		pending, err := s.accounts.GetPendingByEmail(ctx, identity.Email)
		switch {
		case err == nil:
			return s.claim(ctx, pending, identity)
		case !errors.Is(err, models.ErrNotFound):
			s.logger.Error("failed to look up invitation",
				slog.String("email", logger.SanitizedEmail(identity.Email)),
				slog.Any("error", err),
			)
			return nil, models.ErrInternalServer
		}
	}

	return s.create(ctx, identity, defaultRole)
}

// CompleteRegistration claims the pending invitation for email with the identity in
// token. The token must carry the same, verified email.
func (s *AuthService) CompleteRegistration(ctx context.Context, token, email string) (*models.Account, error) {
	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		s.logger.Info("token verification failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if identity.Email == "" || !strings.EqualFold(identity.Email, email) {
		return nil, models.ErrEmailMismatch
	}
	if !identity.EmailVerified {
		return nil, models.ErrEmailNotVerified
	}

	if _, err := s.accounts.GetByExternalID(ctx, identity.ExternalID); err == nil {
		s.logger.Info("identity already linked to an account", slog.String("email", logger.SanitizedEmail(email)))
		return nil, fmt.Errorf("%w: this sign-in is already linked to an account", models.ErrConflict)
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to get account by external id", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	pending, err := s.accounts.GetPendingByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("no pending invitation", slog.String("email", logger.SanitizedEmail(email)))
			return nil, fmt.Errorf("%w: no pending invitation for this email", models.ErrNotFound)
		}
		s.logger.Error("failed to look up invitation", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return s.claim(ctx, pending, identity)
}

func (s *AuthService) sync(ctx context.Context, account *models.Account, identity *auth.Identity) (*models.Account, error) {
	if identity.Email != "" {
		account.Email = identity.Email
	}
	if identity.DisplayName != "" {
		account.DisplayName = identity.DisplayName
	}
	account.EmailVerified = identity.EmailVerified
	if identity.PictureURL != "" && !s.isManaged(account.ProfileImageURL) {
		account.ProfileImageURL = identity.PictureURL
	}
	now := s.now()
	account.LastLoginAt = &now
	account.RefreshCompletion()

	updated, err := s.accounts.Update(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("provider email already used by another account", slog.String("account_id", account.ID))
			return nil, fmt.Errorf("%w: email is already used by another account", models.ErrConflict)
		}
		s.logger.Error("failed to sync account", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return updated, nil
}

func (s *AuthService) claim(ctx context.Context, pending *models.Account, identity *auth.Identity) (*models.Account, error) {
	if !identity.EmailVerified {
		s.logger.Info("invitation claim with unverified email", slog.String("account_id", pending.ID))
		return nil, models.ErrEmailNotVerified
	}

	account, err := s.accounts.Claim(ctx, pending.ID, repositories.ClaimIdentity{
		ExternalID:    identity.ExternalID,
		EmailVerified: identity.EmailVerified,
		DisplayName:   identity.DisplayName,
		PictureURL:    identity.PictureURL,
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrConflict) {
			s.logger.Info("invitation already claimed", slog.String("account_id", pending.ID))
			return nil, fmt.Errorf("%w: invitation has already been claimed", models.ErrConflict)
		}
		s.logger.Error("failed to claim invitation", slog.String("account_id", pending.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("invitation claimed",
		slog.String("account_id", account.ID),
		slog.String("role", string(account.Role)),
	)
	return account, nil
}

func (s *AuthService) create(ctx context.Context, identity *auth.Identity, role models.Role) (*models.Account, error) {
	if !role.SelfService() {
		return nil, models.ErrInvalidRole
	}

	account, err := models.NewAccount(role)
	if err != nil {
		return nil, err
	}
	now := s.now()
	account.ExternalID = identity.ExternalID
	account.Email = identity.Email
	account.DisplayName = identity.DisplayName
	account.EmailVerified = identity.EmailVerified
	account.ProfileImageURL = identity.PictureURL
	account.LastLoginAt = &now
	account.RefreshCompletion()

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			// A concurrent first login may have created the row already.
			if existing, getErr := s.accounts.GetByExternalID(ctx, identity.ExternalID); getErr == nil {
				return existing, nil
			}
			s.logger.Info("email already registered", slog.String("email", logger.SanitizedEmail(identity.Email)))
			return nil, fmt.Errorf("%w: email is already registered", models.ErrConflict)
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account created",
		slog.String("account_id", created.ID),
		slog.String("role", string(created.Role)),
	)
	return created, nil
}

func (s *AuthService) isManaged(url string) bool {
	if url == "" || s.managed == nil {
		return false
	}
	_, ok := s.managed.KeyFromURL(url)
	return ok
}

package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/BradenHooton/labsy/internal/auth"
	"github.com/BradenHooton/labsy/internal/models"
	"github.com/BradenHooton/labsy/internal/repositories"
	"github.com/BradenHooton/labsy/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func verifierFor(identity *auth.Identity) *services.MockIdentityVerifier {
	return &services.MockIdentityVerifier{
		VerifyFunc: func(ctx context.Context, token string) (*auth.Identity, error) {
			if token != "good-token" {
				return nil, models.ErrUnauthorized
			}
			return identity, nil
		},
	}
}

type managedPrefix string

func (p managedPrefix) KeyFromURL(url string) (string, bool) {
	if strings.HasPrefix(url, string(p)) {
		return strings.TrimPrefix(url, string(p)), true
	}
	return "", false
}

// ── Resolve tests ──

func TestAuthService_Resolve_ExistingAccountIsSynced(t *testing.T) {
	existing := services.NewTestCustomer("acct_1", "old@example.com")
	existing.DisplayName = "Old Name"
	existing.EmailVerified = false

	var saved *models.Account
	repo := &services.MockAccountRepository{
		GetByExternalIDFunc: func(ctx context.Context, externalID string) (*models.Account, error) {
			assert.Equal(t, "firebase-uid", externalID)
			return existing, nil
		},
		UpdateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			saved = account
			return account, nil
		},
	}

	identity := &auth.Identity{
		ExternalID:    "firebase-uid",
		Email:         "new@example.com",
		EmailVerified: true,
		DisplayName:   "New Name",
		PictureURL:    "https://lh3.googleusercontent.com/a/pic.jpg",
	}

	svc := services.NewAuthService(verifierFor(identity), repo, nil, discardLogger())
	account, err := svc.Resolve(context.Background(), identity, models.RoleCustomer)

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "acct_1", account.ID)
	assert.Equal(t, "new@example.com", account.Email)
	assert.Equal(t, "New Name", account.DisplayName)
	assert.True(t, account.EmailVerified)
	assert.Equal(t, identity.PictureURL, account.ProfileImageURL)
	assert.NotNil(t, account.LastLoginAt)
	assert.Equal(t, models.RoleCustomer, account.Role)
}

func TestAuthService_Resolve_KeepsOptionalFieldsWhenMissing(t *testing.T) {
	existing := services.NewTestCustomer("acct_1", "user@example.com")
	existing.DisplayName = "Kept"
	existing.ProfileImageURL = "https://lh3.googleusercontent.com/a/old.jpg"

	repo := &services.MockAccountRepository{
		GetByExternalIDFunc: func(ctx context.Context, externalID string) (*models.Account, error) {
			return existing, nil
		},
	}
	identity := &auth.Identity{ExternalID: "ext_acct_1", Email: "user@example.com", EmailVerified: true}

	svc := services.NewAuthService(verifierFor(identity), repo, nil, discardLogger())
	account, err := svc.Resolve(context.Background(), identity, models.RoleCustomer)

	require.NoError(t, err)
	assert.Equal(t, "Kept", account.DisplayName)
	assert.Equal(t, "https://lh3.googleusercontent.com/a/old.jpg", account.ProfileImageURL)
}

func TestAuthService_Resolve_UploadedPictureNotReplaced(t *testing.T) {
	existing := services.NewTestCustomer("acct_1", "user@example.com")
	existing.ProfileImageURL = "https://media.example.com/profiles/acct_1/me.jpg"

	repo := &services.MockAccountRepository{
		GetByExternalIDFunc: func(ctx context.Context, externalID string) (*models.Account, error) {
			return existing, nil
		},
	}
	identity := &auth.Identity{ExternalID: "ext_acct_1", Email: "user@example.com", PictureURL: "https://lh3.googleusercontent.com/a/pic.jpg"}

	svc := services.NewAuthService(verifierFor(identity), repo, managedPrefix("https://media.example.com/"), discardLogger())
	account, err := svc.Resolve(context.Background(), identity, models.RoleCustomer)

	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/profiles/acct_1/me.jpg", account.ProfileImageURL)
}

func TestAuthService_Resolve_CreatesCustomer(t *testing.T) {
	var created *models.Account
	repo := &services.MockAccountRepository{
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			created = account
			account.ID = "acct_new"
			return account, nil
		},
	}
	identity := services.NewTestIdentity("uid-1", "new@example.com")

	svc := services.NewAuthService(verifierFor(identity), repo, nil, discardLogger())
	account, err := svc.Resolve(context.Background(), identity, models.RoleCustomer)

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, models.RoleCustomer, account.Role)
	assert.Equal(t, models.StatusActive, account.Status)
	assert.Equal(t, "uid-1", account.ExternalID)
	assert.Equal(t, "new@example.com", account.Email)

	profile, ok := account.Customer()
	require.True(t, ok)
	assert.Equal(t, models.LanguageArabic, profile.PreferredLanguage)
	assert.Equal(t, 60, profile.ProfileCompletion, "name, email and language are filled")
}

func TestAuthService_Resolve_RefusesProvisionedRoles(t *testing.T) {
	repo := &services.MockAccountRepository{
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			t.Fatal("no account may be created")
			return nil, nil
		},
	}
	identity := services.NewTestIdentity("uid-1", "new@example.com")

	svc := services.NewAuthService(verifierFor(identity), repo, nil, discardLogger())

	for _, role := range []models.Role{models.RoleFactory, models.RoleAdmin} {
		_, err := svc.Resolve(context.Background(), identity, role)
		assert.ErrorIs(t, err, models.ErrInvalidRole)
	}
}

func TestAuthService_Resolve_ClaimsPendingInvitation(t *testing.T) {
	pending := services.NewTestPendingFactory("acct_f", "f@x.com")

	var claimed repositories.ClaimIdentity
	repo := &services.MockAccountRepository{
		GetPendingByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			assert.Equal(t, "f@x.com", email)
			return pending, nil
		},
		ClaimFunc: func(ctx context.Context, id string, identity repositories.ClaimIdentity) (*models.Account, error) {
			assert.Equal(t, "acct_f", id)
			claimed = identity
			out := *pending
			out.ExternalID = identity.ExternalID
			out.Status = models.StatusActive
			return &out, nil
		},
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			t.Fatal("invitation must be claimed, not duplicated")
			return nil, nil
		},
	}
	identity := services.NewTestIdentity("uid-factory", "f@x.com")

	svc := services.NewAuthService(verifierFor(identity), repo, nil, discardLogger())
	account, err := svc.Resolve(context.Background(), identity, models.RoleCustomer)

	require.NoError(t, err)
	assert.Equal(t, "uid-factory", claimed.ExternalID)
	assert.Equal(t, models.RoleFactory, account.Role)
	assert.Equal(t, models.StatusActive, account.Status)
	assert.Equal(t, "uid-factory", account.ExternalID)
}

func TestAuthService_Resolve_InvitationNeedsVerifiedEmail(t *testing.T) {
	repo := &services.MockAccountRepository{
		GetPendingByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return services.NewTestPendingFactory("acct_f", email), nil
		},
	}
	identity := services.NewTestIdentity("uid-factory", "f@x.com")
	identity.EmailVerified = false

	svc := services.NewAuthService(verifierFor(identity), repo, nil, discardLogger())
	_, err := svc.Resolve(context.Background(), identity, models.RoleCustomer)

	assert.ErrorIs(t, err, models.ErrEmailNotVerified)
}

func TestAuthService_Resolve_ConcurrentCreateReturnsWinner(t *testing.T) {
	winner := services.NewTestCustomer("acct_w", "new@example.com")
	lookups := 0
	repo := &services.MockAccountRepository{
		GetByExternalIDFunc: func(ctx context.Context, externalID string) (*models.Account, error) {
			lookups++
			if lookups == 1 {
				return nil, models.ErrNotFound
			}
			return winner, nil
		},
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			return nil, models.ErrConflict
		},
	}
	identity := services.NewTestIdentity("ext_acct_w", "new@example.com")

	svc := services.NewAuthService(verifierFor(identity), repo, nil, discardLogger())
	account, err := svc.Resolve(context.Background(), identity, models.RoleCustomer)

	require.NoError(t, err)
	assert.Equal(t, "acct_w", account.ID)
}

func TestAuthService_Resolve_RepositoryErrorIsInternal(t *testing.T) {
	repo := &services.MockAccountRepository{
		GetByExternalIDFunc: func(ctx context.Context, externalID string) (*models.Account, error) {
			return nil, errors.New("connection refused")
		},
	}
	identity := services.NewTestIdentity("uid", "a@example.com")

	svc := services.NewAuthService(verifierFor(identity), repo, nil, discardLogger())
	_, err := svc.Resolve(context.Background(), identity, models.RoleCustomer)

	assert.Equal(t, models.ErrInternalServer, err)
}

// ── VerifyToken tests ──

func TestAuthService_VerifyToken_InvalidToken(t *testing.T) {
	repo := &services.MockAccountRepository{
		GetByExternalIDFunc: func(ctx context.Context, externalID string) (*models.Account, error) {
			t.Fatal("no lookup before verification")
			return nil, nil
		},
	}

	svc := services.NewAuthService(verifierFor(services.NewTestIdentity("uid", "a@example.com")), repo, nil, discardLogger())
	_, err := svc.VerifyToken(context.Background(), "bad-token")

	assert.Equal(t, models.ErrUnauthorized, err)
}

func TestAuthService_VerifyToken_SuspendedAccount(t *testing.T) {
	suspended := services.NewTestCustomer("acct_1", "a@example.com")
	suspended.Status = models.StatusSuspended

	repo := &services.MockAccountRepository{
		GetByExternalIDFunc: func(ctx context.Context, externalID string) (*models.Account, error) {
			return suspended, nil
		},
	}

	svc := services.NewAuthService(verifierFor(services.NewTestIdentity("ext_acct_1", "a@example.com")), repo, nil, discardLogger())
	_, err := svc.VerifyToken(context.Background(), "good-token")

	assert.Equal(t, models.ErrAccountSuspended, err)
}

// ── CompleteRegistration tests ──

func TestAuthService_CompleteRegistration(t *testing.T) {
	tests := []struct {
		name     string
		identity *auth.Identity
		email    string
		repo     *services.MockAccountRepository
		wantErr  error
	}{
		{
			name:     "email mismatch",
			identity: services.NewTestIdentity("uid", "someone@x.com"),
			email:    "f@x.com",
			repo:     &services.MockAccountRepository{},
			wantErr:  models.ErrEmailMismatch,
		},
		{
			name: "unverified email",
			identity: func() *auth.Identity {
				id := services.NewTestIdentity("uid", "f@x.com")
				id.EmailVerified = false
				return id
			}(),
			email:   "F@x.com",
			repo:    &services.MockAccountRepository{},
			wantErr: models.ErrEmailNotVerified,
		},
		{
			name:     "identity already linked",
			identity: services.NewTestIdentity("uid", "f@x.com"),
			email:    "f@x.com",
			repo: &services.MockAccountRepository{
				GetByExternalIDFunc: func(ctx context.Context, externalID string) (*models.Account, error) {
					return services.NewTestCustomer("acct_c", "f@x.com"), nil
				},
			},
			wantErr: models.ErrConflict,
		},
		{
			name:     "no invitation",
			identity: services.NewTestIdentity("uid", "f@x.com"),
			email:    "f@x.com",
			repo:     &services.MockAccountRepository{},
			wantErr:  models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := services.NewAuthService(verifierFor(tt.identity), tt.repo, nil, discardLogger())
			_, err := svc.CompleteRegistration(context.Background(), "good-token", tt.email)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAuthService_CompleteRegistration_Success(t *testing.T) {
	pending := services.NewTestPendingFactory("acct_f", "f@x.com")
	repo := &services.MockAccountRepository{
		GetPendingByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return pending, nil
		},
		ClaimFunc: func(ctx context.Context, id string, identity repositories.ClaimIdentity) (*models.Account, error) {
			out := *pending
			out.ExternalID = identity.ExternalID
			out.Status = models.StatusActive
			out.EmailVerified = identity.EmailVerified
			return &out, nil
		},
	}

	svc := services.NewAuthService(verifierFor(services.NewTestIdentity("uid-f", "f@x.com")), repo, nil, discardLogger())
	account, err := svc.CompleteRegistration(context.Background(), "good-token", " F@X.com ")

	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, account.Status)
	assert.Equal(t, "uid-f", account.ExternalID)
	assert.True(t, account.EmailVerified)
}

func TestAuthService_CompleteRegistration_AlreadyClaimed(t *testing.T) {
	repo := &services.MockAccountRepository{
		GetPendingByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return services.NewTestPendingFactory("acct_f", email), nil
		},
		ClaimFunc: func(ctx context.Context, id string, identity repositories.ClaimIdentity) (*models.Account, error) {
			return nil, models.ErrNotFound
		},
	}

	svc := services.NewAuthService(verifierFor(services.NewTestIdentity("uid-f", "f@x.com")), repo, nil, discardLogger())
	_, err := svc.CompleteRegistration(context.Background(), "good-token", "f@x.com")

	assert.ErrorIs(t, err, models.ErrConflict)
}

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/labsy/internal/models"
	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the verified result of an identity-provider token.
type Identity struct {
	ExternalID    string
	Email         string
	EmailVerified bool
	DisplayName   string
	PictureURL    string
}

// IdentityVerifier exchanges a bearer token for a verified identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// firebaseClaims are the claims of a Firebase ID token used by the API.
type firebaseClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// FirebaseVerifier validates Firebase ID tokens: RS256 signature against the Google
// signing keys, issuer and audience bound to the project, and a mandatory expiry.
type FirebaseVerifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

// NewFirebaseVerifier creates a verifier for the project. keyfunc resolves the signing
// key by "kid", normally backed by NewJWKSKeyfunc.
func NewFirebaseVerifier(projectID string, keyfunc jwt.Keyfunc) *FirebaseVerifier {
	return &FirebaseVerifier{
		keyfunc: keyfunc,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer("https://securetoken.google.com/"+projectID),
			jwt.WithAudience(projectID),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(30*time.Second),
		),
	}
}

// Verify parses and validates the token. Every failure wraps models.ErrUnauthorized.
func (v *FirebaseVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", models.ErrUnauthorized)
	}

	claims := &firebaseClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, v.keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if !parsed.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", models.ErrUnauthorized)
	}

	return &Identity{
		ExternalID:    claims.Subject,
		Email:         strings.ToLower(strings.TrimSpace(claims.Email)),
		EmailVerified: claims.EmailVerified,
		DisplayName:   strings.TrimSpace(claims.Name),
		PictureURL:    claims.Picture,
	}, nil
}

// NewJWKSKeyfunc fetches the provider's JSON Web Key Set and keeps it fresh in the
// background until ctx is cancelled or EndBackground is called.
func NewJWKSKeyfunc(ctx context.Context, url string, refresh time.Duration, logger *slog.Logger) (*keyfunc.JWKS, error) {
	jwks, err := keyfunc.Get(url, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   refresh,
		RefreshTimeout:    10 * time.Second,
		RefreshRateLimit:  5 * time.Minute,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Error("failed to refresh signing keys",
				slog.String("jwks_url", url),
				slog.Any("error", err),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signing keys from %s: %w", url, err)
	}
	return jwks, nil
}

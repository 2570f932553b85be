package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/labsy/internal/auth"
	"github.com/BradenHooton/labsy/internal/models"
	"github.com/google/uuid"
)

// CustomerRegistration is the self-service sign-up data of a customer.
type CustomerRegistration struct {
	Name              string
	Phone             string
	PreferredLanguage string
}

// CreatorRegistration is the self-service sign-up data of a creator.
type CreatorRegistration struct {
	Name                string
	BusinessName        string
	BusinessDescription string
	Phone               string
	SocialMediaLinks    models.SocialMediaLinks
}

// CustomerProfileUpdate lists the customer fields a customer may change; nil means unchanged.
type CustomerProfileUpdate struct {
	Name                 *string
	Phone                *string
	PreferredLanguage    *string
	DateOfBirth          *time.Time
	Gender               *string
	ShippingAddresses    []models.ShippingAddress
	MarketingPreferences *models.MarketingPreferences
}

// CreatorProfileUpdate lists the creator fields a creator may change; nil means unchanged.
// Social links are merged into the stored ones.
type CreatorProfileUpdate struct {
	Name                *string
	BusinessName        *string
	BusinessDescription *string
	Phone               *string
	BusinessAddress     *string
	SocialMediaLinks    *models.SocialMediaLinks
	Categories          []string
}

// PictureStore stores and removes profile pictures.
type PictureStore interface {
	UploadProfilePicture(ctx context.Context, accountID string, file io.Reader) (*UploadResult, error)
	DeleteByURL(ctx context.Context, url string) error
}

// ProfileService handles self-service registration and role-scoped profile updates.
type ProfileService struct {
	accounts AccountRepository
	pictures PictureStore
	logger   *slog.Logger
}

// NewProfileService creates a new ProfileService.
func NewProfileService(accounts AccountRepository, pictures PictureStore, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		accounts: accounts,
		pictures: pictures,
		logger:   logger,
	}
}

// RegisterCustomer creates a customer account for an identity that has none.
func (s *ProfileService) RegisterCustomer(ctx context.Context, identity *auth.Identity, in CustomerRegistration) (*models.Account, error) {
	account, err := newRegisteredAccount(identity, models.RoleCustomer, in.Name)
	if err != nil {
		return nil, err
	}

	profile, _ := account.Customer()
	profile.Phone = in.Phone
	if in.PreferredLanguage != "" {
		profile.PreferredLanguage = in.PreferredLanguage
	}

	return s.register(ctx, account)
}

// RegisterCreator creates a creator account for an identity that has none.
func (s *ProfileService) RegisterCreator(ctx context.Context, identity *auth.Identity, in CreatorRegistration) (*models.Account, error) {
	account, err := newRegisteredAccount(identity, models.RoleCreator, in.Name)
	if err != nil {
		return nil, err
	}

	profile, _ := account.Creator()
	profile.BusinessName = in.BusinessName
	profile.BusinessDescription = in.BusinessDescription
	profile.Phone = in.Phone
	profile.SocialMediaLinks = in.SocialMediaLinks

	return s.register(ctx, account)
}

func newRegisteredAccount(identity *auth.Identity, role models.Role, name string) (*models.Account, error) {
	account, err := models.NewAccount(role)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account.ExternalID = identity.ExternalID
	account.Email = identity.Email
	account.EmailVerified = identity.EmailVerified
	account.ProfileImageURL = identity.PictureURL
	account.DisplayName = identity.DisplayName
	if name = strings.TrimSpace(name); name != "" {
		account.DisplayName = name
	}
	account.LastLoginAt = &now
	return account, nil
}

func (s *ProfileService) register(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.RefreshCompletion()

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("user already registered", slog.String("role", string(account.Role)))
			return nil, fmt.Errorf("%w: user already registered", models.ErrConflict)
		}
		s.logger.Error("failed to register user", slog.String("role", string(account.Role)), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered",
		slog.String("account_id", created.ID),
		slog.String("role", string(created.Role)),
	)
	return created, nil
}

// GetProfile retrieves the account with its role profile.
func (s *ProfileService) GetProfile(ctx context.Context, accountID string) (*models.Account, error) {
	return s.load(ctx, accountID)
}

func (s *ProfileService) load(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found", slog.String("account_id", accountID))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("account_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return account, nil
}

// UpdateCustomerProfile applies a customer update. Non-customers get ErrInvalidRole.
func (s *ProfileService) UpdateCustomerProfile(ctx context.Context, accountID string, upd CustomerProfileUpdate) (*models.Account, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	profile, ok := account.Customer()
	if !ok {
		return nil, fmt.Errorf("%w: customer fields cannot be set on a %s account", models.ErrInvalidRole, account.Role)
	}

	if upd.Name != nil {
		account.DisplayName = strings.TrimSpace(*upd.Name)
	}
	if upd.Phone != nil {
		profile.Phone = *upd.Phone
	}
	if upd.PreferredLanguage != nil {
		profile.PreferredLanguage = *upd.PreferredLanguage
	}
	if upd.DateOfBirth != nil {
		profile.DateOfBirth = upd.DateOfBirth
	}
	if upd.Gender != nil {
		profile.Gender = *upd.Gender
	}
	if upd.ShippingAddresses != nil {
		profile.ShippingAddresses = normalizeAddresses(upd.ShippingAddresses)
	}
	if upd.MarketingPreferences != nil {
		profile.MarketingPreferences = *upd.MarketingPreferences
	}

	return s.save(ctx, account)
}

// UpdateCreatorProfile applies a creator update. Non-creators get ErrInvalidRole.
func (s *ProfileService) UpdateCreatorProfile(ctx context.Context, accountID string, upd CreatorProfileUpdate) (*models.Account, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	profile, ok := account.Creator()
	if !ok {
		return nil, fmt.Errorf("%w: creator fields cannot be set on a %s account", models.ErrInvalidRole, account.Role)
	}

	if upd.Name != nil {
		account.DisplayName = strings.TrimSpace(*upd.Name)
	}
	if upd.BusinessName != nil {
		profile.BusinessName = *upd.BusinessName
	}
	if upd.BusinessDescription != nil {
		profile.BusinessDescription = *upd.BusinessDescription
	}
	if upd.Phone != nil {
		profile.Phone = *upd.Phone
	}
	if upd.BusinessAddress != nil {
		profile.BusinessAddress = *upd.BusinessAddress
	}
	if upd.SocialMediaLinks != nil {
		profile.SocialMediaLinks = profile.SocialMediaLinks.Merge(*upd.SocialMediaLinks)
	}
	if upd.Categories != nil {
		profile.Categories = upd.Categories
	}

	return s.save(ctx, account)
}

func (s *ProfileService) save(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.RefreshCompletion()

	updated, err := s.accounts.Update(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update profile", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("profile updated", slog.String("account_id", account.ID))
	return updated, nil
}

// normalizeAddresses assigns ids to new addresses and keeps at most one default.
func normalizeAddresses(addrs []models.ShippingAddress) []models.ShippingAddress {
	out := make([]models.ShippingAddress, len(addrs))
	seenDefault := false
	for i, a := range addrs {
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.IsDefault {
			if seenDefault {
				a.IsDefault = false
			}
			seenDefault = true
		}
		out[i] = a
	}
	return out
}

// ChangeProfilePicture stores a new picture and points the account at it. The new object
// is removed again if the account cannot be saved; the previous picture is removed on a
// best-effort basis once the account is saved.
func (s *ProfileService) ChangeProfilePicture(ctx context.Context, accountID string, file io.Reader) (*models.Account, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	result, err := s.pictures.UploadProfilePicture(ctx, account.ID, file)
	if err != nil {
		return nil, err
	}

	previous := account.ProfileImageURL
	account.ProfileImageURL = result.URL

	updated, err := s.save(ctx, account)
	if err != nil {
		if delErr := s.pictures.DeleteByURL(ctx, result.URL); delErr != nil {
			s.logger.Warn("failed to remove orphaned picture", slog.String("key", result.Key), slog.Any("error", delErr))
		}
		return nil, err
	}

	s.deletePicture(ctx, account.ID, previous)
	return updated, nil
}

// RemoveProfilePicture clears the picture of the account and deletes the stored object.
func (s *ProfileService) RemoveProfilePicture(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	previous := account.ProfileImageURL
	if previous == "" {
		return account, nil
	}
	account.ProfileImageURL = ""

	updated, err := s.save(ctx, account)
	if err != nil {
		return nil, err
	}

	s.deletePicture(ctx, account.ID, previous)
	return updated, nil
}

func (s *ProfileService) deletePicture(ctx context.Context, accountID, url string) {
	if url == "" {
		return
	}
	if err := s.pictures.DeleteByURL(ctx, url); err != nil {
		s.logger.Warn("failed to delete previous picture",
			slog.String("account_id", accountID),
			slog.Any("error", err),
		)
	}
}

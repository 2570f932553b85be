package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/labsy/internal/models"
	"github.com/BradenHooton/labsy/pkg/logger"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const employeeIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateEmployeeID returns a random employee id such as "EMP7K2M9QX4A".
func GenerateEmployeeID() (string, error) {
	id, err := gonanoid.Generate(employeeIDAlphabet, 9)
	if err != nil {
		return "", fmt.Errorf("failed to generate employee id: %w", err)
	}
	return "EMP" + id, nil
}

// FactoryLocationInput is the address of a factory as entered in the admin console.
type FactoryLocationInput struct {
	City        string
	Region      string
	Country     string
	FullAddress string
	PostalCode  string
}

// FactoryInvitation holds the data for provisioning a factory account.
type FactoryInvitation struct {
	Name                       string
	Email                      string
	BusinessName               string
	Phone                      string
	BusinessDescription        string
	BusinessRegistrationNumber string
	TaxID                      string
	Location                   FactoryLocationInput
	Capabilities               models.FactoryCapabilities
}

// AdminInvitation holds the data for provisioning an admin account. Nil Permissions
// means the defaults of the level.
type AdminInvitation struct {
	Name        string
	Email       string
	Phone       string
	AdminLevel  models.AdminLevel
	Permissions []models.Permission
	Department  string
	JobTitle    string
	EmployeeID  string
	Notes       string
}

// StatusChange is an admin request to move an account to another status.
type StatusChange struct {
	Status models.Status
	Reason string
	Notes  string
}

// AdminService implements the admin console: provisioning, status changes and listing.
type AdminService struct {
	accounts AccountRepository
	mailer   InvitationMailer
	audit    *logger.AuditLogger
	logger   *slog.Logger
	now      func() time.Time
}

// NewAdminService creates a new AdminService.
func NewAdminService(accounts AccountRepository, mailer InvitationMailer, audit *logger.AuditLogger, logger *slog.Logger) *AdminService {
	return &AdminService{
		accounts: accounts,
		mailer:   mailer,
		audit:    audit,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func requireActiveAdmin(actor *models.Account) error {
	if actor == nil || actor.Role != models.RoleAdmin || !actor.IsActive() {
		return fmt.Errorf("%w: admin access required", models.ErrForbidden)
	}
	return nil
}

// CreateFactory provisions a pending factory account that the invited user claims on
// first sign-in with the same verified email.
func (s *AdminService) CreateFactory(ctx context.Context, actor *models.Account, in FactoryInvitation) (*models.Account, error) {
	if err := requireActiveAdmin(actor); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	account, err := models.NewAccount(models.RoleFactory)
	if err != nil {
		return nil, err
	}
	account.Status = models.StatusPending
	account.Email = email
	account.DisplayName = strings.TrimSpace(in.Name)

	address := in.Location.FullAddress
	if address == "" {
		address = in.Location.City + ", " + in.Location.Region
	}

	profile, _ := account.Factory()
	profile.CompanyName = in.BusinessName
	profile.CompanyDescription = in.BusinessDescription
	profile.ContactPerson = account.DisplayName
	profile.Phone = in.Phone
	profile.BusinessLicense = in.BusinessRegistrationNumber
	profile.TaxID = in.TaxID
	profile.Location = models.FactoryLocation{
		AddressLine1: address,
		City:         in.Location.City,
		State:        in.Location.Region,
		PostalCode:   in.Location.PostalCode,
		Country:      in.Location.Country,
	}
	profile.Capabilities = models.FactoryCapabilities{
		PrintingMethods:   nonNil(in.Capabilities.PrintingMethods),
		Materials:         nonNil(in.Capabilities.Materials),
		ProductTypes:      nonNil(in.Capabilities.ProductTypes),
		MaxCapacityPerDay: in.Capabilities.MaxCapacityPerDay,
	}

	return s.createInvitation(ctx, actor, account, "factory_provisioned")
}

// CreateAdmin provisions a pending admin account. Only super admins may do this.
func (s *AdminService) CreateAdmin(ctx context.Context, actor *models.Account, in AdminInvitation) (*models.Account, error) {
	if err := requireActiveAdmin(actor); err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() {
		s.audit.LogAdminAction(ctx, logger.AuditEvent{
			Action:  "admin_provisioned",
			ActorID: actor.ID,
			Success: false,
			Reason:  "actor is not a super admin",
		})
		return nil, fmt.Errorf("%w: super admin access required", models.ErrForbidden)
	}

	if !in.AdminLevel.Valid() {
		return nil, fmt.Errorf("%w: unknown admin role %q", models.ErrBadRequest, in.AdminLevel)
	}
	permissions := in.Permissions
	if permissions == nil {
		permissions = models.DefaultPermissions(in.AdminLevel)
	}
	for _, p := range permissions {
		if !models.IsValidPermission(p) {
			return nil, fmt.Errorf("%w: unknown permission %q", models.ErrBadRequest, p)
		}
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	employeeID := strings.TrimSpace(in.EmployeeID)
	if employeeID == "" {
		generated, err := GenerateEmployeeID()
		if err != nil {
			s.logger.Error("failed to generate employee id", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		employeeID = generated
	}

	account, err := models.NewAccount(models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	account.Status = models.StatusPending
	account.Email = email
	account.DisplayName = strings.TrimSpace(in.Name)

	profile, _ := account.Admin()
	profile.EmployeeID = employeeID
	profile.AdminLevel = in.AdminLevel
	profile.Permissions = permissions
	profile.Department = in.Department
	profile.Position = in.JobTitle
	profile.Phone = in.Phone
	profile.Notes = in.Notes

	return s.createInvitation(ctx, actor, account, "admin_provisioned")
}

func (s *AdminService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.accounts.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("email already registered", slog.String("email", logger.SanitizedEmail(email)))
		return fmt.Errorf("%w: a user with email %s already exists", models.ErrConflict, email)
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check email", slog.String("email", logger.SanitizedEmail(email)), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

func (s *AdminService) createInvitation(ctx context.Context, actor *models.Account, account *models.Account, action string) (*models.Account, error) {
	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("invitation conflicts with an existing account", slog.String("email", logger.SanitizedEmail(account.Email)))
			return nil, fmt.Errorf("%w: a user with this email or employee id already exists", models.ErrConflict)
		}
		s.logger.Error("failed to create invitation", slog.String("role", string(account.Role)), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogAdminAction(ctx, logger.AuditEvent{
		Action:   action,
		ActorID:  actor.ID,
		TargetID: created.ID,
		Success:  true,
		Metadata: map[string]string{"role": string(created.Role)},
	})

	if err := s.mailer.SendInvitation(ctx, created); err != nil {
		s.logger.Warn("failed to send invitation email",
			slog.String("account_id", created.ID),
			slog.Any("error", err),
		)
	}

	return created, nil
}

// UpdateUserStatus moves the target account to a new status. Admin targets can only be
// changed by a super admin, even when the status does not change, and nobody can change
// their own status. An unclaimed invitation that is reactivated goes back to pending.
func (s *AdminService) UpdateUserStatus(ctx context.Context, actor *models.Account, targetID string, change StatusChange) (*models.Account, error) {
	if err := requireActiveAdmin(actor); err != nil {
		return nil, err
	}

	switch change.Status {
	case models.StatusActive, models.StatusSuspended, models.StatusDeleted:
	default:
		return nil, fmt.Errorf("%w: status must be one of active, suspended, deleted", models.ErrBadRequest)
	}

	if actor.ID == targetID {
		return nil, fmt.Errorf("%w: you cannot change your own status", models.ErrForbidden)
	}

	target, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found", slog.String("user_id", targetID))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", targetID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if target.Role == models.RoleAdmin && !actor.IsSuperAdmin() {
		s.audit.LogAdminAction(ctx, logger.AuditEvent{
			Action:   "status_changed",
			ActorID:  actor.ID,
			TargetID: target.ID,
			Success:  false,
			Reason:   "only super admins can change the status of an admin",
		})
		return nil, fmt.Errorf("%w: only super admins can change the status of an admin", models.ErrForbidden)
	}

	previous := target.Status
	next := change.Status
	if next == models.StatusActive && target.ExternalID == "" {
		next = models.StatusPending
	}
	target.SetStatus(next, s.now())

	updated, err := s.accounts.Update(ctx, target)
	if err != nil {
		s.logger.Error("failed to update user status", slog.String("user_id", targetID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	metadata := map[string]string{
		"previous_status": string(previous),
		"new_status":      string(next),
	}
	if change.Notes != "" {
		metadata["notes"] = change.Notes
	}
	s.audit.LogAdminAction(ctx, logger.AuditEvent{
		Action:   "status_changed",
		ActorID:  actor.ID,
		TargetID: updated.ID,
		Success:  true,
		Reason:   change.Reason,
		Metadata: metadata,
	})

	return updated, nil
}

// DeleteUser soft-deletes the target account.
func (s *AdminService) DeleteUser(ctx context.Context, actor *models.Account, targetID string) error {
	_, err := s.UpdateUserStatus(ctx, actor, targetID, StatusChange{
		Status: models.StatusDeleted,
		Reason: "admin-initiated",
	})
	return err
}

// ListUsers returns one page of accounts, newest first.
func (s *AdminService) ListUsers(ctx context.Context, filter models.AccountFilter) (*models.AccountPage, error) {
	filter.PageRequest = filter.PageRequest.Normalize()

	accounts, total, err := s.accounts.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list users",
			slog.Int("page", filter.Page),
			slog.Int("limit", filter.Limit),
			slog.Any("error", err),
		)
		return nil, models.ErrInternalServer
	}

	return &models.AccountPage{
		Accounts:   accounts,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: models.TotalPages(total, filter.Limit),
	}, nil
}

// GetUser retrieves an account by ID.
func (s *AdminService) GetUser(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found", slog.String("user_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return account, nil
}

// EnsureSuperAdmin creates a pending super admin invitation for email when no admin
// exists yet. It does nothing when email is empty.
func (s *AdminService) EnsureSuperAdmin(ctx context.Context, email, name string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	count, err := s.accounts.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		s.logger.Warn("super admin email belongs to an existing non-admin account, bootstrap skipped",
			slog.String("email", logger.SanitizedEmail(email)))
		return nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check super admin email: %w", err)
	}

	employeeID, err := GenerateEmployeeID()
	if err != nil {
		return err
	}

	account, err := models.NewAccount(models.RoleAdmin)
	if err != nil {
		return err
	}
	account.Status = models.StatusPending
	account.Email = email
	account.DisplayName = name

	profile, _ := account.Admin()
	profile.EmployeeID = employeeID
	profile.AdminLevel = models.AdminLevelSuperAdmin
	profile.Permissions = models.DefaultPermissions(models.AdminLevelSuperAdmin)

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to create super admin invitation: %w", err)
	}

	s.logger.Info("super admin invitation created",
		slog.String("account_id", created.ID),
		slog.String("email", logger.SanitizedEmail(email)),
	)
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

package services_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/BradenHooton/labsy/internal/models"
	"github.com/BradenHooton/labsy/internal/services"
	"github.com/BradenHooton/labsy/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminService(repo *services.MockAccountRepository, mailer *services.MockInvitationMailer) *services.AdminService {
	if mailer == nil {
		mailer = &services.MockInvitationMailer{}
	}
	log := discardLogger()
	return services.NewAdminService(repo, mailer, logger.NewAuditLogger(log), log)
}

func factoryInvitation(email string) services.FactoryInvitation {
	return services.FactoryInvitation{
		Name:         "Fatima Factory",
		Email:        email,
		BusinessName: "Riyadh Prints",
		Location: services.FactoryLocationInput{
			City:    "Riyadh",
			Region:  "Riyadh Province",
			Country: "SA",
		},
	}
}

// ── CreateFactory tests ──

func TestAdminService_CreateFactory_PendingInvitation(t *testing.T) {
	var created *models.Account
	repo := &services.MockAccountRepository{
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			created = account
			account.ID = "acct_f"
			return account, nil
		},
	}
	mailer := &services.MockInvitationMailer{}
	admin := services.NewTestAdmin("admin_1", "admin@labsy.app", models.AdminLevelAdmin)

	svc := newAdminService(repo, mailer)
	account, err := svc.CreateFactory(context.Background(), admin, factoryInvitation(" F@X.com "))

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, models.RoleFactory, account.Role)
	assert.Equal(t, models.StatusPending, account.Status)
	assert.Empty(t, account.ExternalID)
	assert.False(t, account.EmailVerified)
	assert.Equal(t, "f@x.com", account.Email)

	profile, ok := account.Factory()
	require.True(t, ok)
	assert.Equal(t, "Riyadh Prints", profile.CompanyName)
	assert.Equal(t, "Fatima Factory", profile.ContactPerson)
	assert.Equal(t, "Riyadh, Riyadh Province", profile.Location.AddressLine1)
	assert.Equal(t, "Riyadh Province", profile.Location.State)
	assert.NotNil(t, profile.Capabilities.PrintingMethods)
	assert.NotNil(t, profile.Capabilities.Materials)
	assert.NotNil(t, profile.Capabilities.ProductTypes)

	require.Len(t, mailer.Sent, 1)
	assert.Equal(t, "acct_f", mailer.Sent[0].ID)
}

func TestAdminService_CreateFactory_ExistingEmail(t *testing.T) {
	repo := &services.MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return services.NewTestCustomer("acct_c", email), nil
		},
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			t.Fatal("no row may be written")
			return nil, nil
		},
	}
	admin := services.NewTestAdmin("admin_1", "admin@labsy.app", models.AdminLevelSupport)

	_, err := newAdminService(repo, nil).CreateFactory(context.Background(), admin, factoryInvitation("f@x.com"))

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestAdminService_CreateFactory_UniqueViolationIsConflict(t *testing.T) {
	repo := &services.MockAccountRepository{
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			return nil, models.ErrConflict
		},
	}
	admin := services.NewTestAdmin("admin_1", "admin@labsy.app", models.AdminLevelAdmin)

	_, err := newAdminService(repo, nil).CreateFactory(context.Background(), admin, factoryInvitation("f@x.com"))

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestAdminService_CreateFactory_MailFailureIgnored(t *testing.T) {
	mailer := &services.MockInvitationMailer{
		SendInvitationFunc: func(ctx context.Context, account *models.Account) error {
			return errors.New("ses throttled")
		},
	}
	admin := services.NewTestAdmin("admin_1", "admin@labsy.app", models.AdminLevelAdmin)

	account, err := newAdminService(&services.MockAccountRepository{}, mailer).CreateFactory(context.Background(), admin, factoryInvitation("f@x.com"))

	require.NoError(t, err)
	assert.NotNil(t, account)
}

func TestAdminService_CreateFactory_RequiresActiveAdmin(t *testing.T) {
	suspended := services.NewTestAdmin("admin_1", "admin@labsy.app", models.AdminLevelSuperAdmin)
	suspended.Status = models.StatusSuspended

	actors := map[string]*models.Account{
		"customer":        services.NewTestCustomer("c1", "c@x.com"),
		"suspended admin": suspended,
		"nil":             nil,
	}

	for name, actor := range actors {
		t.Run(name, func(t *testing.T) {
			_, err := newAdminService(&services.MockAccountRepository{}, nil).CreateFactory(context.Background(), actor, factoryInvitation("f@x.com"))
			assert.ErrorIs(t, err, models.ErrForbidden)
		})
	}
}

// ── CreateAdmin tests ──

func TestAdminService_CreateAdmin_RequiresSuperAdmin(t *testing.T) {
	repo := &services.MockAccountRepository{
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			t.Fatal("no row may be written")
			return nil, nil
		},
	}
	actor := services.NewTestAdmin("admin_1", "admin@labsy.app", models.AdminLevelAdmin)

	_, err := newAdminService(repo, nil).CreateAdmin(context.Background(), actor, services.AdminInvitation{
		Name: "New Admin", Email: "new@labsy.app", AdminLevel: models.AdminLevelSupport,
	})

	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestAdminService_CreateAdmin_DefaultsPermissionsAndEmployeeID(t *testing.T) {
	actor := services.NewTestAdmin("root", "root@labsy.app", models.AdminLevelSuperAdmin)

	account, err := newAdminService(&services.MockAccountRepository{}, nil).CreateAdmin(context.Background(), actor, services.AdminInvitation{
		Name: "Mod", Email: "mod@labsy.app", AdminLevel: models.AdminLevelModerator, JobTitle: "Lead",
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, account.Status)

	profile, ok := account.Admin()
	require.True(t, ok)
	assert.Equal(t, models.AdminLevelModerator, profile.AdminLevel)
	assert.ElementsMatch(t, []models.Permission{
		models.PermUserManagement, models.PermOrderManagement, models.PermSupportTickets,
	}, profile.Permissions)
	assert.Regexp(t, regexp.MustCompile(`^EMP[0-9A-Z]{9}$`), profile.EmployeeID)
	assert.Equal(t, "Lead", profile.Position)
}

func TestAdminService_CreateAdmin_ExplicitPermissions(t *testing.T) {
	actor := services.NewTestAdmin("root", "root@labsy.app", models.AdminLevelSuperAdmin)

	account, err := newAdminService(&services.MockAccountRepository{}, nil).CreateAdmin(context.Background(), actor, services.AdminInvitation{
		Name: "Ops", Email: "ops@labsy.app", AdminLevel: models.AdminLevelAdmin,
		Permissions: []models.Permission{models.PermAuditLogs}, EmployeeID: "EMP0001",
	})

	require.NoError(t, err)
	profile, _ := account.Admin()
	assert.Equal(t, []models.Permission{models.PermAuditLogs}, profile.Permissions)
	assert.Equal(t, "EMP0001", profile.EmployeeID)
}

func TestAdminService_CreateAdmin_InvalidInput(t *testing.T) {
	actor := services.NewTestAdmin("root", "root@labsy.app", models.AdminLevelSuperAdmin)
	svc := newAdminService(&services.MockAccountRepository{}, nil)

	_, err := svc.CreateAdmin(context.Background(), actor, services.AdminInvitation{
		Email: "x@labsy.app", AdminLevel: "owner",
	})
	assert.ErrorIs(t, err, models.ErrBadRequest)

	_, err = svc.CreateAdmin(context.Background(), actor, services.AdminInvitation{
		Email: "x@labsy.app", AdminLevel: models.AdminLevelAdmin, Permissions: []models.Permission{"root-access"},
	})
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

// ── UpdateUserStatus tests ──

func TestAdminService_UpdateUserStatus_DeletedStampsDeletedAt(t *testing.T) {
	target := services.NewTestCustomer("acct_c", "c@x.com")
	repo := &services.MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return target, nil
		},
	}
	actor := services.NewTestAdmin("admin_1", "admin@labsy.app", models.AdminLevelModerator)
	svc := newAdminService(repo, nil)

	deleted, err := svc.UpdateUserStatus(context.Background(), actor, "acct_c", services.StatusChange{Status: models.StatusDeleted, Reason: "spam"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeleted, deleted.Status)
	assert.NotNil(t, deleted.DeletedAt)

	restored, err := svc.UpdateUserStatus(context.Background(), actor, "acct_c", services.StatusChange{Status: models.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, restored.Status)
	assert.Nil(t, restored.DeletedAt)
}

func TestAdminService_UpdateUserStatus_AdminTargetNeedsSuperAdmin(t *testing.T) {
	target := services.NewTestAdmin("admin_2", "other@labsy.app", models.AdminLevelSupport)
	repo := &services.MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return target, nil
		},
		UpdateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			t.Fatal("no update may happen")
			return nil, nil
		},
	}
	actor := services.NewTestAdmin("admin_1", "admin@labsy.app", models.AdminLevelAdmin)

	// Even a no-op transition is refused.
	_, err := newAdminService(repo, nil).UpdateUserStatus(context.Background(), actor, "admin_2", services.StatusChange{Status: models.StatusActive})

	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestAdminService_UpdateUserStatus_SuperAdminChangesAdmin(t *testing.T) {
	target := services.NewTestAdmin("admin_2", "other@labsy.app", models.AdminLevelSupport)
	repo := &services.MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return target, nil
		},
	}
	actor := services.NewTestAdmin("root", "root@labsy.app", models.AdminLevelSuperAdmin)

	updated, err := newAdminService(repo, nil).UpdateUserStatus(context.Background(), actor, "admin_2", services.StatusChange{Status: models.StatusSuspended})

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspended, updated.Status)
	assert.Equal(t, models.RoleAdmin, updated.Role)
}

func TestAdminService_UpdateUserStatus_Self(t *testing.T) {
	actor := services.NewTestAdmin("root", "root@labsy.app", models.AdminLevelSuperAdmin)

	_, err := newAdminService(&services.MockAccountRepository{}, nil).UpdateUserStatus(context.Background(), actor, "root", services.StatusChange{Status: models.StatusSuspended})

	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestAdminService_UpdateUserStatus_UnclaimedStaysPending(t *testing.T) {
	target := services.NewTestPendingFactory("acct_f", "f@x.com")
	target.SetStatus(models.StatusSuspended, target.CreatedAt)
	repo := &services.MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return target, nil
		},
	}
	actor := services.NewTestAdmin("admin_1", "admin@labsy.app", models.AdminLevelAdmin)

	updated, err := newAdminService(repo, nil).UpdateUserStatus(context.Background(), actor, "acct_f", services.StatusChange{Status: models.StatusActive})

	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)
}

func TestAdminService_UpdateUserStatus_Errors(t *testing.T) {
	actor := services.NewTestAdmin("admin_1", "admin@labsy.app", models.AdminLevelAdmin)

	_, err := newAdminService(&services.MockAccountRepository{}, nil).UpdateUserStatus(context.Background(), actor, "missing", services.StatusChange{Status: models.StatusSuspended})
	assert.Equal(t, models.ErrNotFound, err)

	_, err = newAdminService(&services.MockAccountRepository{}, nil).UpdateUserStatus(context.Background(), actor, "x", services.StatusChange{Status: models.StatusPending})
	assert.ErrorIs(t, err, models.ErrBadRequest)

	repo := &services.MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return nil, errors.New("boom")
		},
	}
	_, err = newAdminService(repo, nil).UpdateUserStatus(context.Background(), actor, "x", services.StatusChange{Status: models.StatusSuspended})
	assert.Equal(t, models.ErrInternalServer, err)
}

func TestAdminService_DeleteUser(t *testing.T) {
	target := services.NewTestFactory("acct_f", "f@x.com")
	var saved *models.Account
	repo := &services.MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return target, nil
		},
		UpdateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			saved = account
			return account, nil
		},
	}
	actor := services.NewTestAdmin("admin_1", "admin@labsy.app", models.AdminLevelAdmin)

	err := newAdminService(repo, nil).DeleteUser(context.Background(), actor, "acct_f")

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, models.StatusDeleted, saved.Status)
	assert.NotNil(t, saved.DeletedAt)
}

// ── ListUsers tests ──

func TestAdminService_ListUsers_Pagination(t *testing.T) {
	var got models.AccountFilter
	repo := &services.MockAccountRepository{
		ListFunc: func(ctx context.Context, filter models.AccountFilter) ([]*models.Account, int64, error) {
			got = filter
			page := make([]*models.Account, 5)
			for i := range page {
				page[i] = services.NewTestFactory("f", "f@x.com")
			}
			return page, 15, nil
		},
	}

	result, err := newAdminService(repo, nil).ListUsers(context.Background(), models.AccountFilter{
		Role:        models.RoleFactory,
		PageRequest: models.PageRequest{Page: 2, Limit: 10},
	})

	require.NoError(t, err)
	assert.Equal(t, models.RoleFactory, got.Role)
	assert.Len(t, result.Accounts, 5)
	assert.Equal(t, int64(15), result.Total)
	assert.Equal(t, 2, result.TotalPages)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 10, result.Limit)
}

func TestAdminService_ListUsers_NormalizesPage(t *testing.T) {
	var got models.AccountFilter
	repo := &services.MockAccountRepository{
		ListFunc: func(ctx context.Context, filter models.AccountFilter) ([]*models.Account, int64, error) {
			got = filter
			return nil, 0, nil
		},
	}

	result, err := newAdminService(repo, nil).ListUsers(context.Background(), models.AccountFilter{})

	require.NoError(t, err)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, models.DefaultPageSize, got.Limit)
	assert.Equal(t, 0, result.TotalPages)
}

// ── EnsureSuperAdmin tests ──

func TestAdminService_EnsureSuperAdmin(t *testing.T) {
	var created *models.Account
	repo := &services.MockAccountRepository{
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			created = account
			return account, nil
		},
	}

	err := newAdminService(repo, nil).EnsureSuperAdmin(context.Background(), " Root@Labsy.app", "Root")

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "root@labsy.app", created.Email)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.True(t, created.IsSuperAdmin())
	profile, _ := created.Admin()
	assert.Len(t, profile.Permissions, len(models.AllPermissions))
}

func TestAdminService_EnsureSuperAdmin_Skips(t *testing.T) {
	repo := &services.MockAccountRepository{
		CountByRoleFunc: func(ctx context.Context, role models.Role) (int64, error) {
			return 1, nil
		},
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			t.Fatal("bootstrap must not run when an admin exists")
			return nil, nil
		},
	}
	svc := newAdminService(repo, nil)

	assert.NoError(t, svc.EnsureSuperAdmin(context.Background(), "root@labsy.app", "Root"))
	assert.NoError(t, svc.EnsureSuperAdmin(context.Background(), "", "Root"))
}

func TestGenerateEmployeeID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id, err := services.GenerateEmployeeID()
		require.NoError(t, err)
		assert.Regexp(t, `^EMP[0-9A-Z]{9}$`, id)
		seen[id] = true
	}
	assert.Len(t, seen, 50)
}

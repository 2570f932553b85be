package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/labsy/internal/database"
	"github.com/BradenHooton/labsy/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

const accountColumns = `
	id, external_id, email, display_name, role, status, email_verified, profile_image_url, phone,
	last_login_at, created_at, updated_at, deleted_at,
	preferred_language, date_of_birth, gender, shipping_addresses, marketing_preferences, profile_completion,
	business_license, tax_id, verification_status, verified_at,
	business_name, business_description, social_media_links, business_address, categories,
	company_name, company_description, contact_person, location, capabilities,
	employee_id, admin_level, permissions, department, position, notes`

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// profileColumns is the nullable per-role half of an accounts row.
type profileColumns struct {
	PreferredLanguage    *string
	DateOfBirth          *time.Time
	Gender               *string
	ShippingAddresses    []byte
	MarketingPreferences []byte
	ProfileCompletion    *int32
	BusinessLicense      *string
	TaxID                *string
	VerificationStatus   *string
	VerifiedAt           *time.Time
	BusinessName         *string
	BusinessDescription  *string
	SocialMediaLinks     []byte
	BusinessAddress      *string
	Categories           []string
	CompanyName          *string
	CompanyDescription   *string
	ContactPerson        *string
	Location             []byte
	Capabilities         []byte
	EmployeeID           *string
	AdminLevel           *string
	Permissions          []string
	Department           *string
	Position             *string
	Notes                *string
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var a models.Account
	var externalID *string
	var phone string
	var pc profileColumns

	err := scanner.Scan(
		&a.ID, &externalID, &a.Email, &a.DisplayName, &a.Role, &a.Status, &a.EmailVerified, &a.ProfileImageURL, &phone,
		&a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt,
		&pc.PreferredLanguage, &pc.DateOfBirth, &pc.Gender, &pc.ShippingAddresses, &pc.MarketingPreferences, &pc.ProfileCompletion,
		&pc.BusinessLicense, &pc.TaxID, &pc.VerificationStatus, &pc.VerifiedAt,
		&pc.BusinessName, &pc.BusinessDescription, &pc.SocialMediaLinks, &pc.BusinessAddress, pq.Array(&pc.Categories),
		&pc.CompanyName, &pc.CompanyDescription, &pc.ContactPerson, &pc.Location, &pc.Capabilities,
		&pc.EmployeeID, &pc.AdminLevel, pq.Array(&pc.Permissions), &pc.Department, &pc.Position, &pc.Notes,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if externalID != nil {
		a.ExternalID = *externalID
	}

	profile, err := buildProfile(a.Role, phone, &pc)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", a.ID, err)
	}
	a.Profile = profile

	return &a, nil
}

func scanAccountRows(rows pgx.Rows) ([]*models.Account, error) {
	defer rows.Close()

	accounts := make([]*models.Account, 0)

	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return accounts, nil
}

// buildProfile reconstructs the role variant from the wide row.
func buildProfile(role models.Role, phone string, pc *profileColumns) (models.Profile, error) {
	profile, err := models.NewProfile(role)
	if err != nil {
		return nil, err
	}

	switch p := profile.(type) {
	case *models.CustomerProfile:
		p.Phone = phone
		if pc.PreferredLanguage != nil {
			p.PreferredLanguage = *pc.PreferredLanguage
		}
		p.DateOfBirth = pc.DateOfBirth
		p.Gender = deref(pc.Gender)
		if err := unmarshalJSONB(pc.ShippingAddresses, &p.ShippingAddresses); err != nil {
			return nil, err
		}
		if err := unmarshalJSONB(pc.MarketingPreferences, &p.MarketingPreferences); err != nil {
			return nil, err
		}
		if pc.ProfileCompletion != nil {
			p.ProfileCompletion = int(*pc.ProfileCompletion)
		}
	case *models.CreatorProfile:
		p.Phone = phone
		p.BusinessName = deref(pc.BusinessName)
		p.BusinessDescription = deref(pc.BusinessDescription)
		p.BusinessLicense = deref(pc.BusinessLicense)
		p.TaxID = deref(pc.TaxID)
		p.BusinessAddress = deref(pc.BusinessAddress)
		p.Categories = pc.Categories
		if pc.VerificationStatus != nil {
			p.VerificationStatus = models.VerificationStatus(*pc.VerificationStatus)
		}
		p.VerifiedAt = pc.VerifiedAt
		if err := unmarshalJSONB(pc.SocialMediaLinks, &p.SocialMediaLinks); err != nil {
			return nil, err
		}
		if pc.ProfileCompletion != nil {
			p.ProfileCompletion = int(*pc.ProfileCompletion)
		}
	case *models.FactoryProfile:
		p.Phone = phone
		p.CompanyName = deref(pc.CompanyName)
		p.CompanyDescription = deref(pc.CompanyDescription)
		p.ContactPerson = deref(pc.ContactPerson)
		p.BusinessLicense = deref(pc.BusinessLicense)
		p.TaxID = deref(pc.TaxID)
		if pc.VerificationStatus != nil {
			p.VerificationStatus = models.VerificationStatus(*pc.VerificationStatus)
		}
		p.VerifiedAt = pc.VerifiedAt
		if err := unmarshalJSONB(pc.Location, &p.Location); err != nil {
			return nil, err
		}
		if err := unmarshalJSONB(pc.Capabilities, &p.Capabilities); err != nil {
			return nil, err
		}
	case *models.AdminProfile:
		p.Phone = phone
		p.EmployeeID = deref(pc.EmployeeID)
		if pc.AdminLevel != nil {
			p.AdminLevel = models.AdminLevel(*pc.AdminLevel)
		}
		p.Permissions = make([]models.Permission, 0, len(pc.Permissions))
		for _, perm := range pc.Permissions {
			p.Permissions = append(p.Permissions, models.Permission(perm))
		}
		p.Department = deref(pc.Department)
		p.Position = deref(pc.Position)
		p.Notes = deref(pc.Notes)
	}

	return profile, nil
}

// splitProfile flattens the role variant into the nullable per-role columns.
func splitProfile(a *models.Account) (*profileColumns, error) {
	if err := a.CheckProfile(); err != nil {
		return nil, err
	}

	var pc profileColumns
	var err error

	switch p := a.Profile.(type) {
	case *models.CustomerProfile:
		pc.PreferredLanguage = &p.PreferredLanguage
		pc.DateOfBirth = p.DateOfBirth
		pc.Gender = nullable(p.Gender)
		if pc.ShippingAddresses, err = marshalJSONB(nonNilAddresses(p.ShippingAddresses)); err != nil {
			return nil, err
		}
		if pc.MarketingPreferences, err = marshalJSONB(p.MarketingPreferences); err != nil {
			return nil, err
		}
		completion := int32(p.ProfileCompletion)
		pc.ProfileCompletion = &completion
	case *models.CreatorProfile:
		pc.BusinessName = &p.BusinessName
		pc.BusinessDescription = nullable(p.BusinessDescription)
		pc.BusinessLicense = nullable(p.BusinessLicense)
		pc.TaxID = nullable(p.TaxID)
		pc.BusinessAddress = nullable(p.BusinessAddress)
		pc.Categories = p.Categories
		status := string(p.VerificationStatus)
		pc.VerificationStatus = &status
		pc.VerifiedAt = p.VerifiedAt
		if pc.SocialMediaLinks, err = marshalJSONB(p.SocialMediaLinks); err != nil {
			return nil, err
		}
		completion := int32(p.ProfileCompletion)
		pc.ProfileCompletion = &completion
	case *models.FactoryProfile:
		pc.CompanyName = &p.CompanyName
		pc.CompanyDescription = nullable(p.CompanyDescription)
		pc.ContactPerson = nullable(p.ContactPerson)
		pc.BusinessLicense = nullable(p.BusinessLicense)
		pc.TaxID = nullable(p.TaxID)
		status := string(p.VerificationStatus)
		pc.VerificationStatus = &status
		pc.VerifiedAt = p.VerifiedAt
		if pc.Location, err = marshalJSONB(p.Location); err != nil {
			return nil, err
		}
		if pc.Capabilities, err = marshalJSONB(p.Capabilities); err != nil {
			return nil, err
		}
	case *models.AdminProfile:
		pc.EmployeeID = nullable(p.EmployeeID)
		level := string(p.AdminLevel)
		pc.AdminLevel = &level
		pc.Permissions = make([]string, 0, len(p.Permissions))
		for _, perm := range p.Permissions {
			pc.Permissions = append(pc.Permissions, string(perm))
		}
		pc.Department = nullable(p.Department)
		pc.Position = nullable(p.Position)
		pc.Notes = nullable(p.Notes)
	}

	return &pc, nil
}

// arrayArg keeps NULL for roles that do not own the column.
func arrayArg(values []string, owned bool) interface{} {
	if !owned {
		return nil
	}
	if values == nil {
		values = []string{}
	}
	return pq.Array(values)
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

// GetByExternalID looks up the account bound to an identity-provider subject, including
// deleted accounts so that a removed user cannot silently re-register.
func (r *AccountRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	if externalID == "" {
		return nil, models.ErrNotFound
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE external_id = $1`

	return scanAccountRow(r.pool.QueryRow(ctx, query, externalID))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`

	return scanAccountRow(r.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
}

// GetPendingByEmail returns the unclaimed invitation for the email.
func (r *AccountRepository) GetPendingByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE LOWER(email) = LOWER($1) AND status = 'pending' AND external_id IS NULL`

	return scanAccountRow(r.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	pc, err := splitProfile(account)
	if err != nil {
		return nil, err
	}

	account.ID = uuid.New().String()
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	if account.Status == "" {
		account.Status = models.StatusActive
	}

	_, isCreator := account.Profile.(*models.CreatorProfile)
	_, isAdmin := account.Profile.(*models.AdminProfile)

	query := `
		INSERT INTO accounts (
			id, external_id, email, display_name, role, status, email_verified, profile_image_url, phone,
			last_login_at, created_at, updated_at, deleted_at,
			preferred_language, date_of_birth, gender, shipping_addresses, marketing_preferences, profile_completion,
			business_license, tax_id, verification_status, verified_at,
			business_name, business_description, social_media_links, business_address, categories,
			company_name, company_description, contact_person, location, capabilities,
			employee_id, admin_level, permissions, department, position, notes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23,
			$24, $25, $26, $27, $28,
			$29, $30, $31, $32, $33,
			$34, $35, $36, $37, $38, $39
		)
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, nullable(account.ExternalID), strings.TrimSpace(account.Email), account.DisplayName,
		account.Role, account.Status, account.EmailVerified, account.ProfileImageURL, account.Phone(),
		account.LastLoginAt, account.CreatedAt, account.UpdatedAt, account.DeletedAt,
		pc.PreferredLanguage, pc.DateOfBirth, pc.Gender, pc.ShippingAddresses, pc.MarketingPreferences, pc.ProfileCompletion,
		pc.BusinessLicense, pc.TaxID, pc.VerificationStatus, pc.VerifiedAt,
		pc.BusinessName, pc.BusinessDescription, pc.SocialMediaLinks, pc.BusinessAddress, arrayArg(pc.Categories, isCreator),
		pc.CompanyName, pc.CompanyDescription, pc.ContactPerson, pc.Location, pc.Capabilities,
		pc.EmployeeID, pc.AdminLevel, arrayArg(pc.Permissions, isAdmin), pc.Department, pc.Position, pc.Notes,
	))
}

// Update persists every mutable column of the account. The role and the external identity
// binding are never written here.
func (r *AccountRepository) Update(ctx context.Context, account *models.Account) (*models.Account, error) {
	pc, err := splitProfile(account)
	if err != nil {
		return nil, err
	}

	account.UpdatedAt = time.Now().UTC()

	_, isCreator := account.Profile.(*models.CreatorProfile)
	_, isAdmin := account.Profile.(*models.AdminProfile)

	query := `
		UPDATE accounts SET
			email = $2, display_name = $3, status = $4, email_verified = $5, profile_image_url = $6, phone = $7,
			last_login_at = $8, updated_at = $9, deleted_at = $10,
			preferred_language = $11, date_of_birth = $12, gender = $13, shipping_addresses = $14,
			marketing_preferences = $15, profile_completion = $16,
			business_license = $17, tax_id = $18, verification_status = $19, verified_at = $20,
			business_name = $21, business_description = $22, social_media_links = $23, business_address = $24,
			categories = $25,
			company_name = $26, company_description = $27, contact_person = $28, location = $29, capabilities = $30,
			employee_id = $31, admin_level = $32, permissions = $33, department = $34, position = $35, notes = $36
		WHERE id = $1
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID,
		strings.TrimSpace(account.Email), account.DisplayName, account.Status, account.EmailVerified,
		account.ProfileImageURL, account.Phone(),
		account.LastLoginAt, account.UpdatedAt, account.DeletedAt,
		pc.PreferredLanguage, pc.DateOfBirth, pc.Gender, pc.ShippingAddresses,
		pc.MarketingPreferences, pc.ProfileCompletion,
		pc.BusinessLicense, pc.TaxID, pc.VerificationStatus, pc.VerifiedAt,
		pc.BusinessName, pc.BusinessDescription, pc.SocialMediaLinks, pc.BusinessAddress,
		arrayArg(pc.Categories, isCreator),
		pc.CompanyName, pc.CompanyDescription, pc.ContactPerson, pc.Location, pc.Capabilities,
		pc.EmployeeID, pc.AdminLevel, arrayArg(pc.Permissions, isAdmin), pc.Department, pc.Position, pc.Notes,
	))
}

// Claim binds a pending invitation to a verified identity and activates it. Only one
// claim can win: a second caller gets ErrNotFound, and an identity already bound to
// another account gets ErrConflict.
func (r *AccountRepository) Claim(ctx context.Context, id string, identity ClaimIdentity) (*models.Account, error) {
	now := time.Now().UTC()

	query := `
		UPDATE accounts SET
			external_id = $2,
			status = 'active',
			email_verified = $3,
			display_name = CASE WHEN $4 <> '' THEN $4 ELSE display_name END,
			profile_image_url = CASE WHEN $5 <> '' THEN $5 ELSE profile_image_url END,
			last_login_at = $6,
			updated_at = $6
		WHERE id = $1 AND status = 'pending' AND external_id IS NULL
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool.QueryRow(ctx, query,
		id, identity.ExternalID, identity.EmailVerified, identity.DisplayName, identity.PictureURL, now,
	))
}

// ClaimIdentity is the subset of a verified identity copied onto a claimed invitation.
type ClaimIdentity struct {
	ExternalID    string
	EmailVerified bool
	DisplayName   string
	PictureURL    string
}

// List returns one page of accounts matching the filter, newest first, and the total match count.
func (r *AccountRepository) List(ctx context.Context, filter models.AccountFilter) ([]*models.Account, int64, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIndex))
		args = append(args, filter.Role)
		argIndex++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM accounts"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	page := filter.PageRequest.Normalize()
	query := fmt.Sprintf(`SELECT %s FROM accounts%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		accountColumns, where, argIndex, argIndex+1)
	args = append(args, page.Limit, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query accounts: %w", err)
	}

	accounts, err := scanAccountRows(rows)
	if err != nil {
		return nil, 0, err
	}

	return accounts, total, nil
}

// CountByRole counts the non-deleted accounts of a role, pending invitations included.
func (r *AccountRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM accounts WHERE role = $1 AND status <> 'deleted'`, role,
	).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNilAddresses(addrs []models.ShippingAddress) []models.ShippingAddress {
	if addrs == nil {
		return []models.ShippingAddress{}
	}
	return addrs
}

func marshalJSONB(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode jsonb column: %w", err)
	}
	return data, nil
}

func unmarshalJSONB(data []byte, dest interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode jsonb column: %w", err)
	}
	return nil
}

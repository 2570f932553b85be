package models

import (
	"testing"
)

func TestIsValidPermission(t *testing.T) {
	tests := []struct {
		name     string
		perm     Permission
		expected bool
	}{
		{name: "user management", perm: PermUserManagement, expected: true},
		{name: "factory management", perm: PermFactoryManagement, expected: true},
		{name: "product management", perm: PermProductManagement, expected: true},
		{name: "support tickets", perm: PermSupportTickets, expected: true},
		{name: "audit logs", perm: PermAuditLogs, expected: true},
		{name: "underscore variant", perm: "user_management", expected: false},
		{name: "unknown", perm: "launch-missiles", expected: false},
		{name: "empty", perm: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidPermission(tt.perm)
			if result != tt.expected {
				t.Errorf("IsValidPermission(%q) = %v, want %v", tt.perm, result, tt.expected)
			}
		})
	}
}

func TestDefaultPermissions(t *testing.T) {
	tests := []struct {
		name     string
		level    AdminLevel
		expected []Permission
	}{
		{name: "super admin gets everything", level: AdminLevelSuperAdmin, expected: AllPermissions},
		{
			name:     "admin",
			level:    AdminLevelAdmin,
			expected: []Permission{PermUserManagement, PermFactoryManagement, PermOrderManagement, PermAnalyticsAccess},
		},
		{
			name:     "moderator",
			level:    AdminLevelModerator,
			expected: []Permission{PermUserManagement, PermOrderManagement, PermSupportTickets},
		},
		{
			name:     "support",
			level:    AdminLevelSupport,
			expected: []Permission{PermSupportTickets, PermOrderManagement},
		},
		{name: "unknown level", level: "intern", expected: []Permission{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DefaultPermissions(tt.level)
			if len(result) != len(tt.expected) {
				t.Fatalf("DefaultPermissions(%q) = %v, want %v", tt.level, result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("DefaultPermissions(%q)[%d] = %q, want %q", tt.level, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestDefaultPermissions_SuperAdminIsACopy(t *testing.T) {
	perms := DefaultPermissions(AdminLevelSuperAdmin)
	perms[0] = "mutated"

	if AllPermissions[0] != PermUserManagement {
		t.Errorf("mutating the default set changed AllPermissions: %v", AllPermissions)
	}
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name     string
		perms    []Permission
		required Permission
		expected bool
	}{
		{name: "has exact permission", perms: []Permission{PermUserManagement}, required: PermUserManagement, expected: true},
		{name: "has permission in list", perms: []Permission{PermAuditLogs, PermSupportTickets}, required: PermSupportTickets, expected: true},
		{name: "does not have permission", perms: []Permission{PermAuditLogs}, required: PermUserManagement, expected: false},
		{name: "empty permissions", perms: []Permission{}, required: PermUserManagement, expected: false},
		{name: "nil permissions", perms: nil, required: PermUserManagement, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := HasPermission(tt.perms, tt.required)
			if result != tt.expected {
				t.Errorf("HasPermission(%v, %q) = %v, want %v", tt.perms, tt.required, result, tt.expected)
			}
		})
	}
}

package models

// Permission is a capability tag carried by admin accounts.
type Permission string

// Permission constants define all valid admin permissions in the system
const (
	PermUserManagement      Permission = "user-management"
	PermFactoryManagement   Permission = "factory-management"
	PermProductManagement   Permission = "product-management"
	PermOrderManagement     Permission = "order-management"
	PermAnalyticsAccess     Permission = "analytics-access"
	PermSystemConfiguration Permission = "system-configuration"
	PermAuditLogs           Permission = "audit-logs"
	PermSupportTickets      Permission = "support-tickets"
)

// AllPermissions is the whitelist of all allowed permissions, in display order
var AllPermissions = []Permission{
	PermUserManagement,
	PermFactoryManagement,
	PermProductManagement,
	PermOrderManagement,
	PermAnalyticsAccess,
	PermSystemConfiguration,
	PermAuditLogs,
	PermSupportTickets,
}

var validPermissions = func() map[Permission]bool {
	m := make(map[Permission]bool, len(AllPermissions))
	for _, p := range AllPermissions {
		m[p] = true
	}
	return m
}()

// IsValidPermission checks if a permission exists in the whitelist
func IsValidPermission(p Permission) bool {
	return validPermissions[p]
}

// DefaultPermissions returns the permission set granted to a new admin of the given level
// when the caller does not provide one. Unknown levels get no permissions.
func DefaultPermissions(level AdminLevel) []Permission {
	switch level {
	case AdminLevelSuperAdmin:
		out := make([]Permission, len(AllPermissions))
		copy(out, AllPermissions)
		return out
	case AdminLevelAdmin:
		return []Permission{PermUserManagement, PermFactoryManagement, PermOrderManagement, PermAnalyticsAccess}
	case AdminLevelModerator:
		return []Permission{PermUserManagement, PermOrderManagement, PermSupportTickets}
	case AdminLevelSupport:
		return []Permission{PermSupportTickets, PermOrderManagement}
	default:
		return []Permission{}
	}
}

// HasPermission checks if a permission set contains the required permission
func HasPermission(perms []Permission, required Permission) bool {
	for _, p := range perms {
		if p == required {
			return true
		}
	}
	return false
}

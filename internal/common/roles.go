// File: internal/common/roles.go
package common

// Dashboard roles an admin account can hold.
const (
	RoleSuperAdmin       = "super_admin"
	RoleTariffAdmin      = "tariff_admin"
	RoleCustomerAdmin    = "customer_admin"
	RoleMeterReaderAdmin = "meter_reader_admin"
	RoleApprovalAdmin    = "approval_admin"
	RoleGeneralAdmin     = "general_admin"
)

// AllRoles lists every admin role in display order.
var AllRoles = []string{
	RoleSuperAdmin,
	RoleTariffAdmin,
	RoleCustomerAdmin,
	RoleMeterReaderAdmin,
	RoleApprovalAdmin,
	RoleGeneralAdmin,
}

// IsValidRole reports whether role is a known admin role.
func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// File: internal/app/roles.go
package app

import (
	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// roleGuards holds the role checks each resource is mounted with.
type roleGuards struct {
	superAdmin     gin.HandlerFunc
	agentRead      gin.HandlerFunc
	agentWrite     gin.HandlerFunc
	locationWrite  gin.HandlerFunc
	tariffWrite    gin.HandlerFunc
	scoringRead    gin.HandlerFunc
	scoringWrite   gin.HandlerFunc
	approvalReview gin.HandlerFunc
	auditRead      gin.HandlerFunc
	customerRead   gin.HandlerFunc
	customerWrite  gin.HandlerFunc
	meterReading   gin.HandlerFunc
}

func newRoleGuards() roleGuards {
	return roleGuards{
		superAdmin:     middleware.RoleAuthMiddleware(common.RoleSuperAdmin),
		agentRead:      middleware.RoleAuthMiddleware(common.RoleSuperAdmin, common.RoleGeneralAdmin, common.RoleMeterReaderAdmin),
		agentWrite:     middleware.RoleAuthMiddleware(common.RoleSuperAdmin, common.RoleGeneralAdmin),
		locationWrite:  middleware.RoleAuthMiddleware(common.RoleSuperAdmin, common.RoleGeneralAdmin),
		tariffWrite:    middleware.RoleAuthMiddleware(common.RoleSuperAdmin, common.RoleTariffAdmin),
		scoringRead:    middleware.RoleAuthMiddleware(common.RoleSuperAdmin, common.RoleTariffAdmin, common.RoleGeneralAdmin, common.RoleApprovalAdmin),
		scoringWrite:   middleware.RoleAuthMiddleware(common.RoleSuperAdmin, common.RoleTariffAdmin, common.RoleGeneralAdmin),
		approvalReview: middleware.RoleAuthMiddleware(common.RoleSuperAdmin, common.RoleApprovalAdmin),
		auditRead:      middleware.RoleAuthMiddleware(common.RoleSuperAdmin, common.RoleApprovalAdmin),
		customerRead:   middleware.RoleAuthMiddleware(common.RoleSuperAdmin, common.RoleCustomerAdmin, common.RoleMeterReaderAdmin),
		customerWrite:  middleware.RoleAuthMiddleware(common.RoleSuperAdmin, common.RoleCustomerAdmin),
		meterReading:   middleware.RoleAuthMiddleware(common.RoleMeterReaderAdmin, common.RoleSuperAdmin),
	}
}

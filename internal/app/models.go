// File: internal/app/models.go
package app

import (
	"wasa_admin_backend/internal/admin"
	"wasa_admin_backend/internal/agent"
	"wasa_admin_backend/internal/approval"
	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/customer"
	"wasa_admin_backend/internal/location"
	"wasa_admin_backend/internal/meter"
	"wasa_admin_backend/internal/scoring"
	"wasa_admin_backend/internal/tariff"
)

// Models lists every table the backend owns, parents before children.
func Models() []interface{} {
	return []interface{}{
		&admin.Admin{},
		&location.Wasa{},
		&location.Zone{},
		&location.Area{},
		&agent.Agent{},
		&tariff.TariffCategory{},
		&tariff.TariffCategorySettings{},
		&scoring.ZoneScoringRuleSet{},
		&approval.ApprovalRequest{},
		&audit.AuditLog{},
		&customer.Customer{},
		&meter.Meter{},
		&meter.MeterReading{},
	}
}

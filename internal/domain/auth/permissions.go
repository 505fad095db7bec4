package auth

const (
	RoleAdmin    = "admin"
	RoleAnalyst  = "security_analyst"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

const (
	PermCampaignsRead   = "governance.campaigns.read"
	PermCampaignsWrite  = "governance.campaigns.write"
	PermCampaignsReview = "governance.campaigns.review"
	PermScansRun        = "governance.scans.run"
	PermAlertsRead      = "governance.alerts.read"
	PermAlertsResolve   = "governance.alerts.resolve"
	PermRolesRead       = "governance.roles.read"
	PermRolesWrite      = "governance.roles.write"
	PermRiskRead        = "governance.risk.read"
	PermAuditRead       = "governance.audit.read"
)

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermCampaignsRead,
	},
	RoleManager: {
		PermCampaignsRead,
		PermCampaignsReview,
		PermRolesRead,
		PermRiskRead,
	},
	RoleAnalyst: {
		PermCampaignsRead,
		PermCampaignsWrite,
		PermCampaignsReview,
		PermScansRun,
		PermAlertsRead,
		PermAlertsResolve,
		PermRolesRead,
		PermRiskRead,
		PermAuditRead,
	},
	RoleAdmin: {
		PermCampaignsRead,
		PermCampaignsWrite,
		PermCampaignsReview,
		PermScansRun,
		PermAlertsRead,
		PermAlertsResolve,
		PermRolesRead,
		PermRolesWrite,
		PermRiskRead,
		PermAuditRead,
	},
}

// HasPermission checks the static role table. Role names come from the
// signed token, so no store round-trip is needed.
func HasPermission(roleName, permission string) bool {
	for _, p := range RolePermissions[roleName] {
		if p == permission {
			return true
		}
	}
	return false
}

package drift

import (
	"time"

	"accessgov/internal/domain/risk"
)

// Alert statuses advance monotonically. A revoked resolution passes
// through in_remediation while the revocations run; role_updated goes
// straight to resolved; false_positive is terminal.
const (
	StatusOpen          = "open"
	StatusInRemediation = "in_remediation"
	StatusFalsePositive = "false_positive"
	StatusResolved      = "resolved"
)

const (
	ResolutionRevoked       = "revoked"
	ResolutionRoleUpdated   = "role_updated"
	ResolutionFalsePositive = "false_positive"
)

// ExcessApp is access the user holds beyond the assigned role template.
type ExcessApp struct {
	AppID            string `json:"appId"`
	AppName          string `json:"appName"`
	AccessType       string `json:"accessType"`
	AppRiskScore     int    `json:"appRiskScore"`
	DaysSinceLastUse int    `json:"daysSinceLastUse"`
}

// MissingApp is required template access the user does not hold. Tracked on
// every result but never the sole trigger of an alert.
type MissingApp struct {
	AppID      string `json:"appId"`
	AppName    string `json:"appName"`
	AccessType string `json:"accessType"`
}

type Result struct {
	UserID            string       `json:"userId"`
	UserName          string       `json:"userName"`
	Department        string       `json:"department"`
	TemplateID        string       `json:"templateId"`
	TemplateName      string       `json:"templateName"`
	ExcessApps        []ExcessApp  `json:"excessApps"`
	MissingApps       []MissingApp `json:"missingApps"`
	RiskScore         int          `json:"riskScore"`
	RiskLevel         risk.Level   `json:"riskLevel"`
	RiskFactors       []string     `json:"riskFactors"`
	RecommendedAction string       `json:"recommendedAction"`
	AlertID           string       `json:"alertId,omitempty"`
}

type Alert struct {
	ID                string       `json:"id"`
	UserID            string       `json:"userId"`
	UserName          string       `json:"userName"`
	Department        string       `json:"department"`
	TemplateID        string       `json:"templateId"`
	TemplateName      string       `json:"templateName"`
	ExcessApps        []ExcessApp  `json:"excessApps"`
	MissingApps       []MissingApp `json:"missingApps"`
	RiskScore         int          `json:"riskScore"`
	RiskLevel         risk.Level   `json:"riskLevel"`
	RiskFactors       []string     `json:"riskFactors"`
	RecommendedAction string       `json:"recommendedAction"`
	Status            string       `json:"status"`
	Resolution        string       `json:"resolution,omitempty"`
	ResolutionNotes   string       `json:"resolutionNotes,omitempty"`
	ResolvedBy        string       `json:"resolvedBy,omitempty"`
	ResolvedAt        *time.Time   `json:"resolvedAt,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
}

// Summary reports a tenant-wide sweep with per-user failure isolation.
type Summary struct {
	UsersScanned  int      `json:"usersScanned"`
	DriftDetected int      `json:"driftDetected"`
	AlertsCreated int      `json:"alertsCreated"`
	Failures      []string `json:"failures,omitempty"`
	Results       []Result `json:"results"`
}

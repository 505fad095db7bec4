package overpriv

import (
	"time"

	"accessgov/internal/domain/risk"
)

const (
	StatusOpen          = "open"
	StatusInvestigating = "investigating"
	StatusAcceptedRisk  = "accepted_risk"
	StatusResolved      = "resolved"
)

const (
	ActionDowngrade    = "downgrade"
	ActionImplementJIT = "implement_jit"
	ActionRequireMFA   = "require_mfa"
	ActionAcceptRisk   = "accept_risk"
)

// Eligibility floor: accounts holding fewer admin/owner grants than this are
// never flagged.
const MinAdminApps = 5

const (
	staleDays       = 90
	longRunningDays = 365
)

// AdminApp is one admin- or owner-level grant on a flagged account.
type AdminApp struct {
	AppID            string `json:"appId"`
	AppName          string `json:"appName"`
	Category         string `json:"category"`
	AccessType       string `json:"accessType"`
	DaysSinceLastUse int    `json:"daysSinceLastUse"`
	DaysSinceGranted int    `json:"daysSinceGranted"`
	Stale            bool   `json:"stale"`
	CrossDepartment  bool   `json:"crossDepartment"`
	LongRunning      bool   `json:"longRunning"`
}

type Result struct {
	UserID            string     `json:"userId"`
	UserName          string     `json:"userName"`
	Department        string     `json:"department"`
	AdminApps         []AdminApp `json:"adminApps"`
	AdminAppCount     int        `json:"adminAppCount"`
	StaleApps         []string   `json:"staleApps"`
	CrossDeptApps     []string   `json:"crossDeptApps"`
	LongRunningApps   []string   `json:"longRunningApps"`
	RiskScore         int        `json:"riskScore"`
	RiskLevel         risk.Level `json:"riskLevel"`
	RiskFactors       []string   `json:"riskFactors"`
	RecommendedAction string     `json:"recommendedAction"`
	AlertID           string     `json:"alertId,omitempty"`
}

type Alert struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	UserName          string     `json:"userName"`
	Department        string     `json:"department"`
	AdminApps         []AdminApp `json:"adminApps"`
	AdminAppCount     int        `json:"adminAppCount"`
	StaleApps         []string   `json:"staleApps"`
	CrossDeptApps     []string   `json:"crossDeptApps"`
	LongRunningApps   []string   `json:"longRunningApps"`
	RiskScore         int        `json:"riskScore"`
	RiskLevel         risk.Level `json:"riskLevel"`
	RiskFactors       []string   `json:"riskFactors"`
	RecommendedAction string     `json:"recommendedAction"`
	Status            string     `json:"status"`
	RemediationAction string     `json:"remediationAction,omitempty"`
	RemediationPlan   string     `json:"remediationPlan,omitempty"`
	RemediatedBy      string     `json:"remediatedBy,omitempty"`
	RemediatedAt      *time.Time `json:"remediatedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

type Summary struct {
	UsersScanned     int      `json:"usersScanned"`
	AccountsDetected int      `json:"accountsDetected"`
	AlertsCreated    int      `json:"alertsCreated"`
	Failures         []string `json:"failures,omitempty"`
	Results          []Result `json:"results"`
}

package campaign

import (
	"errors"
	"time"

	"accessgov/internal/domain/risk"
)

// Campaign lifecycle is one-way: draft -> active -> completed.
const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

const (
	ScopeAll        = "all"
	ScopeDepartment = "department"
	ScopeApps       = "apps"
	ScopeUsers      = "users"
)

const (
	DecisionPending  = "pending"
	DecisionApproved = "approved"
	DecisionRevoked  = "revoked"
	DecisionDeferred = "deferred"
)

const (
	ExecutionPending   = "pending"
	ExecutionCompleted = "completed"
	ExecutionFailed    = "failed"
)

// SystemReviewerID authors timeout auto-approvals.
const SystemReviewerID = "system"

var (
	ErrNotFound         = errors.New("campaign or review item not found")
	ErrValidation       = errors.New("invalid campaign configuration")
	ErrInvalidState     = errors.New("operation not allowed in current campaign status")
	ErrAlreadyDecided   = errors.New("review item already decided")
	ErrAlreadyCompleted = errors.New("campaign already completed")
	ErrBadDecision      = errors.New("unknown decision value")
)

type ScopeConfig struct {
	Department string   `json:"department,omitempty"`
	AppIDs     []string `json:"appIds,omitempty"`
	UserIDs    []string `json:"userIds,omitempty"`
}

type Campaign struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	CampaignType         string      `json:"campaignType"`
	ScopeType            string      `json:"scopeType"`
	Scope                ScopeConfig `json:"scopeConfig"`
	StartDate            time.Time   `json:"startDate"`
	DueDate              time.Time   `json:"dueDate"`
	AutoApproveOnTimeout bool        `json:"autoApproveOnTimeout"`
	Status               string      `json:"status"`
	TotalItems           int         `json:"totalItems"`
	ReviewedItems        int         `json:"reviewedItems"`
	ApprovedItems        int         `json:"approvedItems"`
	RevokedItems         int         `json:"revokedItems"`
	DeferredItems        int         `json:"deferredItems"`
	CreatedBy            string      `json:"createdBy"`
	CreatedAt            time.Time   `json:"createdAt"`
	CompletedAt          *time.Time  `json:"completedAt,omitempty"`
	CompletionReportURL  string      `json:"completionReportUrl,omitempty"`
}

// ReviewItem snapshots the user and app at generation time so decisions stay
// meaningful even if directory records change mid-campaign.
type ReviewItem struct {
	ID                    string     `json:"id"`
	CampaignID            string     `json:"campaignId"`
	UserID                string     `json:"userId"`
	UserName              string     `json:"userName"`
	UserEmail             string     `json:"userEmail"`
	Department            string     `json:"department"`
	AppID                 string     `json:"appId"`
	AppName               string     `json:"appName"`
	AccessType            string     `json:"accessType"`
	GrantedAt             time.Time  `json:"grantedDate"`
	LastUsedAt            *time.Time `json:"lastUsedDate,omitempty"`
	DaysSinceLastUse      int        `json:"daysSinceLastUse"`
	BusinessJustification string     `json:"businessJustification,omitempty"`
	RiskScore             int        `json:"riskScore"`
	RiskLevel             risk.Level `json:"riskLevel"`
	ReviewerID            string     `json:"reviewerId,omitempty"`
	ReviewerName          string     `json:"reviewerName,omitempty"`
	Decision              string     `json:"decision"`
	DecisionNotes         string     `json:"decisionNotes,omitempty"`
	ExecutionStatus       string     `json:"executionStatus"`
	ExecutionError        string     `json:"executionError,omitempty"`
	ReviewedAt            *time.Time `json:"reviewedAt,omitempty"`
	ExecutedAt            *time.Time `json:"executedAt,omitempty"`
}

// Decision is the append-only audit record. It is never mutated or deleted,
// independent of the mutable ReviewItem.
type Decision struct {
	ID              string    `json:"id"`
	CampaignID      string    `json:"campaignId"`
	ReviewItemID    string    `json:"reviewItemId"`
	Decision        string    `json:"decision"`
	Rationale       string    `json:"rationale,omitempty"`
	ReviewerID      string    `json:"reviewerId"`
	ReviewerName    string    `json:"reviewerName"`
	ReviewerEmail   string    `json:"reviewerEmail,omitempty"`
	ExecutionStatus string    `json:"executionStatus"`
	CreatedAt       time.Time `json:"timestamp"`
}

type Progress struct {
	CampaignID      string  `json:"campaignId"`
	Status          string  `json:"status"`
	TotalItems      int     `json:"totalItems"`
	ReviewedItems   int     `json:"reviewedItems"`
	ApprovedItems   int     `json:"approvedItems"`
	RevokedItems    int     `json:"revokedItems"`
	DeferredItems   int     `json:"deferredItems"`
	PercentComplete int     `json:"percentComplete"`
	DaysRemaining   float64 `json:"daysRemaining"`
	IsOverdue       bool    `json:"isOverdue"`
}

type GenerateSummary struct {
	CampaignID   string `json:"campaignId"`
	ItemsCreated int    `json:"itemsCreated"`
	Skipped      int    `json:"skipped"`
	TotalItems   int    `json:"totalItems"`
}

type BulkDecision struct {
	ItemIDs      []string `json:"itemIds"`
	Decision     string   `json:"decision"`
	Notes        string   `json:"notes,omitempty"`
	ReviewerID   string   `json:"reviewerId"`
	ReviewerName string   `json:"reviewerName"`
}

type BulkFailure struct {
	ItemID string `json:"itemId"`
	Error  string `json:"error"`
}

type BulkResult struct {
	Applied  int           `json:"applied"`
	Failures []BulkFailure `json:"failures,omitempty"`
}

type CompletionReport struct {
	CampaignID           string     `json:"campaignId"`
	CampaignName         string     `json:"campaignName"`
	CompletedAt          time.Time  `json:"completedAt"`
	TotalItems           int        `json:"totalItems"`
	ReviewedItems        int        `json:"reviewedItems"`
	ApprovedItems        int        `json:"approvedItems"`
	RevokedItems         int        `json:"revokedItems"`
	DeferredItems        int        `json:"deferredItems"`
	PendingItems         int        `json:"pendingItems"`
	UniqueReviewers      int        `json:"uniqueReviewers"`
	ExecutionSuccessRate float64    `json:"executionSuccessRate"`
	Decisions            []Decision `json:"decisions"`
	ReportURL            string     `json:"reportUrl,omitempty"`
}

package campaign

import (
	"context"
	"fmt"
	"math"
	"time"

	"accessgov/internal/domain/access"
	"accessgov/internal/domain/directory"
	"accessgov/internal/platform/events"
)

type Store interface {
	CreateCampaign(ctx context.Context, tenantID string, c Campaign) (string, error)
	GetCampaign(ctx context.Context, tenantID, campaignID string) (Campaign, error)
	UpdateCampaign(ctx context.Context, tenantID string, c Campaign) error
	ListCampaigns(ctx context.Context, tenantID, status string) ([]Campaign, error)

	CreateReviewItem(ctx context.Context, tenantID string, item ReviewItem) (string, error)
	GetReviewItem(ctx context.Context, tenantID, itemID string) (ReviewItem, error)
	UpdateReviewItem(ctx context.Context, tenantID string, item ReviewItem) error
	ListReviewItems(ctx context.Context, tenantID, campaignID string) ([]ReviewItem, error)

	AppendDecision(ctx context.Context, tenantID string, d Decision) error
	ListDecisions(ctx context.Context, tenantID, campaignID string) ([]Decision, error)
}

type AccessSource interface {
	ListAll(ctx context.Context, tenantID string) ([]access.Grant, error)
	ListForUser(ctx context.Context, tenantID, userID string) ([]access.Grant, error)
	Revoke(ctx context.Context, tenantID, userID, appID string) error
}

type Directory interface {
	User(ctx context.Context, tenantID, userID string) (directory.User, error)
	App(ctx context.Context, tenantID, appID string) (directory.App, error)
	ManagerOf(ctx context.Context, tenantID, userID string) (directory.User, error)
}

// Notifier delivers reviewer-facing notifications. Implemented by the
// notifications service; failures are logged by callers, never propagated.
type Notifier interface {
	Notify(ctx context.Context, tenantID, userID, ntype, title, body string) error
}

type Service struct {
	Store     Store
	Access    AccessSource
	Directory Directory
	Notifier  Notifier
	Events    events.Sink
	ReportDir string
	Now       func() time.Time
}

func NewService(store Store, accessSource AccessSource, dir Directory, notifier Notifier, sink events.Sink, reportDir string) *Service {
	return &Service{
		Store:     store,
		Access:    accessSource,
		Directory: dir,
		Notifier:  notifier,
		Events:    sink,
		ReportDir: reportDir,
		Now:       time.Now,
	}
}

// CreateCampaign validates the configuration and persists the campaign in
// draft. Nothing is written when validation fails.
func (s *Service) CreateCampaign(ctx context.Context, tenantID string, c Campaign, createdBy string) (Campaign, error) {
	if err := validate(c); err != nil {
		return Campaign{}, err
	}

	c.Status = StatusDraft
	c.CreatedBy = createdBy
	c.CreatedAt = s.Now()
	c.TotalItems = 0
	c.ReviewedItems = 0
	c.ApprovedItems = 0
	c.RevokedItems = 0
	c.DeferredItems = 0
	c.CompletedAt = nil
	c.CompletionReportURL = ""

	id, err := s.Store.CreateCampaign(ctx, tenantID, c)
	if err != nil {
		return Campaign{}, fmt.Errorf("persist campaign: %w", err)
	}
	c.ID = id
	return c, nil
}

func validate(c Campaign) error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if c.CampaignType == "" {
		return fmt.Errorf("%w: campaignType is required", ErrValidation)
	}
	if c.StartDate.IsZero() || c.DueDate.IsZero() {
		return fmt.Errorf("%w: startDate and dueDate are required", ErrValidation)
	}
	if !c.DueDate.After(c.StartDate) {
		return fmt.Errorf("%w: dueDate must be after startDate", ErrValidation)
	}

	switch c.ScopeType {
	case ScopeAll:
	case ScopeDepartment:
		if c.Scope.Department == "" {
			return fmt.Errorf("%w: department scope requires a department", ErrValidation)
		}
	case ScopeApps:
		if len(c.Scope.AppIDs) == 0 {
			return fmt.Errorf("%w: apps scope requires at least one app id", ErrValidation)
		}
	case ScopeUsers:
		if len(c.Scope.UserIDs) == 0 {
			return fmt.Errorf("%w: users scope requires at least one user id", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown scope type %q", ErrValidation, c.ScopeType)
	}
	return nil
}

func (s *Service) GetCampaign(ctx context.Context, tenantID, campaignID string) (Campaign, error) {
	return s.Store.GetCampaign(ctx, tenantID, campaignID)
}

func (s *Service) ListCampaigns(ctx context.Context, tenantID, status string) ([]Campaign, error) {
	return s.Store.ListCampaigns(ctx, tenantID, status)
}

func (s *Service) ListReviewItems(ctx context.Context, tenantID, campaignID string) ([]ReviewItem, error) {
	return s.Store.ListReviewItems(ctx, tenantID, campaignID)
}

func (s *Service) ListDecisions(ctx context.Context, tenantID, campaignID string) ([]Decision, error) {
	return s.Store.ListDecisions(ctx, tenantID, campaignID)
}

// Progress derives completion and schedule state. Pure read.
func (s *Service) Progress(ctx context.Context, tenantID, campaignID string) (Progress, error) {
	c, err := s.Store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return Progress{}, err
	}

	p := Progress{
		CampaignID:    c.ID,
		Status:        c.Status,
		TotalItems:    c.TotalItems,
		ReviewedItems: c.ReviewedItems,
		ApprovedItems: c.ApprovedItems,
		RevokedItems:  c.RevokedItems,
		DeferredItems: c.DeferredItems,
	}
	if c.TotalItems > 0 {
		p.PercentComplete = c.ReviewedItems * 100 / c.TotalItems
	}
	remaining := c.DueDate.Sub(s.Now()).Hours() / 24
	p.DaysRemaining = math.Round(remaining*10) / 10
	p.IsOverdue = remaining < 0
	return p, nil
}

// recount rebuilds campaign counters from the full item set. Counters are
// never incremented in place, so a partially failed batch cannot leave them
// out of sync with the items.
func (s *Service) recount(ctx context.Context, tenantID string, c *Campaign) error {
	items, err := s.Store.ListReviewItems(ctx, tenantID, c.ID)
	if err != nil {
		return fmt.Errorf("recount campaign %s: %w", c.ID, err)
	}

	c.TotalItems = len(items)
	c.ReviewedItems = 0
	c.ApprovedItems = 0
	c.RevokedItems = 0
	c.DeferredItems = 0
	for _, item := range items {
		switch item.Decision {
		case DecisionApproved:
			c.ApprovedItems++
		case DecisionRevoked:
			c.RevokedItems++
		case DecisionDeferred:
			c.DeferredItems++
		default:
			continue
		}
		c.ReviewedItems++
	}
	return s.Store.UpdateCampaign(ctx, tenantID, *c)
}

package drift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"accessgov/internal/domain/access"
	"accessgov/internal/domain/directory"
	"accessgov/internal/domain/risk"
	"accessgov/internal/domain/roles"
	"accessgov/internal/platform/events"
	"accessgov/internal/platform/metrics"
)

var (
	ErrNotFound      = errors.New("drift alert not found")
	ErrInvalidState  = errors.New("drift alert already resolved")
	ErrBadResolution = errors.New("unknown resolution")
)

type AccessReader interface {
	ListForUser(ctx context.Context, tenantID, userID string) ([]access.Grant, error)
}

type Revoker interface {
	Revoke(ctx context.Context, tenantID, userID, appID string) error
}

type TemplateSource interface {
	Get(ctx context.Context, tenantID, templateID string) (roles.Template, error)
	ActiveAssignments(ctx context.Context, tenantID string) ([]roles.Assignment, error)
}

type Directory interface {
	User(ctx context.Context, tenantID, userID string) (directory.User, error)
	App(ctx context.Context, tenantID, appID string) (directory.App, error)
}

type AlertStore interface {
	CreateAlert(ctx context.Context, tenantID string, a Alert) (string, error)
	GetAlert(ctx context.Context, tenantID, alertID string) (Alert, error)
	UpdateAlert(ctx context.Context, tenantID string, a Alert) error
	ListAlerts(ctx context.Context, tenantID, status string) ([]Alert, error)
}

type Service struct {
	Access    AccessReader
	Revoker   Revoker
	Templates TemplateSource
	Directory Directory
	Alerts    AlertStore
	Events    events.Sink
	Now       func() time.Time
}

func NewService(accessReader AccessReader, revoker Revoker, templates TemplateSource, dir Directory, alerts AlertStore, sink events.Sink) *Service {
	return &Service{
		Access:    accessReader,
		Revoker:   revoker,
		Templates: templates,
		Directory: dir,
		Alerts:    alerts,
		Events:    sink,
		Now:       time.Now,
	}
}

// ScanUser diffs the user's actual grants against the assigned role template.
// A nil result means no drift: missing-but-required access alone does not
// constitute drift.
func (s *Service) ScanUser(ctx context.Context, tenantID, userID, templateID string) (*Result, error) {
	template, err := s.Templates.Get(ctx, tenantID, templateID)
	if err != nil {
		return nil, fmt.Errorf("load role template %s: %w", templateID, err)
	}
	user, err := s.Directory.User(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	grants, err := s.Access.ListForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("load grants for %s: %w", userID, err)
	}

	expected := make(map[string]roles.ExpectedApp, len(template.ExpectedApps))
	for _, app := range template.ExpectedApps {
		expected[app.AppID] = app
	}
	actual := make(map[string]access.Grant, len(grants))
	for _, g := range grants {
		actual[g.AppID] = g
	}

	now := s.Now()
	var excess []ExcessApp
	for _, g := range grants {
		if _, ok := expected[g.AppID]; ok {
			continue
		}
		entry := ExcessApp{
			AppID:            g.AppID,
			AccessType:       g.AccessType,
			DaysSinceLastUse: g.DaysSinceLastUse(now),
		}
		if app, err := s.Directory.App(ctx, tenantID, g.AppID); err == nil {
			entry.AppName = app.Name
			entry.AppRiskScore = app.RiskScore
		} else {
			slog.Warn("drift scan app lookup failed", "appId", g.AppID, "err", err)
		}
		excess = append(excess, entry)
	}

	var missing []MissingApp
	for _, app := range template.ExpectedApps {
		if !app.Required {
			continue
		}
		if _, ok := actual[app.AppID]; !ok {
			missing = append(missing, MissingApp{AppID: app.AppID, AppName: app.AppName, AccessType: app.AccessType})
		}
	}

	if len(excess) == 0 {
		metrics.ScansTotal.WithLabelValues("drift", "clean").Inc()
		return nil, nil
	}

	riskScore, factors := score(excess)
	level := risk.LevelFor(riskScore)
	result := &Result{
		UserID:            userID,
		UserName:          user.FullName(),
		Department:        user.Department,
		TemplateID:        template.ID,
		TemplateName:      template.Name,
		ExcessApps:        excess,
		MissingApps:       missing,
		RiskScore:         riskScore,
		RiskLevel:         level,
		RiskFactors:       factors,
		RecommendedAction: recommendedAction(level, len(excess)),
	}

	alertID, err := s.createAlert(ctx, tenantID, result)
	if err != nil {
		return nil, err
	}
	result.AlertID = alertID
	metrics.ScansTotal.WithLabelValues("drift", "drift").Inc()
	return result, nil
}

func (s *Service) createAlert(ctx context.Context, tenantID string, r *Result) (string, error) {
	alert := Alert{
		UserID:            r.UserID,
		UserName:          r.UserName,
		Department:        r.Department,
		TemplateID:        r.TemplateID,
		TemplateName:      r.TemplateName,
		ExcessApps:        r.ExcessApps,
		MissingApps:       r.MissingApps,
		RiskScore:         r.RiskScore,
		RiskLevel:         r.RiskLevel,
		RiskFactors:       r.RiskFactors,
		RecommendedAction: r.RecommendedAction,
		Status:            StatusOpen,
		CreatedAt:         s.Now(),
	}
	alertID, err := s.Alerts.CreateAlert(ctx, tenantID, alert)
	if err != nil {
		return "", fmt.Errorf("persist drift alert for %s: %w", r.UserID, err)
	}
	metrics.AlertsCreatedTotal.WithLabelValues("drift", string(r.RiskLevel)).Inc()

	// Fire-and-forget: a sink failure never fails the scan.
	if r.RiskLevel.AtLeast(risk.LevelHigh) && s.Events != nil {
		s.Events.Emit(ctx, events.PrivilegeDriftDetected, map[string]any{
			"tenantId":  tenantID,
			"alertId":   alertID,
			"userId":    r.UserID,
			"riskScore": r.RiskScore,
			"riskLevel": string(r.RiskLevel),
			"excess":    len(r.ExcessApps),
		})
	}
	return alertID, nil
}

// ScanAll sweeps every active role assignment. One user's failure never
// aborts the sweep; results sort by risk score, not scan order.
func (s *Service) ScanAll(ctx context.Context, tenantID string) (Summary, error) {
	assignments, err := s.Templates.ActiveAssignments(ctx, tenantID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{}
	for _, assignment := range assignments {
		summary.UsersScanned++
		result, err := s.ScanUser(ctx, tenantID, assignment.UserID, assignment.TemplateID)
		if err != nil {
			slog.Warn("drift scan failed", "userId", assignment.UserID, "err", err)
			metrics.ScansTotal.WithLabelValues("drift", "error").Inc()
			summary.Failures = append(summary.Failures, assignment.UserID)
			continue
		}
		if result == nil {
			continue
		}
		summary.DriftDetected++
		summary.AlertsCreated++
		summary.Results = append(summary.Results, *result)
	}

	sort.SliceStable(summary.Results, func(i, j int) bool {
		return summary.Results[i].RiskScore > summary.Results[j].RiskScore
	})
	return summary, nil
}

func (s *Service) ListAlerts(ctx context.Context, tenantID, status string) ([]Alert, error) {
	return s.Alerts.ListAlerts(ctx, tenantID, status)
}

// ResolveAlert closes out an alert. Resolution "revoked" revokes every
// excess grant first; individual revoke failures are logged, not fatal.
func (s *Service) ResolveAlert(ctx context.Context, tenantID, alertID, resolution, notes, resolvedBy string) (Alert, error) {
	switch resolution {
	case ResolutionRevoked, ResolutionRoleUpdated, ResolutionFalsePositive:
	default:
		return Alert{}, ErrBadResolution
	}

	alert, err := s.Alerts.GetAlert(ctx, tenantID, alertID)
	if err != nil {
		return Alert{}, err
	}
	if alert.Status == StatusResolved || alert.Status == StatusFalsePositive {
		return Alert{}, ErrInvalidState
	}

	if resolution == ResolutionRevoked {
		// Persist the intermediate state so a crash mid-batch leaves the
		// alert visibly in remediation rather than silently open.
		alert.Status = StatusInRemediation
		if err := s.Alerts.UpdateAlert(ctx, tenantID, alert); err != nil {
			return Alert{}, err
		}
		for _, app := range alert.ExcessApps {
			if err := s.Revoker.Revoke(ctx, tenantID, alert.UserID, app.AppID); err != nil {
				slog.Warn("drift resolution revoke failed", "alertId", alertID, "userId", alert.UserID, "appId", app.AppID, "err", err)
				metrics.RevocationsTotal.WithLabelValues("failed").Inc()
				continue
			}
			metrics.RevocationsTotal.WithLabelValues("completed").Inc()
		}
	}

	now := s.Now()
	alert.Resolution = resolution
	alert.ResolutionNotes = notes
	alert.ResolvedBy = resolvedBy
	alert.ResolvedAt = &now
	if resolution == ResolutionFalsePositive {
		alert.Status = StatusFalsePositive
	} else {
		alert.Status = StatusResolved
	}

	if err := s.Alerts.UpdateAlert(ctx, tenantID, alert); err != nil {
		return Alert{}, err
	}
	return alert, nil
}

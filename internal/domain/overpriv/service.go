package overpriv

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
	"accessgov/internal/platform/events"
	"accessgov/internal/platform/metrics"
)

var (
	ErrNotFound     = errors.New("overprivileged alert not found")
	ErrInvalidState = errors.New("overprivileged alert already closed")
	ErrBadAction    = errors.New("unknown remediation action")
)

type AccessReader interface {
	ListForUser(ctx context.Context, tenantID, userID string) ([]access.Grant, error)
}

type AccessWriter interface {
	UpdateAccessType(ctx context.Context, tenantID, userID, appID, newType string) error
}

type Directory interface {
	User(ctx context.Context, tenantID, userID string) (directory.User, error)
	Users(ctx context.Context, tenantID string) ([]directory.User, error)
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
	Writer    AccessWriter
	Directory Directory
	Alerts    AlertStore
	Events    events.Sink
	Now       func() time.Time
}

func NewService(accessReader AccessReader, writer AccessWriter, dir Directory, alerts AlertStore, sink events.Sink) *Service {
	return &Service{
		Access:    accessReader,
		Writer:    writer,
		Directory: dir,
		Alerts:    alerts,
		Events:    sink,
		Now:       time.Now,
	}
}

// ScanUser flags accounts with broad, stale or cross-department admin
// access. Accounts below the five-admin-app floor return nil.
func (s *Service) ScanUser(ctx context.Context, tenantID, userID string) (*Result, error) {
	user, err := s.Directory.User(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	grants, err := s.Access.ListForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("load grants for %s: %w", userID, err)
	}

	now := s.Now()
	var adminApps []AdminApp
	for _, g := range grants {
		if !g.IsAdminLevel() {
			continue
		}
		entry := AdminApp{
			AppID:            g.AppID,
			AccessType:       g.AccessType,
			DaysSinceLastUse: g.DaysSinceLastUse(now),
			DaysSinceGranted: g.DaysSinceGranted(now),
		}
		if app, err := s.Directory.App(ctx, tenantID, g.AppID); err == nil {
			entry.AppName = app.Name
			entry.Category = app.Category
		} else {
			slog.Warn("overprivileged scan app lookup failed", "appId", g.AppID, "err", err)
		}
		entry.Stale = entry.DaysSinceLastUse >= staleDays
		entry.CrossDepartment = crossDepartment(user.Department, entry.Category)
		entry.LongRunning = entry.DaysSinceGranted > longRunningDays
		adminApps = append(adminApps, entry)
	}

	if len(adminApps) < MinAdminApps {
		metrics.ScansTotal.WithLabelValues("overprivileged", "clean").Inc()
		return nil, nil
	}

	result := &Result{
		UserID:        userID,
		UserName:      user.FullName(),
		Department:    user.Department,
		AdminApps:     adminApps,
		AdminAppCount: len(adminApps),
	}
	for _, app := range adminApps {
		if app.Stale {
			result.StaleApps = append(result.StaleApps, app.AppID)
		}
		if app.CrossDepartment {
			result.CrossDeptApps = append(result.CrossDeptApps, app.AppID)
		}
		if app.LongRunning {
			result.LongRunningApps = append(result.LongRunningApps, app.AppID)
		}
	}

	result.RiskScore, result.RiskFactors = score(len(adminApps), len(result.StaleApps), len(result.CrossDeptApps), len(result.LongRunningApps))
	result.RiskLevel = risk.LevelFor(result.RiskScore)
	result.RecommendedAction = recommendedAction(result)

	alertID, err := s.createAlert(ctx, tenantID, result)
	if err != nil {
		return nil, err
	}
	result.AlertID = alertID
	metrics.ScansTotal.WithLabelValues("overprivileged", "detected").Inc()
	return result, nil
}

func (s *Service) createAlert(ctx context.Context, tenantID string, r *Result) (string, error) {
	alert := Alert{
		UserID:            r.UserID,
		UserName:          r.UserName,
		Department:        r.Department,
		AdminApps:         r.AdminApps,
		AdminAppCount:     r.AdminAppCount,
		StaleApps:         r.StaleApps,
		CrossDeptApps:     r.CrossDeptApps,
		LongRunningApps:   r.LongRunningApps,
		RiskScore:         r.RiskScore,
		RiskLevel:         r.RiskLevel,
		RiskFactors:       r.RiskFactors,
		RecommendedAction: r.RecommendedAction,
		Status:            StatusOpen,
		CreatedAt:         s.Now(),
	}
	alertID, err := s.Alerts.CreateAlert(ctx, tenantID, alert)
	if err != nil {
		return "", fmt.Errorf("persist overprivileged alert for %s: %w", r.UserID, err)
	}
	metrics.AlertsCreatedTotal.WithLabelValues("overprivileged", string(r.RiskLevel)).Inc()

	if r.RiskLevel.AtLeast(risk.LevelHigh) && s.Events != nil {
		s.Events.Emit(ctx, events.OverprivilegedDetected, map[string]any{
			"tenantId":      tenantID,
			"alertId":       alertID,
			"userId":        r.UserID,
			"adminAppCount": r.AdminAppCount,
			"riskScore":     r.RiskScore,
			"riskLevel":     string(r.RiskLevel),
		})
	}
	return alertID, nil
}

// ScanAll sweeps every active user with per-user failure isolation; results
// sort by risk score.
func (s *Service) ScanAll(ctx context.Context, tenantID string) (Summary, error) {
	users, err := s.Directory.Users(ctx, tenantID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{}
	for _, user := range users {
		if !user.Active {
			continue
		}
		summary.UsersScanned++
		result, err := s.ScanUser(ctx, tenantID, user.ID)
		if err != nil {
			slog.Warn("overprivileged scan failed", "userId", user.ID, "err", err)
			metrics.ScansTotal.WithLabelValues("overprivileged", "error").Inc()
			summary.Failures = append(summary.Failures, user.ID)
			continue
		}
		if result == nil {
			continue
		}
		summary.AccountsDetected++
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

// Remediate applies the chosen action. Downgrade sets every stale admin app
// to member access, attempting all apps before marking the alert resolved;
// per-app failures are logged, not retried. accept_risk parks the alert in
// accepted_risk and never resolves it. Justification for accept_risk is
// enforced at the route boundary.
func (s *Service) Remediate(ctx context.Context, tenantID, alertID, action, plan, remediatedBy string) (Alert, error) {
	switch action {
	case ActionDowngrade, ActionImplementJIT, ActionRequireMFA, ActionAcceptRisk:
	default:
		return Alert{}, ErrBadAction
	}

	alert, err := s.Alerts.GetAlert(ctx, tenantID, alertID)
	if err != nil {
		return Alert{}, err
	}
	if alert.Status == StatusResolved || alert.Status == StatusAcceptedRisk {
		return Alert{}, ErrInvalidState
	}

	if action == ActionDowngrade {
		for _, appID := range alert.StaleApps {
			if err := s.Writer.UpdateAccessType(ctx, tenantID, alert.UserID, appID, access.TypeMember); err != nil {
				slog.Warn("downgrade failed", "alertId", alertID, "userId", alert.UserID, "appId", appID, "err", err)
			}
		}
	}

	now := s.Now()
	alert.RemediationAction = action
	alert.RemediationPlan = plan
	alert.RemediatedBy = remediatedBy
	alert.RemediatedAt = &now
	switch action {
	case ActionAcceptRisk:
		alert.Status = StatusAcceptedRisk
	case ActionDowngrade:
		alert.Status = StatusResolved
	default:
		alert.Status = StatusInvestigating
	}

	if err := s.Alerts.UpdateAlert(ctx, tenantID, alert); err != nil {
		return Alert{}, err
	}
	return alert, nil
}

package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"accessgov/internal/domain/campaign"
	"accessgov/internal/domain/drift"
	"accessgov/internal/domain/overpriv"
	"accessgov/internal/platform/config"
)

const (
	JobDriftScan     = "privilege_drift_scan"
	JobOverprivScan  = "overprivileged_scan"
	JobCampaignSweep = "campaign_sweep"
)

type Service struct {
	DB        *pgxpool.Pool
	Cfg       config.Config
	Drift     *drift.Service
	Overpriv  *overpriv.Service
	Campaigns *campaign.Service
	Store     *campaign.PgStore
	queue     chan job
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, cfg config.Config, driftSvc *drift.Service, overprivSvc *overpriv.Service, campaignSvc *campaign.Service, campaignStore *campaign.PgStore) *Service {
	return &Service{
		DB:        db,
		Cfg:       cfg,
		Drift:     driftSvc,
		Overpriv:  overprivSvc,
		Campaigns: campaignSvc,
		Store:     campaignStore,
		queue:     make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.DriftScanInterval > 0 {
		go s.scheduleDriftScans(ctx, s.Cfg.DriftScanInterval)
	}
	if s.Cfg.OverprivScanInterval > 0 {
		go s.scheduleOverprivScans(ctx, s.Cfg.OverprivScanInterval)
	}
	if s.Cfg.CampaignSweepInterval > 0 {
		go s.scheduleCampaignSweeps(ctx, s.Cfg.CampaignSweepInterval)
	}
}

func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType, "tenantId", tenantID)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, TenantID: tenantID, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "tenantId", j.TenantID, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (tenant_id, job_type, status)
    VALUES ($1,$2,$3)
    RETURNING id
  `, j.TenantID, j.Type, "running").Scan(&runID); err != nil {
		slog.Warn("job run insert failed", "err", err)
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) scheduleDriftScans(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.forEachTenant(ctx, func(tenant string) {
				s.Enqueue(JobDriftScan, tenant, func(ctx context.Context) (any, error) {
					summary, err := s.Drift.ScanAll(ctx, tenant)
					return map[string]any{
						"usersScanned":  summary.UsersScanned,
						"driftDetected": summary.DriftDetected,
						"alertsCreated": summary.AlertsCreated,
						"failures":      len(summary.Failures),
					}, err
				})
			})
		}
	}
}

func (s *Service) scheduleOverprivScans(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.forEachTenant(ctx, func(tenant string) {
				s.Enqueue(JobOverprivScan, tenant, func(ctx context.Context) (any, error) {
					summary, err := s.Overpriv.ScanAll(ctx, tenant)
					return map[string]any{
						"usersScanned":     summary.UsersScanned,
						"accountsDetected": summary.AccountsDetected,
						"alertsCreated":    summary.AlertsCreated,
						"failures":         len(summary.Failures),
					}, err
				})
			})
		}
	}
}

// scheduleCampaignSweeps drives the calendar side of active campaigns:
// reminders as the due date approaches, then escalation and (where opted in)
// auto-approval once it has passed. The campaign operations themselves are
// idempotent per sweep.
func (s *Service) scheduleCampaignSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.forEachTenant(ctx, func(tenant string) {
				s.Enqueue(JobCampaignSweep, tenant, func(ctx context.Context) (any, error) {
					return s.sweepCampaigns(ctx, tenant)
				})
			})
		}
	}
}

func (s *Service) sweepCampaigns(ctx context.Context, tenantID string) (any, error) {
	now := time.Now()
	horizon := now.AddDate(0, 0, s.Cfg.ReminderLeadDays)
	campaigns, err := s.Store.ActiveDueBefore(ctx, tenantID, horizon)
	if err != nil {
		return nil, err
	}

	reminders, escalations, autoApproved := 0, 0, 0
	for _, c := range campaigns {
		if now.After(c.DueDate) {
			n, err := s.Campaigns.EscalateOverdueReviews(ctx, tenantID, c.ID, 0)
			if err != nil {
				slog.Warn("campaign escalation failed", "campaignId", c.ID, "err", err)
			}
			escalations += n

			approved, err := s.Campaigns.AutoApprovePendingItems(ctx, tenantID, c.ID)
			if err != nil {
				slog.Warn("campaign auto-approve failed", "campaignId", c.ID, "err", err)
			}
			autoApproved += approved
			continue
		}
		n, err := s.Campaigns.SendReminders(ctx, tenantID, c.ID)
		if err != nil {
			slog.Warn("campaign reminders failed", "campaignId", c.ID, "err", err)
		}
		reminders += n
	}

	return map[string]any{
		"campaignsSwept": len(campaigns),
		"reminders":      reminders,
		"escalations":    escalations,
		"autoApproved":   autoApproved,
	}, nil
}

func (s *Service) forEachTenant(ctx context.Context, fn func(tenant string)) {
	tenants, err := s.listTenants(ctx)
	if err != nil {
		slog.Warn("scheduler tenant lookup failed", "err", err)
		return
	}
	for _, tenantID := range tenants {
		fn(tenantID)
	}
}

func (s *Service) listTenants(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `SELECT id FROM tenants`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

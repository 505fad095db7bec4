package campaignshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"accessgov/internal/domain/audit"
	"accessgov/internal/domain/auth"
	"accessgov/internal/domain/campaign"
	"accessgov/internal/transport/http/api"
	"accessgov/internal/transport/http/middleware"
	"accessgov/internal/transport/http/shared"
)

type Handler struct {
	Service *campaign.Service
	Audit   *audit.Service
}

func NewHandler(service *campaign.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermCampaignsRead)
	write := middleware.RequirePermission(auth.PermCampaignsWrite)
	review := middleware.RequirePermission(auth.PermCampaignsReview)

	r.Route("/campaigns", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(write).Post("/", h.handleCreate)
		r.With(read).Get("/{campaignID}", h.handleGet)
		r.With(write).Post("/{campaignID}/generate", h.handleGenerate)
		r.With(read).Get("/{campaignID}/progress", h.handleProgress)
		r.With(write).Post("/{campaignID}/complete", h.handleComplete)
		r.With(read).Get("/{campaignID}/items", h.handleListItems)
		r.With(read).Get("/{campaignID}/decisions", h.handleListDecisions)
		r.With(review).Post("/{campaignID}/decisions/bulk", h.handleBulkDecision)
		r.With(read).Get("/{campaignID}/export", h.handleExport)
		r.With(write).Post("/{campaignID}/reminders", h.handleReminders)
		r.With(write).Post("/{campaignID}/escalate", h.handleEscalate)
	})
	r.With(review).Post("/review-items/{itemID}/decision", h.handleDecision)
}

type createCampaignPayload struct {
	Name                 string               `json:"name"`
	CampaignType         string               `json:"campaignType"`
	ScopeType            string               `json:"scopeType"`
	ScopeConfig          campaign.ScopeConfig `json:"scopeConfig"`
	StartDate            string               `json:"startDate"`
	DueDate              string               `json:"dueDate"`
	AutoApproveOnTimeout bool                 `json:"autoApproveOnTimeout"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload createCampaignPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "campaign name is required")
	v.Required("campaignType", payload.CampaignType, "campaign type is required")
	v.Required("scopeType", payload.ScopeType, "scope type is required")
	startDate, _ := v.Date("startDate", payload.StartDate)
	dueDate, _ := v.Date("dueDate", payload.DueDate)
	v.DateOrder("startDate", startDate, "dueDate", dueDate)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.CreateCampaign(r.Context(), user.TenantID, campaign.Campaign{
		Name:                 payload.Name,
		CampaignType:         payload.CampaignType,
		ScopeType:            payload.ScopeType,
		Scope:                payload.ScopeConfig,
		StartDate:            startDate,
		DueDate:              dueDate,
		AutoApproveOnTimeout: payload.AutoApproveOnTimeout,
	}, user.UserID)
	if err != nil {
		h.fail(w, r, err, "campaign_create_failed", "failed to create campaign")
		return
	}

	h.record(r, user.UserID, user.TenantID, "campaign.created", created.ID, map[string]any{"name": created.Name, "scopeType": created.ScopeType})
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	campaigns, err := h.Service.ListCampaigns(r.Context(), user.TenantID, r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, r, err, "campaign_list_failed", "failed to list campaigns")
		return
	}
	api.Success(w, campaigns, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	c, err := h.Service.GetCampaign(r.Context(), user.TenantID, chi.URLParam(r, "campaignID"))
	if err != nil {
		h.fail(w, r, err, "campaign_get_failed", "failed to load campaign")
		return
	}
	api.Success(w, c, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	campaignID := chi.URLParam(r, "campaignID")
	summary, err := h.Service.GenerateReviewItems(r.Context(), user.TenantID, campaignID)
	if err != nil {
		h.fail(w, r, err, "campaign_generate_failed", "failed to generate review items")
		return
	}
	h.record(r, user.UserID, user.TenantID, "campaign.generated", campaignID, summary)
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	progress, err := h.Service.Progress(r.Context(), user.TenantID, chi.URLParam(r, "campaignID"))
	if err != nil {
		h.fail(w, r, err, "campaign_progress_failed", "failed to compute progress")
		return
	}
	api.Success(w, progress, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	campaignID := chi.URLParam(r, "campaignID")
	report, err := h.Service.CompleteCampaign(r.Context(), user.TenantID, campaignID)
	if err != nil {
		h.fail(w, r, err, "campaign_complete_failed", "failed to complete campaign")
		return
	}
	h.record(r, user.UserID, user.TenantID, "campaign.completed", campaignID, map[string]any{
		"reviewedItems": report.ReviewedItems,
		"revokedItems":  report.RevokedItems,
	})
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	items, err := h.Service.ListReviewItems(r.Context(), user.TenantID, chi.URLParam(r, "campaignID"))
	if err != nil {
		h.fail(w, r, err, "item_list_failed", "failed to list review items")
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	decisions, err := h.Service.ListDecisions(r.Context(), user.TenantID, chi.URLParam(r, "campaignID"))
	if err != nil {
		h.fail(w, r, err, "decision_list_failed", "failed to list decisions")
		return
	}
	api.Success(w, decisions, middleware.GetRequestID(r.Context()))
}

type decisionPayload struct {
	Decision     string `json:"decision"`
	Notes        string `json:"notes"`
	ReviewerName string `json:"reviewerName"`
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload decisionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	itemID := chi.URLParam(r, "itemID")
	item, err := h.Service.SubmitDecision(r.Context(), user.TenantID, itemID, payload.Decision, payload.Notes, user.UserID, payload.ReviewerName)
	if err != nil {
		h.fail(w, r, err, "decision_failed", "failed to submit decision")
		return
	}
	h.record(r, user.UserID, user.TenantID, "review_item.decided", itemID, map[string]any{
		"decision":        item.Decision,
		"executionStatus": item.ExecutionStatus,
	})
	api.Success(w, item, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBulkDecision(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload campaign.BulkDecision
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	payload.ReviewerID = user.UserID

	result, err := h.Service.SubmitBulkDecision(r.Context(), user.TenantID, payload)
	if err != nil {
		h.fail(w, r, err, "bulk_decision_failed", "failed to submit bulk decision")
		return
	}
	h.record(r, user.UserID, user.TenantID, "review_items.bulk_decided", chi.URLParam(r, "campaignID"), map[string]any{
		"applied":  result.Applied,
		"failures": len(result.Failures),
	})
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	campaignID := chi.URLParam(r, "campaignID")
	data, err := h.Service.ExportCSV(r.Context(), user.TenantID, campaignID)
	if err != nil {
		h.fail(w, r, err, "export_failed", "failed to export campaign")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="campaign-`+campaignID+`-`+time.Now().Format("2006-01-02")+`.csv"`)
	if _, err := w.Write(data); err != nil {
		slog.Warn("csv write failed", "campaignId", campaignID, "err", err)
	}
}

func (h *Handler) handleReminders(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	notified, err := h.Service.SendReminders(r.Context(), user.TenantID, chi.URLParam(r, "campaignID"))
	if err != nil {
		h.fail(w, r, err, "reminders_failed", "failed to send reminders")
		return
	}
	api.Success(w, map[string]int{"remindersSent": notified}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEscalate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	minDays := 0
	if raw := r.URL.Query().Get("minDaysOverdue"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			minDays = v
		}
	}
	escalated, err := h.Service.EscalateOverdueReviews(r.Context(), user.TenantID, chi.URLParam(r, "campaignID"), minDays)
	if err != nil {
		h.fail(w, r, err, "escalation_failed", "failed to escalate overdue reviews")
		return
	}
	api.Success(w, map[string]int{"escalations": escalated}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "campaign or review item not found", requestID)
	case errors.Is(err, campaign.ErrValidation), errors.Is(err, campaign.ErrBadDecision):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, campaign.ErrAlreadyDecided), errors.Is(err, campaign.ErrAlreadyCompleted), errors.Is(err, campaign.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
	default:
		slog.Warn(message, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func (h *Handler) record(r *http.Request, actorID, tenantID, action, entityID string, details any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), tenantID, actorID, action, "campaign", entityID, middleware.GetRequestID(r.Context()), details); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

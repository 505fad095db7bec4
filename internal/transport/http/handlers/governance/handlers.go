package governancehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"accessgov/internal/domain/audit"
	"accessgov/internal/domain/auth"
	"accessgov/internal/domain/drift"
	"accessgov/internal/domain/overpriv"
	"accessgov/internal/domain/roles"
	"accessgov/internal/transport/http/api"
	"accessgov/internal/transport/http/middleware"
)

type Handler struct {
	Drift    *drift.Service
	Overpriv *overpriv.Service
	Roles    *roles.Store
	Audit    *audit.Service
}

func NewHandler(driftSvc *drift.Service, overprivSvc *overpriv.Service, rolesStore *roles.Store, auditSvc *audit.Service) *Handler {
	return &Handler{Drift: driftSvc, Overpriv: overprivSvc, Roles: rolesStore, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	scan := middleware.RequirePermission(auth.PermScansRun)
	read := middleware.RequirePermission(auth.PermAlertsRead)
	resolve := middleware.RequirePermission(auth.PermAlertsResolve)

	r.Route("/governance", func(r chi.Router) {
		r.With(scan).Post("/drift/scan", h.handleDriftScanAll)
		r.With(scan).Post("/drift/scan/{userID}", h.handleDriftScanUser)
		r.With(read).Get("/drift/alerts", h.handleDriftAlerts)
		r.With(resolve).Post("/drift/alerts/{alertID}/resolve", h.handleDriftResolve)

		r.With(scan).Post("/overprivileged/scan", h.handleOverprivScanAll)
		r.With(scan).Post("/overprivileged/scan/{userID}", h.handleOverprivScanUser)
		r.With(read).Get("/overprivileged/alerts", h.handleOverprivAlerts)
		r.With(resolve).Post("/overprivileged/alerts/{alertID}/remediate", h.handleOverprivRemediate)
	})
}

func (h *Handler) handleDriftScanAll(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	summary, err := h.Drift.ScanAll(r.Context(), user.TenantID)
	if err != nil {
		slog.Warn("drift scan failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "scan_failed", "drift scan failed", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, user, "drift.scan_all", "", map[string]any{"usersScanned": summary.UsersScanned, "driftDetected": summary.DriftDetected})
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDriftScanUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	userID := chi.URLParam(r, "userID")

	assignment, err := h.Roles.ActiveAssignment(r.Context(), user.TenantID, userID)
	if err != nil {
		if errors.Is(err, roles.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "user has no active role assignment", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "scan_failed", "assignment lookup failed", middleware.GetRequestID(r.Context()))
		return
	}

	result, err := h.Drift.ScanUser(r.Context(), user.TenantID, userID, assignment.TemplateID)
	if err != nil {
		slog.Warn("drift scan failed", "userId", userID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "scan_failed", "drift scan failed", middleware.GetRequestID(r.Context()))
		return
	}
	if result == nil {
		api.Success(w, map[string]any{"drift": false}, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDriftAlerts(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	alerts, err := h.Drift.ListAlerts(r.Context(), user.TenantID, r.URL.Query().Get("status"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "alert_list_failed", "failed to list alerts", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, alerts, middleware.GetRequestID(r.Context()))
}

type resolvePayload struct {
	Resolution string `json:"resolution"`
	Notes      string `json:"notes"`
}

func (h *Handler) handleDriftResolve(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload resolvePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	alertID := chi.URLParam(r, "alertID")
	alert, err := h.Drift.ResolveAlert(r.Context(), user.TenantID, alertID, payload.Resolution, payload.Notes, user.UserID)
	if err != nil {
		h.failDrift(w, r, err)
		return
	}
	h.record(r, user, "drift.alert_resolved", alertID, map[string]any{"resolution": payload.Resolution})
	api.Success(w, alert, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleOverprivScanAll(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	summary, err := h.Overpriv.ScanAll(r.Context(), user.TenantID)
	if err != nil {
		slog.Warn("overprivileged scan failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "scan_failed", "overprivileged scan failed", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, user, "overprivileged.scan_all", "", map[string]any{"usersScanned": summary.UsersScanned, "accountsDetected": summary.AccountsDetected})
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleOverprivScanUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	userID := chi.URLParam(r, "userID")
	result, err := h.Overpriv.ScanUser(r.Context(), user.TenantID, userID)
	if err != nil {
		slog.Warn("overprivileged scan failed", "userId", userID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "scan_failed", "overprivileged scan failed", middleware.GetRequestID(r.Context()))
		return
	}
	if result == nil {
		api.Success(w, map[string]any{"overprivileged": false}, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleOverprivAlerts(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	alerts, err := h.Overpriv.ListAlerts(r.Context(), user.TenantID, r.URL.Query().Get("status"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "alert_list_failed", "failed to list alerts", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, alerts, middleware.GetRequestID(r.Context()))
}

type remediatePayload struct {
	Action        string `json:"action"`
	Plan          string `json:"plan"`
	Justification string `json:"justification"`
}

func (h *Handler) handleOverprivRemediate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload remediatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Action == overpriv.ActionAcceptRisk && payload.Justification == "" {
		api.Fail(w, http.StatusBadRequest, "validation_error", "accepting risk requires a justification", middleware.GetRequestID(r.Context()))
		return
	}
	plan := payload.Plan
	if payload.Justification != "" {
		plan = payload.Justification
	}

	alertID := chi.URLParam(r, "alertID")
	alert, err := h.Overpriv.Remediate(r.Context(), user.TenantID, alertID, payload.Action, plan, user.UserID)
	if err != nil {
		h.failOverpriv(w, r, err)
		return
	}
	h.record(r, user, "overprivileged.alert_remediated", alertID, map[string]any{"action": payload.Action})
	api.Success(w, alert, middleware.GetRequestID(r.Context()))
}

func (h *Handler) failDrift(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, drift.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "alert not found", requestID)
	case errors.Is(err, drift.ErrBadResolution):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, drift.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
	default:
		slog.Warn("drift alert resolution failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "resolution_failed", "failed to resolve alert", requestID)
	}
}

func (h *Handler) failOverpriv(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, overpriv.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "alert not found", requestID)
	case errors.Is(err, overpriv.ErrBadAction):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, overpriv.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
	default:
		slog.Warn("overprivileged remediation failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "remediation_failed", "failed to remediate alert", requestID)
	}
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, entityID string, details any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, "governance_alert", entityID, middleware.GetRequestID(r.Context()), details); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

package roleshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"accessgov/internal/domain/audit"
	"accessgov/internal/domain/auth"
	"accessgov/internal/domain/roles"
	"accessgov/internal/transport/http/api"
	"accessgov/internal/transport/http/middleware"
	"accessgov/internal/transport/http/shared"
)

type Handler struct {
	Store *roles.Store
	Audit *audit.Service
}

func NewHandler(store *roles.Store, auditSvc *audit.Service) *Handler {
	return &Handler{Store: store, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermRolesRead)
	write := middleware.RequirePermission(auth.PermRolesWrite)

	r.Route("/role-templates", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(write).Post("/", h.handleCreate)
		r.With(read).Get("/{templateID}", h.handleGet)
		r.With(write).Put("/{templateID}", h.handleUpdate)
		r.With(write).Delete("/{templateID}", h.handleDelete)
		r.With(write).Post("/{templateID}/assign", h.handleAssign)
	})
}

type templatePayload struct {
	Name         string              `json:"name"`
	Department   string              `json:"department"`
	Level        string              `json:"level"`
	ExpectedApps []roles.ExpectedApp `json:"expectedApps"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload templatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "template name is required")
	for _, app := range payload.ExpectedApps {
		if app.AppID == "" {
			v.Add("expectedApps", "every expected app needs an app id")
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.Create(r.Context(), user.TenantID, roles.Template{
		Name:         payload.Name,
		Department:   payload.Department,
		Level:        payload.Level,
		ExpectedApps: payload.ExpectedApps,
	})
	if err != nil {
		slog.Warn("template create failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "template_create_failed", "failed to create template", middleware.GetRequestID(r.Context()))
		return
	}

	h.record(r, user.TenantID, user.UserID, "role_template.created", id, map[string]any{"name": payload.Name})
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	templates, err := h.Store.List(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "template_list_failed", "failed to list templates", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, templates, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	template, err := h.Store.Get(r.Context(), user.TenantID, chi.URLParam(r, "templateID"))
	if err != nil {
		h.fail(w, r, err, "template_get_failed", "failed to load template")
		return
	}
	api.Success(w, template, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload templatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	templateID := chi.URLParam(r, "templateID")
	err := h.Store.Update(r.Context(), user.TenantID, roles.Template{
		ID:           templateID,
		Name:         payload.Name,
		Department:   payload.Department,
		Level:        payload.Level,
		ExpectedApps: payload.ExpectedApps,
	})
	if err != nil {
		h.fail(w, r, err, "template_update_failed", "failed to update template")
		return
	}

	h.record(r, user.TenantID, user.UserID, "role_template.updated", templateID, map[string]any{"name": payload.Name})
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	templateID := chi.URLParam(r, "templateID")
	if err := h.Store.Delete(r.Context(), user.TenantID, templateID); err != nil {
		h.fail(w, r, err, "template_delete_failed", "failed to delete template")
		return
	}
	h.record(r, user.TenantID, user.UserID, "role_template.deleted", templateID, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.UserID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "userId is required", middleware.GetRequestID(r.Context()))
		return
	}

	templateID := chi.URLParam(r, "templateID")
	if _, err := h.Store.Get(r.Context(), user.TenantID, templateID); err != nil {
		h.fail(w, r, err, "template_get_failed", "failed to load template")
		return
	}

	assignmentID, err := h.Store.Assign(r.Context(), user.TenantID, payload.UserID, templateID, user.UserID)
	if err != nil {
		slog.Warn("role assignment failed", "templateId", templateID, "userId", payload.UserID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "assignment_failed", "failed to assign role", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Store.IncrementPopularity(r.Context(), user.TenantID, templateID); err != nil {
		slog.Warn("popularity increment failed", "templateId", templateID, "err", err)
	}

	h.record(r, user.TenantID, user.UserID, "role_template.assigned", templateID, map[string]any{"userId": payload.UserID})
	api.Created(w, map[string]string{"assignmentId": assignmentID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	if errors.Is(err, roles.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "template not found", requestID)
		return
	}
	slog.Warn(message, "err", err)
	api.Fail(w, http.StatusInternalServerError, code, message, requestID)
}

func (h *Handler) record(r *http.Request, tenantID, actorID, action, entityID string, details any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), tenantID, actorID, action, "role_template", entityID, middleware.GetRequestID(r.Context()), details); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

package riskhandler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"accessgov/internal/domain/auth"
	"accessgov/internal/domain/deptrisk"
	"accessgov/internal/domain/directory"
	"accessgov/internal/transport/http/api"
	"accessgov/internal/transport/http/middleware"
)

type Handler struct {
	Service   *deptrisk.Service
	Directory *directory.Store
}

func NewHandler(service *deptrisk.Service, dir *directory.Store) *Handler {
	return &Handler{Service: service, Directory: dir}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk/departments", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermRiskRead))
		r.Get("/compare", h.handleCompare)
		r.Get("/{department}", h.handleSummary)
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	summary, err := h.Service.Summarize(r.Context(), user.TenantID, chi.URLParam(r, "department"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "risk_summary_failed", "failed to compute department risk", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

// handleCompare accepts ?departments=a,b,c and defaults to every department
// in the directory.
func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var departments []string
	if raw := r.URL.Query().Get("departments"); raw != "" {
		for _, dept := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(dept); trimmed != "" {
				departments = append(departments, trimmed)
			}
		}
	} else {
		all, err := h.Directory.Departments(r.Context(), user.TenantID)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "risk_compare_failed", "failed to list departments", middleware.GetRequestID(r.Context()))
			return
		}
		departments = all
	}

	comparison, err := h.Service.CompareDepartments(r.Context(), user.TenantID, departments)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "risk_compare_failed", "failed to compare departments", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, comparison, middleware.GetRequestID(r.Context()))
}

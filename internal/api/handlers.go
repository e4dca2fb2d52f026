// Package api exposes HTTP handlers for the field activity service.
package api

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/fieldactivity/internal/auth"
	"example.com/fieldactivity/internal/domain"
	"example.com/fieldactivity/internal/logger"
)

const defaultMaxRequestBytes int64 = 64 << 20

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service         *domain.Service
	log             *logger.Logger
	maxRequestBytes int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(log *logger.Logger) Option {
	return func(h *Handler) { h.log = log }
}

// WithMaxRequestBytes caps the size of a write request body, files included.
func WithMaxRequestBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxRequestBytes = n
		}
	}
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, opts ...Option) *Handler {
	h := &Handler{service: service, log: logger.Nop(), maxRequestBytes: defaultMaxRequestBytes}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/activities", h.listActivities)
	mux.HandleFunc("POST /v1/activities", h.createActivity)
	mux.HandleFunc("GET /v1/activities/statistics", h.statistics)
	mux.HandleFunc("GET /v1/activities/{id}", h.getActivity)
	mux.HandleFunc("PUT /v1/activities/{id}", h.updateActivity)
	mux.HandleFunc("PATCH /v1/activities/{id}", h.updateActivity)
	mux.HandleFunc("DELETE /v1/activities/{id}", h.deleteActivity)
	mux.HandleFunc("GET /v1/admin/activities", h.adminListActivities)
	mux.HandleFunc("GET /v1/admin/statistics", h.adminStatistics)
	mux.HandleFunc("GET /healthz", healthz)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	payload, err := h.decodeWrite(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	defer payload.Close()

	activity, err := h.service.CreateActivity(r.Context(), principal, payload.Fields, payload.Uploads)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{Message: "Activity created successfully", Data: toActivityView(*activity)})
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	activity, err := h.service.GetActivity(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*activity))
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	payload, err := h.decodeWrite(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	defer payload.Close()

	activity, err := h.service.UpdateActivity(r.Context(), principal, r.PathValue("id"), payload.Fields, payload.Uploads)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Activity updated successfully", Data: toActivityView(*activity)})
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteActivity(r.Context(), principal, r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Success: true, Message: "Activity deleted successfully"})
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	filter, page := listParams(r)
	result, err := h.service.ListActivities(r.Context(), principal, filter, page)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(result))
}

func (h *Handler) adminListActivities(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	filter, page := listParams(r)
	result, err := h.service.AdminListActivities(r.Context(), principal, filter, page)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(result))
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Statistics(r.Context(), principal)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatisticsResponse{Data: toStatisticsView(stats)})
}

func (h *Handler) adminStatistics(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	stats, err := h.service.AdminStatistics(r.Context(), principal)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatisticsResponse{Data: toStatisticsView(stats)})
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return domain.Principal{}, false
	}
	return principal, true
}

// listParams reads the filter and 1-based page; malformed pages fall back to 1.
func listParams(r *http.Request) (domain.Filter, int) {
	q := r.URL.Query()
	page := 1
	if raw := q.Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	return domain.ParseFilter(q.Get("filter")), page
}

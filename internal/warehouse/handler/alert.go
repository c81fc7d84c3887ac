package handler

import (
	"net/http"
	"strconv"

	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
	"github.com/almoxarifado/almox-backend/internal/warehouse/service"
	"github.com/almoxarifado/almox-backend/pkg/httputil"
	"github.com/almoxarifado/almox-backend/pkg/logger"
)

// AlertHandler handles alert endpoints
type AlertHandler struct {
	alerts *service.AlertService
	logger *logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alerts *service.AlertService, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		alerts: alerts,
		logger: log,
	}
}

// List lists alerts that still demand attention
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePagination(r)

	filter := repository.AlertFilter{
		Search:  r.URL.Query().Get("search"),
		Page:    page,
		PerPage: perPage,
	}
	if kind, err := strconv.Atoi(r.URL.Query().Get("kind")); err == nil {
		filter.Kind = kind
	}

	alerts, total, err := h.alerts.ListActive(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, alerts, paginationMeta(page, perPage, total))
}

// Get gets one alert
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	alert, err := h.alerts.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, alert)
}

// UnviewedCount reports how many alerts are waiting. Drives the badge
// in the frontend header.
func (h *AlertHandler) UnviewedCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.alerts.CountUnviewed(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]int64{"unviewed": count})
}

// Delete removes an alert
func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.alerts.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// MarkViewed marks one alert as viewed
func (h *AlertHandler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.alerts.MarkViewed(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// MarkAllViewed marks every open alert as viewed
func (h *AlertHandler) MarkAllViewed(w http.ResponseWriter, r *http.Request) {
	n, err := h.alerts.MarkAllViewed(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]int64{"viewed": n})
}

// Suppress silences an alert and future alerts of its kind for the item
func (h *AlertHandler) Suppress(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.alerts.Suppress(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Unsuppress lifts a standing suppression
func (h *AlertHandler) Unsuppress(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.alerts.Unsuppress(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
	"github.com/almoxarifado/almox-backend/internal/warehouse/service"
	"github.com/almoxarifado/almox-backend/pkg/auth"
	"github.com/almoxarifado/almox-backend/pkg/httputil"
	"github.com/almoxarifado/almox-backend/pkg/logger"
)

// WithdrawalHandler handles withdrawal lifecycle endpoints
type WithdrawalHandler struct {
	withdrawals *service.WithdrawalService
	logger      *logger.Logger
}

// NewWithdrawalHandler creates a new withdrawal handler
func NewWithdrawalHandler(withdrawals *service.WithdrawalService, log *logger.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawals: withdrawals,
		logger:      log,
	}
}

// Create opens a new withdrawal request for the authenticated user
func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.WithdrawalInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&input); err != nil {
		httputil.Error(w, err)
		return
	}

	withdrawal, err := h.withdrawals.Create(r.Context(), &input, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, withdrawal)
}

// List lists withdrawals. Requesters only ever see their own.
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePagination(r)

	filter := repository.WithdrawalFilter{
		Requester: r.URL.Query().Get("requester"),
		Page:      page,
		PerPage:   perPage,
	}
	if status, err := strconv.Atoi(r.URL.Query().Get("status")); err == nil {
		filter.Status = status
	}
	if reqID, err := strconv.ParseInt(r.URL.Query().Get("requester_id"), 10, 64); err == nil {
		filter.RequesterID = reqID
	}
	if sectorID, err := strconv.ParseInt(r.URL.Query().Get("sector_id"), 10, 64); err == nil {
		filter.SectorID = sectorID
	}
	if from := r.URL.Query().Get("from"); from != "" {
		parsed, err := service.ParseDate(from)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		filter.From = &parsed
	}
	if to := r.URL.Query().Get("to"); to != "" {
		parsed, err := service.ParseDate(to)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		filter.To = &parsed
	}

	if httputil.GetUserRole(r.Context()) == auth.RoleRequester {
		filter.RequesterID = httputil.GetUserID(r.Context())
	}

	withdrawals, total, err := h.withdrawals.List(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, withdrawals, paginationMeta(page, perPage, total))
}

// Get gets one withdrawal
func (h *WithdrawalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	withdrawal, err := h.withdrawals.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, withdrawal)
}

type updateStatusRequest struct {
	Status int     `json:"status" validate:"required"`
	Detail *string `json:"detail"`
}

// UpdateStatus moves a withdrawal through its lifecycle
func (h *WithdrawalHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req updateStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	withdrawal, err := h.withdrawals.UpdateStatus(r.Context(), id, req.Status, req.Detail, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, withdrawal)
}

type withdrawalPeriodRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// DeactivateByPeriod soft-deletes all withdrawals requested in a period
func (h *WithdrawalHandler) DeactivateByPeriod(w http.ResponseWriter, r *http.Request) {
	var req withdrawalPeriodRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	from, err := service.ParseDate(req.From)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	to, err := service.ParseDate(req.To)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	deactivated, err := h.withdrawals.DeactivateByPeriod(r.Context(), from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]int64{"deactivated": deactivated})
}

// Cancel cancels the caller's own pending withdrawal
func (h *WithdrawalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.withdrawals.Cancel(r.Context(), id, httputil.GetUserID(r.Context())); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
	"github.com/almoxarifado/almox-backend/internal/warehouse/service"
	"github.com/almoxarifado/almox-backend/pkg/errors"
	"github.com/almoxarifado/almox-backend/pkg/httputil"
	"github.com/almoxarifado/almox-backend/pkg/logger"
)

// ItemHandler handles catalog and stock entry endpoints
type ItemHandler struct {
	items  *service.ItemService
	logger *logger.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(items *service.ItemService, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		items:  items,
		logger: log,
	}
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.BadRequest("invalid id")
	}
	return id, nil
}

func parsePagination(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}
	return page, perPage
}

func paginationMeta(page, perPage int, total int64) *httputil.Meta {
	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}
	return &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// List lists items
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePagination(r)

	filter := repository.ItemFilter{
		Search:          r.URL.Query().Get("search"),
		IncludeInactive: r.URL.Query().Get("include_inactive") == "true",
		BelowMin:        r.URL.Query().Get("below_min") == "true",
		Page:            page,
		PerPage:         perPage,
	}
	if catID, err := strconv.ParseInt(r.URL.Query().Get("category_id"), 10, 64); err == nil {
		filter.CategoryID = catID
	}

	items, total, err := h.items.ListItems(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, items, paginationMeta(page, perPage, total))
}

// Get gets one item
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.items.GetItem(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Create registers incoming stock. The response carries the resolved
// item and whether the entry merged into an existing one.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.ItemInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&input); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.items.RegisterEntry(r.Context(), &input, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if result.Merged {
		httputil.JSON(w, http.StatusOK, result)
		return
	}
	httputil.Created(w, result)
}

// Update updates descriptive fields of an item
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var input service.ItemInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&input); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.items.UpdateItem(r.Context(), id, &input, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Retire deactivates an item
func (h *ItemHandler) Retire(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.items.RetireItem(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

type retirePeriodRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// RetireByPeriod deactivates every item whose entry falls in the period
func (h *ItemHandler) RetireByPeriod(w http.ResponseWriter, r *http.Request) {
	var req retirePeriodRequest
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

	retired, err := h.items.RetireByPeriod(r.Context(), from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]int64{"retired": retired})
}

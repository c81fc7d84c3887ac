package handler

import (
	"net/http"

	"github.com/almoxarifado/almox-backend/internal/warehouse/service"
	"github.com/almoxarifado/almox-backend/pkg/httputil"
	"github.com/almoxarifado/almox-backend/pkg/logger"
)

// CategoryHandler handles category endpoints
type CategoryHandler struct {
	items  *service.ItemService
	logger *logger.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(items *service.ItemService, log *logger.Logger) *CategoryHandler {
	return &CategoryHandler{
		items:  items,
		logger: log,
	}
}

// List lists categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.items.ListCategories(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, cats)
}

type createCategoryRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

// Create creates a category
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	cat, err := h.items.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, cat)
}

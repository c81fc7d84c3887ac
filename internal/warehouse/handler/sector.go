package handler

import (
	"net/http"

	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
	"github.com/almoxarifado/almox-backend/pkg/httputil"
	"github.com/almoxarifado/almox-backend/pkg/logger"
)

// SectorHandler handles sector endpoints
type SectorHandler struct {
	repo   *repository.SectorRepository
	logger *logger.Logger
}

// NewSectorHandler creates a new sector handler
func NewSectorHandler(repo *repository.SectorRepository, log *logger.Logger) *SectorHandler {
	return &SectorHandler{
		repo:   repo,
		logger: log,
	}
}

// List lists sectors
func (h *SectorHandler) List(w http.ResponseWriter, r *http.Request) {
	sectors, err := h.repo.List(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, sectors)
}

type createSectorRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

// Create creates a sector
func (h *SectorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSectorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	sector := &repository.Sector{Name: req.Name, Description: req.Description}
	if err := h.repo.Create(r.Context(), sector); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, sector)
}

package handler

import (
	"net/http"

	"github.com/almoxarifado/almox-backend/internal/warehouse/service"
	"github.com/almoxarifado/almox-backend/pkg/errors"
	"github.com/almoxarifado/almox-backend/pkg/httputil"
	"github.com/almoxarifado/almox-backend/pkg/logger"
)

// BulkImportHandler handles spreadsheet uploads
type BulkImportHandler struct {
	importer    *service.BulkImportService
	maxBodySize int64
	logger      *logger.Logger
}

// NewBulkImportHandler creates a new bulk import handler
func NewBulkImportHandler(importer *service.BulkImportService, maxBodySize int64, log *logger.Logger) *BulkImportHandler {
	return &BulkImportHandler{
		importer:    importer,
		maxBodySize: maxBodySize,
		logger:      log,
	}
}

// Upload imports a spreadsheet sent as multipart form field "file"
func (h *BulkImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	if err := r.ParseMultipartForm(h.maxBodySize); err != nil {
		httputil.Error(w, errors.BadRequest("could not parse upload: "+err.Error()))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing file field"))
		return
	}
	defer file.Close()

	result, err := h.importer.Import(r.Context(), file, header.Filename, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

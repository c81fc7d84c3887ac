package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xuri/excelize/v2"

	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
	"github.com/almoxarifado/almox-backend/pkg/database"
	"github.com/almoxarifado/almox-backend/pkg/errors"
	"github.com/almoxarifado/almox-backend/pkg/logger"
	"github.com/almoxarifado/almox-backend/pkg/normalize"
)

// Spreadsheet headers, matched after canonicalization so accents and
// casing in the uploaded file don't matter.
const (
	headerProduct     = "PRODUTO"
	headerQuantity    = "QUANTIDADE"
	headerUnit        = "UNIDADEDEMEDIDA"
	headerCategory    = "CATEGORIA"
	headerDescription = "DESCRIÇAO"
	headerBrand       = "MARCA"
	headerExpiry      = "VALIDADE"
)

// ImportRowError reports one rejected spreadsheet row. Row numbers
// match what the user sees in the spreadsheet: the header is row 1,
// the first data row is row 2.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarizes a bulk import run
type ImportResult struct {
	FileName string           `json:"file_name"`
	Total    int              `json:"total"`
	Created  int              `json:"created"`
	Merged   int              `json:"merged"`
	Failed   int              `json:"failed"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}

// BulkImportService loads items from uploaded spreadsheets. Each row
// commits in its own transaction, so one bad row never takes down the
// rows around it.
type BulkImportService struct {
	db        *database.DB
	itemRepo  *repository.ItemRepository
	catRepo   *repository.CategoryRepository
	stock     *StockService
	publisher EventPublisher
	maxRows   int
	logger    *logger.Logger
}

// NewBulkImportService creates a new bulk import service
func NewBulkImportService(
	db *database.DB,
	itemRepo *repository.ItemRepository,
	catRepo *repository.CategoryRepository,
	publisher EventPublisher,
	maxRows int,
	log *logger.Logger,
) *BulkImportService {
	return &BulkImportService{
		db:        db,
		itemRepo:  itemRepo,
		catRepo:   catRepo,
		stock:     NewStockService(itemRepo, log),
		publisher: publisher,
		maxRows:   maxRows,
		logger:    log,
	}
}

// Import reads a .xlsx or .csv upload and loads its rows as stock
// entries. Rows whose identity tuple matches an existing active item
// merge into it; this includes items created by earlier rows of the
// same file.
func (s *BulkImportService) Import(ctx context.Context, r io.Reader, fileName string, userID int64) (*ImportResult, error) {
	var records [][]string
	var err error

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx":
		records, err = readXLSX(r)
	case ".csv":
		records, err = readCSV(r)
	default:
		return nil, errors.BadRequest("unsupported file type: expected .xlsx or .csv")
	}
	if err != nil {
		return nil, errors.BadRequest("could not read file: " + err.Error())
	}

	if len(records) == 0 {
		return nil, errors.BadRequest("file is empty")
	}
	if len(records)-1 > s.maxRows {
		return nil, errors.BadRequest(fmt.Sprintf("file exceeds the limit of %d rows", s.maxRows))
	}

	columns, err := mapHeaders(records[0])
	if err != nil {
		return nil, err
	}

	categories, err := s.loadCategoryCache(ctx)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{FileName: fileName, Total: len(records) - 1}

	for i, record := range records[1:] {
		rowNum := i + 2 // header is row 1

		input, err := parseRow(record, columns)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}

		merged, err := s.importRow(ctx, input, categories, userID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: err.Error()})
			s.logger.Warn().Err(err).Int("row", rowNum).Str("file", fileName).Msg("import row rejected")
			continue
		}

		if merged {
			result.Merged++
		} else {
			result.Created++
		}
	}

	s.logger.Info().
		Str("file", fileName).
		Int("created", result.Created).
		Int("merged", result.Merged).
		Int("failed", result.Failed).
		Msg("bulk import finished")

	s.publisher.PublishImportCompleted(ctx, fileName, result.Created, result.Merged, result.Failed, userID)

	return result, nil
}

// rowInput is one parsed spreadsheet row
type rowInput struct {
	Name        string
	Quantity    int
	Unit        *string
	Category    string
	Description *string
	Brand       *string
	Expiry      *time.Time
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	return f.GetRows(sheets[0])
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

// mapHeaders resolves column positions from the header row
func mapHeaders(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, cell := range header {
		columns[normalize.Name(cell)] = i
	}

	required := []struct{ header, label string }{
		{headerProduct, "produto"},
		{headerQuantity, "quantidade"},
		{headerUnit, "unidade de medida"},
		{headerCategory, "categoria"},
	}
	for _, req := range required {
		if _, ok := columns[req.header]; !ok {
			return nil, errors.BadRequest("missing required column: " + req.label)
		}
	}

	return columns, nil
}

func cellAt(record []string, columns map[string]int, header string) string {
	idx, ok := columns[header]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseRow(record []string, columns map[string]int) (*rowInput, error) {
	name := cellAt(record, columns, headerProduct)
	if name == "" {
		return nil, fmt.Errorf("product name is empty")
	}

	qtyStr := cellAt(record, columns, headerQuantity)
	if qtyStr == "" {
		return nil, fmt.Errorf("quantity is empty")
	}
	qty, err := strconv.Atoi(qtyStr)
	if err != nil || qty < 1 {
		return nil, fmt.Errorf("invalid quantity: %s", qtyStr)
	}

	unit := cellAt(record, columns, headerUnit)
	if unit == "" {
		return nil, fmt.Errorf("unit of measure is empty")
	}

	category := cellAt(record, columns, headerCategory)
	if category == "" {
		return nil, fmt.Errorf("category is empty")
	}

	input := &rowInput{
		Name:     name,
		Quantity: qty,
		Unit:     &unit,
		Category: category,
	}

	if desc := cellAt(record, columns, headerDescription); desc != "" {
		input.Description = &desc
	}
	if brand := cellAt(record, columns, headerBrand); brand != "" {
		input.Brand = &brand
	}
	if expiry := cellAt(record, columns, headerExpiry); expiry != "" {
		parsed, err := ParseDate(expiry)
		if err != nil {
			return nil, fmt.Errorf("invalid expiry date: %s", expiry)
		}
		input.Expiry = &parsed
	}

	// Spreadsheets usually leave the description blank; fall back to
	// name plus unit so listings are not empty
	if input.Description == nil {
		derived := input.Name + " " + unit
		input.Description = &derived
	}

	return input, nil
}

func (s *BulkImportService) loadCategoryCache(ctx context.Context) (map[string]*repository.Category, error) {
	cats, err := s.catRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	cache := make(map[string]*repository.Category, len(cats))
	for _, cat := range cats {
		cache[cat.Name] = cat
	}
	return cache, nil
}

// importRow commits one row in its own transaction. Returns whether
// the row merged into an existing item.
func (s *BulkImportService) importRow(ctx context.Context, input *rowInput, categories map[string]*repository.Category, userID int64) (bool, error) {
	canonical := normalize.Name(input.Name)
	if canonical == "" {
		return false, fmt.Errorf("product name has no letters or digits")
	}

	catKey := normalize.Name(input.Category)
	if catKey == "" {
		return false, fmt.Errorf("category name has no letters or digits")
	}

	var merged bool
	var catCreated bool
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		cat, ok := categories[catKey]
		if !ok {
			cat = &repository.Category{Name: catKey, OriginalName: input.Category}
			if err := s.catRepo.CreateTx(ctx, tx, cat); err != nil {
				return err
			}
			categories[catKey] = cat
			catCreated = true
		}

		existing, err := s.itemRepo.FindExactMatchTx(ctx, tx, canonical, cat.ID, input.Expiry, input.Brand)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return err
		}

		if existing != nil {
			if _, err := s.stock.IncrementTx(ctx, tx, existing.ID, input.Quantity, userID); err != nil {
				return err
			}
			if err := s.itemRepo.UpdateDescriptionTx(ctx, tx, existing.ID, input.Description); err != nil {
				return err
			}
			merged = true
			return nil
		}

		item := &repository.Item{
			Name:         canonical,
			OriginalName: input.Name,
			Description:  input.Description,
			Unit:         input.Unit,
			Quantity:     input.Quantity,
			Brand:        input.Brand,
			ExpiryDate:   input.Expiry,
			CategoryID:   cat.ID,
			AuditUserID:  &userID,
		}
		return s.itemRepo.CreateTx(ctx, tx, item)
	})
	if err != nil {
		// A category created in this rolled-back transaction must not
		// poison the cache
		if catCreated {
			delete(categories, catKey)
		}
		return false, err
	}

	return merged, nil
}

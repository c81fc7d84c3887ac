package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/almoxarifado/almox-backend/internal/warehouse/notify"
	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
	"github.com/almoxarifado/almox-backend/pkg/database"
	"github.com/almoxarifado/almox-backend/pkg/errors"
	"github.com/almoxarifado/almox-backend/pkg/logger"
	"github.com/almoxarifado/almox-backend/pkg/normalize"
)

// EventPublisher is the slice of the event publisher the services use.
// The concrete implementation is nil-safe, so a service built without
// a broker connection still works.
type EventPublisher interface {
	PublishStockAdjusted(ctx context.Context, item *repository.Item, delta int, reason string, userID int64)
	PublishItemCreated(ctx context.Context, item *repository.Item)
	PublishItemRetired(ctx context.Context, item *repository.Item, reason string)
	PublishWithdrawalRequested(ctx context.Context, w *repository.Withdrawal)
	PublishWithdrawalStatusChanged(ctx context.Context, w *repository.Withdrawal, oldStatus int, actorID int64)
	PublishAlertGenerated(ctx context.Context, alert *repository.Alert, itemName string)
	PublishImportCompleted(ctx context.Context, fileName string, created, merged, failed int, userID int64)
}

// Notifier pushes realtime updates to connected frontends
type Notifier interface {
	Broadcast(push notify.Push)
	NotifyUser(userID int64, push notify.Push)
}

// ItemInput carries the caller-supplied fields for creating or
// receiving an item. Name is the raw spelling; the service derives
// the canonical form.
type ItemInput struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	Unit        *string `json:"unit"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	MinQuantity int     `json:"min_quantity" validate:"gte=0"`
	Brand       *string `json:"brand"`
	ExpiryDate  *string `json:"expiry_date"`
	CategoryID  int64   `json:"category_id" validate:"required"`
}

// EntryResult reports how an incoming item was resolved
type EntryResult struct {
	Item   *repository.Item `json:"item"`
	Merged bool             `json:"merged"`
}

// ItemService handles catalog and stock entry logic
type ItemService struct {
	db        *database.DB
	itemRepo  *repository.ItemRepository
	catRepo   *repository.CategoryRepository
	stock     *StockService
	alerts    *AlertService
	publisher EventPublisher
	logger    *logger.Logger
}

// NewItemService creates a new item service
func NewItemService(
	db *database.DB,
	itemRepo *repository.ItemRepository,
	catRepo *repository.CategoryRepository,
	alerts *AlertService,
	publisher EventPublisher,
	log *logger.Logger,
) *ItemService {
	return &ItemService{
		db:        db,
		itemRepo:  itemRepo,
		catRepo:   catRepo,
		stock:     NewStockService(itemRepo, log),
		alerts:    alerts,
		publisher: publisher,
		logger:    log,
	}
}

// expiry dates arrive as dd/mm/yyyy from the frontend and as ISO from
// integrations; both are accepted everywhere a date is parsed.
const (
	dateLayoutBR  = "02/01/2006"
	dateLayoutISO = "2006-01-02"
)

// ParseDate parses an expiry date in either accepted layout
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayoutBR, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayoutISO, s)
	if err != nil {
		return time.Time{}, errors.BadRequest("invalid date: " + s + " (expected dd/mm/yyyy)")
	}
	return t, nil
}

// RegisterEntry records incoming stock. If an active item with the
// same identity tuple exists the quantity merges into it; otherwise a
// new item row is created.
func (s *ItemService) RegisterEntry(ctx context.Context, input *ItemInput, userID int64) (*EntryResult, error) {
	if input.Quantity < 0 {
		return nil, errors.BadRequest("quantity must not be negative")
	}

	if _, err := s.catRepo.GetByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	var expiry *time.Time
	if input.ExpiryDate != nil && *input.ExpiryDate != "" {
		parsed, err := ParseDate(*input.ExpiryDate)
		if err != nil {
			return nil, err
		}
		expiry = &parsed
	}

	canonical := normalize.Name(input.Name)
	if canonical == "" {
		return nil, errors.BadRequest("item name must contain letters or digits")
	}

	var result EntryResult
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		existing, err := s.itemRepo.FindExactMatchTx(ctx, tx, canonical, input.CategoryID, expiry, input.Brand)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return err
		}

		if existing != nil {
			merged, err := s.stock.IncrementTx(ctx, tx, existing.ID, input.Quantity, userID)
			if err != nil {
				return err
			}
			// An entry that carries a description overlays the stored one
			if input.Description != nil {
				if err := s.itemRepo.UpdateDescriptionTx(ctx, tx, existing.ID, input.Description); err != nil {
					return err
				}
				merged.Description = input.Description
			}
			result = EntryResult{Item: merged, Merged: true}
			return nil
		}

		item := &repository.Item{
			Name:         canonical,
			OriginalName: input.Name,
			Description:  input.Description,
			Unit:         input.Unit,
			Quantity:     input.Quantity,
			MinQuantity:  input.MinQuantity,
			Brand:        input.Brand,
			ExpiryDate:   expiry,
			CategoryID:   input.CategoryID,
			AuditUserID:  &userID,
		}
		if err := s.itemRepo.CreateTx(ctx, tx, item); err != nil {
			return err
		}
		result = EntryResult{Item: item, Merged: false}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Merged {
		s.publisher.PublishStockAdjusted(ctx, result.Item, input.Quantity, "entry", userID)
	} else {
		s.publisher.PublishItemCreated(ctx, result.Item)
	}

	return &result, nil
}

// GetItem gets an item by ID
func (s *ItemService) GetItem(ctx context.Context, id int64) (*repository.Item, error) {
	return s.itemRepo.GetByID(ctx, id)
}

// ListItems lists items with pagination
func (s *ItemService) ListItems(ctx context.Context, filter repository.ItemFilter) ([]*repository.Item, int64, error) {
	return s.itemRepo.List(ctx, filter)
}

// UpdateItem updates an item's descriptive fields. Quantity never
// changes here; stock moves only through entries and withdrawals.
func (s *ItemService) UpdateItem(ctx context.Context, id int64, input *ItemInput, userID int64) (*repository.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, errors.BadRequest("cannot update a retired item")
	}

	if _, err := s.catRepo.GetByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	var expiry *time.Time
	if input.ExpiryDate != nil && *input.ExpiryDate != "" {
		parsed, err := ParseDate(*input.ExpiryDate)
		if err != nil {
			return nil, err
		}
		expiry = &parsed
	}

	canonical := normalize.Name(input.Name)
	if canonical == "" {
		return nil, errors.BadRequest("item name must contain letters or digits")
	}

	item.Name = canonical
	item.OriginalName = input.Name
	item.Description = input.Description
	item.Unit = input.Unit
	item.MinQuantity = input.MinQuantity
	item.Brand = input.Brand
	item.ExpiryDate = expiry
	item.CategoryID = input.CategoryID
	item.AuditUserID = &userID

	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

// RetireItem deactivates an item manually
func (s *ItemService) RetireItem(ctx context.Context, id int64) error {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.itemRepo.Deactivate(ctx, id); err != nil {
		return err
	}

	s.publisher.PublishItemRetired(ctx, item, "manual")
	return nil
}

// RetireByPeriod deactivates all items that entered stock during the
// given period. Used by periodic stocktaking cleanups.
func (s *ItemService) RetireByPeriod(ctx context.Context, from, to time.Time) (int64, error) {
	if to.Before(from) {
		return 0, errors.BadRequest("period end before start")
	}
	return s.itemRepo.DeactivateByPeriod(ctx, from, to)
}

// ListCategories lists all categories
func (s *ItemService) ListCategories(ctx context.Context) ([]*repository.Category, error) {
	return s.catRepo.List(ctx)
}

// CreateCategory creates a category, canonicalizing its name
func (s *ItemService) CreateCategory(ctx context.Context, name string, description *string) (*repository.Category, error) {
	canonical := normalize.Name(name)
	if canonical == "" {
		return nil, errors.BadRequest("category name must contain letters or digits")
	}

	cat := &repository.Category{
		Name:         canonical,
		OriginalName: name,
		Description:  description,
	}
	if err := s.catRepo.Create(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

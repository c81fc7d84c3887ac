package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
	"github.com/almoxarifado/almox-backend/pkg/errors"
	"github.com/almoxarifado/almox-backend/pkg/logger"
)

// StockService is the only place stock quantities change. Both methods
// run inside the caller's transaction and lock the item row first, so
// concurrent mutations of the same item serialize.
type StockService struct {
	itemRepo *repository.ItemRepository
	logger   *logger.Logger
}

// NewStockService creates a new stock service
func NewStockService(itemRepo *repository.ItemRepository, log *logger.Logger) *StockService {
	return &StockService{
		itemRepo: itemRepo,
		logger:   log,
	}
}

// DecrementTx takes amount out of an item's stock. The quantity is
// re-checked under the row lock; a shortage fails the transaction.
// An item drained to exactly zero is retired on the spot. Returns the
// item as written and whether it was drained.
func (s *StockService) DecrementTx(ctx context.Context, tx *sqlx.Tx, itemID int64, amount int, actorID int64) (*repository.Item, bool, error) {
	item, err := s.itemRepo.GetForUpdateTx(ctx, tx, itemID)
	if err != nil {
		return nil, false, err
	}
	if !item.IsActive {
		return nil, false, errors.BadRequest("item " + item.OriginalName + " is no longer available")
	}
	if item.Quantity < amount {
		return nil, false, errors.InsufficientStock(item.OriginalName, item.Quantity, amount)
	}

	remaining := item.Quantity - amount
	if err := s.itemRepo.SetQuantityTx(ctx, tx, item.ID, remaining, &actorID); err != nil {
		return nil, false, err
	}
	item.Quantity = remaining

	if remaining > 0 {
		return item, false, nil
	}

	if err := s.itemRepo.DeactivateTx(ctx, tx, item.ID); err != nil {
		return nil, false, err
	}
	item.IsActive = false
	return item, true, nil
}

// IncrementTx puts amount back onto an item's stock and refreshes the
// entry date. A retired item coming back above zero is reactivated.
func (s *StockService) IncrementTx(ctx context.Context, tx *sqlx.Tx, itemID int64, amount int, actorID int64) (*repository.Item, error) {
	item, err := s.itemRepo.GetForUpdateTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.itemRepo.AddQuantityTx(ctx, tx, item.ID, amount, &actorID); err != nil {
		return nil, err
	}
	item.Quantity += amount

	if !item.IsActive && item.Quantity > 0 {
		if err := s.itemRepo.ReactivateTx(ctx, tx, item.ID); err != nil {
			return nil, err
		}
		item.IsActive = true
		item.ExitDate = nil
		s.logger.Info().Int64("item_id", item.ID).Msg("item reactivated by incoming stock")
	}

	return item, nil
}

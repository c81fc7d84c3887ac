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
)

// WithdrawalInput carries a new withdrawal request
type WithdrawalInput struct {
	SectorID       *int64               `json:"sector_id"`
	Justification  *string              `json:"justification"`
	LocalRequester *string              `json:"local_requester"`
	Items          []WithdrawalLineItem `json:"items" validate:"required,min=1,dive"`
}

// WithdrawalLineItem is one requested item position
type WithdrawalLineItem struct {
	ItemID   int64 `json:"item_id" validate:"required"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
}

// WithdrawalService handles the withdrawal lifecycle. Stock only
// leaves the shelf when a withdrawal completes, and the decrement
// happens in the same transaction as the status write.
type WithdrawalService struct {
	db        *database.DB
	repo      *repository.WithdrawalRepository
	itemRepo  *repository.ItemRepository
	stock     *StockService
	alerts    *AlertService
	publisher EventPublisher
	notifier  Notifier
	logger    *logger.Logger
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(
	db *database.DB,
	repo *repository.WithdrawalRepository,
	itemRepo *repository.ItemRepository,
	alerts *AlertService,
	publisher EventPublisher,
	notifier Notifier,
	log *logger.Logger,
) *WithdrawalService {
	return &WithdrawalService{
		db:        db,
		repo:      repo,
		itemRepo:  itemRepo,
		stock:     NewStockService(itemRepo, log),
		alerts:    alerts,
		publisher: publisher,
		notifier:  notifier,
		logger:    log,
	}
}

// CanTransition reports whether a status change is allowed. Pending
// and authorized withdrawals may move forward; completed and denied
// are terminal, so stock is never decremented twice.
func CanTransition(from, to int) bool {
	if to == from {
		return false
	}

	switch from {
	case repository.StatusPending:
		return to == repository.StatusAuthorized || to == repository.StatusCompleted || to == repository.StatusDenied
	case repository.StatusAuthorized:
		return to == repository.StatusCompleted || to == repository.StatusDenied
	default:
		return false
	}
}

// Create registers a new withdrawal request in pending state. Item
// existence and stock coverage are checked up front, but stock is not
// reserved; the completing transaction re-checks under lock.
func (s *WithdrawalService) Create(ctx context.Context, input *WithdrawalInput, requesterID int64) (*repository.Withdrawal, error) {
	if len(input.Items) == 0 {
		return nil, errors.BadRequest("withdrawal needs at least one item")
	}

	seen := make(map[int64]bool, len(input.Items))
	lines := make([]repository.WithdrawalLine, 0, len(input.Items))
	for _, li := range input.Items {
		if li.Quantity <= 0 {
			return nil, errors.BadRequest("item quantity must be positive")
		}
		if seen[li.ItemID] {
			return nil, errors.BadRequest("duplicate item in withdrawal")
		}
		seen[li.ItemID] = true

		item, err := s.itemRepo.GetByID(ctx, li.ItemID)
		if err != nil {
			return nil, err
		}
		if !item.IsActive {
			return nil, errors.BadRequest("item " + item.OriginalName + " is no longer available")
		}
		if item.Quantity < li.Quantity {
			return nil, errors.InsufficientStock(item.OriginalName, item.Quantity, li.Quantity)
		}

		lines = append(lines, repository.WithdrawalLine{ItemID: li.ItemID, Quantity: li.Quantity})
	}

	w := &repository.Withdrawal{
		RequesterID:    requesterID,
		SectorID:       input.SectorID,
		Status:         repository.StatusPending,
		Justification:  input.Justification,
		LocalRequester: input.LocalRequester,
		Lines:          lines,
	}

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return s.repo.CreateTx(ctx, tx, w)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishWithdrawalRequested(ctx, w)
	if s.notifier != nil {
		s.notifier.Broadcast(notify.Push{Type: notify.PushNewWithdrawalRequest, Data: w})
	}

	return w, nil
}

// Get gets a withdrawal by ID
func (s *WithdrawalService) Get(ctx context.Context, id int64) (*repository.Withdrawal, error) {
	return s.repo.GetByID(ctx, id)
}

// List lists withdrawals
func (s *WithdrawalService) List(ctx context.Context, filter repository.WithdrawalFilter) ([]*repository.Withdrawal, int64, error) {
	return s.repo.List(ctx, filter)
}

// UpdateStatus moves a withdrawal through its lifecycle. Completion
// decrements stock for every line inside the same transaction: each
// item row is locked, re-checked and written, and an item drained to
// zero is retired on the spot. Any shortage rolls the whole
// transition back.
func (s *WithdrawalService) UpdateStatus(ctx context.Context, id int64, newStatus int, detail *string, actorID int64) (*repository.Withdrawal, error) {
	if newStatus < repository.StatusPending || newStatus > repository.StatusDenied {
		return nil, errors.BadRequest("unknown withdrawal status")
	}

	var w *repository.Withdrawal
	var oldStatus int
	var drained []*repository.Item
	var decremented []*repository.Item

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		drained = drained[:0]
		decremented = decremented[:0]

		var err error
		w, err = s.repo.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}

		oldStatus = w.Status
		if !CanTransition(oldStatus, newStatus) {
			return errors.Conflict("withdrawal cannot change status")
		}

		if newStatus == repository.StatusCompleted {
			for _, line := range w.Lines {
				item, wasDrained, err := s.stock.DecrementTx(ctx, tx, line.ItemID, line.Quantity, actorID)
				if err != nil {
					return err
				}
				if wasDrained {
					drained = append(drained, item)
				}
				decremented = append(decremented, item)
			}
		}

		if err := s.repo.UpdateStatusTx(ctx, tx, id, newStatus, detail, actorID); err != nil {
			return err
		}

		w.Status = newStatus
		w.StatusDetail = detail
		w.AuthorizedBy = &actorID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishWithdrawalStatusChanged(ctx, w, oldStatus, actorID)
	if s.notifier != nil {
		s.notifier.NotifyUser(w.RequesterID, notify.Push{Type: notify.PushWithdrawalStatusUpdate, Data: w})
	}

	for _, item := range decremented {
		s.publisher.PublishStockAdjusted(ctx, item, -lineQuantity(w, item.ID), "withdrawal", actorID)
		s.alerts.CheckLowStock(ctx, item)
	}
	for _, item := range drained {
		s.publisher.PublishItemRetired(ctx, item, "stock drained")
	}

	return w, nil
}

// Cancel soft-deletes a pending withdrawal. Only the requester may
// cancel, and only while no stock has moved.
func (s *WithdrawalService) Cancel(ctx context.Context, id, requesterID int64) error {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if w.RequesterID != requesterID {
		return errors.Forbidden("only the requester can cancel a withdrawal")
	}
	if w.Status != repository.StatusPending {
		return errors.Conflict("only pending withdrawals can be cancelled")
	}

	return s.repo.Deactivate(ctx, id)
}

// DeactivateByPeriod soft-deletes every withdrawal requested in the
// given period. Stock stays untouched; this is record cleanup, not a
// rollback.
func (s *WithdrawalService) DeactivateByPeriod(ctx context.Context, from, to time.Time) (int64, error) {
	if to.Before(from) {
		return 0, errors.BadRequest("period end before start")
	}
	return s.repo.DeactivateByPeriod(ctx, from, to)
}

func lineQuantity(w *repository.Withdrawal, itemID int64) int {
	for _, line := range w.Lines {
		if line.ItemID == itemID {
			return line.Quantity
		}
	}
	return 0
}

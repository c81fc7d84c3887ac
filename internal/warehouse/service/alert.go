package service

import (
	"context"
	"fmt"
	"time"

	"github.com/almoxarifado/almox-backend/internal/warehouse/notify"
	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
	"github.com/almoxarifado/almox-backend/pkg/logger"
)

// AlertService evaluates alert conditions and manages the alert
// lifecycle. An item+kind pair raises at most one open alert, and a
// suppressed pair raises none until the suppression is lifted.
type AlertService struct {
	alertRepo *repository.AlertRepository
	itemRepo  *repository.ItemRepository
	publisher EventPublisher
	notifier  Notifier
	logger    *logger.Logger
}

// NewAlertService creates a new alert service
func NewAlertService(
	alertRepo *repository.AlertRepository,
	itemRepo *repository.ItemRepository,
	publisher EventPublisher,
	notifier Notifier,
	log *logger.Logger,
) *AlertService {
	return &AlertService{
		alertRepo: alertRepo,
		itemRepo:  itemRepo,
		publisher: publisher,
		notifier:  notifier,
		logger:    log,
	}
}

// Alert messages shown in the frontend
func lowStockMessage(item *repository.Item) string {
	return fmt.Sprintf("Estoque de %s abaixo do mínimo", item.OriginalName)
}

func nearExpiryMessage(item *repository.Item) string {
	return fmt.Sprintf("Item %s próximo da validade", item.OriginalName)
}

// ListActive lists alerts that still demand attention
func (s *AlertService) ListActive(ctx context.Context, filter repository.AlertFilter) ([]*repository.Alert, int64, error) {
	return s.alertRepo.ListActive(ctx, filter)
}

// Get gets an alert by ID
func (s *AlertService) Get(ctx context.Context, id int64) (*repository.Alert, error) {
	return s.alertRepo.GetByID(ctx, id)
}

// CountUnviewed counts alerts not yet viewed
func (s *AlertService) CountUnviewed(ctx context.Context) (int64, error) {
	return s.alertRepo.CountUnviewed(ctx)
}

// Delete removes an alert outright. Deleting a suppressed alert lifts
// the suppression with it.
func (s *AlertService) Delete(ctx context.Context, id int64) error {
	return s.alertRepo.Delete(ctx, id)
}

// MarkViewed marks one alert as viewed
func (s *AlertService) MarkViewed(ctx context.Context, id int64) error {
	return s.alertRepo.MarkViewed(ctx, id)
}

// MarkAllViewed marks every open alert as viewed
func (s *AlertService) MarkAllViewed(ctx context.Context) (int64, error) {
	return s.alertRepo.MarkAllViewed(ctx)
}

// Suppress silences an alert and all future alerts of its kind for
// the same item
func (s *AlertService) Suppress(ctx context.Context, id int64) error {
	return s.alertRepo.Suppress(ctx, id)
}

// Unsuppress lifts a standing suppression
func (s *AlertService) Unsuppress(ctx context.Context, id int64) error {
	return s.alertRepo.Unsuppress(ctx, id)
}

// RaiseIfNeeded creates an alert for the item and kind unless the
// pair is suppressed or already has an open alert. Returns the new
// alert, or nil when nothing was raised.
func (s *AlertService) RaiseIfNeeded(ctx context.Context, item *repository.Item, kind int) (*repository.Alert, error) {
	suppressed, err := s.alertRepo.IsSuppressed(ctx, item.ID, kind)
	if err != nil {
		return nil, err
	}
	if suppressed {
		return nil, nil
	}

	open, err := s.alertRepo.HasOpenAlert(ctx, item.ID, kind)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, nil
	}

	var message string
	switch kind {
	case repository.AlertLowStock:
		message = lowStockMessage(item)
	case repository.AlertNearExpiry:
		message = nearExpiryMessage(item)
	default:
		return nil, fmt.Errorf("unknown alert kind %d", kind)
	}

	alert := &repository.Alert{
		Kind:    kind,
		ItemID:  item.ID,
		Message: message,
	}
	if err := s.alertRepo.Create(ctx, alert); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("item_id", item.ID).
		Int("kind", kind).
		Msg("alert raised")

	s.publisher.PublishAlertGenerated(ctx, alert, item.OriginalName)
	if s.notifier != nil {
		s.notifier.Broadcast(notify.Push{Type: notify.PushNewAlert, Data: alert})
	}

	return alert, nil
}

// CheckLowStock raises a low stock alert when the item is under its
// minimum. Called after every stock decrement.
func (s *AlertService) CheckLowStock(ctx context.Context, item *repository.Item) {
	if item.Quantity >= item.MinQuantity {
		return
	}

	if _, err := s.RaiseIfNeeded(ctx, item, repository.AlertLowStock); err != nil {
		s.logger.Error().Err(err).Int64("item_id", item.ID).Msg("low stock alert check failed")
	}
}

// CleanupViewed purges viewed alerts older than the retention window
func (s *AlertService) CleanupViewed(ctx context.Context, retention time.Duration) (int64, error) {
	return s.alertRepo.DeleteViewedBefore(ctx, time.Now().Add(-retention))
}

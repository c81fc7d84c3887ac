package events

import (
	"context"

	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
	"github.com/almoxarifado/almox-backend/pkg/logger"
	"github.com/almoxarifado/almox-backend/pkg/messaging"
)

// WarehouseEventPublisher publishes warehouse events. A nil publisher
// is safe to call; every method is a no-op then, so the service runs
// without a broker in development.
type WarehouseEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewWarehouseEventPublisher creates a new warehouse event publisher
func NewWarehouseEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*WarehouseEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeWarehouseEvents, "warehouse-service", log)
	if err != nil {
		return nil, err
	}

	return &WarehouseEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishStockAdjusted publishes a stock adjusted event
func (p *WarehouseEventPublisher) PublishStockAdjusted(ctx context.Context, item *repository.Item, delta int, reason string, userID int64) {
	if p == nil {
		return
	}

	data := messaging.StockAdjustedEvent{
		ItemID:      item.ID,
		ItemName:    item.OriginalName,
		Delta:       delta,
		NewQuantity: item.Quantity,
		Reason:      reason,
		UserID:      userID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockAdjusted, data); err != nil {
		p.logger.Error().Err(err).Int64("item_id", item.ID).Msg("failed to publish stock adjusted event")
	}
}

// PublishItemCreated publishes an item created event
func (p *WarehouseEventPublisher) PublishItemCreated(ctx context.Context, item *repository.Item) {
	if p == nil {
		return
	}

	data := messaging.ItemCreatedEvent{
		ItemID:     item.ID,
		Name:       item.OriginalName,
		CategoryID: item.CategoryID,
		Quantity:   item.Quantity,
	}

	if err := p.publisher.Publish(ctx, messaging.EventItemCreated, data); err != nil {
		p.logger.Error().Err(err).Int64("item_id", item.ID).Msg("failed to publish item created event")
	}
}

// PublishItemRetired publishes an item retired event
func (p *WarehouseEventPublisher) PublishItemRetired(ctx context.Context, item *repository.Item, reason string) {
	if p == nil {
		return
	}

	data := messaging.ItemRetiredEvent{
		ItemID: item.ID,
		Name:   item.OriginalName,
		Reason: reason,
	}

	if err := p.publisher.Publish(ctx, messaging.EventItemRetired, data); err != nil {
		p.logger.Error().Err(err).Int64("item_id", item.ID).Msg("failed to publish item retired event")
	}
}

// PublishWithdrawalRequested publishes a withdrawal requested event
func (p *WarehouseEventPublisher) PublishWithdrawalRequested(ctx context.Context, w *repository.Withdrawal) {
	if p == nil {
		return
	}

	data := messaging.WithdrawalRequestedEvent{
		WithdrawalID: w.ID,
		RequesterID:  w.RequesterID,
		ItemCount:    len(w.Lines),
	}
	if w.SectorID != nil {
		data.SectorID = *w.SectorID
	}

	if err := p.publisher.Publish(ctx, messaging.EventWithdrawalRequested, data); err != nil {
		p.logger.Error().Err(err).Int64("withdrawal_id", w.ID).Msg("failed to publish withdrawal requested event")
	}
}

// PublishWithdrawalStatusChanged publishes a status transition event
func (p *WarehouseEventPublisher) PublishWithdrawalStatusChanged(ctx context.Context, w *repository.Withdrawal, oldStatus int, actorID int64) {
	if p == nil {
		return
	}

	data := messaging.WithdrawalStatusChangedEvent{
		WithdrawalID: w.ID,
		RequesterID:  w.RequesterID,
		OldStatus:    oldStatus,
		NewStatus:    w.Status,
		ActorID:      actorID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventWithdrawalStatusChanged, data); err != nil {
		p.logger.Error().Err(err).Int64("withdrawal_id", w.ID).Msg("failed to publish withdrawal status event")
	}
}

// PublishAlertGenerated publishes an alert generated event
func (p *WarehouseEventPublisher) PublishAlertGenerated(ctx context.Context, alert *repository.Alert, itemName string) {
	if p == nil {
		return
	}

	data := messaging.AlertGeneratedEvent{
		AlertID:  alert.ID,
		Kind:     alert.Kind,
		ItemID:   alert.ItemID,
		ItemName: itemName,
		Message:  alert.Message,
	}

	if err := p.publisher.Publish(ctx, messaging.EventAlertGenerated, data); err != nil {
		p.logger.Error().Err(err).Int64("alert_id", alert.ID).Msg("failed to publish alert generated event")
	}
}

// PublishImportCompleted publishes a bulk import completed event
func (p *WarehouseEventPublisher) PublishImportCompleted(ctx context.Context, fileName string, created, merged, failed int, userID int64) {
	if p == nil {
		return
	}

	data := messaging.ImportCompletedEvent{
		FileName: fileName,
		Created:  created,
		Merged:   merged,
		Failed:   failed,
		UserID:   userID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventImportCompleted, data); err != nil {
		p.logger.Error().Err(err).Str("file", fileName).Msg("failed to publish import completed event")
	}
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
	"github.com/almoxarifado/almox-backend/pkg/logger"
)

// AlertScanner sweeps the whole catalog for alert conditions. It backs
// the daily scheduled scan; point checks after stock movements go
// through AlertService directly.
type AlertScanner struct {
	itemRepo         *repository.ItemRepository
	alerts           *AlertService
	expiryWindowDays int
	logger           *logger.Logger
}

// NewAlertScanner creates a new alert scanner
func NewAlertScanner(
	itemRepo *repository.ItemRepository,
	alerts *AlertService,
	expiryWindowDays int,
	log *logger.Logger,
) *AlertScanner {
	return &AlertScanner{
		itemRepo:         itemRepo,
		alerts:           alerts,
		expiryWindowDays: expiryWindowDays,
		logger:           log,
	}
}

// ScanAll runs all scans. Logs errors but keeps scanning.
func (s *AlertScanner) ScanAll(ctx context.Context) error {
	scanners := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"low_stock", s.scanLowStock},
		{"near_expiry", s.scanNearExpiry},
	}

	var lastErr error
	for _, scanner := range scanners {
		if err := scanner.fn(ctx); err != nil {
			s.logger.Error().Err(err).Str("scanner", scanner.name).Msg("alert scan failed")
			lastErr = err
		}
	}

	return lastErr
}

func (s *AlertScanner) scanLowStock(ctx context.Context) error {
	items, err := s.itemRepo.ListBelowMin(ctx)
	if err != nil {
		return fmt.Errorf("scanLowStock: list items below minimum: %w", err)
	}

	for _, item := range items {
		if _, err := s.alerts.RaiseIfNeeded(ctx, item, repository.AlertLowStock); err != nil {
			s.logger.Error().Err(err).Int64("item_id", item.ID).Msg("scanLowStock: failed to raise alert")
		}
	}

	return nil
}

func (s *AlertScanner) scanNearExpiry(ctx context.Context) error {
	until := time.Now().AddDate(0, 0, s.expiryWindowDays)

	items, err := s.itemRepo.ListExpiringBefore(ctx, until)
	if err != nil {
		return fmt.Errorf("scanNearExpiry: list expiring items: %w", err)
	}

	for _, item := range items {
		if _, err := s.alerts.RaiseIfNeeded(ctx, item, repository.AlertNearExpiry); err != nil {
			s.logger.Error().Err(err).Int64("item_id", item.ID).Msg("scanNearExpiry: failed to raise alert")
		}
	}

	return nil
}

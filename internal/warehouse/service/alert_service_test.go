package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
)

func TestRaiseIfNeeded(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	item := createTestItem(t, ctx, svc.itemRepo, "LUVA", cat.ID, 2)

	t.Run("raises once", func(t *testing.T) {
		alert, err := svc.alerts.RaiseIfNeeded(ctx, item, repository.AlertLowStock)
		require.NoError(t, err)
		require.NotNil(t, alert)
		assert.Equal(t, "Estoque de LUVA abaixo do mínimo", alert.Message)

		// Same condition again while the alert is open: nothing new
		again, err := svc.alerts.RaiseIfNeeded(ctx, item, repository.AlertLowStock)
		require.NoError(t, err)
		assert.Nil(t, again)
	})

	t.Run("viewing reopens the pair", func(t *testing.T) {
		alerts, _, err := svc.alerts.ListActive(ctx, repository.AlertFilter{Page: 1, PerPage: 10})
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		require.NoError(t, svc.alerts.MarkViewed(ctx, alerts[0].ID))

		alert, err := svc.alerts.RaiseIfNeeded(ctx, item, repository.AlertLowStock)
		require.NoError(t, err)
		assert.NotNil(t, alert)
	})

	t.Run("different kind is independent", func(t *testing.T) {
		alert, err := svc.alerts.RaiseIfNeeded(ctx, item, repository.AlertNearExpiry)
		require.NoError(t, err)
		require.NotNil(t, alert)
		assert.Equal(t, "Item LUVA próximo da validade", alert.Message)
	})
}

func TestSuppression(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	item := createTestItem(t, ctx, svc.itemRepo, "LUVA", cat.ID, 2)

	alert, err := svc.alerts.RaiseIfNeeded(ctx, item, repository.AlertLowStock)
	require.NoError(t, err)
	require.NotNil(t, alert)

	require.NoError(t, svc.alerts.Suppress(ctx, alert.ID))

	t.Run("suppressed pair raises nothing", func(t *testing.T) {
		again, err := svc.alerts.RaiseIfNeeded(ctx, item, repository.AlertLowStock)
		require.NoError(t, err)
		assert.Nil(t, again)
	})

	t.Run("suppressed alert stays listed", func(t *testing.T) {
		alerts, _, err := svc.alerts.ListActive(ctx, repository.AlertFilter{Page: 1, PerPage: 10})
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.True(t, alerts[0].SuppressFuture)
	})

	t.Run("unsuppress lifts the block", func(t *testing.T) {
		require.NoError(t, svc.alerts.Unsuppress(ctx, alert.ID))

		again, err := svc.alerts.RaiseIfNeeded(ctx, item, repository.AlertLowStock)
		require.NoError(t, err)
		assert.NotNil(t, again)
	})
}

func TestSuppressionSurvivesMarkAllViewed(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	item := createTestItem(t, ctx, svc.itemRepo, "LUVA", cat.ID, 2)

	alert, err := svc.alerts.RaiseIfNeeded(ctx, item, repository.AlertLowStock)
	require.NoError(t, err)
	require.NotNil(t, alert)
	require.NoError(t, svc.alerts.Suppress(ctx, alert.ID))

	_, err = svc.alerts.MarkAllViewed(ctx)
	require.NoError(t, err)

	// Marking everything viewed must not lift the suppression
	again, err := svc.alerts.RaiseIfNeeded(ctx, item, repository.AlertLowStock)
	require.NoError(t, err)
	assert.Nil(t, again)

	alerts, _, err := svc.alerts.ListActive(ctx, repository.AlertFilter{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].SuppressFuture)
}

func TestMarkAllViewed(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	for _, name := range []string{"LUVA", "TOUCA", "MASCARA"} {
		item := createTestItem(t, ctx, svc.itemRepo, name, cat.ID, 1)
		_, err := svc.alerts.RaiseIfNeeded(ctx, item, repository.AlertLowStock)
		require.NoError(t, err)
	}

	n, err := svc.alerts.MarkAllViewed(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	alerts, _, err := svc.alerts.ListActive(ctx, repository.AlertFilter{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestAlertScanner(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")

	// below minimum (helper sets min_quantity 5)
	low := createTestItem(t, ctx, svc.itemRepo, "LUVA", cat.ID, 2)

	// healthy stock, expiring within the 60 day window
	soon := &repository.Item{
		Name:         "DIPIRONA",
		OriginalName: "DIPIRONA",
		Quantity:     50,
		MinQuantity:  5,
		CategoryID:   cat.ID,
		ExpiryDate:   datePtr(time.Now().AddDate(0, 0, 15)),
	}
	require.NoError(t, svc.itemRepo.Create(ctx, soon))

	// healthy on both counts
	fine := &repository.Item{
		Name:         "SORO",
		OriginalName: "SORO",
		Quantity:     50,
		MinQuantity:  5,
		CategoryID:   cat.ID,
		ExpiryDate:   datePtr(time.Now().AddDate(1, 0, 0)),
	}
	require.NoError(t, svc.itemRepo.Create(ctx, fine))

	require.NoError(t, svc.scanner.ScanAll(ctx))

	alerts, total, err := svc.alerts.ListActive(ctx, repository.AlertFilter{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	kinds := map[int64]int{}
	for _, a := range alerts {
		kinds[a.ItemID] = a.Kind
	}
	assert.Equal(t, repository.AlertLowStock, kinds[low.ID])
	assert.Equal(t, repository.AlertNearExpiry, kinds[soon.ID])

	// Rescanning raises nothing new
	require.NoError(t, svc.scanner.ScanAll(ctx))
	_, total, err = svc.alerts.ListActive(ctx, repository.AlertFilter{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestCleanupViewed(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	item := createTestItem(t, ctx, svc.itemRepo, "LUVA", cat.ID, 1)

	alert, err := svc.alerts.RaiseIfNeeded(ctx, item, repository.AlertLowStock)
	require.NoError(t, err)
	require.NoError(t, svc.alerts.MarkViewed(ctx, alert.ID))

	suppressed, err := svc.alerts.RaiseIfNeeded(ctx, item, repository.AlertNearExpiry)
	require.NoError(t, err)
	require.NoError(t, svc.alerts.Suppress(ctx, suppressed.ID))

	// Retention of zero means everything viewed is old enough
	deleted, err := svc.alerts.CleanupViewed(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	// The suppressed alert survives, it still blocks future raises
	blocked, err := svc.alerts.RaiseIfNeeded(ctx, item, repository.AlertNearExpiry)
	require.NoError(t, err)
	assert.Nil(t, blocked)
}

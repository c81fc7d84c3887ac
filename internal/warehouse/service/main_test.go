package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/almoxarifado/almox-backend/internal/warehouse/events"
	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
	"github.com/almoxarifado/almox-backend/internal/warehouse/service"
	"github.com/almoxarifado/almox-backend/pkg/testutil"
)

var (
	suite     *testutil.IntegrationSuite
	suiteOnce sync.Once
	suiteErr  error
)

// integrationSuite returns the shared test suite, starting the postgres
// container on first use. Tests running with -short never touch it.
func integrationSuite(t *testing.T) *testutil.IntegrationSuite {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	suiteOnce.Do(func() {
		suite, suiteErr = testutil.NewIntegrationSuite(context.Background())
	})
	if suiteErr != nil {
		t.Fatalf("failed to create integration suite: %v", suiteErr)
	}

	suite.Reset(t, context.Background())
	return suite
}

// services bundles the wired service layer for a test run
type services struct {
	items       *service.ItemService
	withdrawals *service.WithdrawalService
	alerts      *service.AlertService
	scanner     *service.AlertScanner
	importer    *service.BulkImportService

	itemRepo  *repository.ItemRepository
	catRepo   *repository.CategoryRepository
	wRepo     *repository.WithdrawalRepository
	alertRepo *repository.AlertRepository
}

func newServices(s *testutil.IntegrationSuite) *services {
	itemRepo := repository.NewItemRepository(s.DB)
	catRepo := repository.NewCategoryRepository(s.DB)
	wRepo := repository.NewWithdrawalRepository(s.DB)
	alertRepo := repository.NewAlertRepository(s.DB)

	// nil publisher is a no-op, same as running without a broker
	var pub *events.WarehouseEventPublisher

	alerts := service.NewAlertService(alertRepo, itemRepo, pub, nil, s.Logger)

	return &services{
		items:       service.NewItemService(s.DB, itemRepo, catRepo, alerts, pub, s.Logger),
		withdrawals: service.NewWithdrawalService(s.DB, wRepo, itemRepo, alerts, pub, nil, s.Logger),
		alerts:      alerts,
		scanner:     service.NewAlertScanner(itemRepo, alerts, 60, s.Logger),
		importer:    service.NewBulkImportService(s.DB, itemRepo, catRepo, pub, 5000, s.Logger),
		itemRepo:    itemRepo,
		catRepo:     catRepo,
		wRepo:       wRepo,
		alertRepo:   alertRepo,
	}
}

func createTestCategory(t *testing.T, ctx context.Context, repo *repository.CategoryRepository, name string) *repository.Category {
	t.Helper()
	cat := &repository.Category{Name: name, OriginalName: name}
	require.NoError(t, repo.Create(ctx, cat))
	return cat
}

func createTestItem(t *testing.T, ctx context.Context, repo *repository.ItemRepository, name string, categoryID int64, qty int) *repository.Item {
	t.Helper()
	item := &repository.Item{
		Name:         name,
		OriginalName: name,
		Quantity:     qty,
		MinQuantity:  5,
		CategoryID:   categoryID,
	}
	require.NoError(t, repo.Create(ctx, item))
	return item
}

func strPtr(s string) *string {
	return &s
}

func datePtr(t time.Time) *time.Time {
	return &t
}

package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
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

func createTestCategory(t *testing.T, ctx context.Context, repo *repository.CategoryRepository, name string) *repository.Category {
	t.Helper()
	cat := &repository.Category{
		Name:         name,
		OriginalName: name,
	}
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

func int64Ptr(n int64) *int64 {
	return &n
}

func datePtr(t time.Time) *time.Time {
	return &t
}

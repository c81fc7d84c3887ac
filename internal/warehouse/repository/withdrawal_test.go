package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
	"github.com/almoxarifado/almox-backend/pkg/errors"
)

func TestWithdrawalRepository_CreateAndGet(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()

	catRepo := repository.NewCategoryRepository(s.DB)
	cat := createTestCategory(t, ctx, catRepo, "RETIRADA")

	itemRepo := repository.NewItemRepository(s.DB)
	itemA := createTestItem(t, ctx, itemRepo, "CADERNO", cat.ID, 30)
	itemB := createTestItem(t, ctx, itemRepo, "LAPIS", cat.ID, 100)

	repo := repository.NewWithdrawalRepository(s.DB)

	w := &repository.Withdrawal{
		RequesterID:   10,
		Status:        repository.StatusPending,
		Justification: strPtr("reposição da sala 12"),
		Lines: []repository.WithdrawalLine{
			{ItemID: itemA.ID, Quantity: 2},
			{ItemID: itemB.ID, Quantity: 12},
		},
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.CreateTx(ctx, tx, w))
	require.NoError(t, tx.Commit())

	assert.NotZero(t, w.ID)

	got, err := repo.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusPending, got.Status)
	assert.Equal(t, int64(10), got.RequesterID)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.Equal(t, 12, got.Lines[1].Quantity)
}

func TestWithdrawalRepository_List(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()

	catRepo := repository.NewCategoryRepository(s.DB)
	cat := createTestCategory(t, ctx, catRepo, "LISTAGEM")

	itemRepo := repository.NewItemRepository(s.DB)
	item := createTestItem(t, ctx, itemRepo, "BORRACHA", cat.ID, 30)

	repo := repository.NewWithdrawalRepository(s.DB)

	create := func(requesterID int64, status int) *repository.Withdrawal {
		w := &repository.Withdrawal{
			RequesterID: requesterID,
			Status:      status,
			Lines:       []repository.WithdrawalLine{{ItemID: item.ID, Quantity: 1}},
		}
		tx, err := s.DB.BeginTxx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, repo.CreateTx(ctx, tx, w))
		require.NoError(t, tx.Commit())
		return w
	}

	create(1, repository.StatusPending)
	create(1, repository.StatusCompleted)
	create(2, repository.StatusPending)

	t.Run("all", func(t *testing.T) {
		all, total, err := repo.List(ctx, repository.WithdrawalFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, all, 3)
		for _, w := range all {
			assert.NotEmpty(t, w.Lines)
		}
	})

	t.Run("by status", func(t *testing.T) {
		pending, total, err := repo.List(ctx, repository.WithdrawalFilter{Status: repository.StatusPending})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, pending, 2)
	})

	t.Run("by requester", func(t *testing.T) {
		mine, total, err := repo.List(ctx, repository.WithdrawalFilter{RequesterID: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, mine, 1)
		assert.Equal(t, int64(2), mine[0].RequesterID)
	})
}

func TestWithdrawalRepository_UpdateStatus(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()

	catRepo := repository.NewCategoryRepository(s.DB)
	cat := createTestCategory(t, ctx, catRepo, "STATUS")

	itemRepo := repository.NewItemRepository(s.DB)
	item := createTestItem(t, ctx, itemRepo, "GRAMPEADOR", cat.ID, 8)

	repo := repository.NewWithdrawalRepository(s.DB)

	w := &repository.Withdrawal{
		RequesterID: 3,
		Status:      repository.StatusPending,
		Lines:       []repository.WithdrawalLine{{ItemID: item.ID, Quantity: 1}},
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.CreateTx(ctx, tx, w))
	require.NoError(t, tx.Commit())

	tx, err = s.DB.BeginTxx(ctx, nil)
	require.NoError(t, err)

	locked, err := repo.GetForUpdateTx(ctx, tx, w.ID)
	require.NoError(t, err)
	require.Len(t, locked.Lines, 1)

	require.NoError(t, repo.UpdateStatusTx(ctx, tx, w.ID, repository.StatusAuthorized, strPtr("aprovado"), 99))
	require.NoError(t, tx.Commit())

	got, err := repo.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusAuthorized, got.Status)
	require.NotNil(t, got.AuthorizedBy)
	assert.Equal(t, int64(99), *got.AuthorizedBy)
	require.NotNil(t, got.StatusDetail)
	assert.Equal(t, "aprovado", *got.StatusDetail)
}

func TestWithdrawalRepository_Deactivate(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()

	catRepo := repository.NewCategoryRepository(s.DB)
	cat := createTestCategory(t, ctx, catRepo, "CANCELAMENTO")

	itemRepo := repository.NewItemRepository(s.DB)
	item := createTestItem(t, ctx, itemRepo, "TESOURA", cat.ID, 4)

	repo := repository.NewWithdrawalRepository(s.DB)

	w := &repository.Withdrawal{
		RequesterID: 5,
		Status:      repository.StatusPending,
		Lines:       []repository.WithdrawalLine{{ItemID: item.ID, Quantity: 1}},
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.CreateTx(ctx, tx, w))
	require.NoError(t, tx.Commit())

	require.NoError(t, repo.Deactivate(ctx, w.ID))

	_, err = repo.GetByID(ctx, w.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

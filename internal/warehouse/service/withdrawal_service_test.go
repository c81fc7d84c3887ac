package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
	"github.com/almoxarifado/almox-backend/internal/warehouse/service"
	"github.com/almoxarifado/almox-backend/pkg/errors"
)

func TestWithdrawalCreate_Pending(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	item := createTestItem(t, ctx, svc.itemRepo, "LUVA", cat.ID, 20)

	w, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
		Justification: strPtr("reposição da enfermaria"),
		Items:         []service.WithdrawalLineItem{{ItemID: item.ID, Quantity: 5}},
	}, 7)
	require.NoError(t, err)

	assert.Equal(t, repository.StatusPending, w.Status)
	assert.Equal(t, int64(7), w.RequesterID)
	require.Len(t, w.Lines, 1)

	// Creation never moves stock
	fresh, err := svc.itemRepo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, fresh.Quantity)
}

func TestWithdrawalCreate_Rejections(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	item := createTestItem(t, ctx, svc.itemRepo, "LUVA", cat.ID, 3)

	t.Run("no items", func(t *testing.T) {
		_, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{}, 1)
		assert.True(t, errors.Is(err, errors.ErrBadRequest))
	})

	t.Run("zero quantity", func(t *testing.T) {
		_, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
			Items: []service.WithdrawalLineItem{{ItemID: item.ID, Quantity: 0}},
		}, 1)
		assert.True(t, errors.Is(err, errors.ErrBadRequest))
	})

	t.Run("duplicate item", func(t *testing.T) {
		_, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
			Items: []service.WithdrawalLineItem{
				{ItemID: item.ID, Quantity: 1},
				{ItemID: item.ID, Quantity: 2},
			},
		}, 1)
		assert.True(t, errors.Is(err, errors.ErrBadRequest))
	})

	t.Run("more than in stock", func(t *testing.T) {
		_, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
			Items: []service.WithdrawalLineItem{{ItemID: item.ID, Quantity: 4}},
		}, 1)
		assert.True(t, errors.Is(err, errors.ErrInsufficientStock))
	})

	t.Run("retired item", func(t *testing.T) {
		retired := createTestItem(t, ctx, svc.itemRepo, "AVENTAL", cat.ID, 10)
		require.NoError(t, svc.itemRepo.Deactivate(ctx, retired.ID))

		_, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
			Items: []service.WithdrawalLineItem{{ItemID: retired.ID, Quantity: 1}},
		}, 1)
		assert.Error(t, err)
	})
}

func TestWithdrawalComplete_DecrementsStock(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	luva := createTestItem(t, ctx, svc.itemRepo, "LUVA", cat.ID, 20)
	touca := createTestItem(t, ctx, svc.itemRepo, "TOUCA", cat.ID, 8)

	w, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
		Items: []service.WithdrawalLineItem{
			{ItemID: luva.ID, Quantity: 5},
			{ItemID: touca.ID, Quantity: 3},
		},
	}, 7)
	require.NoError(t, err)

	_, err = svc.withdrawals.UpdateStatus(ctx, w.ID, repository.StatusAuthorized, nil, 2)
	require.NoError(t, err)

	done, err := svc.withdrawals.UpdateStatus(ctx, w.ID, repository.StatusCompleted, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusCompleted, done.Status)

	freshLuva, err := svc.itemRepo.GetByID(ctx, luva.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, freshLuva.Quantity)

	freshTouca, err := svc.itemRepo.GetByID(ctx, touca.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, freshTouca.Quantity)
}

func TestWithdrawalComplete_RetiresDrainedItem(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	item := createTestItem(t, ctx, svc.itemRepo, "MASCARA", cat.ID, 4)

	w, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
		Items: []service.WithdrawalLineItem{{ItemID: item.ID, Quantity: 4}},
	}, 7)
	require.NoError(t, err)

	_, err = svc.withdrawals.UpdateStatus(ctx, w.ID, repository.StatusCompleted, nil, 2)
	require.NoError(t, err)

	fresh, err := svc.itemRepo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Quantity)
	assert.False(t, fresh.IsActive)
	assert.NotNil(t, fresh.ExitDate)
}

func TestWithdrawalComplete_ShortageRollsBack(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	luva := createTestItem(t, ctx, svc.itemRepo, "LUVA", cat.ID, 20)
	touca := createTestItem(t, ctx, svc.itemRepo, "TOUCA", cat.ID, 8)

	w, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
		Items: []service.WithdrawalLineItem{
			{ItemID: luva.ID, Quantity: 5},
			{ItemID: touca.ID, Quantity: 6},
		},
	}, 7)
	require.NoError(t, err)

	// Someone else drains the second item before completion
	other, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
		Items: []service.WithdrawalLineItem{{ItemID: touca.ID, Quantity: 5}},
	}, 9)
	require.NoError(t, err)
	_, err = svc.withdrawals.UpdateStatus(ctx, other.ID, repository.StatusCompleted, nil, 2)
	require.NoError(t, err)

	_, err = svc.withdrawals.UpdateStatus(ctx, w.ID, repository.StatusCompleted, nil, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	// The first line must not have been decremented
	freshLuva, err := svc.itemRepo.GetByID(ctx, luva.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, freshLuva.Quantity)

	// And the withdrawal stays where it was
	fresh, err := svc.withdrawals.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusPending, fresh.Status)
}

func TestWithdrawalComplete_ConcurrentCompletions(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	item := createTestItem(t, ctx, svc.itemRepo, "LUVA", cat.ID, 10)

	// Two withdrawals that cannot both be satisfied
	first, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
		Items: []service.WithdrawalLineItem{{ItemID: item.ID, Quantity: 7}},
	}, 7)
	require.NoError(t, err)
	second, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
		Items: []service.WithdrawalLineItem{{ItemID: item.ID, Quantity: 7}},
	}, 9)
	require.NoError(t, err)

	errs := make(chan error, 2)
	for _, id := range []int64{first.ID, second.ID} {
		id := id
		go func() {
			_, err := svc.withdrawals.UpdateStatus(ctx, id, repository.StatusCompleted, nil, 2)
			errs <- err
		}()
	}

	// The row lock serializes the completions: exactly one gets the stock
	var failures int
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			assert.True(t, errors.Is(err, errors.ErrInsufficientStock))
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	fresh, err := svc.itemRepo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.Quantity)
}

func TestWithdrawalUpdateStatus_TerminalStates(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	item := createTestItem(t, ctx, svc.itemRepo, "LUVA", cat.ID, 20)

	w, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
		Items: []service.WithdrawalLineItem{{ItemID: item.ID, Quantity: 5}},
	}, 7)
	require.NoError(t, err)

	_, err = svc.withdrawals.UpdateStatus(ctx, w.ID, repository.StatusCompleted, nil, 2)
	require.NoError(t, err)

	// Completing twice would decrement twice; it must conflict
	_, err = svc.withdrawals.UpdateStatus(ctx, w.ID, repository.StatusCompleted, nil, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))

	fresh, err := svc.itemRepo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, fresh.Quantity)
}

func TestWithdrawalDeny_KeepsStock(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	item := createTestItem(t, ctx, svc.itemRepo, "LUVA", cat.ID, 20)

	w, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
		Items: []service.WithdrawalLineItem{{ItemID: item.ID, Quantity: 5}},
	}, 7)
	require.NoError(t, err)

	denied, err := svc.withdrawals.UpdateStatus(ctx, w.ID, repository.StatusDenied, strPtr("sem justificativa"), 2)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusDenied, denied.Status)
	require.NotNil(t, denied.StatusDetail)

	fresh, err := svc.itemRepo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, fresh.Quantity)
}

func TestWithdrawalCancel(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	item := createTestItem(t, ctx, svc.itemRepo, "LUVA", cat.ID, 20)

	w, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
		Items: []service.WithdrawalLineItem{{ItemID: item.ID, Quantity: 5}},
	}, 7)
	require.NoError(t, err)

	t.Run("only requester may cancel", func(t *testing.T) {
		err := svc.withdrawals.Cancel(ctx, w.ID, 99)
		assert.True(t, errors.Is(err, errors.ErrForbidden))
	})

	t.Run("requester cancels pending", func(t *testing.T) {
		require.NoError(t, svc.withdrawals.Cancel(ctx, w.ID, 7))

		_, err := svc.withdrawals.Get(ctx, w.ID)
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})

	t.Run("completed cannot be cancelled", func(t *testing.T) {
		w2, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
			Items: []service.WithdrawalLineItem{{ItemID: item.ID, Quantity: 1}},
		}, 7)
		require.NoError(t, err)
		_, err = svc.withdrawals.UpdateStatus(ctx, w2.ID, repository.StatusCompleted, nil, 2)
		require.NoError(t, err)

		err = svc.withdrawals.Cancel(ctx, w2.ID, 7)
		assert.True(t, errors.Is(err, errors.ErrConflict))
	})
}

func TestWithdrawalComplete_RaisesLowStockAlert(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	// min_quantity is 5 in the helper; drop quantity below it
	item := createTestItem(t, ctx, svc.itemRepo, "LUVA", cat.ID, 6)

	w, err := svc.withdrawals.Create(ctx, &service.WithdrawalInput{
		Items: []service.WithdrawalLineItem{{ItemID: item.ID, Quantity: 3}},
	}, 7)
	require.NoError(t, err)

	_, err = svc.withdrawals.UpdateStatus(ctx, w.ID, repository.StatusCompleted, nil, 2)
	require.NoError(t, err)

	alerts, total, err := svc.alerts.ListActive(ctx, repository.AlertFilter{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, alerts, 1)
	assert.Equal(t, repository.AlertLowStock, alerts[0].Kind)
	assert.Equal(t, item.ID, alerts[0].ItemID)
}

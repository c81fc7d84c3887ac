package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
	"github.com/almoxarifado/almox-backend/pkg/errors"
)

func TestImport_CSV(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	csv := strings.Join([]string{
		"Produto,Quantidade,Unidade de Medida,Categoria,Descrição,Marca,Validade",
		"Álcool 70%,10,litro,Limpeza,,Ypê,25/12/2026",
		"Luva Nitrílica,200,caixa,EPI,tamanho M,,",
		"alcool 70,5,litro,limpeza,,Ypê,25/12/2026",
	}, "\n")

	result, err := svc.importer.Import(ctx, strings.NewReader(csv), "estoque.csv", 1)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)

	// Row 4 merged into row 2's item
	items, _, err := svc.itemRepo.List(ctx, repository.ItemFilter{Search: "ALCOOL"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 15, items[0].Quantity)

	// Both rows left the description blank, so it was derived from
	// name and unit; the merging row's text wins
	require.NotNil(t, items[0].Description)
	assert.Equal(t, "alcool 70 litro", *items[0].Description)

	// Categories were created on the fly, canonicalized
	cats, err := svc.catRepo.List(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"LIMPEZA", "EPI"}, names)
}

func TestImport_RowErrorsAreIsolated(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	csv := strings.Join([]string{
		"Produto,Quantidade,Unidade de Medida,Categoria",
		"Caneta,10,un,Escritório",
		",5,un,Escritório",
		"Lápis,abc,un,Escritório",
		"Borracha,3,un,",
		"Régua,-2,un,Escritório",
		"Grampeador,4,,Escritório",
		"Caderno,7,un,Escritório",
	}, "\n")

	result, err := svc.importer.Import(ctx, strings.NewReader(csv), "papelaria.csv", 1)
	require.NoError(t, err)

	assert.Equal(t, 7, result.Total)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 5, result.Failed)
	require.Len(t, result.Errors, 5)

	// Row numbers are spreadsheet rows, header included
	rows := make([]int, 0, len(result.Errors))
	for _, e := range result.Errors {
		rows = append(rows, e.Row)
	}
	assert.Equal(t, []int{3, 4, 5, 6, 7}, rows)

	// Good rows committed despite the bad ones between them
	items, _, err := svc.itemRepo.List(ctx, repository.ItemFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestImport_MergesIntoPreexistingItem(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	cat := createTestCategory(t, ctx, svc.catRepo, "EPI")
	existing := createTestItem(t, ctx, svc.itemRepo, "LUVA", cat.ID, 30)

	csv := "Produto,Quantidade,Unidade de Medida,Categoria,Descrição\nLuva,20,caixa,EPI,tamanho G\n"

	result, err := svc.importer.Import(ctx, strings.NewReader(csv), "reposicao.csv", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 0, result.Created)

	fresh, err := svc.itemRepo.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, fresh.Quantity)

	// The merging row's description overlays the stored one
	require.NotNil(t, fresh.Description)
	assert.Equal(t, "tamanho G", *fresh.Description)
}

func TestImport_Rejections(t *testing.T) {
	s := integrationSuite(t)
	ctx := context.Background()
	svc := newServices(s)

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := svc.importer.Import(ctx, strings.NewReader("x"), "estoque.pdf", 1)
		assert.True(t, errors.Is(err, errors.ErrBadRequest))
	})

	t.Run("missing required column", func(t *testing.T) {
		csv := "Produto,Unidade de Medida\nCaneta,un\n"
		_, err := svc.importer.Import(ctx, strings.NewReader(csv), "estoque.csv", 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quantidade")
	})

	t.Run("missing unit column", func(t *testing.T) {
		csv := "Produto,Quantidade,Categoria\nCaneta,10,Escritório\n"
		_, err := svc.importer.Import(ctx, strings.NewReader(csv), "estoque.csv", 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unidade de medida")
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := svc.importer.Import(ctx, strings.NewReader(""), "estoque.csv", 1)
		assert.True(t, errors.Is(err, errors.ErrBadRequest))
	})
}

package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCompanyCreateAndGet(t *testing.T) {
	store := newMemStore()
	svc := service.NewCompanyService(store, zap.NewNop())
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCompanyRequest{Name: "Acme", TaxID: "TX-1"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)

	_, err = svc.Get(ctx, "404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompanyUpdateReplacesFields(t *testing.T) {
	store := newMemStore()
	svc := service.NewCompanyService(store, zap.NewNop())
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCompanyRequest{Name: "Acme", TaxID: "TX-1"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, &domain.CreateCompanyRequest{Name: "Acme Industrial"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Industrial", updated.Name)
	assert.Empty(t, updated.TaxID, "update replaces the whole editable shape")

	_, err = svc.Update(ctx, "404", &domain.CreateCompanyRequest{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompanyProductsDeriveWarrantyStatus(t *testing.T) {
	store := newMemStore()
	svc := service.NewCompanyService(store, zap.NewNop())
	ctx := context.Background()

	p := seedProduct(t, store)
	other := domain.Company{Name: "Globex"}
	require.NoError(t, store.CreateCompany(ctx, &other))
	op := domain.Product{CompanyID: other.ID, Name: "Other", SerialNumber: "SN-9"}
	require.NoError(t, store.CreateProduct(ctx, &op))

	now := time.Now().UTC()
	w := domain.Warranty{ProductID: p.ID, StartDate: now.AddDate(-1, 0, 0), EndDate: now.AddDate(1, 0, 0)}
	require.NoError(t, store.CreateWarranty(ctx, &w))

	dtos, err := svc.Products(ctx, p.CompanyID)
	require.NoError(t, err)
	require.Len(t, dtos, 1, "only the company's own products are returned")
	assert.Equal(t, domain.WarrantyStatusActive, dtos[0].WarrantyStatus)
	assert.Equal(t, "Acme", dtos[0].CompanyName)

	_, err = svc.Products(ctx, "404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

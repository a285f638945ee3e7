package service_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/sequence"
	"github.com/coretrack/warranty-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWarrantyService(store *memStore) *service.WarrantyService {
	log := zap.NewNop()
	return service.NewWarrantyService(store, sequence.NewGenerator(store, log), log)
}

func TestCreateWarrantyGeneratesMaintenanceCases(t *testing.T) {
	store := newMemStore()
	svc := newWarrantyService(store)
	ctx := context.Background()
	p := seedProduct(t, store)

	dto, err := svc.Create(ctx, &domain.CreateWarrantyRequest{
		ProductID:           p.ID,
		StartDate:           "2026-01-01",
		EndDate:             "2027-01-01",
		PlannedMaintenances: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "Pump", dto.ProductName)

	cases, err := store.AllCases(ctx)
	require.NoError(t, err)
	require.Len(t, cases, 4)

	sort.Slice(cases, func(i, k int) bool { return cases[i].CaseCode < cases[k].CaseCode })
	for i, c := range cases {
		assert.Equal(t, domain.ServiceTypePM, c.Type)
		assert.Equal(t, domain.CaseStatusPending, c.Status)
		assert.Equal(t, dto.ID, c.WarrantyID)
		assert.Equal(t, p.ID, c.ProductID)
		require.NotNil(t, c.EntryTime)
		// 12 months over 4 visits: one every 3 months
		want := day(2026, 1, 1).AddDate(0, (i+1)*3, 0)
		assert.Equal(t, want, *c.EntryTime)
	}
}

func TestCreateWarrantyCapsVisitsAtEndDate(t *testing.T) {
	store := newMemStore()
	svc := newWarrantyService(store)
	ctx := context.Background()
	p := seedProduct(t, store)

	// 2 months of coverage, 6 visits: the step floors at one month and the
	// later visits clamp onto the end date
	_, err := svc.Create(ctx, &domain.CreateWarrantyRequest{
		ProductID:           p.ID,
		StartDate:           "2026-01-01",
		EndDate:             "2026-03-01",
		PlannedMaintenances: 6,
	})
	require.NoError(t, err)

	cases, err := store.AllCases(ctx)
	require.NoError(t, err)
	require.Len(t, cases, 6)

	end := day(2026, 3, 1)
	clamped := 0
	for _, c := range cases {
		require.NotNil(t, c.EntryTime)
		assert.False(t, c.EntryTime.After(end), "no visit lands past the coverage end")
		if c.EntryTime.Equal(end) {
			clamped++
		}
	}
	assert.Equal(t, 5, clamped, "visits past the window pile onto the end date")
}

func TestCreateWarrantyWithoutMaintenances(t *testing.T) {
	store := newMemStore()
	svc := newWarrantyService(store)
	ctx := context.Background()
	p := seedProduct(t, store)

	_, err := svc.Create(ctx, &domain.CreateWarrantyRequest{
		ProductID: p.ID,
		StartDate: "2026-01-01",
		EndDate:   "2027-01-01",
	})
	require.NoError(t, err)

	cases, err := store.AllCases(ctx)
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestCreateWarrantyValidation(t *testing.T) {
	store := newMemStore()
	svc := newWarrantyService(store)
	ctx := context.Background()
	p := seedProduct(t, store)

	_, err := svc.Create(ctx, &domain.CreateWarrantyRequest{
		ProductID: p.ID,
		StartDate: "not-a-date",
		EndDate:   "2027-01-01",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(ctx, &domain.CreateWarrantyRequest{
		ProductID: p.ID,
		StartDate: "2027-01-01",
		EndDate:   "2026-01-01",
	})
	assert.ErrorIs(t, err, domain.ErrValidation, "the window must run forward")

	dto, err := svc.Create(ctx, &domain.CreateWarrantyRequest{
		ProductID: p.ID,
		StartDate: "2026-06-01",
		EndDate:   "2026-06-01",
	})
	require.NoError(t, err, "a same-day window is valid")
	assert.Equal(t, dto.StartDate, dto.EndDate)

	_, err = svc.Create(ctx, &domain.CreateWarrantyRequest{
		ProductID: "404",
		StartDate: "2026-01-01",
		EndDate:   "2027-01-01",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListByProductDerivesStatus(t *testing.T) {
	store := newMemStore()
	svc := newWarrantyService(store)
	ctx := context.Background()
	p := seedProduct(t, store)

	now := time.Now().UTC()
	w := domain.Warranty{ProductID: p.ID, StartDate: now.AddDate(-1, 0, 0), EndDate: now.AddDate(1, 0, 0)}
	require.NoError(t, store.CreateWarranty(ctx, &w))

	dtos, err := svc.ListByProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	assert.Equal(t, domain.WarrantyStatusActive, dtos[0].Status)
	assert.Equal(t, "SN-1", dtos[0].SerialNumber)

	_, err = svc.ListByProduct(ctx, "404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

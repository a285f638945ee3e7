package service_test

import (
	"context"
	"testing"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/parts"
	"github.com/coretrack/warranty-api/internal/sequence"
	"github.com/coretrack/warranty-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCaseService(store *memStore) *service.CaseService {
	log := zap.NewNop()
	return service.NewCaseService(store, sequence.NewGenerator(store, log), parts.NewSynchronizer(store, log), log)
}

func seedProduct(t *testing.T, store *memStore) domain.Product {
	t.Helper()
	ctx := context.Background()
	c := domain.Company{Name: "Acme"}
	require.NoError(t, store.CreateCompany(ctx, &c))
	p := domain.Product{CompanyID: c.ID, Name: "Pump", SerialNumber: "SN-1"}
	require.NoError(t, store.CreateProduct(ctx, &p))
	return p
}

func TestCreateCaseClaimsSequentialCodes(t *testing.T) {
	store := newMemStore()
	svc := newCaseService(store)
	ctx := context.Background()

	first, err := svc.Create(ctx, &domain.CreateCaseRequest{Type: "PM"})
	require.NoError(t, err)
	assert.Equal(t, "PM_000001", first.CaseCode)
	assert.Equal(t, domain.CaseStatusPending, first.Status, "status defaults to pending")

	second, err := svc.Create(ctx, &domain.CreateCaseRequest{Type: "PM"})
	require.NoError(t, err)
	assert.Equal(t, "PM_000002", second.CaseCode)

	cm, err := svc.Create(ctx, &domain.CreateCaseRequest{Type: "CM"})
	require.NoError(t, err)
	assert.Equal(t, "CM_000001", cm.CaseCode)
}

func TestCreateCaseRejectsMissingProduct(t *testing.T) {
	svc := newCaseService(newMemStore())

	_, err := svc.Create(context.Background(), &domain.CreateCaseRequest{Type: "PM", ProductID: "404"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateCaseRejectsExitBeforeEntry(t *testing.T) {
	svc := newCaseService(newMemStore())

	_, err := svc.Create(context.Background(), &domain.CreateCaseRequest{
		Type:      "PM",
		EntryTime: "2026-03-10",
		ExitTime:  "2026-03-01",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateCasePersistsParts(t *testing.T) {
	store := newMemStore()
	svc := newCaseService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCaseRequest{
		Type: "CM",
		Parts: []domain.PartInput{
			{PartNumber: "VLV-100", Quantity: 2},
			{PartNumber: "FLT-7"},
		},
	})
	require.NoError(t, err)

	rows, err := store.ListParts(ctx, created.CaseCode)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, created.CaseCode, r.CaseCode)
		assert.GreaterOrEqual(t, r.Quantity, 1)
	}
}

func TestCreateCaseDetectsRacedCode(t *testing.T) {
	store := newMemStore()
	store.phantomCodes["PM_000001"] = true
	svc := newCaseService(store)

	_, err := svc.Create(context.Background(), &domain.CreateCaseRequest{Type: "PM"})
	assert.ErrorIs(t, err, domain.ErrDuplicateCaseCode)
	assert.True(t, service.IsConflict(err))
}

func TestGetCaseJoinsRelatedEntities(t *testing.T) {
	store := newMemStore()
	svc := newCaseService(store)
	ctx := context.Background()

	p := seedProduct(t, store)
	w := domain.Warranty{ProductID: p.ID, StartDate: day(2025, 1, 1), EndDate: day(2027, 1, 1)}
	require.NoError(t, store.CreateWarranty(ctx, &w))

	created, err := svc.Create(ctx, &domain.CreateCaseRequest{Type: "PM", WarrantyID: w.ID})
	require.NoError(t, err)

	detail, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Warranty)
	require.NotNil(t, detail.Product, "product resolves transitively through the warranty")
	assert.Equal(t, "Pump", detail.Product.Name)
	require.NotNil(t, detail.Company)
	assert.Equal(t, "Acme", detail.Company.Name)
}

func TestGetCaseToleratesDanglingWarranty(t *testing.T) {
	store := newMemStore()
	svc := newCaseService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCaseRequest{Type: "SERVICE"})
	require.NoError(t, err)

	// The reference disappears after the write; reads absorb it
	stored := store.cases[created.ID]
	stored.WarrantyID = "999"
	store.cases[created.ID] = stored

	detail, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.Warranty)
	assert.Equal(t, created.CaseCode, detail.Case.CaseCode)
}

func TestGetCaseNotFound(t *testing.T) {
	svc := newCaseService(newMemStore())

	_, err := svc.Get(context.Background(), "999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetByCodeServesFirstOfDuplicates(t *testing.T) {
	store := newMemStore()
	svc := newCaseService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCaseRequest{Type: "PM"})
	require.NoError(t, err)
	store.phantomCodes[created.CaseCode] = true

	detail, err := svc.GetByCode(ctx, created.CaseCode)
	require.NoError(t, err, "duplicates are served, not failed")
	assert.Equal(t, created.CaseCode, detail.Case.CaseCode)

	_, err = svc.GetByCode(ctx, "PM_999999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateCasePartialFields(t *testing.T) {
	store := newMemStore()
	svc := newCaseService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCaseRequest{
		Type:        "PM",
		Description: "initial",
		Status:      "Ongoing",
	})
	require.NoError(t, err)

	status := "Completed"
	detail, err := svc.Update(ctx, created.ID, &domain.UpdateCaseRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Completed", detail.Case.Status)
	assert.Equal(t, "initial", detail.Case.Description, "nil fields stay untouched")
}

func TestUpdateCaseReplacesPartsOnlyWhenGiven(t *testing.T) {
	store := newMemStore()
	svc := newCaseService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCaseRequest{
		Type:  "CM",
		Parts: []domain.PartInput{{PartNumber: "VLV-100", Quantity: 2}},
	})
	require.NoError(t, err)

	// nil Parts leaves the set alone
	desc := "updated"
	_, err = svc.Update(ctx, created.ID, &domain.UpdateCaseRequest{Description: &desc})
	require.NoError(t, err)
	rows, _ := store.ListParts(ctx, created.CaseCode)
	assert.Len(t, rows, 1)

	// an empty non-nil slice clears it
	empty := []domain.PartInput{}
	detail, err := svc.Update(ctx, created.ID, &domain.UpdateCaseRequest{Parts: &empty})
	require.NoError(t, err)
	assert.Empty(t, detail.Parts)
	rows, _ = store.ListParts(ctx, created.CaseCode)
	assert.Empty(t, rows)
}

func TestUpdateCaseRejectsInvertedWindow(t *testing.T) {
	store := newMemStore()
	svc := newCaseService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCaseRequest{Type: "PM", EntryTime: "2026-03-10"})
	require.NoError(t, err)

	exit := "2026-03-01"
	_, err = svc.Update(ctx, created.ID, &domain.UpdateCaseRequest{ExitTime: &exit})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

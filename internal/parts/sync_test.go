package parts_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/parts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePartsStore struct {
	batchLimit int
	existing   []domain.ServicePart

	deleteBatches [][]string
	createBatches [][]domain.ServicePart

	listErr   error
	deleteErr error
	createErr error
}

func (f *fakePartsStore) ListParts(ctx context.Context, caseCode string) ([]domain.ServicePart, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.existing, nil
}

func (f *fakePartsStore) CreateParts(ctx context.Context, rows []domain.ServicePart) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.createBatches = append(f.createBatches, rows)
	return nil
}

func (f *fakePartsStore) DeleteParts(ctx context.Context, ids []string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleteBatches = append(f.deleteBatches, ids)
	return nil
}

func (f *fakePartsStore) PartsBatchLimit() int { return f.batchLimit }

func existingParts(n int) []domain.ServicePart {
	out := make([]domain.ServicePart, n)
	for i := range out {
		out[i] = domain.ServicePart{ID: fmt.Sprintf("part-%d", i+1), CaseCode: "PM_000001"}
	}
	return out
}

func TestReplaceDeletesThenRecreates(t *testing.T) {
	store := &fakePartsStore{batchLimit: 10, existing: existingParts(2)}
	sync := parts.NewSynchronizer(store, zap.NewNop())

	err := sync.Replace(context.Background(), "PM_000001", []domain.PartInput{
		{PartNumber: "VLV-100", Details: "valve", Quantity: 2},
	})
	require.NoError(t, err)

	require.Len(t, store.deleteBatches, 1)
	assert.Equal(t, []string{"part-1", "part-2"}, store.deleteBatches[0])
	require.Len(t, store.createBatches, 1)
	created := store.createBatches[0][0]
	assert.Equal(t, "PM_000001", created.CaseCode, "synchronizer owns case-code linkage")
	assert.Equal(t, "VLV-100", created.PartNumber)
	assert.Equal(t, 2, created.Quantity)
}

func TestReplaceSplitsIntoBatches(t *testing.T) {
	store := &fakePartsStore{batchLimit: 10, existing: existingParts(25)}
	sync := parts.NewSynchronizer(store, zap.NewNop())

	input := make([]domain.PartInput, 12)
	for i := range input {
		input[i] = domain.PartInput{PartNumber: fmt.Sprintf("P-%d", i), Quantity: 1}
	}
	err := sync.Replace(context.Background(), "PM_000001", input)
	require.NoError(t, err)

	require.Len(t, store.deleteBatches, 3, "25 deletes at limit 10 need 3 requests")
	assert.Len(t, store.deleteBatches[2], 5)
	require.Len(t, store.createBatches, 2, "12 creates at limit 10 need 2 requests")
	assert.Len(t, store.createBatches[1], 2)
}

func TestReplaceEmptySetClears(t *testing.T) {
	store := &fakePartsStore{batchLimit: 10, existing: existingParts(3)}
	sync := parts.NewSynchronizer(store, zap.NewNop())

	err := sync.Replace(context.Background(), "PM_000001", nil)
	require.NoError(t, err)
	assert.Len(t, store.deleteBatches, 1)
	assert.Empty(t, store.createBatches, "an empty replacement must not create rows")
}

func TestReplaceQuantityFloorsAtOne(t *testing.T) {
	store := &fakePartsStore{batchLimit: 10}
	sync := parts.NewSynchronizer(store, zap.NewNop())

	err := sync.Replace(context.Background(), "PM_000001", []domain.PartInput{
		{PartNumber: "A", Quantity: 0},
		{PartNumber: "B", Quantity: -4},
	})
	require.NoError(t, err)
	require.Len(t, store.createBatches, 1)
	assert.Equal(t, 1, store.createBatches[0][0].Quantity)
	assert.Equal(t, 1, store.createBatches[0][1].Quantity)
}

func TestReplaceRequiresCaseCode(t *testing.T) {
	sync := parts.NewSynchronizer(&fakePartsStore{batchLimit: 10}, zap.NewNop())

	err := sync.Replace(context.Background(), "", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReplaceDeleteFailureWrapsSyncError(t *testing.T) {
	store := &fakePartsStore{
		batchLimit: 10,
		existing:   existingParts(1),
		deleteErr:  errors.New("boom"),
	}
	sync := parts.NewSynchronizer(store, zap.NewNop())

	err := sync.Replace(context.Background(), "PM_000001", nil)
	assert.ErrorIs(t, err, domain.ErrPartsSyncFailed)
}

func TestReplaceCreateFailureWrapsSyncError(t *testing.T) {
	store := &fakePartsStore{batchLimit: 10, createErr: errors.New("boom")}
	sync := parts.NewSynchronizer(store, zap.NewNop())

	err := sync.Replace(context.Background(), "PM_000001", []domain.PartInput{{PartNumber: "A"}})
	assert.ErrorIs(t, err, domain.ErrPartsSyncFailed)
}

func TestReplaceListFailureIsNotSyncError(t *testing.T) {
	store := &fakePartsStore{batchLimit: 10, listErr: errors.New("down")}
	sync := parts.NewSynchronizer(store, zap.NewNop())

	err := sync.Replace(context.Background(), "PM_000001", nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrPartsSyncFailed),
		"a failed read leaves the part set untouched, so no reconcile is needed")
}

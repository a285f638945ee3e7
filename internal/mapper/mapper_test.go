package mapper_test

import (
	"testing"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePartNumber(t *testing.T) {
	assert.Equal(t, "ABC-123", mapper.NormalizePartNumber("abc-123"))
	assert.Equal(t, "ABC-123", mapper.NormalizePartNumber("  ABC-123  "))
	assert.Equal(t, "ABC-123", mapper.NormalizePartNumber("Abc-123"))
	assert.Equal(t, "", mapper.NormalizePartNumber("   "))
}

func TestLatestExpiry(t *testing.T) {
	assert.Nil(t, mapper.LatestExpiry(nil))

	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	warranties := []domain.Warranty{
		{ID: "w1", EndDate: early},
		{ID: "w2", EndDate: late},
		{ID: "w3", EndDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	got := mapper.LatestExpiry(warranties)
	require.NotNil(t, got)
	assert.Equal(t, late, *got)
}

func TestToProductDTO(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	purchase := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	p := &domain.Product{
		ID:           "p1",
		CompanyID:    "c1",
		Name:         "Pump X200",
		SerialNumber: "SN-0001",
		PurchaseDate: &purchase,
	}

	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	dto := mapper.ToProductDTO(p, "Acme", &expiry, now)
	assert.Equal(t, "Acme", dto.CompanyName)
	assert.Equal(t, "2024-02-10", dto.PurchaseDate)
	assert.Equal(t, "2027-01-01", dto.NearestExpiry)
	assert.Equal(t, domain.WarrantyStatusActive, dto.WarrantyStatus)

	// A product with no warranties reads as expired
	dto = mapper.ToProductDTO(p, "Acme", nil, now)
	assert.Equal(t, domain.WarrantyStatusExpired, dto.WarrantyStatus)
	assert.Empty(t, dto.NearestExpiry)
}

func TestToCaseDTOStatusIsBucketed(t *testing.T) {
	entry := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := &domain.ServiceCase{
		ID:        "s1",
		CaseCode:  "CM_000003",
		Type:      domain.ServiceTypeCM,
		EntryTime: &entry,
		Status:    "waiting on parts",
	}

	dto := mapper.ToCaseDTO(c)
	assert.Equal(t, domain.CaseStatusPending, dto.Status)
	assert.Equal(t, "2026-03-01T09:00:00Z", dto.EntryTime)
	assert.Empty(t, dto.ExitTime)
}

package linkedrecord

import (
	"errors"
	"testing"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarrantyToDomain(t *testing.T) {
	rec := &record{
		ID: "recW1",
		Fields: map[string]interface{}{
			"Product":              []interface{}{"recP1"},
			"Start Date":           "2025-01-01",
			"End Date":             "2027-01-01",
			"Type":                 "Extended",
			"Planned Maintenances": float64(4),
		},
		CreatedTime: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	w, err := warrantyToDomain(rec)
	require.NoError(t, err)
	assert.Equal(t, "recW1", w.ID)
	assert.Equal(t, "recP1", w.ProductID)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), w.StartDate)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), w.EndDate)
	assert.Equal(t, "Extended", w.Type)
	assert.Equal(t, 4, w.PlannedMaintenances)
}

func TestFieldSpellingVariants(t *testing.T) {
	// Historical records use the lowercase spellings
	rec := &record{
		ID: "recW2",
		Fields: map[string]interface{}{
			"Product":    []interface{}{"recP1"},
			"Start date": "2025-01-01",
			"End date":   "2026-01-01",
			"PM Count":   float64(2),
		},
	}

	w, err := warrantyToDomain(rec)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), w.StartDate)
	assert.Equal(t, 2, w.PlannedMaintenances)
}

func TestCanonicalSpellingWins(t *testing.T) {
	rec := &record{
		ID: "recW3",
		Fields: map[string]interface{}{
			"Start Date": "2025-06-01",
			"Start date": "2020-01-01",
			"End Date":   "2026-06-01",
		},
	}

	w, err := warrantyToDomain(rec)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), w.StartDate)
}

func TestMalformedDateIsMappingError(t *testing.T) {
	rec := &record{
		ID: "recW4",
		Fields: map[string]interface{}{
			"Start Date": "not-a-date",
		},
	}

	_, err := warrantyToDomain(rec)
	require.Error(t, err)
	var mapErr *domain.MappingError
	require.True(t, errors.As(err, &mapErr))
	assert.Equal(t, "warranty", mapErr.Entity)
	assert.Equal(t, "recW4", mapErr.Record)
	assert.Equal(t, "Start Date", mapErr.Field)
}

func TestMissingLinkIsNotAnError(t *testing.T) {
	rec := &record{
		ID: "recS1",
		Fields: map[string]interface{}{
			"Case Code": "CM_000001",
			"Type":      "CM",
		},
	}

	c, err := caseToDomain(rec)
	require.NoError(t, err)
	assert.Empty(t, c.ProductID)
	assert.Empty(t, c.WarrantyID)
	assert.Nil(t, c.EntryTime)
}

func TestEmptyLinkArrayResolvesEmpty(t *testing.T) {
	rec := &record{
		ID: "recS2",
		Fields: map[string]interface{}{
			"Case Code": "CM_000002",
			"Product":   []interface{}{},
		},
	}

	c, err := caseToDomain(rec)
	require.NoError(t, err)
	assert.Empty(t, c.ProductID)
}

func TestLegacyArtifactsTreatedAsUnset(t *testing.T) {
	rec := &record{
		ID: "recP1",
		Fields: map[string]interface{}{
			"Name":          "Pump",
			"Serial Number": "undefined",
			"Branch":        "null",
		},
	}

	p, err := productToDomain(rec)
	require.NoError(t, err)
	assert.Empty(t, p.SerialNumber)
	assert.Empty(t, p.Branch)
}

func TestPartQuantityDefaultsToOne(t *testing.T) {
	rec := &record{
		ID: "recPt1",
		Fields: map[string]interface{}{
			"Case Code":   "CM_000001",
			"Part Number": "flt-100",
		},
	}

	p, err := partToDomain(rec)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Quantity)
}

func TestPartNonNumericQuantityIsMappingError(t *testing.T) {
	rec := &record{
		ID: "recPt2",
		Fields: map[string]interface{}{
			"Part Number": "FLT-100",
			"Quantity":    "three",
		},
	}

	_, err := partToDomain(rec)
	require.Error(t, err)
	var mapErr *domain.MappingError
	require.True(t, errors.As(err, &mapErr))
	assert.Equal(t, "part", mapErr.Entity)
}

func TestCaseToFieldsOmitsUnset(t *testing.T) {
	c := &domain.ServiceCase{
		CaseCode: "PM_000005",
		Type:     domain.ServiceTypePM,
		Status:   "Pending",
	}

	fields := caseToFields(c)
	assert.Equal(t, "PM_000005", fields["Case Code"])
	assert.Equal(t, "PM", fields["Type"])
	_, ok := fields["Product"]
	assert.False(t, ok, "empty link must be omitted, not written as empty")
	_, ok = fields["Entry Time"]
	assert.False(t, ok)
}

func TestLinksWrittenAsArrays(t *testing.T) {
	c := &domain.ServiceCase{
		CaseCode:  "CM_000009",
		Type:      domain.ServiceTypeCM,
		ProductID: "recP9",
	}

	fields := caseToFields(c)
	assert.Equal(t, []string{"recP9"}, fields["Product"])
}

func TestTechnicianStatusDefaultsToActive(t *testing.T) {
	rec := &record{ID: "recT1", Fields: map[string]interface{}{"Name": "Kari"}}
	tech := technicianToDomain(rec)
	assert.Equal(t, domain.TechnicianStatusActive, tech.Status)
}

func TestAttachmentRoundTrip(t *testing.T) {
	a := &domain.Attachment{
		CaseCode:    "CM_000001",
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		Size:        2048,
		StoragePath: "ab/cd/abcd.pdf",
	}

	fields := attachmentToFields(a)
	got := attachmentToDomain(&record{ID: "recA1", Fields: fields})
	assert.Equal(t, a.CaseCode, got.CaseCode)
	assert.Equal(t, a.Filename, got.Filename)
	assert.Equal(t, a.ContentType, got.ContentType)
	assert.Equal(t, a.StoragePath, got.StoragePath)
}

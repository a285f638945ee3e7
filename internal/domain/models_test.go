package domain_test

import (
	"testing"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, domain.WarrantyStatusExpired, domain.StatusOf(now.Add(-time.Hour), now))
	assert.Equal(t, domain.WarrantyStatusNearExpiry, domain.StatusOf(now.AddDate(0, 0, 29), now))
	assert.Equal(t, domain.WarrantyStatusActive, domain.StatusOf(now.AddDate(0, 0, 31), now))
}

func TestStatusOfBoundaries(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	// An end date exactly now is not before now, so not expired
	assert.Equal(t, domain.WarrantyStatusNearExpiry, domain.StatusOf(now, now))

	// Exactly 30 days out is still near-expiry, one second past is active
	edge := now.Add(domain.NearExpiryWindow)
	assert.Equal(t, domain.WarrantyStatusNearExpiry, domain.StatusOf(edge, now))
	assert.Equal(t, domain.WarrantyStatusActive, domain.StatusOf(edge.Add(time.Second), now))
}

func TestStatusBucket(t *testing.T) {
	c := &domain.ServiceCase{Status: "Completed"}
	assert.Equal(t, domain.CaseStatusCompleted, c.StatusBucket())

	c.Status = "Cancelled"
	assert.Equal(t, domain.CaseStatusCancelled, c.StatusBucket())

	// Anything else, including free-form and empty statuses, is pending
	for _, s := range []string{"", "In Progress", "completed", "waiting on parts"} {
		c.Status = s
		assert.Equal(t, domain.CaseStatusPending, c.StatusBucket(), "status %q", s)
	}
}

func TestParseDate(t *testing.T) {
	d, err := domain.ParseDate("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = domain.ParseDate("2026-03-01T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC), d)

	_, err = domain.ParseDate("01/03/2026")
	assert.Error(t, err)
}

func TestProductQueryNormalize(t *testing.T) {
	q := domain.ProductQuery{Page: 0, PageSize: 0}
	q.Normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.PageSize)
	assert.Equal(t, domain.WarrantyStatusAll, q.Status)

	q = domain.ProductQuery{Page: 3, PageSize: 500, Status: domain.WarrantyStatusActive}
	q.Normalize()
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 20, q.PageSize, "oversized page size clamps to the default")
	assert.Equal(t, domain.WarrantyStatusActive, q.Status)
}

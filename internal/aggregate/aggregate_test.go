package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReader struct {
	companies  []domain.Company
	products   []domain.Product
	warranties []domain.Warranty
	cases      []domain.ServiceCase
	parts      []domain.ServicePart
}

func (f *fakeReader) ListCompanies(ctx context.Context, query string) ([]domain.Company, error) {
	return f.companies, nil
}
func (f *fakeReader) AllProducts(ctx context.Context) ([]domain.Product, error) {
	return f.products, nil
}
func (f *fakeReader) AllWarranties(ctx context.Context) ([]domain.Warranty, error) {
	return f.warranties, nil
}
func (f *fakeReader) AllCases(ctx context.Context) ([]domain.ServiceCase, error) {
	return f.cases, nil
}
func (f *fakeReader) ListParts(ctx context.Context, caseCode string) ([]domain.ServicePart, error) {
	return f.parts, nil
}

var statsNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(r Reader) *Engine {
	e := NewEngine(r, zap.NewNop())
	e.now = func() time.Time { return statsNow }
	return e
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

func TestDashboardStatsBucketsWarranties(t *testing.T) {
	reader := &fakeReader{
		companies: []domain.Company{{ID: "c1", Name: "Acme"}},
		products:  []domain.Product{{ID: "p1", CompanyID: "c1", Name: "Pump", SerialNumber: "SN-1"}},
		warranties: []domain.Warranty{
			{ID: "w1", ProductID: "p1", StartDate: day(2025, 1, 1), EndDate: day(2027, 1, 1)},
			{ID: "w2", ProductID: "p1", StartDate: day(2025, 1, 1), EndDate: day(2026, 7, 1)},
			{ID: "w3", ProductID: "p1", StartDate: day(2024, 1, 1), EndDate: day(2026, 1, 1)},
		},
	}
	engine := newTestEngine(reader)

	stats, err := engine.DashboardStats(context.Background(), domain.StatsFilter{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalCompanies)
	assert.Equal(t, 1, stats.TotalProducts)
	assert.Equal(t, 3, stats.TotalWarranties)
	assert.Equal(t, 1, stats.ActiveWarranties)
	assert.Equal(t, 1, stats.NearExpiryWarranties)
	assert.Equal(t, 1, stats.ExpiredWarranties)

	require.Len(t, stats.ExpiringSoon, 1)
	assert.Equal(t, "w2", stats.ExpiringSoon[0].ID)
	assert.Equal(t, "Pump", stats.ExpiringSoon[0].ProductName)
	assert.Equal(t, "Acme", stats.ExpiringSoon[0].CompanyName)
}

func TestDashboardStatsExpiringSoonOrder(t *testing.T) {
	reader := &fakeReader{
		warranties: []domain.Warranty{
			{ID: "w2", ProductID: "p1", EndDate: day(2026, 7, 10)},
			{ID: "w1", ProductID: "p1", EndDate: day(2026, 7, 10)},
			{ID: "w3", ProductID: "p1", EndDate: day(2026, 7, 1)},
		},
	}
	engine := newTestEngine(reader)

	stats, err := engine.DashboardStats(context.Background(), domain.StatsFilter{})
	require.NoError(t, err)

	require.Len(t, stats.ExpiringSoon, 3)
	assert.Equal(t, "w3", stats.ExpiringSoon[0].ID, "earliest end date first")
	assert.Equal(t, "w1", stats.ExpiringSoon[1].ID, "id breaks end-date ties")
	assert.Equal(t, "w2", stats.ExpiringSoon[2].ID)
}

func TestDashboardStatsServiceHistograms(t *testing.T) {
	reader := &fakeReader{
		cases: []domain.ServiceCase{
			{ID: "s1", Type: domain.ServiceTypePM, Status: "Completed", EntryTime: dayPtr(2026, 3, 5)},
			{ID: "s2", Type: domain.ServiceTypePM, Status: "waiting on parts", EntryTime: dayPtr(2026, 3, 20)},
			{ID: "s3", Type: domain.ServiceTypeCM, Status: "Cancelled", EntryTime: dayPtr(2026, 1, 2)},
			{ID: "s4", Type: "", Status: ""},
		},
	}
	engine := newTestEngine(reader)

	stats, err := engine.DashboardStats(context.Background(), domain.StatsFilter{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.CompletedServices)
	assert.Equal(t, 1, stats.CancelledServices)
	assert.Equal(t, 2, stats.PendingServices, "unknown statuses count as pending")

	assert.Equal(t, 2, stats.ServicesByType["PM"])
	assert.Equal(t, 1, stats.ServicesByType["CM"])
	assert.Equal(t, 1, stats.ServicesByType["SERVICE"], "missing type falls back to the generic bucket")

	require.Len(t, stats.ServicesByMonth, 2, "cases without an entry time stay out of the histogram")
	assert.Equal(t, domain.MonthCount{Month: "2026-01", Count: 1}, stats.ServicesByMonth[0])
	assert.Equal(t, domain.MonthCount{Month: "2026-03", Count: 2}, stats.ServicesByMonth[1])
}

func TestCompanyFilterNarrowsTheWorkingSet(t *testing.T) {
	reader := &fakeReader{
		companies: []domain.Company{
			{ID: "c1", Name: "Acme Industrial"},
			{ID: "c2", Name: "Other", SecondaryName: "Acme North"},
			{ID: "c3", Name: "Globex"},
		},
		products: []domain.Product{
			{ID: "p1", CompanyID: "c1"},
			{ID: "p2", CompanyID: "c3"},
		},
		warranties: []domain.Warranty{
			{ID: "w1", ProductID: "p1", EndDate: day(2027, 1, 1)},
			{ID: "w2", ProductID: "p2", EndDate: day(2027, 1, 1)},
			{ID: "w3", ProductID: "missing", EndDate: day(2027, 1, 1)},
		},
		cases: []domain.ServiceCase{
			{ID: "s1", ProductID: "p1"},
			{ID: "s2", ProductID: "p2"},
			{ID: "s3"},
		},
	}
	engine := newTestEngine(reader)

	stats, err := engine.DashboardStats(context.Background(), domain.StatsFilter{Company: "acme"})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalCompanies, "secondary name matches the filter too")
	assert.Equal(t, 1, stats.TotalProducts)
	assert.Equal(t, 1, stats.TotalWarranties, "dangling warranties drop out of a scoped view")
	assert.Equal(t, 1, stats.TotalServices, "unlinked cases drop out of a scoped view")
}

func TestUnfilteredViewKeepsDanglingRecords(t *testing.T) {
	reader := &fakeReader{
		warranties: []domain.Warranty{{ID: "w1", ProductID: "missing", EndDate: day(2027, 1, 1)}},
		cases:      []domain.ServiceCase{{ID: "s1"}},
	}
	engine := newTestEngine(reader)

	stats, err := engine.DashboardStats(context.Background(), domain.StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalWarranties)
	assert.Equal(t, 1, stats.TotalServices)
}

func TestCaseResolvesProductThroughWarranty(t *testing.T) {
	reader := &fakeReader{
		companies:  []domain.Company{{ID: "c1", Name: "Acme"}},
		products:   []domain.Product{{ID: "p1", CompanyID: "c1"}},
		warranties: []domain.Warranty{{ID: "w1", ProductID: "p1", EndDate: day(2027, 1, 1)}},
		cases:      []domain.ServiceCase{{ID: "s1", WarrantyID: "w1"}},
	}
	engine := newTestEngine(reader)

	stats, err := engine.DashboardStats(context.Background(), domain.StatsFilter{Company: "acme"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalServices, "warranty-only linkage still scopes the case to its company")
}

func TestDateRangeFilterRequiresEntryTime(t *testing.T) {
	reader := &fakeReader{
		warranties: []domain.Warranty{
			{ID: "w1", StartDate: day(2026, 2, 1), EndDate: day(2027, 1, 1)},
			{ID: "w2", StartDate: day(2025, 2, 1), EndDate: day(2027, 1, 1)},
		},
		cases: []domain.ServiceCase{
			{ID: "s1", EntryTime: dayPtr(2026, 2, 10)},
			{ID: "s2", EntryTime: dayPtr(2025, 2, 10)},
			{ID: "s3"},
		},
	}
	engine := newTestEngine(reader)

	from := day(2026, 1, 1)
	stats, err := engine.DashboardStats(context.Background(), domain.StatsFilter{From: &from})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalWarranties, "warranties filter on start date")
	assert.Equal(t, 1, stats.TotalServices, "cases without an entry time fail any date filter")
}

func TestPartsSummaryGroupsByNormalizedNumber(t *testing.T) {
	reader := &fakeReader{
		cases: []domain.ServiceCase{
			{ID: "s1", CaseCode: "PM_000001"},
			{ID: "s2", CaseCode: "PM_000002"},
		},
		parts: []domain.ServicePart{
			{ID: "pt1", CaseCode: "PM_000001", PartNumber: "vlv-100", Quantity: 2},
			{ID: "pt2", CaseCode: "PM_000002", PartNumber: "VLV-100 ", Quantity: 3},
			{ID: "pt3", CaseCode: "PM_000001", PartNumber: "FLT-7", Quantity: 1},
			{ID: "pt4", CaseCode: "PM_999999", PartNumber: "GONE-1", Quantity: 5},
		},
	}
	engine := newTestEngine(reader)

	summary, err := engine.PartsSummary(context.Background(), domain.StatsFilter{})
	require.NoError(t, err)

	assert.Len(t, summary.Rows, 3, "parts of unretained cases stay out")

	require.Len(t, summary.Usage, 2)
	assert.Equal(t, "VLV-100", summary.Usage[0].PartNumber)
	assert.Equal(t, 5, summary.Usage[0].TotalQuantity, "spelling variants of one number sum together")
	assert.Equal(t, 2, summary.Usage[0].CaseCount)
	assert.Equal(t, "FLT-7", summary.Usage[1].PartNumber)
	assert.Equal(t, 1, summary.Usage[1].CaseCount)
}

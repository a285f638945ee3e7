package relational_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/store/relational"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *relational.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, relational.Migrate(db))
	return relational.New(db, zap.NewNop())
}

func createCompany(t *testing.T, s *relational.Store, name string) domain.Company {
	t.Helper()
	c := domain.Company{Name: name}
	require.NoError(t, s.CreateCompany(context.Background(), &c))
	return c
}

func createProduct(t *testing.T, s *relational.Store, companyID, name, serial string) domain.Product {
	t.Helper()
	p := domain.Product{CompanyID: companyID, Name: name, SerialNumber: serial}
	require.NoError(t, s.CreateProduct(context.Background(), &p))
	return p
}

func createWarranty(t *testing.T, s *relational.Store, productID string, start, end time.Time) domain.Warranty {
	t.Helper()
	w := domain.Warranty{ProductID: productID, StartDate: start, EndDate: end}
	require.NoError(t, s.CreateWarranty(context.Background(), &w))
	return w
}

func TestCompanyRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := domain.Company{Name: "Acme", SecondaryName: "Acme North", TaxID: "TX-1"}
	require.NoError(t, s.CreateCompany(ctx, &c))
	assert.NotEmpty(t, c.ID, "create must assign the canonical id")

	got, err := s.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.Name)

	got.ContactInfo = "ops@acme.example"
	require.NoError(t, s.UpdateCompany(ctx, got))
	again, err := s.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "ops@acme.example", again.ContactInfo)
}

func TestGetCompanyUnknownID(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetCompany(context.Background(), "999")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.GetCompany(context.Background(), "not-a-number")
	require.NoError(t, err)
	assert.Nil(t, got, "a non-numeric id references nothing on this backend")
}

func TestListCompaniesSearchBySerialNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acme := createCompany(t, s, "Acme")
	createCompany(t, s, "Globex")
	createProduct(t, s, acme.ID, "Pump", "SN-XYZ-123")

	found, err := s.ListCompanies(ctx, "xyz")
	require.NoError(t, err)
	require.Len(t, found, 1, "a serial match surfaces the owning company")
	assert.Equal(t, "Acme", found[0].Name)

	all, err := s.ListCompanies(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListProductsPaginationAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	c := createCompany(t, s, "Acme")
	late := createProduct(t, s, c.ID, "Late", "SN-1")
	early := createProduct(t, s, c.ID, "Early", "SN-2")
	bare := createProduct(t, s, c.ID, "Bare", "SN-3")
	createWarranty(t, s, late.ID, now, now.Add(200*24*time.Hour))
	createWarranty(t, s, early.ID, now, now.Add(100*24*time.Hour))

	page1, total, err := s.ListProducts(ctx, domain.ProductQuery{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page1, 2)
	assert.Equal(t, bare.ID, page1[0].ID, "products without coverage sort first")
	assert.Equal(t, early.ID, page1[1].ID)

	page2, _, err := s.ListProducts(ctx, domain.ProductQuery{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, late.ID, page2[0].ID)
}

func TestListProductsStatusFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	c := createCompany(t, s, "Acme")
	expired := createProduct(t, s, c.ID, "Expired", "SN-1")
	near := createProduct(t, s, c.ID, "Near", "SN-2")
	active := createProduct(t, s, c.ID, "Active", "SN-3")
	bare := createProduct(t, s, c.ID, "Bare", "SN-4")
	createWarranty(t, s, expired.ID, now.Add(-365*24*time.Hour), now.Add(-24*time.Hour))
	createWarranty(t, s, near.ID, now, now.Add(10*24*time.Hour))
	createWarranty(t, s, active.ID, now, now.Add(90*24*time.Hour))

	got, total, err := s.ListProducts(ctx, domain.ProductQuery{Status: domain.WarrantyStatusExpired})
	require.NoError(t, err)
	assert.Equal(t, 2, total, "no coverage counts as expired")
	assert.ElementsMatch(t, []string{expired.ID, bare.ID}, []string{got[0].ID, got[1].ID})

	got, _, err = s.ListProducts(ctx, domain.ProductQuery{Status: domain.WarrantyStatusNearExpiry})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, near.ID, got[0].ID)

	got, _, err = s.ListProducts(ctx, domain.ProductQuery{Status: domain.WarrantyStatusActive})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, active.ID, got[0].ID)
}

func TestCreateProductRequiresCompany(t *testing.T) {
	s := newTestStore(t)

	p := domain.Product{Name: "Orphan", SerialNumber: "SN-0"}
	err := s.CreateProduct(context.Background(), &p)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestWarrantiesByProductSortedByEndDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	c := createCompany(t, s, "Acme")
	p := createProduct(t, s, c.ID, "Pump", "SN-1")
	w2 := createWarranty(t, s, p.ID, now, now.Add(2*365*24*time.Hour))
	w1 := createWarranty(t, s, p.ID, now, now.Add(365*24*time.Hour))

	got, err := s.WarrantiesByProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, w1.ID, got[0].ID)
	assert.Equal(t, w2.ID, got[1].ID)
}

func TestNextCaseNumberIsMonotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n1, err := s.NextCaseNumber(ctx, "PM")
	require.NoError(t, err)
	assert.Equal(t, 1, n1)

	n2, err := s.NextCaseNumber(ctx, "PM")
	require.NoError(t, err)
	assert.Equal(t, 2, n2)

	cm, err := s.NextCaseNumber(ctx, "CM")
	require.NoError(t, err)
	assert.Equal(t, 1, cm, "prefixes count independently")
}

func TestNextCaseNumberSeedsFromExistingCodes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := domain.ServiceCase{CaseCode: "PM_000041", Type: domain.ServiceTypePM}
	require.NoError(t, s.CreateCase(ctx, &c))

	n, err := s.NextCaseNumber(ctx, "PM")
	require.NoError(t, err)
	assert.Equal(t, 42, n, "a missing sequence row seeds from the highest stored code")
}

func TestSetSequenceNeverLowers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetSequence(ctx, "PM", 100))
	require.NoError(t, s.SetSequence(ctx, "PM", 50))

	n, err := s.NextCaseNumber(ctx, "PM")
	require.NoError(t, err)
	assert.Equal(t, 101, n)
}

func TestCreateCaseDuplicateCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := domain.ServiceCase{CaseCode: "PM_000001", Type: domain.ServiceTypePM}
	require.NoError(t, s.CreateCase(ctx, &first))

	dup := domain.ServiceCase{CaseCode: "PM_000001", Type: domain.ServiceTypePM}
	err := s.CreateCase(ctx, &dup)
	assert.ErrorIs(t, err, domain.ErrDuplicateCaseCode)
}

func TestFindCasesByCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := time.Now().UTC().Truncate(time.Second)
	c := domain.ServiceCase{
		CaseCode:      "CM_000007",
		Type:          domain.ServiceTypeCM,
		EntryTime:     &entry,
		TechnicianIDs: []string{"3", "5"},
	}
	require.NoError(t, s.CreateCase(ctx, &c))

	got, err := s.FindCasesByCode(ctx, "CM_000007")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"3", "5"}, got[0].TechnicianIDs)

	none, err := s.FindCasesByCode(ctx, "CM_999999")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListCasesFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, c := range []domain.ServiceCase{
		{CaseCode: "PM_000001", Type: domain.ServiceTypePM, Status: "Completed", Description: "compressor overhaul"},
		{CaseCode: "PM_000002", Type: domain.ServiceTypePM, Status: "Ongoing"},
		{CaseCode: "CM_000001", Type: domain.ServiceTypeCM, Status: "Completed"},
	} {
		c := c
		require.NoError(t, s.CreateCase(ctx, &c))
	}

	got, total, err := s.ListCases(ctx, domain.CaseQuery{Type: domain.ServiceTypePM})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "PM_000002", got[0].CaseCode, "newest code first")

	_, total, err = s.ListCases(ctx, domain.CaseQuery{Status: "Completed"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	got, _, err = s.ListCases(ctx, domain.CaseQuery{Search: "compressor"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "PM_000001", got[0].CaseCode)
}

func TestPartsLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parts := []domain.ServicePart{
		{CaseCode: "PM_000001", PartNumber: "VLV-100", Quantity: 2},
		{CaseCode: "PM_000001", PartNumber: "FLT-7", Quantity: 1},
		{CaseCode: "PM_000002", PartNumber: "VLV-100", Quantity: 1},
	}
	require.NoError(t, s.CreateParts(ctx, parts))
	for _, p := range parts {
		assert.NotEmpty(t, p.ID)
	}

	got, err := s.ListParts(ctx, "PM_000001")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	all, err := s.ListParts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3, "empty case code lists every part row")

	require.NoError(t, s.DeleteParts(ctx, []string{got[0].ID, got[1].ID}))
	left, err := s.ListParts(ctx, "PM_000001")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestTechnicianLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tech := domain.Technician{Name: "Jordan Reyes", Position: "Field Engineer"}
	require.NoError(t, s.CreateTechnician(ctx, &tech))
	assert.Equal(t, domain.TechnicianStatusActive, tech.Status, "status defaults to active")

	list, err := s.ListTechnicians(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.DeleteTechnician(ctx, tech.ID))
	err = s.DeleteTechnician(ctx, tech.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAttachmentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	att := domain.Attachment{
		CaseCode:    "PM_000001",
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		Size:        2048,
		StoragePath: "attachments/PM_000001/report.pdf",
	}
	require.NoError(t, s.CreateAttachment(ctx, &att))

	got, err := s.GetAttachment(ctx, att.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2048), got.Size)
	assert.Equal(t, "attachments/PM_000001/report.pdf", got.StoragePath)

	list, err := s.ListAttachments(ctx, "PM_000001")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteAttachment(ctx, att.ID))
	err = s.DeleteAttachment(ctx, att.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

package linkedrecord

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/coretrack/warranty-api/internal/cache"
	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/sequence"
	"go.uber.org/zap"
)

// Cache keys, one per collection scan
const (
	cacheCompanies   = "companies"
	cacheProducts    = "products"
	cacheWarranties  = "warranties"
	cacheCases       = "cases"
	cacheParts       = "parts"
	cacheTechnicians = "technicians"
)

// Store implements the store contract on the linked-record backend.
// Filtering is pushed down as formula expressions where the backend can
// evaluate it; offsets and joins do not exist server-side and are emulated
// here, at a documented O(page) cost per page that is acceptable for
// moderate dataset sizes.
type Store struct {
	client *Client
	cache  *cache.TTLCache
	logger *zap.Logger
	now    func() time.Time
}

// New creates a linked-record store. The cache is required; pass one built
// with a non-positive TTL to disable caching.
func New(client *Client, recordCache *cache.TTLCache, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		cache:  recordCache,
		logger: logger,
		now:    time.Now,
	}
}

// Name identifies the backend driver
func (s *Store) Name() string { return "linkedrecord" }

// Ping probes the record store with the cheapest possible list call
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.List(ctx, collCompanies, listOptions{MaxRecords: 1}); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// skipMapping logs a mapping error and drops the record. Data-quality
// noise must never fail a whole query.
func (s *Store) skipMapping(err error) {
	var mapErr *domain.MappingError
	if errors.As(err, &mapErr) {
		s.logger.Warn("skipping malformed record",
			zap.String("entity", mapErr.Entity),
			zap.String("record_id", mapErr.Record),
			zap.String("field", mapErr.Field),
			zap.Error(mapErr.Err))
	}
}

func (s *Store) allCompanies(ctx context.Context) ([]domain.Company, error) {
	if v, ok := s.cache.Get(cacheCompanies); ok {
		return v.([]domain.Company), nil
	}
	records, err := s.client.List(ctx, collCompanies, listOptions{})
	if err != nil {
		return nil, err
	}
	companies := make([]domain.Company, 0, len(records))
	for i := range records {
		companies = append(companies, companyToDomain(&records[i]))
	}
	s.cache.Set(cacheCompanies, companies)
	return companies, nil
}

// ListCompanies searches name, secondary name and tax id directly, then
// resolves serial-number hits through the child linkage: matching product
// ids are fetched first and folded into an id-membership clause.
func (s *Store) ListCompanies(ctx context.Context, query string) ([]domain.Company, error) {
	if query == "" {
		return s.allCompanies(ctx)
	}

	serialHits, err := s.client.List(ctx, collProducts, listOptions{
		Filter: containsClause(productSerialFields[0], query),
		Fields: []string{productCompanyFields[0]},
	})
	if err != nil {
		return nil, err
	}
	companyIDs := make([]string, 0, len(serialHits))
	seen := map[string]bool{}
	for i := range serialHits {
		if id := linkField(serialHits[i].Fields, productCompanyFields); id != "" && !seen[id] {
			seen[id] = true
			companyIDs = append(companyIDs, id)
		}
	}

	filter := anyOf(
		containsClause(companyNameFields[0], query),
		containsClause(companySecondaryFields[0], query),
		containsClause(companyTaxIDFields[0], query),
		idMembership(companyIDs),
	)

	records, err := s.client.List(ctx, collCompanies, listOptions{Filter: filter})
	if err != nil {
		return nil, err
	}
	companies := make([]domain.Company, 0, len(records))
	for i := range records {
		companies = append(companies, companyToDomain(&records[i]))
	}
	return companies, nil
}

func (s *Store) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	rec, err := s.client.Get(ctx, collCompanies, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	company := companyToDomain(rec)
	return &company, nil
}

func (s *Store) CreateCompany(ctx context.Context, company *domain.Company) error {
	created, err := s.client.Create(ctx, collCompanies, []map[string]interface{}{companyToFields(company)})
	if err != nil {
		return err
	}
	company.ID = created[0].ID
	company.CreatedAt = created[0].CreatedTime
	s.cache.Invalidate(cacheCompanies)
	return nil
}

func (s *Store) UpdateCompany(ctx context.Context, company *domain.Company) error {
	if _, err := s.client.Update(ctx, collCompanies, company.ID, companyToFields(company)); err != nil {
		return err
	}
	s.cache.Invalidate(cacheCompanies)
	return nil
}

// sortableProduct pairs a product with the denormalized expiry used as the
// pagination sort key
type sortableProduct struct {
	product domain.Product
	expiry  time.Time
	hasExp  bool
}

// ListProducts emulates offset pagination: it requests page*pageSize
// records sorted by the denormalized nearest-expiry field, re-sorts them
// locally with record id as the stable tie-break, and slices the last
// pageSize. The total count comes from a second, identifier-only request
// sharing the same filter.
func (s *Store) ListProducts(ctx context.Context, q domain.ProductQuery) ([]domain.Product, int, error) {
	q.Normalize()

	var clauses []string
	if q.Search != "" {
		clauses = append(clauses, anyOf(
			containsClause(productNameFields[0], q.Search),
			containsClause(productSerialFields[0], q.Search),
			containsClause(productBranchFields[0], q.Search),
		))
	}
	if q.Status != domain.WarrantyStatusAll {
		clauses = append(clauses, eqClause(fieldWarrantyStatus, string(q.Status)))
	}
	filter := allOf(clauses...)

	records, err := s.client.List(ctx, collProducts, listOptions{
		Filter:     filter,
		SortField:  fieldNearestExpiry,
		MaxRecords: q.Page * q.PageSize,
	})
	if err != nil {
		return nil, 0, err
	}

	sortable := make([]sortableProduct, 0, len(records))
	for i := range records {
		product, err := productToDomain(&records[i])
		if err != nil {
			s.skipMapping(err)
			continue
		}
		sp := sortableProduct{product: product}
		if expiry, err := dateField(records[i].Fields, []string{fieldNearestExpiry}, "product", records[i].ID); err == nil && expiry != nil {
			sp.expiry = *expiry
			sp.hasExp = true
		}
		sortable = append(sortable, sp)
	}

	// The backend sorts only by the primary key; deterministic pagination
	// needs the (expiry, id) tie-break applied here.
	sort.SliceStable(sortable, func(i, j int) bool {
		a, b := sortable[i], sortable[j]
		if a.hasExp != b.hasExp {
			return !a.hasExp
		}
		if a.hasExp && !a.expiry.Equal(b.expiry) {
			return a.expiry.Before(b.expiry)
		}
		return a.product.ID < b.product.ID
	})

	start := (q.Page - 1) * q.PageSize
	if start > len(sortable) {
		start = len(sortable)
	}
	pageItems := sortable[start:]
	products := make([]domain.Product, len(pageItems))
	for i := range pageItems {
		products[i] = pageItems[i].product
	}

	// The count includes records the page pass skipped as mapping errors,
	// so it can slightly exceed the rows any page serves.
	countRecords, err := s.client.List(ctx, collProducts, listOptions{
		Filter: filter,
		Fields: []string{productNameFields[0]},
	})
	if err != nil {
		return nil, 0, err
	}

	return products, len(countRecords), nil
}

func (s *Store) AllProducts(ctx context.Context) ([]domain.Product, error) {
	if v, ok := s.cache.Get(cacheProducts); ok {
		return v.([]domain.Product), nil
	}
	records, err := s.client.List(ctx, collProducts, listOptions{})
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(records))
	for i := range records {
		product, err := productToDomain(&records[i])
		if err != nil {
			s.skipMapping(err)
			continue
		}
		products = append(products, product)
	}
	s.cache.Set(cacheProducts, products)
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	rec, err := s.client.Get(ctx, collProducts, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	product, err := productToDomain(rec)
	if err != nil {
		s.skipMapping(err)
		return nil, nil
	}
	return &product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product *domain.Product) error {
	if product.CompanyID == "" {
		return fmt.Errorf("create product: company reference required: %w", domain.ErrValidation)
	}
	fields := productToFields(product)
	// New products have no coverage yet
	fields[fieldWarrantyStatus] = string(domain.WarrantyStatusExpired)
	created, err := s.client.Create(ctx, collProducts, []map[string]interface{}{fields})
	if err != nil {
		return err
	}
	product.ID = created[0].ID
	product.CreatedAt = created[0].CreatedTime
	s.cache.Invalidate(cacheProducts)
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, product *domain.Product) error {
	if _, err := s.client.Update(ctx, collProducts, product.ID, productToFields(product)); err != nil {
		return err
	}
	s.cache.Invalidate(cacheProducts)
	return nil
}

func (s *Store) AllWarranties(ctx context.Context) ([]domain.Warranty, error) {
	if v, ok := s.cache.Get(cacheWarranties); ok {
		return v.([]domain.Warranty), nil
	}
	records, err := s.client.List(ctx, collWarranties, listOptions{})
	if err != nil {
		return nil, err
	}
	warranties := make([]domain.Warranty, 0, len(records))
	for i := range records {
		w, err := warrantyToDomain(&records[i])
		if err != nil {
			s.skipMapping(err)
			continue
		}
		warranties = append(warranties, w)
	}
	s.cache.Set(cacheWarranties, warranties)
	return warranties, nil
}

func (s *Store) WarrantiesByProduct(ctx context.Context, productID string) ([]domain.Warranty, error) {
	if productID == "" {
		return nil, nil
	}
	// Linked fields don't support direct equality on the referenced id, so
	// filter the full set client-side.
	warranties, err := s.AllWarranties(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Warranty
	for _, w := range warranties {
		if w.ProductID == productID {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetWarranty(ctx context.Context, id string) (*domain.Warranty, error) {
	rec, err := s.client.Get(ctx, collWarranties, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	w, err := warrantyToDomain(rec)
	if err != nil {
		s.skipMapping(err)
		return nil, nil
	}
	return &w, nil
}

// CreateWarranty persists the warranty and refreshes the owning product's
// denormalized coverage fields, which the status filter and expiry sort
// depend on.
func (s *Store) CreateWarranty(ctx context.Context, warranty *domain.Warranty) error {
	if warranty.ProductID == "" {
		return fmt.Errorf("create warranty: product reference required: %w", domain.ErrValidation)
	}
	created, err := s.client.Create(ctx, collWarranties, []map[string]interface{}{warrantyToFields(warranty)})
	if err != nil {
		return err
	}
	warranty.ID = created[0].ID
	warranty.CreatedAt = created[0].CreatedTime
	s.cache.Invalidate(cacheWarranties)

	if err := s.SyncProductCoverage(ctx, warranty.ProductID); err != nil {
		s.logger.Warn("failed to refresh product coverage after warranty create",
			zap.String("product_id", warranty.ProductID),
			zap.Error(err))
	}
	return nil
}

// SyncProductCoverage recomputes a product's denormalized warranty status
// and nearest expiry from its warranty windows
func (s *Store) SyncProductCoverage(ctx context.Context, productID string) error {
	warranties, err := s.WarrantiesByProduct(ctx, productID)
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		fieldWarrantyStatus: string(domain.WarrantyStatusExpired),
	}
	var latest time.Time
	for _, w := range warranties {
		if w.EndDate.After(latest) {
			latest = w.EndDate
		}
	}
	if !latest.IsZero() {
		fields[fieldWarrantyStatus] = string(domain.StatusOf(latest, s.now()))
		fields[fieldNearestExpiry] = latest.UTC().Format("2006-01-02")
	}

	if _, err := s.client.Update(ctx, collProducts, productID, fields); err != nil {
		return err
	}
	s.cache.Invalidate(cacheProducts)
	return nil
}

// SyncAllCoverage refreshes the denormalized coverage fields of every
// product. Run nightly to repair drift from warranties edited out-of-band.
func (s *Store) SyncAllCoverage(ctx context.Context) (int, error) {
	products, err := s.AllProducts(ctx)
	if err != nil {
		return 0, err
	}
	synced := 0
	for _, p := range products {
		if err := s.SyncProductCoverage(ctx, p.ID); err != nil {
			s.logger.Warn("coverage sync failed for product",
				zap.String("product_id", p.ID),
				zap.Error(err))
			continue
		}
		synced++
	}
	return synced, nil
}

func (s *Store) ListCases(ctx context.Context, q domain.CaseQuery) ([]domain.ServiceCase, int, error) {
	q.Normalize()

	var clauses []string
	if q.Search != "" {
		clauses = append(clauses, anyOf(
			containsClause(serviceCodeFields[0], q.Search),
			containsClause(serviceDescFields[0], q.Search),
			containsClause(serviceTechNameFields[0], q.Search),
		))
	}
	if q.Type != "" {
		clauses = append(clauses, eqClause(serviceTypeFields[0], string(q.Type)))
	}
	if q.Status != "" {
		clauses = append(clauses, eqClause(serviceStatusFields[0], q.Status))
	}
	filter := allOf(clauses...)

	records, err := s.client.List(ctx, collServices, listOptions{
		Filter:     filter,
		SortField:  serviceCodeFields[0],
		SortDesc:   true,
		MaxRecords: q.Page * q.PageSize,
	})
	if err != nil {
		return nil, 0, err
	}

	cases := make([]domain.ServiceCase, 0, len(records))
	for i := range records {
		c, err := caseToDomain(&records[i])
		if err != nil {
			s.skipMapping(err)
			continue
		}
		cases = append(cases, c)
	}
	sort.SliceStable(cases, func(i, j int) bool {
		if cases[i].CaseCode != cases[j].CaseCode {
			return cases[i].CaseCode > cases[j].CaseCode
		}
		return cases[i].ID < cases[j].ID
	})

	start := (q.Page - 1) * q.PageSize
	if start > len(cases) {
		start = len(cases)
	}
	page := cases[start:]

	// Same caveat as ListProducts: skipped malformed records still count
	countRecords, err := s.client.List(ctx, collServices, listOptions{
		Filter: filter,
		Fields: []string{serviceCodeFields[0]},
	})
	if err != nil {
		return nil, 0, err
	}

	return page, len(countRecords), nil
}

func (s *Store) AllCases(ctx context.Context) ([]domain.ServiceCase, error) {
	if v, ok := s.cache.Get(cacheCases); ok {
		return v.([]domain.ServiceCase), nil
	}
	records, err := s.client.List(ctx, collServices, listOptions{})
	if err != nil {
		return nil, err
	}
	cases := make([]domain.ServiceCase, 0, len(records))
	for i := range records {
		c, err := caseToDomain(&records[i])
		if err != nil {
			s.skipMapping(err)
			continue
		}
		cases = append(cases, c)
	}
	s.cache.Set(cacheCases, cases)
	return cases, nil
}

func (s *Store) GetCase(ctx context.Context, id string) (*domain.ServiceCase, error) {
	rec, err := s.client.Get(ctx, collServices, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c, err := caseToDomain(rec)
	if err != nil {
		s.skipMapping(err)
		return nil, nil
	}
	return &c, nil
}

func (s *Store) FindCasesByCode(ctx context.Context, caseCode string) ([]domain.ServiceCase, error) {
	records, err := s.client.List(ctx, collServices, listOptions{
		Filter: anyOf(
			eqClause(serviceCodeFields[0], caseCode),
			eqClause(serviceCodeFields[1], caseCode),
		),
	})
	if err != nil {
		return nil, err
	}
	cases := make([]domain.ServiceCase, 0, len(records))
	for i := range records {
		c, err := caseToDomain(&records[i])
		if err != nil {
			s.skipMapping(err)
			continue
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func (s *Store) CreateCase(ctx context.Context, c *domain.ServiceCase) error {
	created, err := s.client.Create(ctx, collServices, []map[string]interface{}{caseToFields(c)})
	if err != nil {
		return err
	}
	c.ID = created[0].ID
	c.CreatedAt = created[0].CreatedTime
	s.cache.Invalidate(cacheCases)
	return nil
}

func (s *Store) UpdateCase(ctx context.Context, c *domain.ServiceCase) error {
	if _, err := s.client.Update(ctx, collServices, c.ID, caseToFields(c)); err != nil {
		return err
	}
	s.cache.Invalidate(cacheCases)
	return nil
}

// NextCaseNumber reads the highest existing code under the prefix and
// increments its suffix. The backend has no transactions, so two
// concurrent creators can legitimately claim the same number; callers
// detect the duplicate after the create and treat it as a recoverable
// conflict, not a crash.
func (s *Store) NextCaseNumber(ctx context.Context, prefix string) (int, error) {
	records, err := s.client.List(ctx, collServices, listOptions{
		Filter:     prefixClause(serviceCodeFields[0], prefix+"_"),
		SortField:  serviceCodeFields[0],
		SortDesc:   true,
		MaxRecords: 1,
	})
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 1, nil
	}
	code := stringField(records[0].Fields, serviceCodeFields)
	n, ok := sequence.ParseNumber(code, prefix)
	if !ok {
		s.logger.Warn("unparsable case code suffix, restarting sequence",
			zap.String("case_code", code),
			zap.String("prefix", prefix))
		return 1, nil
	}
	return n + 1, nil
}

func (s *Store) ListParts(ctx context.Context, caseCode string) ([]domain.ServicePart, error) {
	if caseCode == "" {
		if v, ok := s.cache.Get(cacheParts); ok {
			return v.([]domain.ServicePart), nil
		}
	}
	opts := listOptions{}
	if caseCode != "" {
		opts.Filter = anyOf(
			eqClause(partCaseCodeFields[0], caseCode),
			eqClause(partCaseCodeFields[1], caseCode),
		)
	}
	records, err := s.client.List(ctx, collParts, opts)
	if err != nil {
		return nil, err
	}
	parts := make([]domain.ServicePart, 0, len(records))
	for i := range records {
		p, err := partToDomain(&records[i])
		if err != nil {
			s.skipMapping(err)
			continue
		}
		parts = append(parts, p)
	}
	if caseCode == "" {
		s.cache.Set(cacheParts, parts)
	}
	return parts, nil
}

func (s *Store) CreateParts(ctx context.Context, parts []domain.ServicePart) error {
	if len(parts) == 0 {
		return nil
	}
	fields := make([]map[string]interface{}, len(parts))
	for i := range parts {
		fields[i] = partToFields(&parts[i])
	}
	created, err := s.client.Create(ctx, collParts, fields)
	if err != nil {
		return err
	}
	for i := range created {
		parts[i].ID = created[i].ID
	}
	s.cache.Invalidate(cacheParts)
	return nil
}

func (s *Store) DeleteParts(ctx context.Context, ids []string) error {
	if err := s.client.Delete(ctx, collParts, ids); err != nil {
		return err
	}
	s.cache.Invalidate(cacheParts)
	return nil
}

// PartsBatchLimit mirrors the backend's per-request record cap
func (s *Store) PartsBatchLimit() int { return writeBatchLimit }

func (s *Store) ListTechnicians(ctx context.Context) ([]domain.Technician, error) {
	if v, ok := s.cache.Get(cacheTechnicians); ok {
		return v.([]domain.Technician), nil
	}
	records, err := s.client.List(ctx, collTechnicians, listOptions{
		SortField: techNameFields[0],
	})
	if err != nil {
		return nil, err
	}
	techs := make([]domain.Technician, 0, len(records))
	for i := range records {
		techs = append(techs, technicianToDomain(&records[i]))
	}
	s.cache.Set(cacheTechnicians, techs)
	return techs, nil
}

func (s *Store) CreateTechnician(ctx context.Context, tech *domain.Technician) error {
	if tech.Status == "" {
		tech.Status = domain.TechnicianStatusActive
	}
	created, err := s.client.Create(ctx, collTechnicians, []map[string]interface{}{technicianToFields(tech)})
	if err != nil {
		return err
	}
	tech.ID = created[0].ID
	s.cache.Invalidate(cacheTechnicians)
	return nil
}

func (s *Store) DeleteTechnician(ctx context.Context, id string) error {
	if err := s.client.Delete(ctx, collTechnicians, []string{id}); err != nil {
		return err
	}
	s.cache.Invalidate(cacheTechnicians)
	return nil
}

func (s *Store) ListAttachments(ctx context.Context, caseCode string) ([]domain.Attachment, error) {
	records, err := s.client.List(ctx, collAttachments, listOptions{
		Filter: anyOf(
			eqClause(attCaseCodeFields[0], caseCode),
			eqClause(attCaseCodeFields[1], caseCode),
		),
	})
	if err != nil {
		return nil, err
	}
	atts := make([]domain.Attachment, 0, len(records))
	for i := range records {
		atts = append(atts, attachmentToDomain(&records[i]))
	}
	return atts, nil
}

func (s *Store) GetAttachment(ctx context.Context, id string) (*domain.Attachment, error) {
	rec, err := s.client.Get(ctx, collAttachments, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	att := attachmentToDomain(rec)
	return &att, nil
}

func (s *Store) CreateAttachment(ctx context.Context, att *domain.Attachment) error {
	created, err := s.client.Create(ctx, collAttachments, []map[string]interface{}{attachmentToFields(att)})
	if err != nil {
		return err
	}
	att.ID = created[0].ID
	att.CreatedAt = created[0].CreatedTime
	return nil
}

func (s *Store) DeleteAttachment(ctx context.Context, id string) error {
	return s.client.Delete(ctx, collAttachments, []string{id})
}

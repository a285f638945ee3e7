// Package relational implements the store contract on a relational SQL
// database through GORM. Filtering, sorting and pagination translate
// directly into parameterized WHERE/LIKE/OFFSET queries; the total count
// shares the predicate of the page query.
package relational

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/sequence"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// latestExpirySQL derives a product's coverage end: the latest end date
// across its warranties. Products without warranties yield NULL and are
// treated as expired.
const latestExpirySQL = "(SELECT MAX(w.end_date) FROM warranties w WHERE w.product_id = products.id)"

// Store is the relational backend
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates a relational store over an open GORM connection
func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Name identifies the backend driver
func (s *Store) Name() string { return "relational" }

// Ping verifies the database connection is alive
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrapErr("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w: %v", domain.ErrBackendUnavailable, err)
	}
	return nil
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func likePattern(q string) string {
	return "%" + strings.ToLower(q) + "%"
}

// ListCompanies matches by name, secondary name, tax id and, via the child
// linkage, by product serial number.
func (s *Store) ListCompanies(ctx context.Context, query string) ([]domain.Company, error) {
	q := s.db.WithContext(ctx).Model(&companyRow{})
	if query != "" {
		pat := likePattern(query)
		q = q.Where(
			"LOWER(name) LIKE ? OR LOWER(secondary_name) LIKE ? OR LOWER(tax_id) LIKE ? OR id IN (SELECT company_id FROM products WHERE LOWER(serial_number) LIKE ?)",
			pat, pat, pat, pat,
		)
	}

	var rows []companyRow
	if err := q.Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, wrapErr("list companies", err)
	}

	companies := make([]domain.Company, len(rows))
	for i := range rows {
		companies[i] = rows[i].toDomain()
	}
	return companies, nil
}

func (s *Store) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	key, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	var row companyRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get company", err)
	}
	company := row.toDomain()
	return &company, nil
}

func (s *Store) CreateCompany(ctx context.Context, company *domain.Company) error {
	row := companyToRow(company)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapErr("create company", err)
	}
	*company = row.toDomain()
	return nil
}

func (s *Store) UpdateCompany(ctx context.Context, company *domain.Company) error {
	row := companyToRow(company)
	if row.ID == 0 {
		return fmt.Errorf("update company: %w", domain.ErrNotFound)
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return wrapErr("update company", err)
	}
	return nil
}

// ListProducts pages through products sorted ascending by coverage end,
// with the integer id as the stable tie-break so repeated queries paginate
// deterministically.
func (s *Store) ListProducts(ctx context.Context, q domain.ProductQuery) ([]domain.Product, int, error) {
	q.Normalize()
	now := time.Now().UTC()

	base := s.db.WithContext(ctx).Model(&productRow{})
	if q.Search != "" {
		pat := likePattern(q.Search)
		base = base.Where(
			"LOWER(products.name) LIKE ? OR LOWER(products.serial_number) LIKE ? OR LOWER(products.branch) LIKE ?",
			pat, pat, pat,
		)
	}

	switch q.Status {
	case domain.WarrantyStatusExpired:
		base = base.Where(latestExpirySQL+" < ? OR "+latestExpirySQL+" IS NULL", now)
	case domain.WarrantyStatusNearExpiry:
		base = base.Where(latestExpirySQL+" >= ? AND "+latestExpirySQL+" <= ?", now, now.Add(domain.NearExpiryWindow))
	case domain.WarrantyStatusActive:
		base = base.Where(latestExpirySQL+" > ?", now.Add(domain.NearExpiryWindow))
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, wrapErr("count products", err)
	}

	var rows []productRow
	err := base.Session(&gorm.Session{}).
		Order(latestExpirySQL + " ASC NULLS FIRST, products.id ASC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, wrapErr("list products", err)
	}

	products := make([]domain.Product, len(rows))
	for i := range rows {
		products[i] = rows[i].toDomain()
	}
	return products, int(total), nil
}

func (s *Store) AllProducts(ctx context.Context) ([]domain.Product, error) {
	var rows []productRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, wrapErr("list all products", err)
	}
	products := make([]domain.Product, len(rows))
	for i := range rows {
		products[i] = rows[i].toDomain()
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	key, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	var row productRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get product", err)
	}
	product := row.toDomain()
	return &product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product *domain.Product) error {
	row := productToRow(product)
	if row.CompanyID == 0 {
		return fmt.Errorf("create product: company reference required: %w", domain.ErrValidation)
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapErr("create product", err)
	}
	*product = row.toDomain()
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, product *domain.Product) error {
	row := productToRow(product)
	if row.ID == 0 {
		return fmt.Errorf("update product: %w", domain.ErrNotFound)
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return wrapErr("update product", err)
	}
	return nil
}

func (s *Store) AllWarranties(ctx context.Context) ([]domain.Warranty, error) {
	var rows []warrantyRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, wrapErr("list warranties", err)
	}
	warranties := make([]domain.Warranty, len(rows))
	for i := range rows {
		warranties[i] = rows[i].toDomain()
	}
	return warranties, nil
}

func (s *Store) WarrantiesByProduct(ctx context.Context, productID string) ([]domain.Warranty, error) {
	key, ok := parseID(productID)
	if !ok {
		return nil, nil
	}
	var rows []warrantyRow
	err := s.db.WithContext(ctx).
		Where("product_id = ?", key).
		Order("end_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapErr("list warranties by product", err)
	}
	warranties := make([]domain.Warranty, len(rows))
	for i := range rows {
		warranties[i] = rows[i].toDomain()
	}
	return warranties, nil
}

func (s *Store) GetWarranty(ctx context.Context, id string) (*domain.Warranty, error) {
	key, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	var row warrantyRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get warranty", err)
	}
	warranty := row.toDomain()
	return &warranty, nil
}

func (s *Store) CreateWarranty(ctx context.Context, warranty *domain.Warranty) error {
	row := warrantyToRow(warranty)
	if row.ProductID == 0 {
		return fmt.Errorf("create warranty: product reference required: %w", domain.ErrValidation)
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapErr("create warranty", err)
	}
	*warranty = row.toDomain()
	return nil
}

func (s *Store) ListCases(ctx context.Context, q domain.CaseQuery) ([]domain.ServiceCase, int, error) {
	q.Normalize()

	base := s.db.WithContext(ctx).Model(&serviceCaseRow{})
	if q.Search != "" {
		pat := likePattern(q.Search)
		base = base.Where(
			"LOWER(case_code) LIKE ? OR LOWER(description) LIKE ? OR LOWER(technician_name) LIKE ?",
			pat, pat, pat,
		)
	}
	if q.Type != "" {
		base = base.Where("type = ?", string(q.Type))
	}
	if q.Status != "" {
		base = base.Where("status = ?", q.Status)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, wrapErr("count cases", err)
	}

	var rows []serviceCaseRow
	err := base.Session(&gorm.Session{}).
		Order("case_code DESC, id ASC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, wrapErr("list cases", err)
	}

	cases := make([]domain.ServiceCase, len(rows))
	for i := range rows {
		cases[i] = rows[i].toDomain()
	}
	return cases, int(total), nil
}

func (s *Store) AllCases(ctx context.Context) ([]domain.ServiceCase, error) {
	var rows []serviceCaseRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, wrapErr("list all cases", err)
	}
	cases := make([]domain.ServiceCase, len(rows))
	for i := range rows {
		cases[i] = rows[i].toDomain()
	}
	return cases, nil
}

func (s *Store) GetCase(ctx context.Context, id string) (*domain.ServiceCase, error) {
	key, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	var row serviceCaseRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get case", err)
	}
	c := row.toDomain()
	return &c, nil
}

func (s *Store) FindCasesByCode(ctx context.Context, caseCode string) ([]domain.ServiceCase, error) {
	var rows []serviceCaseRow
	err := s.db.WithContext(ctx).
		Where("case_code = ?", caseCode).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapErr("find cases by code", err)
	}
	cases := make([]domain.ServiceCase, len(rows))
	for i := range rows {
		cases[i] = rows[i].toDomain()
	}
	return cases, nil
}

func (s *Store) CreateCase(ctx context.Context, c *domain.ServiceCase) error {
	row := caseToRow(c)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("create case %s: %w", c.CaseCode, domain.ErrDuplicateCaseCode)
		}
		return wrapErr("create case", err)
	}
	*c = row.toDomain()
	return nil
}

func (s *Store) UpdateCase(ctx context.Context, c *domain.ServiceCase) error {
	row := caseToRow(c)
	if row.ID == 0 {
		return fmt.Errorf("update case: %w", domain.ErrNotFound)
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return wrapErr("update case", err)
	}
	return nil
}

// NextCaseNumber claims the next sequence number for a prefix inside a
// transaction holding a row lock, so two concurrent creators never share a
// number. A missing sequence row is seeded from the highest existing case
// code under the prefix, falling back to zero when the suffix fails to
// parse.
func (s *Store) NextCaseNumber(ctx context.Context, prefix string) (int, error) {
	var next int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq caseSequenceRow

		q := tx
		// SQLite serializes writers on its own and rejects FOR UPDATE
		if tx.Dialector.Name() != "sqlite" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		result := q.Where("prefix = ?", prefix).First(&seq)

		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			last, err := s.maxExistingNumber(tx, prefix)
			if err != nil {
				return err
			}
			next = last + 1
			seq = caseSequenceRow{Prefix: prefix, LastNumber: next, UpdatedAt: time.Now().UTC()}
			if err := tx.Create(&seq).Error; err != nil {
				return fmt.Errorf("failed to create case sequence: %w", err)
			}
			return nil
		}
		if result.Error != nil {
			return fmt.Errorf("failed to get case sequence: %w", result.Error)
		}

		next = seq.LastNumber + 1
		return tx.Model(&seq).Updates(map[string]interface{}{
			"last_number": next,
			"updated_at":  time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return 0, wrapErr("next case number", err)
	}
	return next, nil
}

// SetSequence raises the claimed sequence for a prefix, never lowering it.
// Used when seeding from migrated historical data.
func (s *Store) SetSequence(ctx context.Context, prefix string, value int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq caseSequenceRow
		result := tx.Where("prefix = ?", prefix).First(&seq)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			seq = caseSequenceRow{Prefix: prefix, LastNumber: value, UpdatedAt: time.Now().UTC()}
			return tx.Create(&seq).Error
		}
		if result.Error != nil {
			return result.Error
		}
		if value <= seq.LastNumber {
			return nil
		}
		return tx.Model(&seq).Updates(map[string]interface{}{
			"last_number": value,
			"updated_at":  time.Now().UTC(),
		}).Error
	})
}

func (s *Store) maxExistingNumber(tx *gorm.DB, prefix string) (int, error) {
	var row serviceCaseRow
	err := tx.Where("case_code LIKE ? ESCAPE '\\'", prefix+"\\_%").
		Order("case_code DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find max case code: %w", err)
	}
	n, ok := sequence.ParseNumber(row.CaseCode, prefix)
	if !ok {
		s.logger.Warn("unparsable case code suffix, restarting sequence",
			zap.String("case_code", row.CaseCode),
			zap.String("prefix", prefix))
		return 0, nil
	}
	return n, nil
}

func (s *Store) ListParts(ctx context.Context, caseCode string) ([]domain.ServicePart, error) {
	q := s.db.WithContext(ctx).Model(&servicePartRow{})
	if caseCode != "" {
		q = q.Where("case_code = ?", caseCode)
	}
	var rows []servicePartRow
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, wrapErr("list parts", err)
	}
	parts := make([]domain.ServicePart, len(rows))
	for i := range rows {
		parts[i] = rows[i].toDomain()
	}
	return parts, nil
}

func (s *Store) CreateParts(ctx context.Context, parts []domain.ServicePart) error {
	if len(parts) == 0 {
		return nil
	}
	rows := make([]servicePartRow, len(parts))
	for i := range parts {
		rows[i] = partToRow(&parts[i])
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return wrapErr("create parts", err)
	}
	for i := range rows {
		parts[i] = rows[i].toDomain()
	}
	return nil
}

func (s *Store) DeleteParts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]uint, 0, len(ids))
	for _, id := range ids {
		if key, ok := parseID(id); ok {
			keys = append(keys, key)
		}
	}
	if err := s.db.WithContext(ctx).Delete(&servicePartRow{}, "id IN ?", keys).Error; err != nil {
		return wrapErr("delete parts", err)
	}
	return nil
}

// PartsBatchLimit is generous on the relational backend; a single batch
// covers any realistic parts list.
func (s *Store) PartsBatchLimit() int { return 100 }

func (s *Store) ListTechnicians(ctx context.Context) ([]domain.Technician, error) {
	var rows []technicianRow
	if err := s.db.WithContext(ctx).Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, wrapErr("list technicians", err)
	}
	techs := make([]domain.Technician, len(rows))
	for i := range rows {
		techs[i] = rows[i].toDomain()
	}
	return techs, nil
}

func (s *Store) CreateTechnician(ctx context.Context, tech *domain.Technician) error {
	row := technicianToRow(tech)
	if row.Status == "" {
		row.Status = string(domain.TechnicianStatusActive)
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapErr("create technician", err)
	}
	*tech = row.toDomain()
	return nil
}

func (s *Store) DeleteTechnician(ctx context.Context, id string) error {
	key, ok := parseID(id)
	if !ok {
		return fmt.Errorf("delete technician: %w", domain.ErrNotFound)
	}
	result := s.db.WithContext(ctx).Delete(&technicianRow{}, "id = ?", key)
	if result.Error != nil {
		return wrapErr("delete technician", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("delete technician: %w", domain.ErrNotFound)
	}
	return nil
}

func (s *Store) ListAttachments(ctx context.Context, caseCode string) ([]domain.Attachment, error) {
	var rows []attachmentRow
	if err := s.db.WithContext(ctx).
		Where("case_code = ?", caseCode).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, wrapErr("list attachments", err)
	}
	atts := make([]domain.Attachment, len(rows))
	for i := range rows {
		atts[i] = rows[i].toDomain()
	}
	return atts, nil
}

func (s *Store) GetAttachment(ctx context.Context, id string) (*domain.Attachment, error) {
	key, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	var row attachmentRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get attachment", err)
	}
	att := row.toDomain()
	return &att, nil
}

func (s *Store) CreateAttachment(ctx context.Context, att *domain.Attachment) error {
	row := attachmentToRow(att)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapErr("create attachment", err)
	}
	*att = row.toDomain()
	return nil
}

func (s *Store) DeleteAttachment(ctx context.Context, id string) error {
	key, ok := parseID(id)
	if !ok {
		return fmt.Errorf("delete attachment: %w", domain.ErrNotFound)
	}
	result := s.db.WithContext(ctx).Delete(&attachmentRow{}, "id = ?", key)
	if result.Error != nil {
		return wrapErr("delete attachment", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("delete attachment: %w", domain.ErrNotFound)
	}
	return nil
}

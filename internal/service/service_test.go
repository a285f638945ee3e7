package service_test

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// memStore is an in-memory backend for the service tests. Writes assign
// sequential string ids the way the relational backend does; sequence
// claims count per prefix.
type memStore struct {
	nextID int

	companies   map[string]domain.Company
	products    map[string]domain.Product
	warranties  map[string]domain.Warranty
	cases       map[string]domain.ServiceCase
	parts       map[string]domain.ServicePart
	technicians map[string]domain.Technician
	attachments map[string]domain.Attachment
	sequences   map[string]int

	// phantomCodes makes FindCasesByCode report an extra hit per listed
	// code, simulating a raced sequence claim on the linked-record backend
	phantomCodes map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		companies:    make(map[string]domain.Company),
		products:     make(map[string]domain.Product),
		warranties:   make(map[string]domain.Warranty),
		cases:        make(map[string]domain.ServiceCase),
		parts:        make(map[string]domain.ServicePart),
		technicians:  make(map[string]domain.Technician),
		attachments:  make(map[string]domain.Attachment),
		sequences:    make(map[string]int),
		phantomCodes: make(map[string]bool),
	}
}

func (m *memStore) claimID() string {
	m.nextID++
	return strconv.Itoa(m.nextID)
}

func (m *memStore) Name() string                   { return "memory" }
func (m *memStore) Ping(ctx context.Context) error { return nil }

func (m *memStore) ListCompanies(ctx context.Context, query string) ([]domain.Company, error) {
	var out []domain.Company
	for _, c := range m.companies {
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	if c, ok := m.companies[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *memStore) CreateCompany(ctx context.Context, company *domain.Company) error {
	company.ID = m.claimID()
	m.companies[company.ID] = *company
	return nil
}

func (m *memStore) UpdateCompany(ctx context.Context, company *domain.Company) error {
	m.companies[company.ID] = *company
	return nil
}

func (m *memStore) ListProducts(ctx context.Context, q domain.ProductQuery) ([]domain.Product, int, error) {
	all, _ := m.AllProducts(ctx)
	return all, len(all), nil
}

func (m *memStore) AllProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if p, ok := m.products[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *memStore) CreateProduct(ctx context.Context, product *domain.Product) error {
	product.ID = m.claimID()
	m.products[product.ID] = *product
	return nil
}

func (m *memStore) UpdateProduct(ctx context.Context, product *domain.Product) error {
	m.products[product.ID] = *product
	return nil
}

func (m *memStore) AllWarranties(ctx context.Context) ([]domain.Warranty, error) {
	var out []domain.Warranty
	for _, w := range m.warranties {
		out = append(out, w)
	}
	return out, nil
}

func (m *memStore) WarrantiesByProduct(ctx context.Context, productID string) ([]domain.Warranty, error) {
	var out []domain.Warranty
	for _, w := range m.warranties {
		if w.ProductID == productID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memStore) GetWarranty(ctx context.Context, id string) (*domain.Warranty, error) {
	if w, ok := m.warranties[id]; ok {
		return &w, nil
	}
	return nil, nil
}

func (m *memStore) CreateWarranty(ctx context.Context, warranty *domain.Warranty) error {
	warranty.ID = m.claimID()
	m.warranties[warranty.ID] = *warranty
	return nil
}

func (m *memStore) ListCases(ctx context.Context, q domain.CaseQuery) ([]domain.ServiceCase, int, error) {
	all, _ := m.AllCases(ctx)
	return all, len(all), nil
}

func (m *memStore) AllCases(ctx context.Context) ([]domain.ServiceCase, error) {
	var out []domain.ServiceCase
	for _, c := range m.cases {
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) GetCase(ctx context.Context, id string) (*domain.ServiceCase, error) {
	if c, ok := m.cases[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *memStore) FindCasesByCode(ctx context.Context, caseCode string) ([]domain.ServiceCase, error) {
	var out []domain.ServiceCase
	for _, c := range m.cases {
		if c.CaseCode == caseCode {
			out = append(out, c)
		}
	}
	if m.phantomCodes[caseCode] {
		out = append(out, domain.ServiceCase{ID: "phantom", CaseCode: caseCode})
	}
	return out, nil
}

func (m *memStore) CreateCase(ctx context.Context, c *domain.ServiceCase) error {
	for _, existing := range m.cases {
		if existing.CaseCode == c.CaseCode {
			return fmt.Errorf("create case %s: %w", c.CaseCode, domain.ErrDuplicateCaseCode)
		}
	}
	c.ID = m.claimID()
	m.cases[c.ID] = *c
	return nil
}

func (m *memStore) UpdateCase(ctx context.Context, c *domain.ServiceCase) error {
	m.cases[c.ID] = *c
	return nil
}

func (m *memStore) NextCaseNumber(ctx context.Context, prefix string) (int, error) {
	m.sequences[prefix]++
	return m.sequences[prefix], nil
}

func (m *memStore) ListParts(ctx context.Context, caseCode string) ([]domain.ServicePart, error) {
	var out []domain.ServicePart
	for _, p := range m.parts {
		if caseCode == "" || p.CaseCode == caseCode {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) CreateParts(ctx context.Context, parts []domain.ServicePart) error {
	for i := range parts {
		parts[i].ID = m.claimID()
		m.parts[parts[i].ID] = parts[i]
	}
	return nil
}

func (m *memStore) DeleteParts(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(m.parts, id)
	}
	return nil
}

func (m *memStore) PartsBatchLimit() int { return 10 }

func (m *memStore) ListTechnicians(ctx context.Context) ([]domain.Technician, error) {
	var out []domain.Technician
	for _, t := range m.technicians {
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) CreateTechnician(ctx context.Context, tech *domain.Technician) error {
	tech.ID = m.claimID()
	if tech.Status == "" {
		tech.Status = domain.TechnicianStatusActive
	}
	m.technicians[tech.ID] = *tech
	return nil
}

func (m *memStore) DeleteTechnician(ctx context.Context, id string) error {
	if _, ok := m.technicians[id]; !ok {
		return fmt.Errorf("delete technician: %w", domain.ErrNotFound)
	}
	delete(m.technicians, id)
	return nil
}

func (m *memStore) ListAttachments(ctx context.Context, caseCode string) ([]domain.Attachment, error) {
	var out []domain.Attachment
	for _, a := range m.attachments {
		if a.CaseCode == caseCode {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) GetAttachment(ctx context.Context, id string) (*domain.Attachment, error) {
	if a, ok := m.attachments[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (m *memStore) CreateAttachment(ctx context.Context, att *domain.Attachment) error {
	att.ID = m.claimID()
	m.attachments[att.ID] = *att
	return nil
}

func (m *memStore) DeleteAttachment(ctx context.Context, id string) error {
	if _, ok := m.attachments[id]; !ok {
		return fmt.Errorf("delete attachment: %w", domain.ErrNotFound)
	}
	delete(m.attachments, id)
	return nil
}

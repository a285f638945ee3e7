// Package store defines the capability contract the repository facade is
// written against. Two implementations exist: a relational one backed by
// PostgreSQL (see store/relational) and a linked-record one backed by a
// hosted REST record store (see store/linkedrecord). The active backend is
// selected once at process start and never changes during the process
// lifetime.
package store

import (
	"context"

	"github.com/coretrack/warranty-api/internal/domain"
)

// Store is the backend capability interface. All methods are request-scoped
// and honor the caller's context deadline; none retries automatically.
type Store interface {
	// Name identifies the backend driver, for logs and health output
	Name() string
	// Ping verifies the backend is reachable
	Ping(ctx context.Context) error

	// ListCompanies returns companies whose name, secondary name or tax id
	// contains the query, case-insensitively. The query also matches by
	// child product serial number.
	ListCompanies(ctx context.Context, query string) ([]domain.Company, error)
	GetCompany(ctx context.Context, id string) (*domain.Company, error)
	CreateCompany(ctx context.Context, company *domain.Company) error
	UpdateCompany(ctx context.Context, company *domain.Company) error

	// ListProducts applies free-text search, warranty-status filter and
	// pagination, sorted ascending by nearest warranty expiry with id as
	// the stable tie-break. Returns the page and the total match count.
	ListProducts(ctx context.Context, q domain.ProductQuery) ([]domain.Product, int, error)
	AllProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProduct(ctx context.Context, product *domain.Product) error

	AllWarranties(ctx context.Context) ([]domain.Warranty, error)
	WarrantiesByProduct(ctx context.Context, productID string) ([]domain.Warranty, error)
	GetWarranty(ctx context.Context, id string) (*domain.Warranty, error)
	CreateWarranty(ctx context.Context, warranty *domain.Warranty) error

	ListCases(ctx context.Context, q domain.CaseQuery) ([]domain.ServiceCase, int, error)
	AllCases(ctx context.Context) ([]domain.ServiceCase, error)
	GetCase(ctx context.Context, id string) (*domain.ServiceCase, error)
	// FindCasesByCode returns every case carrying the code. More than one
	// hit means concurrent writers raced the sequence generator.
	FindCasesByCode(ctx context.Context, caseCode string) ([]domain.ServiceCase, error)
	CreateCase(ctx context.Context, c *domain.ServiceCase) error
	UpdateCase(ctx context.Context, c *domain.ServiceCase) error

	// NextCaseNumber claims the next sequence number for a case code
	// prefix. The relational implementation serializes claims with a row
	// lock; the linked-record implementation is find-max-then-increment
	// and can race, which callers detect via FindCasesByCode.
	NextCaseNumber(ctx context.Context, prefix string) (int, error)

	// ListParts returns the part rows for a case code, or all rows when
	// caseCode is empty.
	ListParts(ctx context.Context, caseCode string) ([]domain.ServicePart, error)
	// CreateParts persists one batch of rows. len(parts) must not exceed
	// PartsBatchLimit.
	CreateParts(ctx context.Context, parts []domain.ServicePart) error
	// DeleteParts removes one batch of rows by id. len(ids) must not
	// exceed PartsBatchLimit.
	DeleteParts(ctx context.Context, ids []string) error
	// PartsBatchLimit is the backend's per-request cap on batched part
	// writes and deletes.
	PartsBatchLimit() int

	ListTechnicians(ctx context.Context) ([]domain.Technician, error)
	CreateTechnician(ctx context.Context, tech *domain.Technician) error
	DeleteTechnician(ctx context.Context, id string) error

	// Attachments hold file metadata only; the bytes live in blob
	// storage under Attachment.StoragePath.
	ListAttachments(ctx context.Context, caseCode string) ([]domain.Attachment, error)
	GetAttachment(ctx context.Context, id string) (*domain.Attachment, error)
	CreateAttachment(ctx context.Context, att *domain.Attachment) error
	DeleteAttachment(ctx context.Context, id string) error
}

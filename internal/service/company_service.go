// Package service is the facade over the record backends: one operation
// per use case, dispatching to whichever store.Store implementation the
// process was configured with.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/mapper"
	"github.com/coretrack/warranty-api/internal/store"
	"go.uber.org/zap"
)

type CompanyService struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewCompanyService(st store.Store, logger *zap.Logger) *CompanyService {
	return &CompanyService{store: st, logger: logger, now: time.Now}
}

// List returns companies matching the query by name, secondary name, tax
// id, or by the serial number of one of their products. An empty query
// returns everything.
func (s *CompanyService) List(ctx context.Context, query string) ([]domain.CompanyDTO, error) {
	companies, err := s.store.ListCompanies(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	dtos := make([]domain.CompanyDTO, len(companies))
	for i := range companies {
		dtos[i] = mapper.ToCompanyDTO(&companies[i])
	}
	return dtos, nil
}

func (s *CompanyService) Get(ctx context.Context, id string) (*domain.CompanyDTO, error) {
	company, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	if company == nil {
		return nil, notFound("company", id)
	}
	dto := mapper.ToCompanyDTO(company)
	return &dto, nil
}

// Products returns a company's products with derived warranty status
func (s *CompanyService) Products(ctx context.Context, companyID string) ([]domain.ProductDTO, error) {
	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	if company == nil {
		return nil, notFound("company", companyID)
	}

	products, err := s.store.AllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	warranties, err := s.store.AllWarranties(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list warranties: %w", err)
	}
	byProduct := make(map[string][]domain.Warranty)
	for _, w := range warranties {
		byProduct[w.ProductID] = append(byProduct[w.ProductID], w)
	}

	now := s.now()
	var dtos []domain.ProductDTO
	for i := range products {
		if products[i].CompanyID != companyID {
			continue
		}
		dtos = append(dtos, mapper.ToProductDTO(&products[i], company.Name,
			mapper.LatestExpiry(byProduct[products[i].ID]), now))
	}
	return dtos, nil
}

func (s *CompanyService) Create(ctx context.Context, req *domain.CreateCompanyRequest) (*domain.CompanyDTO, error) {
	company := &domain.Company{
		Name:          req.Name,
		SecondaryName: req.SecondaryName,
		TaxID:         req.TaxID,
		ContactInfo:   req.ContactInfo,
	}
	if err := s.store.CreateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	s.logger.Info("company created",
		zap.String("company_id", company.ID),
		zap.String("name", company.Name))

	dto := mapper.ToCompanyDTO(company)
	return &dto, nil
}

func (s *CompanyService) Update(ctx context.Context, id string, req *domain.CreateCompanyRequest) (*domain.CompanyDTO, error) {
	company, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	if company == nil {
		return nil, notFound("company", id)
	}

	company.Name = req.Name
	company.SecondaryName = req.SecondaryName
	company.TaxID = req.TaxID
	company.ContactInfo = req.ContactInfo

	if err := s.store.UpdateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}
	dto := mapper.ToCompanyDTO(company)
	return &dto, nil
}

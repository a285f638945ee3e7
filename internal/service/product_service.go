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

type ProductService struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewProductService(st store.Store, logger *zap.Logger) *ProductService {
	return &ProductService{store: st, logger: logger, now: time.Now}
}

// List returns one page of products with free-text search and warranty
// status filtering, sorted ascending by nearest expiry. Both backends
// return the page and total count; this layer only enriches the rows with
// company names and derived status.
func (s *ProductService) List(ctx context.Context, q domain.ProductQuery) (*domain.PagedProducts, error) {
	q.Normalize()

	products, total, err := s.store.ListProducts(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	companyNames, err := s.companyNames(ctx)
	if err != nil {
		return nil, err
	}
	expiryByProduct, err := s.latestExpiries(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	dtos := make([]domain.ProductDTO, len(products))
	for i := range products {
		dtos[i] = mapper.ToProductDTO(&products[i],
			companyNames[products[i].CompanyID],
			expiryByProduct[products[i].ID], now)
	}

	return &domain.PagedProducts{
		Data:       dtos,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.ProductDTO, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, notFound("product", id)
	}

	// Dangling company reference renders as an empty name
	companyName := ""
	if product.CompanyID != "" {
		company, err := s.store.GetCompany(ctx, product.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("failed to get company: %w", err)
		}
		if company != nil {
			companyName = company.Name
		}
	}

	warranties, err := s.store.WarrantiesByProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list warranties: %w", err)
	}

	dto := mapper.ToProductDTO(product, companyName, mapper.LatestExpiry(warranties), s.now())
	return &dto, nil
}

func (s *ProductService) Create(ctx context.Context, req *domain.CreateProductRequest) (*domain.ProductDTO, error) {
	company, err := s.store.GetCompany(ctx, req.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	if company == nil {
		return nil, invalid("company %s does not exist", req.CompanyID)
	}

	product := &domain.Product{
		CompanyID:     req.CompanyID,
		Name:          req.Name,
		SerialNumber:  req.SerialNumber,
		ContactPerson: req.ContactPerson,
		Branch:        req.Branch,
		Phone:         req.Phone,
	}
	if req.PurchaseDate != "" {
		t, err := domain.ParseDate(req.PurchaseDate)
		if err != nil {
			return nil, invalid("invalid purchase date %q", req.PurchaseDate)
		}
		product.PurchaseDate = &t
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("product created",
		zap.String("product_id", product.ID),
		zap.String("serial_number", product.SerialNumber))

	dto := mapper.ToProductDTO(product, company.Name, nil, s.now())
	return &dto, nil
}

func (s *ProductService) Update(ctx context.Context, id string, req *domain.CreateProductRequest) (*domain.ProductDTO, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, notFound("product", id)
	}

	company, err := s.store.GetCompany(ctx, req.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	if company == nil {
		return nil, invalid("company %s does not exist", req.CompanyID)
	}

	product.CompanyID = req.CompanyID
	product.Name = req.Name
	product.SerialNumber = req.SerialNumber
	product.ContactPerson = req.ContactPerson
	product.Branch = req.Branch
	product.Phone = req.Phone
	if req.PurchaseDate != "" {
		t, err := domain.ParseDate(req.PurchaseDate)
		if err != nil {
			return nil, invalid("invalid purchase date %q", req.PurchaseDate)
		}
		product.PurchaseDate = &t
	}

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	warranties, err := s.store.WarrantiesByProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list warranties: %w", err)
	}
	dto := mapper.ToProductDTO(product, company.Name, mapper.LatestExpiry(warranties), s.now())
	return &dto, nil
}

func (s *ProductService) companyNames(ctx context.Context) (map[string]string, error) {
	companies, err := s.store.ListCompanies(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	names := make(map[string]string, len(companies))
	for _, c := range companies {
		names[c.ID] = c.Name
	}
	return names, nil
}

func (s *ProductService) latestExpiries(ctx context.Context) (map[string]*time.Time, error) {
	warranties, err := s.store.AllWarranties(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list warranties: %w", err)
	}
	byProduct := make(map[string][]domain.Warranty)
	for _, w := range warranties {
		byProduct[w.ProductID] = append(byProduct[w.ProductID], w)
	}
	out := make(map[string]*time.Time, len(byProduct))
	for id, ws := range byProduct {
		out[id] = mapper.LatestExpiry(ws)
	}
	return out, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/mapper"
	"github.com/coretrack/warranty-api/internal/parts"
	"github.com/coretrack/warranty-api/internal/sequence"
	"github.com/coretrack/warranty-api/internal/store"
	"go.uber.org/zap"
)

type CaseService struct {
	store  store.Store
	seq    *sequence.Generator
	parts  *parts.Synchronizer
	logger *zap.Logger
	now    func() time.Time
}

func NewCaseService(st store.Store, seq *sequence.Generator, sync *parts.Synchronizer, logger *zap.Logger) *CaseService {
	return &CaseService{store: st, seq: seq, parts: sync, logger: logger, now: time.Now}
}

// List returns one page of service cases, newest case codes first
func (s *CaseService) List(ctx context.Context, q domain.CaseQuery) (*domain.PagedCases, error) {
	q.Normalize()

	cases, total, err := s.store.ListCases(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}

	dtos := make([]domain.ServiceCaseDTO, len(cases))
	for i := range cases {
		dtos[i] = mapper.ToCaseDTO(&cases[i])
	}
	return &domain.PagedCases{
		Data:       dtos,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, nil
}

// Get returns a case joined with its warranty, product, company and
// parts. Dangling references resolve to nil sections, never errors.
func (s *CaseService) Get(ctx context.Context, id string) (*domain.ServiceCaseDetail, error) {
	c, err := s.store.GetCase(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	if c == nil {
		return nil, notFound("case", id)
	}
	return s.buildDetail(ctx, c)
}

// GetByCode resolves a case through its human-readable case code
func (s *CaseService) GetByCode(ctx context.Context, caseCode string) (*domain.ServiceCaseDetail, error) {
	matches, err := s.store.FindCasesByCode(ctx, caseCode)
	if err != nil {
		return nil, fmt.Errorf("failed to find case by code: %w", err)
	}
	if len(matches) == 0 {
		return nil, notFound("case", caseCode)
	}
	if len(matches) > 1 {
		// Duplicates from a raced sequence claim; serve the oldest and
		// flag the rest for reconciliation
		s.logger.Warn("multiple cases share a case code",
			zap.String("case_code", caseCode),
			zap.Int("count", len(matches)))
	}
	return s.buildDetail(ctx, &matches[0])
}

// buildDetail joins one case with its related entities. A reference that
// points at nothing is absorbed here: the section comes back nil and the
// rest of the detail still renders.
func (s *CaseService) buildDetail(ctx context.Context, c *domain.ServiceCase) (*domain.ServiceCaseDetail, error) {
	now := s.now()
	detail := &domain.ServiceCaseDetail{Case: mapper.ToCaseDTO(c)}

	if c.WarrantyID != "" {
		warranty, err := s.store.GetWarranty(ctx, c.WarrantyID)
		if err != nil {
			return nil, fmt.Errorf("failed to get warranty: %w", err)
		}
		if warranty != nil {
			dto := mapper.ToWarrantyDTO(warranty, now)
			detail.Warranty = &dto
		}
	}

	// The product comes from the case directly, or transitively through
	// the warranty
	productID := c.ProductID
	if productID == "" && detail.Warranty != nil {
		productID = detail.Warranty.ProductID
	}

	if productID != "" {
		product, err := s.store.GetProduct(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("failed to get product: %w", err)
		}
		if product != nil {
			warranties, err := s.store.WarrantiesByProduct(ctx, product.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to list warranties: %w", err)
			}
			companyName := ""
			if product.CompanyID != "" {
				company, err := s.store.GetCompany(ctx, product.CompanyID)
				if err != nil {
					return nil, fmt.Errorf("failed to get company: %w", err)
				}
				if company != nil {
					companyName = company.Name
					companyDTO := mapper.ToCompanyDTO(company)
					detail.Company = &companyDTO
				}
			}
			productDTO := mapper.ToProductDTO(product, companyName, mapper.LatestExpiry(warranties), now)
			detail.Product = &productDTO
		}
	}

	if c.CaseCode != "" {
		rows, err := s.store.ListParts(ctx, c.CaseCode)
		if err != nil {
			return nil, fmt.Errorf("failed to list parts: %w", err)
		}
		detail.Parts = make([]domain.ServicePartDTO, len(rows))
		for i := range rows {
			detail.Parts[i] = mapper.ToPartDTO(&rows[i])
		}
	}

	return detail, nil
}

// Create opens a service case: claims the next case code for the type
// prefix, persists the case, then replaces its parts. A raced sequence
// claim surfaces as ErrDuplicateCaseCode; the caller retries with a fresh
// read.
func (s *CaseService) Create(ctx context.Context, req *domain.CreateCaseRequest) (*domain.ServiceCaseDTO, error) {
	c := &domain.ServiceCase{
		Type:           domain.ServiceType(req.Type),
		ProductID:      req.ProductID,
		WarrantyID:     req.WarrantyID,
		Description:    req.Description,
		TechnicianName: req.TechnicianName,
		TechnicianIDs:  req.TechnicianIDs,
		Status:         req.Status,
	}
	if c.Status == "" {
		c.Status = domain.CaseStatusPending
	}

	if err := s.applyTimes(c, req.EntryTime, req.ExitTime); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, c); err != nil {
		return nil, err
	}

	code, err := s.seq.NextCode(ctx, string(c.Type))
	if err != nil {
		return nil, err
	}
	c.CaseCode = code

	if err := s.store.CreateCase(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create case: %w", err)
	}

	// The linked-record backend cannot lock its sequence read; a
	// concurrent creator may have claimed the same code. Detect it after
	// the write and surface the conflict.
	matches, err := s.store.FindCasesByCode(ctx, c.CaseCode)
	if err == nil && len(matches) > 1 {
		s.logger.Warn("case code claimed concurrently",
			zap.String("case_code", c.CaseCode),
			zap.Int("count", len(matches)))
		return nil, fmt.Errorf("case code %s: %w", c.CaseCode, domain.ErrDuplicateCaseCode)
	}

	s.logger.Info("case created",
		zap.String("case_id", c.ID),
		zap.String("case_code", c.CaseCode),
		zap.String("type", string(c.Type)))

	if len(req.Parts) > 0 {
		if err := s.parts.Replace(ctx, c.CaseCode, req.Parts); err != nil {
			return nil, err
		}
	}

	dto := mapper.ToCaseDTO(c)
	return &dto, nil
}

// Update applies a partial update; nil fields stay untouched. A non-nil
// Parts slice replaces the case's whole part set, empty slice included.
func (s *CaseService) Update(ctx context.Context, id string, req *domain.UpdateCaseRequest) (*domain.ServiceCaseDetail, error) {
	c, err := s.store.GetCase(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	if c == nil {
		return nil, notFound("case", id)
	}

	if req.ProductID != nil {
		c.ProductID = *req.ProductID
	}
	if req.WarrantyID != nil {
		c.WarrantyID = *req.WarrantyID
	}
	if req.EntryTime != nil {
		t, err := domain.ParseDate(*req.EntryTime)
		if err != nil {
			return nil, invalid("invalid entry time %q", *req.EntryTime)
		}
		c.EntryTime = &t
	}
	if req.ExitTime != nil {
		t, err := domain.ParseDate(*req.ExitTime)
		if err != nil {
			return nil, invalid("invalid exit time %q", *req.ExitTime)
		}
		c.ExitTime = &t
	}
	if c.EntryTime != nil && c.ExitTime != nil && c.ExitTime.Before(*c.EntryTime) {
		return nil, invalid("exit time before entry time")
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.TechnicianName != nil {
		c.TechnicianName = *req.TechnicianName
	}
	if req.TechnicianIDs != nil {
		c.TechnicianIDs = *req.TechnicianIDs
	}
	if req.Status != nil {
		c.Status = *req.Status
	}

	if err := s.checkReferences(ctx, c); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCase(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update case: %w", err)
	}

	if req.Parts != nil {
		if err := s.parts.Replace(ctx, c.CaseCode, *req.Parts); err != nil {
			return nil, err
		}
	}

	return s.buildDetail(ctx, c)
}

func (s *CaseService) applyTimes(c *domain.ServiceCase, entry, exit string) error {
	if entry != "" {
		t, err := domain.ParseDate(entry)
		if err != nil {
			return invalid("invalid entry time %q", entry)
		}
		c.EntryTime = &t
	}
	if exit != "" {
		t, err := domain.ParseDate(exit)
		if err != nil {
			return invalid("invalid exit time %q", exit)
		}
		c.ExitTime = &t
	}
	if c.EntryTime != nil && c.ExitTime != nil && c.ExitTime.Before(*c.EntryTime) {
		return invalid("exit time before entry time")
	}
	return nil
}

// checkReferences validates writes only: referenced records must exist at
// write time even though reads tolerate them disappearing later
func (s *CaseService) checkReferences(ctx context.Context, c *domain.ServiceCase) error {
	if c.ProductID != "" {
		product, err := s.store.GetProduct(ctx, c.ProductID)
		if err != nil {
			return fmt.Errorf("failed to get product: %w", err)
		}
		if product == nil {
			return invalid("product %s does not exist", c.ProductID)
		}
	}
	if c.WarrantyID != "" {
		warranty, err := s.store.GetWarranty(ctx, c.WarrantyID)
		if err != nil {
			return fmt.Errorf("failed to get warranty: %w", err)
		}
		if warranty == nil {
			return invalid("warranty %s does not exist", c.WarrantyID)
		}
	}
	return nil
}

// IsConflict reports whether the error is the recoverable duplicate-code
// conflict
func IsConflict(err error) bool {
	return errors.Is(err, domain.ErrDuplicateCaseCode)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/mapper"
	"github.com/coretrack/warranty-api/internal/sequence"
	"github.com/coretrack/warranty-api/internal/store"
	"go.uber.org/zap"
)

type WarrantyService struct {
	store  store.Store
	seq    *sequence.Generator
	logger *zap.Logger
	now    func() time.Time
}

func NewWarrantyService(st store.Store, seq *sequence.Generator, logger *zap.Logger) *WarrantyService {
	return &WarrantyService{store: st, seq: seq, logger: logger, now: time.Now}
}

// ListByProduct returns a product's warranties with derived status
func (s *WarrantyService) ListByProduct(ctx context.Context, productID string) ([]domain.WarrantyDTO, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, notFound("product", productID)
	}

	warranties, err := s.store.WarrantiesByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list warranties: %w", err)
	}

	now := s.now()
	dtos := make([]domain.WarrantyDTO, len(warranties))
	for i := range warranties {
		dtos[i] = mapper.ToWarrantyDTO(&warranties[i], now)
		dtos[i].ProductName = product.Name
		dtos[i].SerialNumber = product.SerialNumber
	}
	return dtos, nil
}

// Create registers a coverage window and bulk-generates its planned
// maintenance visits: PlannedMaintenances pending PM cases spread at
// whole-month steps across the window. Each generated case claims its own
// case code from the sequence.
func (s *WarrantyService) Create(ctx context.Context, req *domain.CreateWarrantyRequest) (*domain.WarrantyDTO, error) {
	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		return nil, invalid("invalid start date %q", req.StartDate)
	}
	end, err := domain.ParseDate(req.EndDate)
	if err != nil {
		return nil, invalid("invalid end date %q", req.EndDate)
	}
	if end.Before(start) {
		return nil, invalid("end date must not precede start date")
	}

	product, err := s.store.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, invalid("product %s does not exist", req.ProductID)
	}

	warranty := &domain.Warranty{
		ProductID:           req.ProductID,
		StartDate:           start,
		EndDate:             end,
		Type:                req.Type,
		Notes:               req.Notes,
		PlannedMaintenances: req.PlannedMaintenances,
	}
	if err := s.store.CreateWarranty(ctx, warranty); err != nil {
		return nil, fmt.Errorf("failed to create warranty: %w", err)
	}

	s.logger.Info("warranty created",
		zap.String("warranty_id", warranty.ID),
		zap.String("product_id", warranty.ProductID),
		zap.Int("planned_maintenances", warranty.PlannedMaintenances))

	if warranty.PlannedMaintenances > 0 {
		if err := s.generateMaintenanceCases(ctx, warranty); err != nil {
			// The warranty itself is committed; the caller re-runs
			// generation or creates the missing visits by hand
			return nil, fmt.Errorf("warranty %s created but maintenance generation failed: %w", warranty.ID, err)
		}
	}

	dto := mapper.ToWarrantyDTO(warranty, s.now())
	dto.ProductName = product.Name
	dto.SerialNumber = product.SerialNumber
	return &dto, nil
}

// generateMaintenanceCases schedules the visits at month granularity: the
// window length in months divided into PlannedMaintenances equal steps of
// at least one month, the first visit one step after the start.
func (s *WarrantyService) generateMaintenanceCases(ctx context.Context, w *domain.Warranty) error {
	months := monthsBetween(w.StartDate, w.EndDate)
	step := months / w.PlannedMaintenances
	if step < 1 {
		step = 1
	}

	for i := 1; i <= w.PlannedMaintenances; i++ {
		code, err := s.seq.NextCode(ctx, string(domain.ServiceTypePM))
		if err != nil {
			return err
		}
		due := w.StartDate.AddDate(0, i*step, 0)
		if due.After(w.EndDate) {
			due = w.EndDate
		}
		c := &domain.ServiceCase{
			CaseCode:    code,
			Type:        domain.ServiceTypePM,
			ProductID:   w.ProductID,
			WarrantyID:  w.ID,
			EntryTime:   &due,
			Description: fmt.Sprintf("Planned maintenance %d of %d", i, w.PlannedMaintenances),
			Status:      domain.CaseStatusPending,
		}
		if err := s.store.CreateCase(ctx, c); err != nil {
			return fmt.Errorf("failed to create maintenance case %d of %d: %w", i, w.PlannedMaintenances, err)
		}
	}

	s.logger.Info("planned maintenance cases generated",
		zap.String("warranty_id", w.ID),
		zap.Int("count", w.PlannedMaintenances))
	return nil
}

func monthsBetween(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

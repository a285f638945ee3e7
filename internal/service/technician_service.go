package service

import (
	"context"
	"fmt"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/store"
	"go.uber.org/zap"
)

type TechnicianService struct {
	store  store.Store
	logger *zap.Logger
}

func NewTechnicianService(st store.Store, logger *zap.Logger) *TechnicianService {
	return &TechnicianService{store: st, logger: logger}
}

func (s *TechnicianService) List(ctx context.Context) ([]domain.Technician, error) {
	techs, err := s.store.ListTechnicians(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list technicians: %w", err)
	}
	return techs, nil
}

func (s *TechnicianService) Create(ctx context.Context, req *domain.CreateTechnicianRequest) (*domain.Technician, error) {
	tech := &domain.Technician{
		Name:     req.Name,
		Position: req.Position,
		Email:    req.Email,
		Phone:    req.Phone,
		Status:   domain.TechnicianStatusActive,
	}
	if err := s.store.CreateTechnician(ctx, tech); err != nil {
		return nil, fmt.Errorf("failed to create technician: %w", err)
	}

	s.logger.Info("technician created",
		zap.String("technician_id", tech.ID),
		zap.String("name", tech.Name))
	return tech, nil
}

// Delete removes a technician. Cases keep their technician id lists as-is;
// a removed technician renders as a dangling reference, which readers
// tolerate.
func (s *TechnicianService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTechnician(ctx, id); err != nil {
		return fmt.Errorf("failed to delete technician: %w", err)
	}
	s.logger.Info("technician deleted", zap.String("technician_id", id))
	return nil
}

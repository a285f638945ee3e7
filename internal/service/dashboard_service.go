package service

import (
	"context"
	"fmt"

	"github.com/coretrack/warranty-api/internal/aggregate"
	"github.com/coretrack/warranty-api/internal/domain"
	"go.uber.org/zap"
)

// DashboardService fronts the aggregation engine. Figures are derived on
// every call so warranty classification always reflects the current clock
// and the latest writes.
type DashboardService struct {
	engine *aggregate.Engine
	logger *zap.Logger
}

func NewDashboardService(engine *aggregate.Engine, logger *zap.Logger) *DashboardService {
	return &DashboardService{engine: engine, logger: logger}
}

func (s *DashboardService) Stats(ctx context.Context, filter domain.StatsFilter) (*domain.DashboardStats, error) {
	stats, err := s.engine.DashboardStats(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dashboard stats: %w", err)
	}
	return stats, nil
}

func (s *DashboardService) PartsSummary(ctx context.Context, filter domain.StatsFilter) (*domain.PartsSummary, error) {
	summary, err := s.engine.PartsSummary(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to compute parts summary: %w", err)
	}
	return summary, nil
}

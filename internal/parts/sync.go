// Package parts maintains the spare-part rows attached to a service case.
// Parts have no partial-update operation: every write replaces the case's
// full set, so callers never manipulate raw case-code linkage themselves.
package parts

import (
	"context"
	"fmt"
	"sync"

	"github.com/coretrack/warranty-api/internal/domain"
	"go.uber.org/zap"
)

// Store is the slice of the backend contract the synchronizer needs
type Store interface {
	ListParts(ctx context.Context, caseCode string) ([]domain.ServicePart, error)
	CreateParts(ctx context.Context, parts []domain.ServicePart) error
	DeleteParts(ctx context.Context, ids []string) error
	PartsBatchLimit() int
}

// Synchronizer replaces a case's part set wholesale: delete everything,
// then recreate. Batches run sequentially because the linked-record
// backend caps records per request and rate-limits the whole process.
type Synchronizer struct {
	store  Store
	logger *zap.Logger

	// mu guards locks; one mutex per case code so delete/recreate phases
	// for the same case never interleave across callers
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSynchronizer creates a parts synchronizer over the given backend
func NewSynchronizer(store Store, logger *zap.Logger) *Synchronizer {
	return &Synchronizer{
		store:  store,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Synchronizer) lockFor(caseCode string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[caseCode]
	if !ok {
		l = &sync.Mutex{}
		s.locks[caseCode] = l
	}
	return l
}

// Replace swaps the case's part rows for the given set. An empty set is a
// valid replacement and clears the case's parts.
//
// A failure mid-way leaves the case's parts in an indeterminate state; the
// returned error wraps ErrPartsSyncFailed so callers know to reconcile
// manually instead of retrying blindly -- re-running after a partial
// delete risks double-creating rows.
func (s *Synchronizer) Replace(ctx context.Context, caseCode string, newParts []domain.PartInput) error {
	if caseCode == "" {
		return fmt.Errorf("case code required: %w", domain.ErrValidation)
	}

	lock := s.lockFor(caseCode)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.store.ListParts(ctx, caseCode)
	if err != nil {
		return fmt.Errorf("listing parts for %s: %w", caseCode, err)
	}

	batch := s.store.PartsBatchLimit()

	ids := make([]string, len(existing))
	for i, p := range existing {
		ids[i] = p.ID
	}
	for start := 0; start < len(ids); start += batch {
		end := min(start+batch, len(ids))
		if err := s.store.DeleteParts(ctx, ids[start:end]); err != nil {
			s.logger.Error("parts delete phase failed",
				zap.String("case_code", caseCode),
				zap.Int("deleted", start),
				zap.Int("total", len(ids)),
				zap.Error(err))
			return fmt.Errorf("deleting parts for %s: %w: %v", caseCode, domain.ErrPartsSyncFailed, err)
		}
	}

	if len(newParts) == 0 {
		return nil
	}

	rows := make([]domain.ServicePart, len(newParts))
	for i, p := range newParts {
		quantity := p.Quantity
		if quantity < 1 {
			quantity = 1
		}
		rows[i] = domain.ServicePart{
			CaseCode:   caseCode,
			PartNumber: p.PartNumber,
			Details:    p.Details,
			Quantity:   quantity,
		}
	}
	for start := 0; start < len(rows); start += batch {
		end := min(start+batch, len(rows))
		if err := s.store.CreateParts(ctx, rows[start:end]); err != nil {
			s.logger.Error("parts create phase failed",
				zap.String("case_code", caseCode),
				zap.Int("created", start),
				zap.Int("total", len(rows)),
				zap.Error(err))
			return fmt.Errorf("creating parts for %s: %w: %v", caseCode, domain.ErrPartsSyncFailed, err)
		}
	}

	return nil
}

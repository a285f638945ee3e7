package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CoverageSyncJobName is the name of the nightly coverage repair job
const CoverageSyncJobName = "coverage_sync"

// CoverageSyncer recomputes the denormalized warranty-status and
// nearest-expiry fields for every product. The linked-record store
// implements it; the relational backend derives these in SQL and needs no
// repair.
type CoverageSyncer interface {
	SyncAllCoverage(ctx context.Context) (updated int, err error)
}

// CoverageSyncJob keeps the denormalized coverage fields truthful as time
// passes: a product crosses from active to near-expiry without any write
// touching it, so the stored fields drift until repaired.
type CoverageSyncJob struct {
	syncer  CoverageSyncer
	logger  *zap.Logger
	timeout time.Duration
}

func NewCoverageSyncJob(syncer CoverageSyncer, logger *zap.Logger, timeout time.Duration) *CoverageSyncJob {
	return &CoverageSyncJob{syncer: syncer, logger: logger, timeout: timeout}
}

// Run executes one full repair pass. Called by the scheduler.
func (j *CoverageSyncJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	updated, err := j.syncer.SyncAllCoverage(ctx)
	if err != nil {
		j.logger.Error("coverage sync failed",
			zap.Error(err),
			zap.Int("updated", updated),
			zap.Duration("duration", time.Since(start)))
		return
	}
	j.logger.Info("coverage sync finished",
		zap.Int("updated", updated),
		zap.Duration("duration", time.Since(start)))
}

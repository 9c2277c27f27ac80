package usecase

import (
	"context"

	"github.com/semmidev/argus/internal/domain"
)

const syncUnit = "sync"

// SyncPipeline runs the single incremental mirror pass of the mounted
// snapshot to the bucket. There is one sync unit per job, so a failure
// here immediately taints the aggregate, but never aborts the job.
type SyncPipeline struct {
	replicator domain.Replicator
	spec       domain.SyncSpec
	log        Logger
}

func NewSyncPipeline(replicator domain.Replicator, spec domain.SyncSpec, log Logger) *SyncPipeline {
	return &SyncPipeline{replicator: replicator, spec: spec, log: log}
}

func (p *SyncPipeline) Run(ctx context.Context) domain.UnitOutcome {
	p.log.Infof("Syncing %s to %s (threads=%d, keep=%dd)",
		p.spec.Source, p.spec.Destination, p.spec.Threads, p.spec.KeepDays)

	if err := p.replicator.Sync(ctx, p.spec); err != nil {
		p.log.Errorf("Sync failed: %v", err)
		return domain.Failed(syncUnit, err)
	}

	p.log.Infof("Sync completed")
	return domain.Succeeded(syncUnit)
}

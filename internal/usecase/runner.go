package usecase

import (
	"context"
	"time"

	"github.com/semmidev/argus/internal/domain"
)

// SnapshotSource locates, mounts and unmounts the dated snapshot a
// files job works from.
type SnapshotSource interface {
	Latest(ctx context.Context, day time.Time) (string, error)
	Mount(ctx context.Context, id string) (*domain.MountedSnapshot, error)
	Unmount(ctx context.Context, snap *domain.MountedSnapshot) error
}

type syncRunner interface {
	Run(ctx context.Context) domain.UnitOutcome
}

type batchRunner interface {
	Run(ctx context.Context) []domain.UnitOutcome
}

// AcquireFunc obtains the job lock and returns its release function.
type AcquireFunc func() (release func() error, err error)

// Runner owns one job execution: lock, pipelines in order, aggregate
// result, guaranteed cleanup. Cleanup unmounts before releasing the
// lock and tolerates being reached from any phase, including ones where
// nothing was mounted yet.
type Runner struct {
	Kind      domain.JobKind
	Log       Logger
	Acquire   AcquireFunc
	Snapshots SnapshotSource
	Sync      syncRunner

	Archive        batchRunner
	ArchiveEnabled bool
	ArchiveDay     time.Weekday

	Dump batchRunner

	Now func() time.Time
}

// Run executes the job. The returned error is fatal-class (lock
// contention, snapshot failure); per-unit failures only show in the
// result. Lock contention returns before any cleanup is registered,
// because the lock is not ours to release.
func (r *Runner) Run(ctx context.Context) (domain.JobResult, error) {
	var result domain.JobResult
	started := time.Now()

	release, err := r.Acquire()
	if err != nil {
		r.Log.Errorf("Could not acquire job lock: %v", err)
		return result, err
	}

	var mounted *domain.MountedSnapshot
	defer func() {
		if mounted != nil {
			if err := r.Snapshots.Unmount(context.Background(), mounted); err != nil {
				r.Log.Errorf("Cleanup: unmount failed: %v", err)
			}
		}
		if err := release(); err != nil {
			r.Log.Errorf("Cleanup: lock release failed: %v", err)
		}
	}()

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	switch r.Kind {
	case domain.JobFiles:
		id, err := r.Snapshots.Latest(ctx, now())
		if err != nil {
			r.Log.Errorf("Snapshot discovery failed: %v", err)
			return result, err
		}
		r.Log.Infof("Selected snapshot %s", id)

		mounted, err = r.Snapshots.Mount(ctx, id)
		if err != nil {
			r.Log.Errorf("Snapshot mount failed: %v", err)
			return result, err
		}
		r.Log.Infof("Snapshot mounted at %s", mounted.MountPoint)

		result.Add(r.Sync.Run(ctx))

		if r.ArchiveEnabled && now().Weekday() == r.ArchiveDay {
			result.Add(r.Archive.Run(ctx)...)
		}

	case domain.JobDatabase:
		result.Add(r.Dump.Run(ctx)...)
	}

	elapsed := time.Since(started).Round(time.Millisecond)
	if failed := result.Failed(); len(failed) > 0 {
		r.Log.Errorf("%d of %d unit(s) failed in %s", len(failed), len(result.Outcomes), elapsed)
	} else {
		r.Log.Infof("All %d unit(s) completed successfully in %s", len(result.Outcomes), elapsed)
	}

	return result, nil
}

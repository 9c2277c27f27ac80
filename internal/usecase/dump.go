package usecase

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/semmidev/argus/internal/domain"
)

// DumpStore is the local retained dump directory.
type DumpStore interface {
	Path(filename string) string
	OldFiles(ctx context.Context, cutoff time.Time) ([]string, error)
	Remove(filename string) error
}

// DumpPipeline dumps every user database serially, then prunes old dump
// files — but only when every dump succeeded, so a bad night never eats
// the last good copies. Prune problems are logged, never fatal.
type DumpPipeline struct {
	db            domain.Database
	store         DumpStore
	compressor    domain.Compressor
	retentionDays int
	log           Logger
	now           func() time.Time
}

func NewDumpPipeline(
	db domain.Database,
	store DumpStore,
	compressor domain.Compressor,
	retentionDays int,
	log Logger,
) *DumpPipeline {
	return &DumpPipeline{
		db:            db,
		store:         store,
		compressor:    compressor,
		retentionDays: retentionDays,
		log:           log,
		now:           time.Now,
	}
}

func (p *DumpPipeline) Run(ctx context.Context) []domain.UnitOutcome {
	names, err := p.db.ListDatabases(ctx)
	if err != nil {
		p.log.Errorf("Database enumeration failed: %v", err)
		return []domain.UnitOutcome{domain.Failed("enumerate", err)}
	}

	start := p.now()
	date := start.Format("2006-01-02")
	p.log.Infof("Dumping %d database(s)", len(names))

	outcomes := make([]domain.UnitOutcome, 0, len(names))
	for _, name := range names {
		outcomes = append(outcomes, p.dumpOne(ctx, name, date))
	}

	for _, o := range outcomes {
		if !o.OK {
			p.log.Errorf("Skipping dump retention: %d database(s) failed", len(failedOf(outcomes)))
			return outcomes
		}
	}

	p.prune(ctx, start)
	return outcomes
}

func (p *DumpPipeline) dumpOne(ctx context.Context, name, date string) domain.UnitOutcome {
	rawPath := p.store.Path(fmt.Sprintf("%s-%s.sql", name, date))
	finalPath := rawPath + ".gz"

	p.log.Infof("[%s] Dumping to %s...", name, finalPath)
	if err := p.db.Dump(ctx, name, rawPath); err != nil {
		p.log.Errorf("[%s] Dump failed: %v", name, err)
		os.Remove(rawPath)
		return domain.Failed(name, err)
	}
	defer os.Remove(rawPath)

	if err := p.compressor.Compress(rawPath, finalPath); err != nil {
		p.log.Errorf("[%s] Compression failed: %v", name, err)
		os.Remove(finalPath)
		return domain.Failed(name, err)
	}

	p.log.Infof("[%s] Dump completed", name)
	return domain.Succeeded(name)
}

func (p *DumpPipeline) prune(ctx context.Context, start time.Time) {
	cutoff := start.AddDate(0, 0, -p.retentionDays)

	old, err := p.store.OldFiles(ctx, cutoff)
	if err != nil {
		p.log.Errorf("Dump retention listing failed: %v", err)
		return
	}

	for _, filename := range old {
		if err := p.store.Remove(filename); err != nil {
			p.log.Errorf("Failed to prune old dump %s: %v", filename, err)
			continue
		}
		p.log.Infof("Pruned old dump %s", filename)
	}
}

func failedOf(outcomes []domain.UnitOutcome) []domain.UnitOutcome {
	var failed []domain.UnitOutcome
	for _, o := range outcomes {
		if !o.OK {
			failed = append(failed, o)
		}
	}
	return failed
}

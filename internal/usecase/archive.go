package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/semmidev/argus/internal/domain"
)

var archiveStampPattern = regexp.MustCompile(`(\d{8}_\d{6})`)

// ArchivePipeline produces one compressed archive per vhost directory
// under the mounted snapshot's unit root and uploads each to every
// enabled target. One unit's failure never blocks the others. After a
// fully clean pass it prunes archives older than the retention window
// from every target, by the timestamp embedded in the remote name.
type ArchivePipeline struct {
	root          string
	exclude       map[string]struct{}
	targets       []UploadTarget
	compressor    domain.Compressor
	retentionDays int
	log           Logger
	now           func() time.Time
}

func NewArchivePipeline(
	root string,
	exclude []string,
	targets []UploadTarget,
	compressor domain.Compressor,
	retentionDays int,
	log Logger,
) *ArchivePipeline {
	excluded := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		excluded[name] = struct{}{}
	}
	return &ArchivePipeline{
		root:          root,
		exclude:       excluded,
		targets:       targets,
		compressor:    compressor,
		retentionDays: retentionDays,
		log:           log,
		now:           time.Now,
	}
}

// DiscoverUnits lists the immediate subdirectories of the unit root,
// dropping excluded names such as the health-check placeholder vhost.
func (p *ArchivePipeline) DiscoverUnits() ([]string, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read unit root %s: %w", p.root, err)
	}

	var units []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, skip := p.exclude[entry.Name()]; skip {
			continue
		}
		units = append(units, entry.Name())
	}
	return units, nil
}

func (p *ArchivePipeline) Run(ctx context.Context) []domain.UnitOutcome {
	units, err := p.DiscoverUnits()
	if err != nil {
		p.log.Errorf("Archive discovery failed: %v", err)
		return []domain.UnitOutcome{domain.Failed("archive", err)}
	}

	p.log.Infof("Archiving %d unit(s) under %s", len(units), p.root)

	stamp := p.now().Format("20060102_150405")
	outcomes := make([]domain.UnitOutcome, 0, len(units))
	for _, unit := range units {
		outcomes = append(outcomes, p.archiveUnit(ctx, unit, stamp))
	}

	for _, o := range outcomes {
		if !o.OK {
			p.log.Errorf("Skipping archive retention: %d unit(s) failed", len(failedOf(outcomes)))
			return outcomes
		}
	}

	if p.retentionDays > 0 {
		p.prune(ctx)
	}
	return outcomes
}

// prune deletes archives older than the retention window from every
// target. Like dump retention it only runs after a fully clean pass,
// and its own failures are logged, never fatal. Remote names without a
// parseable timestamp are left alone.
func (p *ArchivePipeline) prune(ctx context.Context) {
	cutoff := p.now().AddDate(0, 0, -p.retentionDays)

	for _, target := range p.targets {
		names, err := target.Storage.List(ctx)
		if err != nil {
			p.log.Errorf("Archive retention listing failed for %s: %v", target.Name, err)
			continue
		}

		for _, name := range names {
			match := archiveStampPattern.FindString(name)
			if match == "" {
				continue
			}
			stamp, err := time.Parse("20060102_150405", match)
			if err != nil || !stamp.Before(cutoff) {
				continue
			}
			if err := target.Storage.Delete(ctx, name); err != nil {
				p.log.Errorf("Failed to prune old archive %s from %s: %v", name, target.Name, err)
				continue
			}
			p.log.Infof("Pruned old archive %s from %s", name, target.Name)
		}
	}
}

func (p *ArchivePipeline) archiveUnit(ctx context.Context, unit, stamp string) domain.UnitOutcome {
	tmpFile, err := os.CreateTemp("", "argus-archive-*.tar.gz")
	if err != nil {
		p.log.Errorf("[%s] Failed to create temp archive: %v", unit, err)
		return domain.Failed(unit, err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	p.log.Infof("[%s] Creating archive...", unit)
	if err := p.compressor.ArchiveDir(filepath.Join(p.root, unit), tmpPath); err != nil {
		p.log.Errorf("[%s] Archive creation failed: %v", unit, err)
		return domain.Failed(unit, err)
	}

	remoteName := fmt.Sprintf("%s-%s.tar.gz", unit, stamp)
	failed := false
	for _, target := range p.targets {
		p.log.Infof("[%s] Uploading %s to %s...", unit, remoteName, target.Name)
		if err := target.Storage.Upload(ctx, tmpPath, remoteName); err != nil {
			p.log.Errorf("[%s] Upload to %s failed: %v", unit, target.Name, err)
			failed = true
			continue
		}
		p.log.Infof("[%s] Uploaded to %s", unit, target.Name)
	}

	if failed {
		return domain.UnitOutcome{Unit: unit, Detail: "one or more uploads failed"}
	}
	return domain.Succeeded(unit)
}

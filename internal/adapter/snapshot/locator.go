// Package snapshot finds the newest dated snapshot of the hosting
// filesystem in the bucket listing and mounts it read-only at a scratch
// mount point for the sync and archive passes.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/semmidev/argus/internal/domain"
)

// ObjectLister is the slice of the bucket client the locator needs.
type ObjectLister interface {
	ListPrefix(ctx context.Context, prefix string) ([]string, error)
}

type Locator struct {
	lister        ObjectLister
	marker        string
	mountPoint    string
	sentinel      string
	mountBinary   string
	unmountBinary string
}

func NewLocator(lister ObjectLister, marker, mountPoint, sentinel, mountBinary, unmountBinary string) *Locator {
	return &Locator{
		lister:        lister,
		marker:        marker,
		mountPoint:    mountPoint,
		sentinel:      sentinel,
		mountBinary:   mountBinary,
		unmountBinary: unmountBinary,
	}
}

// Latest returns the identifier of the newest snapshot carrying the
// given day's date.
func (l *Locator) Latest(ctx context.Context, day time.Time) (string, error) {
	prefix := l.marker + day.Format("2006-01-02")
	candidates, err := l.lister.ListPrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to list snapshots for %s: %w", prefix, err)
	}
	id, err := selectLatest(candidates)
	if err != nil {
		return "", fmt.Errorf("no snapshot found for %s: %w", prefix, err)
	}
	return id, nil
}

// selectLatest picks the last candidate in listing order. The bucket
// listing returns keys in ascending key order, so for same-day
// timestamped names the last entry is also the newest.
func selectLatest(candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("empty snapshot listing")
	}
	return candidates[len(candidates)-1], nil
}

// Mount mounts the snapshot and validates it by the sentinel file. A
// missing sentinel means the mount is unusable and the job must abort.
func (l *Locator) Mount(ctx context.Context, id string) (*domain.MountedSnapshot, error) {
	if err := os.MkdirAll(l.mountPoint, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mount point %s: %w", l.mountPoint, err)
	}

	cmd := exec.CommandContext(ctx, l.mountBinary, id, l.mountPoint)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("failed to mount snapshot %s: %w, output: %s", id, err, string(output))
	}

	sentinelPath := filepath.Join(l.mountPoint, l.sentinel)
	if _, err := os.Stat(sentinelPath); err != nil {
		return nil, fmt.Errorf("snapshot %s mounted but sentinel %s is missing: %w", id, l.sentinel, err)
	}

	return &domain.MountedSnapshot{ID: id, MountPoint: l.mountPoint}, nil
}

// Unmount detaches a previously validated snapshot. Safe to repeat; the
// second and later calls are no-ops.
func (l *Locator) Unmount(ctx context.Context, snap *domain.MountedSnapshot) error {
	if snap == nil || snap.Unmounted {
		return nil
	}
	snap.Unmounted = true

	cmd := exec.CommandContext(ctx, l.unmountBinary, snap.MountPoint)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to unmount %s: %w, output: %s", snap.MountPoint, err, string(output))
	}
	return nil
}

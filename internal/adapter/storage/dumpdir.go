package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var dumpDatePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)

// DumpDir is the local retained directory database dumps land in.
// Retention works off the date embedded in the file name, not mtime, so
// restored or re-synced files keep their original age.
type DumpDir struct {
	basePath string
}

func NewDumpDir(basePath string) (*DumpDir, error) {
	if err := os.MkdirAll(basePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create dump directory: %w", err)
	}
	return &DumpDir{basePath: basePath}, nil
}

func (d *DumpDir) Path(filename string) string {
	return filepath.Join(d.basePath, filename)
}

func (d *DumpDir) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

// OldFiles returns dump files whose embedded date is before the cutoff.
// Files without a parseable date are skipped, never deleted.
func (d *DumpDir) OldFiles(ctx context.Context, cutoff time.Time) ([]string, error) {
	files, err := d.List(ctx)
	if err != nil {
		return nil, err
	}

	var old []string
	for _, filename := range files {
		match := dumpDatePattern.FindString(filename)
		if match == "" {
			continue
		}
		stamp, err := time.Parse("2006-01-02", match)
		if err != nil {
			continue
		}
		if stamp.Before(cutoff) {
			old = append(old, filename)
		}
	}
	return old, nil
}

func (d *DumpDir) Remove(filename string) error {
	if err := os.Remove(filepath.Join(d.basePath, filename)); err != nil {
		return fmt.Errorf("failed to remove dump %s: %w", filename, err)
	}
	return nil
}

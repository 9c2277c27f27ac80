package compressor

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ArchiveDir writes a gzipped tar of sourceDir's subtree to destPath.
// Entry names are relative to sourceDir's parent so the archive unpacks
// into a directory named after the unit. Symlinks are stored as links,
// not followed.
func (g *GzipCompressor) ArchiveDir(sourceDir, destPath string) error {
	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer destFile.Close()

	gzipWriter := gzip.NewWriter(destFile)
	tarWriter := tar.NewWriter(gzipWriter)

	base := filepath.Base(sourceDir)
	walkErr := filepath.WalkDir(sourceDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		link := ""
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}

		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(filepath.Join(base, rel))

		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(tarWriter, file)
		return err
	})
	if walkErr != nil {
		tarWriter.Close()
		gzipWriter.Close()
		return fmt.Errorf("failed to archive %s: %w", sourceDir, walkErr)
	}

	if err := tarWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}

	return nil
}

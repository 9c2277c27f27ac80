package domain

type Compressor interface {
	Compress(sourcePath, destPath string) error
	Decompress(sourcePath, destPath string) error
	ArchiveDir(sourceDir, destPath string) error
}

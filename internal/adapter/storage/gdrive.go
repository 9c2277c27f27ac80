package storage

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// GDriveStorage is an optional secondary archive target backed by a
// Google Drive folder. Auth uses a service-account credentials file;
// the job is unattended, so no interactive flow exists.
type GDriveStorage struct {
	service  *drive.Service
	folderID string
}

func NewGDrive(ctx context.Context, credentialsFile, folderID string) (*GDriveStorage, error) {
	service, err := drive.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GDriveStorage{
		service:  service,
		folderID: folderID,
	}, nil
}

func (g *GDriveStorage) Upload(ctx context.Context, localPath string, remoteName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	meta := &drive.File{
		Name:    remoteName,
		Parents: []string{g.folderID},
	}

	_, err = g.service.Files.Create(meta).
		Media(file).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to upload %s to gdrive: %w", remoteName, err)
	}

	return nil
}

func (g *GDriveStorage) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", g.folderID)

	fileList, err := g.service.Files.List().
		Q(query).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list gdrive files: %w", err)
	}

	var files []string
	for _, file := range fileList.Files {
		files = append(files, file.Name)
	}

	return files, nil
}

func (g *GDriveStorage) Delete(ctx context.Context, remoteName string) error {
	query := fmt.Sprintf("'%s' in parents and name='%s' and trashed=false", g.folderID, remoteName)

	fileList, err := g.service.Files.List().
		Q(query).
		Fields("files(id)").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to find %s on gdrive: %w", remoteName, err)
	}
	if len(fileList.Files) == 0 {
		return fmt.Errorf("file not found on gdrive: %s", remoteName)
	}

	if err := g.service.Files.Delete(fileList.Files[0].Id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete %s from gdrive: %w", remoteName, err)
	}

	return nil
}

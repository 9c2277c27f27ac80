package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/semmidev/argus/internal/domain"
)

// S3Storage talks to the backup bucket with the credentials resolved
// from the parameter store. One instance serves both snapshot-candidate
// listing and archive uploads.
type S3Storage struct {
	client   *s3.Client
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

func NewS3(ctx context.Context, creds domain.CredentialBundle, region string, bucket domain.BucketTarget, prefix string) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.AccessSecret, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)

	return &S3Storage{
		client:   client,
		uploader: s3manager.NewUploader(client),
		bucket:   bucket.BucketName,
		prefix:   prefix,
	}, nil
}

func (s *S3Storage) Upload(ctx context.Context, localPath string, remoteName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	key := path.Join(s.prefix, remoteName)

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", remoteName, err)
	}

	return nil
}

func (s *S3Storage) List(ctx context.Context) ([]string, error) {
	keys, err := s.ListPrefix(ctx, s.prefix)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, key := range keys {
		name := strings.TrimPrefix(strings.TrimPrefix(key, s.prefix), "/")
		if name != "" {
			files = append(files, name)
		}
	}
	return files, nil
}

// ListPrefix returns full object keys under an arbitrary prefix, in the
// order the bucket listing reports them.
func (s *S3Storage) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
		Prefix: &prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list S3 objects: %w", err)
	}

	var keys []string
	for _, obj := range resp.Contents {
		if obj.Key != nil {
			keys = append(keys, *obj.Key)
		}
	}
	return keys, nil
}

func (s *S3Storage) Delete(ctx context.Context, remoteName string) error {
	key := path.Join(s.prefix, remoteName)

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from S3: %w", remoteName, err)
	}

	return nil
}

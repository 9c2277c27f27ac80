package paramstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/semmidev/argus/internal/domain"
)

// Resolver turns the two parameter-store entries into the credential
// bundle and bucket target a job needs. The two fetches fail
// independently so the caller can report both problems at once.
type Resolver struct {
	store      domain.ParameterStore
	keyPath    string
	bucketPath string
}

func NewResolver(store domain.ParameterStore, keyPath, bucketPath string) *Resolver {
	return &Resolver{store: store, keyPath: keyPath, bucketPath: bucketPath}
}

func (r *Resolver) Resolve(ctx context.Context) (domain.CredentialBundle, error) {
	raw, err := r.store.Fetch(ctx, r.keyPath, true)
	if err != nil {
		return domain.CredentialBundle{}, fmt.Errorf("application key: %w", err)
	}

	var payload struct {
		AccessKeyID  string `json:"accessKeyId"`
		AccessSecret string `json:"accessSecret"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return domain.CredentialBundle{}, fmt.Errorf("application key is not valid JSON: %w", err)
	}
	if payload.AccessKeyID == "" || payload.AccessSecret == "" {
		return domain.CredentialBundle{}, fmt.Errorf("application key is missing accessKeyId or accessSecret")
	}

	return domain.CredentialBundle{
		AccessKeyID:  payload.AccessKeyID,
		AccessSecret: payload.AccessSecret,
	}, nil
}

func (r *Resolver) ResolveBucket(ctx context.Context) (domain.BucketTarget, error) {
	raw, err := r.store.Fetch(ctx, r.bucketPath, false)
	if err != nil {
		return domain.BucketTarget{}, fmt.Errorf("bucket name: %w", err)
	}
	name := strings.TrimSpace(raw)
	if name == "" {
		return domain.BucketTarget{}, fmt.Errorf("bucket name parameter %s is empty", r.bucketPath)
	}
	return domain.BucketTarget{BucketName: name}, nil
}

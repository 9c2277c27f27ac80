package domain

import "context"

// CredentialBundle holds the object-store application key for one job run.
// Its fields must never be written to the job log.
type CredentialBundle struct {
	AccessKeyID  string
	AccessSecret string
}

type BucketTarget struct {
	BucketName string
}

// ParameterStore is the narrow view of the remote parameter store:
// fetch one named value, optionally decrypted.
type ParameterStore interface {
	Fetch(ctx context.Context, name string, decrypt bool) (string, error)
}

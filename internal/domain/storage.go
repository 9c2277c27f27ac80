package domain

import "context"

type Storage interface {
	Upload(ctx context.Context, localPath string, remoteName string) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, remoteName string) error
}

// SyncSpec configures one incremental mirror pass of a local tree to a
// remote bucket path. KeepDays controls how long remote-only revisions
// stay visible before the transfer client hides them.
type SyncSpec struct {
	Source      string
	Destination string
	Threads     int
	KeepDays    int
}

// Replicator is the opaque mirroring primitive. It manages its own
// thread pool and retry behavior; callers only see the final error.
type Replicator interface {
	Sync(ctx context.Context, spec SyncSpec) error
}

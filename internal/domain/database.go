package domain

import "context"

type Database interface {
	// ListDatabases enumerates user databases, already filtered of
	// system-reserved names.
	ListDatabases(ctx context.Context) ([]string, error)
	// Dump writes a transaction-consistent dump of one database to
	// outputPath without taking table locks.
	Dump(ctx context.Context, name string, outputPath string) error
}

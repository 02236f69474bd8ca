// Package storage provides the key-value slots the ledger and the theme
// preference are persisted to.
package storage

import "context"

// Store is a string key-value store. Set overwrites; last write wins.
type Store interface {
	// Get returns the value stored under key. found is false when the key
	// has never been written.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

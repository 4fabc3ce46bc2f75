// Package store provides the durable key-value store and the attachment
// metadata cache built on top of it.
package store

import "context"

// KV is a durable string key-value store. Get reports absent keys with
// ok=false and a nil error. Deleting an absent key is not an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

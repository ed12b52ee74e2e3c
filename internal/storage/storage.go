package storage

import "context"

// Archiver persists generated export files to durable storage.
type Archiver interface {
	Store(ctx context.Context, key string, contentType string, data []byte) error
}

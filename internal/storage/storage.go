// Package storage persists caller-uploaded media long enough for the
// identification pipeline to fetch it back by URL.
package storage

import (
	"context"
)

// Upload is the durable result of storing a piece of media: a fetchable URL
// plus the handle needed to delete it later.
type Upload struct {
	URL    string
	Handle string
}

// Storage is the object-storage collaborator. Deletes are best effort; the
// pipeline never depends on their outcome.
type Storage interface {
	Upload(ctx context.Context, data []byte, folder, kind string) (*Upload, error)
	Delete(ctx context.Context, handle, kind string) error
}

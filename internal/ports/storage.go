package ports

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by GetObject and DeleteObject for unknown keys.
var ErrObjectNotFound = errors.New("object not found")

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	// ObjectKey is the key to read the object back with. localfs returns the
	// input key; gdrive returns the Drive file ID.
	ObjectKey string
	Size      int64
}

// Object is an open stored object. The caller closes Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// StorageProvider publishes rendered videos and archives.
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (Object, error)
	DeleteObject(ctx context.Context, objectKey string) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

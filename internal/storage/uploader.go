// Package storage stages uploaded files on local disk and publishes them to
// object storage.
package storage

import (
	"context"
	"errors"
)

var (
	ErrNotImage      = errors.New("file is not a supported image")
	ErrImageTooLarge = errors.New("image dimensions exceed the allowed limit")
)

// Uploader publishes a staged file and returns its public URL. Implementations
// release the local file before returning, whether or not the upload worked.
type Uploader interface {
	Upload(ctx context.Context, file *LocalFile) (string, error)
	// Delete removes a previously published object. URLs the uploader did
	// not produce are ignored.
	Delete(ctx context.Context, url string) error
}

package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LocalFile is an uploaded file staged on local disk. Whoever obtains one
// must call Release on every exit path; Release may be called any number of
// times.
type LocalFile struct {
	Path        string
	Field       string
	Filename    string
	ContentType string

	once sync.Once
}

// Release removes the staged file from disk.
func (f *LocalFile) Release() error {
	if f == nil {
		return nil
	}
	var err error
	f.once.Do(func() {
		if rmErr := os.Remove(f.Path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = rmErr
		}
	})
	return err
}

// Ext returns the lower-cased extension of the original filename.
func (f *LocalFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Filename))
}

// SaveTemp copies a multipart file into dir and returns the staged file.
func SaveTemp(dir, field string, fh *multipart.FileHeader) (*LocalFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	dst, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	file := &LocalFile{
		Path:        dst.Name(),
		Field:       field,
		Filename:    filepath.Base(fh.Filename),
		ContentType: fh.Header.Get("Content-Type"),
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		file.Release()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := dst.Close(); err != nil {
		file.Release()
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	return file, nil
}

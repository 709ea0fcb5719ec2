package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dom/accounts-api/internal/storage"
)

// FakeUploader stands in for the blob host. It keeps uploaded bytes in memory
// and can be told to fail for a given form field.
type FakeUploader struct {
	mu       sync.Mutex
	n        int
	failFor  map[string]bool
	Uploaded map[string][]byte
	Released []string
	Deleted  []string
}

func NewFakeUploader() *FakeUploader {
	return &FakeUploader{
		failFor:  make(map[string]bool),
		Uploaded: make(map[string][]byte),
	}
}

// FailField makes every upload for the given form field fail.
func (f *FakeUploader) FailField(field string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFor[field] = true
}

func (f *FakeUploader) Upload(ctx context.Context, file *storage.LocalFile) (string, error) {
	defer func() {
		file.Release()
		f.mu.Lock()
		f.Released = append(f.Released, file.Path)
		f.mu.Unlock()
	}()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failFor[file.Field] {
		return "", errors.New("blob host unavailable")
	}

	data, err := os.ReadFile(file.Path)
	if err != nil {
		return "", err
	}

	f.n++
	url := fmt.Sprintf("https://cdn.test/%s/%d%s", file.Field, f.n, file.Ext())
	f.Uploaded[url] = data
	return url, nil
}

func (f *FakeUploader) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Deleted = append(f.Deleted, url)
	delete(f.Uploaded, url)
	return nil
}

// Count returns how many files were published.
func (f *FakeUploader) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Uploaded)
}

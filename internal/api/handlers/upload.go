package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/dom/accounts-api/internal/domain"
	"github.com/dom/accounts-api/internal/storage"
)

// UploadOptions controls multipart parsing and temp staging.
type UploadOptions struct {
	TempDir  string
	MaxBytes int64
}

// multipartMemory is how much of a form is held in memory before the rest
// spills to disk.
const multipartMemory = 8 << 20

func (o UploadOptions) parse(w http.ResponseWriter, r *http.Request) error {
	if o.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, o.MaxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Validation("Request body is too large")
		}
		return domain.Validation("Invalid multipart form")
	}
	return nil
}

// stage copies the single file in field to the temp dir. A missing field
// yields nil; more than one file is rejected.
func (o UploadOptions) stage(form *multipart.Form, field string) (*storage.LocalFile, error) {
	if form == nil {
		return nil, nil
	}
	headers := form.File[field]
	switch len(headers) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, domain.Validation("Only one file is allowed for " + field)
	}

	file, err := storage.SaveTemp(o.TempDir, field, headers[0])
	if err != nil {
		return nil, domain.Internal("Failed to store upload", err)
	}
	return file, nil
}

// stageSingle parses a multipart request and stages the one file in field.
func (o UploadOptions) stageSingle(w http.ResponseWriter, r *http.Request, field string) (*storage.LocalFile, error) {
	if err := o.parse(w, r); err != nil {
		return nil, err
	}
	return o.stage(r.MultipartForm, field)
}

func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		r.MultipartForm.RemoveAll()
	}
}

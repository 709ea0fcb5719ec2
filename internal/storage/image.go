package storage

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// ImageUploader accepts only decodable images, shrinks anything larger than
// maxDimension on either side, and hands the result to next. Images whose
// header declares more than maxPixels pixels are rejected before decoding.
type ImageUploader struct {
	next         Uploader
	maxDimension int
	maxPixels    int
}

func NewImageUploader(next Uploader, maxDimension, maxPixels int) *ImageUploader {
	return &ImageUploader{next: next, maxDimension: maxDimension, maxPixels: maxPixels}
}

func (u *ImageUploader) Upload(ctx context.Context, file *LocalFile) (string, error) {
	if err := u.prepare(file); err != nil {
		file.Release()
		return "", err
	}
	return u.next.Upload(ctx, file)
}

func (u *ImageUploader) Delete(ctx context.Context, url string) error {
	return u.next.Delete(ctx, url)
}

func (u *ImageUploader) prepare(file *LocalFile) error {
	if err := u.checkHeader(file.Path); err != nil {
		return err
	}

	img, err := imaging.Open(file.Path, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	bounds := img.Bounds()
	if u.maxDimension <= 0 || (bounds.Dx() <= u.maxDimension && bounds.Dy() <= u.maxDimension) {
		return nil
	}

	resized := imaging.Fit(img, u.maxDimension, u.maxDimension, imaging.Lanczos)

	format, err := imaging.FormatFromFilename(file.Filename)
	if err != nil {
		format = imaging.PNG
		file.Filename = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename)) + ".png"
		file.ContentType = "image/png"
	}

	out, err := os.Create(file.Path)
	if err != nil {
		return fmt.Errorf("rewrite staged image: %w", err)
	}
	if err := imaging.Encode(out, resized, format); err != nil {
		out.Close()
		return fmt.Errorf("encode resized image: %w", err)
	}
	return out.Close()
}

// checkHeader reads only the image header so a small file cannot force a
// huge pixel buffer allocation.
func (u *ImageUploader) checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open staged image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty dimensions", ErrNotImage)
	}
	if u.maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(u.maxPixels) {
		return fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	return nil
}

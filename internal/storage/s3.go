package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
)

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicURL is the prefix clients use to fetch objects, e.g. a CDN host
	// or "<endpoint>/<bucket>".
	PublicURL string
}

// S3Uploader stores files in an S3-compatible bucket (AWS, MinIO).
type S3Uploader struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Uploader builds the S3 client once; callers share the uploader for the
// lifetime of the process.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return NewS3UploaderWithClient(client, cfg.Bucket, cfg.PublicURL), nil
}

func NewS3UploaderWithClient(client *s3.Client, bucket, publicURL string) *S3Uploader {
	return &S3Uploader{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (u *S3Uploader) Upload(ctx context.Context, file *LocalFile) (string, error) {
	defer func() {
		if err := file.Release(); err != nil {
			log.Warn().Err(err).Str("path", file.Path).Msg("failed to remove staged upload")
		}
	}()

	f, err := os.Open(file.Path)
	if err != nil {
		return "", fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	key := u.objectKey(file)
	contentType := file.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(file.Ext())
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	url := u.publicURL + "/" + key
	log.Debug().Str("key", key).Str("url", url).Msg("file uploaded")
	return url, nil
}

func (u *S3Uploader) Delete(ctx context.Context, url string) error {
	key, ok := u.keyFromURL(url)
	if !ok {
		return nil
	}

	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (u *S3Uploader) objectKey(file *LocalFile) string {
	prefix := file.Field
	if prefix == "" {
		prefix = "uploads"
	}
	return prefix + "/" + ksuid.New().String() + file.Ext()
}

func (u *S3Uploader) keyFromURL(url string) (string, bool) {
	if url == "" || !strings.HasPrefix(url, u.publicURL+"/") {
		return "", false
	}
	key := strings.TrimPrefix(url, u.publicURL+"/")
	return key, key != ""
}

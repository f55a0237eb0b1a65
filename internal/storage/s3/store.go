// Package s3 pushes venue media batches to object storage and lists
// folders for post-upload verification.
package s3

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/unichat/venue-ingest/internal/config"
	"github.com/unichat/venue-ingest/internal/domain"
	"github.com/unichat/venue-ingest/internal/pkg/logger"
)

// Client is the subset of the S3 API the store uses. *s3.Client
// satisfies it; tests substitute a stub.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Store uploads media batches to a fixed bucket and verifies folder
// contents by re-listing.
type Store struct {
	client Client
	bucket string
}

// NewClient builds a raw S3 client from application config. Credentials
// fall back to the default AWS chain when no static keys are configured.
func NewClient(ctx context.Context, cfg appconfig.StorageConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg), nil
}

// New builds a Store from application config.
func New(ctx context.Context, cfg appconfig.StorageConfig) (*Store, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("s3 store initialized", "bucket", cfg.Bucket, "region", cfg.Region)
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// NewWithClient builds a Store around an existing client.
func NewWithClient(client Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// Bucket returns the destination bucket name.
func (s *Store) Bucket() string { return s.bucket }

// UploadBatch pushes every item to <folder>/<objectName> in the store's
// bucket. The first per-item failure stops the batch and is reported
// with the object name attached.
func (s *Store) UploadBatch(ctx context.Context, items []domain.MediaItem, folder string) domain.UploadResult {
	for _, item := range items {
		body, err := os.Open(item.LocalPath)
		if err != nil {
			return domain.UploadResult{Err: fmt.Sprintf("open local file: %v", err), File: item.ObjectName()}
		}

		key := folder + "/" + item.ObjectName()
		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        body,
			ContentType: aws.String(contentTypeForExtension(item.Extension)),
			Metadata: map[string]string{
				"media-id":   item.ObjectName(),
				"media-type": "image",
			},
		})
		body.Close()
		if err != nil {
			return domain.UploadResult{Err: err.Error(), File: item.ObjectName()}
		}
	}

	return domain.UploadResult{OK: true}
}

// ListFolder returns the object keys currently under folder/.
func (s *Store) ListFolder(ctx context.Context, folder string) domain.ListResult {
	prefix := strings.TrimSuffix(folder, "/") + "/"

	var objects []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return domain.ListResult{Err: err.Error()}
		}
		for _, obj := range page.Contents {
			objects = append(objects, aws.ToString(obj.Key))
		}
	}

	return domain.ListResult{OK: true, Objects: objects}
}

func contentTypeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "avif":
		return "image/avif"
	default:
		return "application/octet-stream"
	}
}

// Package blob stores attachment content in S3-compatible object storage and
// hands out time-limited signed URLs for retrieval.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Signed URL validity periods. User-initiated downloads get the short window;
// links embedded in outbound email need to survive in a recipient's inbox.
const (
	DownloadURLValidity = 1 * time.Hour
	EmbedURLValidity    = 7 * 24 * time.Hour
)

// Store is the attachment blob storage surface.
type Store interface {
	// Upload writes content under the given object path.
	Upload(ctx context.Context, path, contentType string, content []byte) error
	// SignedURL produces a time-limited URL granting read access to a path.
	SignedURL(path string, validity time.Duration) (string, error)
}

// S3Store implements Store on an S3 bucket.
type S3Store struct {
	client *s3.S3
	bucket string
}

var _ Store = (*S3Store)(nil)

// NewS3Store creates a store for the given bucket. A non-empty endpoint points
// the client at an S3-compatible service (MinIO in development).
func NewS3Store(region, bucket, endpoint string) (*S3Store, error) {
	awsConfig := &aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		awsConfig.Endpoint = aws.String(endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Store{
		client: s3.New(sess),
		bucket: bucket,
	}, nil
}

// Upload writes content under the given object path.
func (s *S3Store) Upload(ctx context.Context, path, contentType string, content []byte) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", path, err)
	}

	return nil
}

// SignedURL produces a presigned GET URL for the given object path.
func (s *S3Store) SignedURL(path string, validity time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})

	url, err := req.Presign(validity)
	if err != nil {
		return "", fmt.Errorf("failed to presign URL for %s: %w", path, err)
	}

	return url, nil
}

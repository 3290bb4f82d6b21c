package avatars

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/config"
)

// MaxAvatarBytes caps uploaded avatar size.
const MaxAvatarBytes = 2 << 20 // 2 MiB

// Store uploads avatar images to S3-compatible object storage and returns
// a stable URL for the profile_picture column. Keys are content-addressed
// under the user's prefix, so re-uploading the same image is idempotent.
type Store struct {
	client *s3.Client
	bucket string
	cfg    config.AvatarConfig
}

// NewStore creates an avatar store from the avatar configuration.
func NewStore(ctx context.Context, cfg config.AvatarConfig) (*Store, error) {
	var awsConfig aws.Config
	var err error

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		// Static credentials, for MinIO or AWS with explicit keys
		awsConfig, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKey, cfg.SecretKey, "",
			)),
		)
	} else {
		// Default credential chain (IAM roles, env vars)
		awsConfig, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &Store{client: client, bucket: cfg.Bucket, cfg: cfg}, nil
}

// Upload stores an avatar image for the user and returns its URL. The
// content type is sniffed from the bytes, not trusted from the request;
// anything other than an image is rejected.
func (s *Store) Upload(ctx context.Context, userID string, content io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxAvatarBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read avatar content: %w", err)
	}
	if len(data) == 0 {
		return "", apperr.BadRequest("avatar image is empty")
	}
	if len(data) > MaxAvatarBytes {
		return "", apperr.BadRequest(fmt.Sprintf("avatar exceeds %d bytes", MaxAvatarBytes))
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", apperr.BadRequest("avatar must be an image")
	}

	hash := sha256.Sum256(data)
	key := fmt.Sprintf("avatars/%s/%s", userID, hex.EncodeToString(hash[:]))

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}

	return s.objectURL(key), nil
}

// Delete removes an avatar object by its key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete avatar: %w", err)
	}
	return nil
}

// HealthCheck verifies the bucket is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("avatar bucket check failed: %w", err)
	}
	return nil
}

func (s *Store) objectURL(key string) string {
	if s.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.cfg.Endpoint, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.cfg.Region, key)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/insights/internal/pkg/config"
)

// S3Store keeps images in an S3 compatible bucket under an optional prefix.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Store(ctx context.Context, cfg config.S3) (*S3Store, error) {
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// MinIO, Backblaze B2 and friends need path-style URLs
			o.UsePathStyle = true
		}
	})

	store := &S3Store{
		client: client,
		bucket: cfg.BucketName,
		prefix: cfg.Prefix,
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(store.bucket)}); err != nil {
		return nil, fmt.Errorf("bucket %s not accessible: %w", store.bucket, err)
	}

	log.Infof("[S3Store] Using bucket %s (prefix %q)", store.bucket, store.prefix)
	return store, nil
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return strings.TrimRight(s.prefix, "/") + "/" + name
}

func (s *S3Store) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	if err := validateName(name); err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", name, err)
	}
	return nil
}

// Delete is idempotent: S3 answers 204 for missing keys, and some
// compatible servers answer NoSuchKey, which is swallowed here.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("failed to delete %s from S3: %w", name, err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

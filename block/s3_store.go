package block

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Config configures an S3Store's client, grounded on sop/aws_s3.Connect's
// endpoint/region/static-credentials shape (an S3-compatible endpoint such
// as MinIO, not necessarily AWS itself).
type S3Config struct {
	HostEndpointURL string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// S3Store stores each page as an object in an S3-compatible bucket, keyed
// by its decimal page id. Grounded on sop/aws_s3's Connect (static
// credentials against a configurable endpoint, so the same code path
// serves AWS S3 or a self-hosted MinIO) and manage_bucket.go's
// create-bucket-if-absent bootstrap.
type S3Store struct {
	pageSize int
	client   *s3.Client
	bucket   string
}

// NewS3Store connects to the configured endpoint and creates the bucket if
// it does not already exist.
func NewS3Store(ctx context.Context, pageSize int, cfg S3Config) (*S3Store, error) {
	client := s3.NewFromConfig(aws.Config{Region: cfg.Region}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.HostEndpointURL)
		o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		o.UsePathStyle = true
	})

	_, err := client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(cfg.Bucket),
		CreateBucketConfiguration: &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(cfg.Region),
		},
	})
	if err != nil && !bucketAlreadyOwned(err) {
		return nil, fmt.Errorf("block: create bucket %s: %w", cfg.Bucket, err)
	}

	return &S3Store{pageSize: pageSize, client: client, bucket: cfg.Bucket}, nil
}

func bucketAlreadyOwned(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			return true
		}
	}
	return false
}

func (s *S3Store) key(id uint32) string {
	return fmt.Sprintf("%d", id)
}

func (s *S3Store) Create(ctx context.Context, id uint32) error {
	return s.Write(ctx, id, make([]byte, s.pageSize))
}

func (s *S3Store) Read(ctx context.Context, id uint32) ([]byte, error) {
	var page []byte
	err := Retry(ctx, func(ctx context.Context) error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(id)),
		})
		if err != nil {
			var nsk *types.NoSuchKey
			if errors.As(err, &nsk) {
				return ErrNotFound(id)
			}
			return err
		}
		defer out.Body.Close()
		body, err := io.ReadAll(out.Body)
		if err != nil {
			return err
		}
		page = body
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(page) != s.pageSize {
		padded := make([]byte, s.pageSize)
		copy(padded, page)
		page = padded
	}
	return page, nil
}

func (s *S3Store) Write(ctx context.Context, id uint32, page []byte) error {
	if len(page) != s.pageSize {
		return fmt.Errorf("block: page %d write size %d != pageSize %d", id, len(page), s.pageSize)
	}
	return Retry(ctx, func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(id)),
			Body:   bytes.NewReader(page),
		})
		return err
	})
}

func (s *S3Store) Delete(ctx context.Context, id uint32) error {
	return Retry(ctx, func(ctx context.Context) error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(id)),
		})
		return err
	})
}

func (s *S3Store) Close() error { return nil }

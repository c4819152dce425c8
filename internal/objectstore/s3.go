package objectstore

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/strataworks/borevault/internal/errors"
)

// S3Store stores objects in an S3 bucket. Credentials come from the standard
// provider chain.
type S3Store struct {
	client *s3.Client
	bucket string

	probeOnce sync.Once
}

// NewS3Store creates an S3-backed store for bucket in region.
func NewS3Store(ctx context.Context, bucket, region string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, errors.KindTransport, "load aws config")
	}
	return &S3Store{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// NewS3StoreWithClient wires an existing client, used by tests.
func NewS3StoreWithClient(client *s3.Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// probe runs a HeadBucket connectivity check once per process. Failure is
// logged as a warning and never surfaced to the caller.
func (s *S3Store) probe(ctx context.Context) {
	s.probeOnce.Do(func() {
		_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
		if err != nil {
			slog.Warn("S3 bucket connectivity check failed", "bucket", s.bucket, "error", err)
			return
		}
		slog.Info("S3 bucket reachable", "bucket", s.bucket)
	})
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string, allowOverwrite bool) error {
	s.probe(ctx)

	if !allowOverwrite {
		if err := guardOverwrite(ctx, s, key); err != nil {
			return err
		}
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errors.Wrap(err, errors.KindTransport, "put s3://%s/%s", s.bucket, key)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.probe(ctx)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if stderrors.As(err, &noKey) {
			return nil, errors.New(errors.KindNotFound, "object not found: %s", key)
		}
		return nil, errors.Wrap(err, errors.KindTransport, "get s3://%s/%s", s.bucket, key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindTransport, "read s3://%s/%s", s.bucket, key)
	}
	return data, nil
}

func (s *S3Store) Head(ctx context.Context, key string) (bool, error) {
	s.probe(ctx)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if stderrors.As(err, &notFound) {
			return false, nil
		}
		var apiErr smithy.APIError
		if stderrors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
			return false, nil
		}
		return false, errors.Wrap(err, errors.KindTransport, "head s3://%s/%s", s.bucket, key)
	}
	return true, nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	s.probe(ctx)

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindTransport, "list s3://%s/%s", s.bucket, prefix)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (s *S3Store) Close() error { return nil }

var _ Store = (*S3Store)(nil)

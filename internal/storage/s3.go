package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/couchcryptid/avyrss/internal/domain"
)

// S3API is the subset of the S3 client used by S3Backend.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// S3Backend stores blobs as objects under a key prefix in one bucket.
// Object stores have no directories, so MakeDirs does nothing.
type S3Backend struct {
	client  S3API
	bucket  string
	prefix  string
	timeout time.Duration
}

// NewS3Backend wraps an existing client.
func NewS3Backend(client S3API, bucket, prefix string, timeout time.Duration) *S3Backend {
	return &S3Backend{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		timeout: timeout,
	}
}

// OpenS3Backend builds a client from the default AWS credential chain for a
// parsed s3://bucket/prefix URI. S3Endpoint, when set, selects a compatible
// service (MinIO, LocalStack) with path-style addressing.
func OpenS3Backend(ctx context.Context, u *url.URL, opts Options) (*S3Backend, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("s3 uri %q has no bucket: %w", u.String(), domain.ErrValidation)
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.S3Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Backend(client, u.Host, u.Path, opts.Timeout), nil
}

func (b *S3Backend) objectKey(key string) string {
	return joinKey(b.prefix, key)
}

func (b *S3Backend) Read(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, b.timeout)
	defer cancel()

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if err != nil {
		return nil, b.wrapErr("get", key, err)
	}
	defer out.Body.Close() //nolint:errcheck // read-only body

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, b.wrapErr("get", key, err)
	}
	return data, nil
}

func (b *S3Backend) Write(ctx context.Context, key string, data []byte) error {
	ctx, cancel := withTimeout(ctx, b.timeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
		Body:   bytes.NewReader(data),
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		input.ContentType = aws.String(ct)
	}
	if _, err := b.client.PutObject(ctx, input); err != nil {
		return b.wrapErr("put", key, err)
	}
	return nil
}

func (b *S3Backend) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := withTimeout(ctx, b.timeout)
	defer cancel()

	listPrefix := b.objectKey(prefix)
	if listPrefix != "" {
		listPrefix += "/"
	}
	root := b.prefix
	if root != "" {
		root += "/"
	}

	keys := []string{}
	pager := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(listPrefix),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, b.wrapErr("list", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, strings.TrimPrefix(aws.ToString(obj.Key), root))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *S3Backend) MakeDirs(context.Context, string) error { return nil }

func (b *S3Backend) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := withTimeout(ctx, b.timeout)
	defer cancel()

	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if err == nil {
		return true, nil
	}
	if err = b.wrapErr("head", key, err); errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (b *S3Backend) Location(key string) string {
	return "s3://" + joinKey(b.bucket, b.objectKey(key))
}

func (b *S3Backend) URI() string {
	return "s3://" + joinKey(b.bucket, b.prefix)
}

func (b *S3Backend) wrapErr(op, key string, err error) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return fmt.Errorf("s3 %s %s: %w", op, b.Location(key), domain.ErrNotFound)
	}
	return fmt.Errorf("s3 %s %s: %w: %w", op, b.Location(key), domain.ErrBackendUnavailable, err)
}

package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/marmos91/mediaview/internal/logger"
)

// S3Config holds configuration for the S3 fetcher.
type S3Config struct {
	// Region is the AWS region (optional, uses SDK default if empty).
	Region string

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible services).
	Endpoint string

	// ForcePathStyle forces path-style addressing (required for Localstack/MinIO).
	ForcePathStyle bool

	// AccessKeyID and SecretAccessKey override the default credential chain
	// when both are set.
	AccessKeyID     string
	SecretAccessKey string

	// MaxRetries is the number of retries for transient errors.
	MaxRetries int

	// InitialBackoff is the delay before the first retry. Doubles per attempt.
	InitialBackoff time.Duration
}

// S3Fetcher fetches s3://bucket/key locators.
type S3Fetcher struct {
	client         *s3.Client
	maxRetries     int
	initialBackoff time.Duration
}

// NewS3Fetcher creates a fetcher with an existing client.
func NewS3Fetcher(client *s3.Client, cfg S3Config) *S3Fetcher {
	backoff := cfg.InitialBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	return &S3Fetcher{
		client:         client,
		maxRetries:     max(cfg.MaxRetries, 0),
		initialBackoff: backoff,
	}
}

// NewS3FetcherFromConfig creates an S3 client from cfg and the default AWS
// configuration chain.
func NewS3FetcherFromConfig(ctx context.Context, cfg S3Config) (*S3Fetcher, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return NewS3Fetcher(client, cfg), nil
}

// ParseS3Locator splits s3://bucket/key into its parts.
func ParseS3Locator(locator string) (bucket, key string, err error) {
	u, err := url.Parse(locator)
	if err != nil || !strings.EqualFold(u.Scheme, "s3") {
		return "", "", fmt.Errorf("%w: %q is not an s3 locator", ErrInvalidLocator, locator)
	}

	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q needs bucket and key", ErrInvalidLocator, locator)
	}
	return bucket, key, nil
}

// Fetch implements Fetcher.
func (f *S3Fetcher) Fetch(ctx context.Context, locator string, r Range) (*Object, error) {
	bucket, key, err := ParseS3Locator(locator)
	if err != nil {
		return nil, err
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if h := r.Header(); h != "" {
		input.Range = aws.String(h)
	}

	var (
		out     *s3.GetObjectOutput
		lastErr error
	)

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := f.initialBackoff << (attempt - 1)
			logger.Debug("S3 fetch: retrying",
				logger.KeyBucket, bucket,
				logger.KeyKey, key,
				"attempt", attempt,
				"backoff", backoff)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		out, lastErr = f.client.GetObject(ctx, input)
		if lastErr == nil {
			break
		}
		if isNotFoundError(lastErr) {
			return nil, fmt.Errorf("%s: %w", locator, ErrNotFound)
		}
		if !isRetryableError(lastErr) {
			break
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("s3 get object %s: %w", locator, lastErr)
	}

	return &Object{
		Body:        out.Body,
		ContentType: aws.ToString(out.ContentType),
		Size:        s3ObjectSize(out),
	}, nil
}

func s3ObjectSize(out *s3.GetObjectOutput) int64 {
	if cr := aws.ToString(out.ContentRange); cr != "" {
		if i := strings.LastIndexByte(cr, '/'); i >= 0 {
			var n int64
			if _, err := fmt.Sscanf(cr[i+1:], "%d", &n); err == nil {
				return n
			}
		}
	}
	if out.ContentLength != nil {
		return *out.ContentLength
	}
	return -1
}

// isNotFoundError returns true if the error indicates the object doesn't exist.
func isNotFoundError(err error) bool {
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) || errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound", "404":
			return true
		}
	}
	return false
}

// isRetryableError returns true for throttling, 5xx and network timeouts.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "RequestThrottled", "SlowDown",
			"InternalError", "ServiceUnavailable":
			return true
		}
	}
	return false
}

package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/marmos91/granula/internal/logger"
	"github.com/marmos91/granula/internal/telemetry"
)

// deleteBatchSize is the S3 DeleteObjects limit per request.
const deleteBatchSize = 1000

// S3Config contains S3 backend configuration.
type S3Config struct {
	// Bucket is the S3 bucket name.
	Bucket string

	// Region is the AWS region.
	Region string

	// Endpoint overrides the S3 endpoint for S3-compatible services
	// such as MinIO or LocalStack. When set, path-style addressing is
	// used since those services do not resolve virtual-hosted buckets.
	Endpoint string

	// AccessKeyID and SecretAccessKey provide static credentials.
	// When empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// KeyPrefix is an optional prefix for all object keys.
	KeyPrefix string

	// MaxRetries is the maximum number of retry attempts for
	// transient errors (default: 3).
	MaxRetries uint

	// InitialBackoff is the first retry delay (default: 100ms).
	InitialBackoff time.Duration

	// MaxBackoff caps the retry delay (default: 2s).
	MaxBackoff time.Duration

	// BackoffMultiplier grows the delay between attempts (default: 2.0).
	BackoffMultiplier float64
}

func (c *S3Config) applyDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 2 * time.Second
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = 2.0
	}
}

// S3Store stores payloads in an S3 bucket.
//
// Range reads map onto HTTP Range requests, so workers can start a chunk
// mid-object without downloading the whole payload. Transient errors
// (network issues, throttling, 5xx) are retried with exponential backoff;
// not found and access denied errors are not.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
	retry  retryConfig
}

// NewS3Store creates an S3 payload store.
//
// Credentials come from the config when set, otherwise from the default
// AWS credential chain (environment, shared config, instance role).
func NewS3Store(ctx context.Context, config S3Config) (*S3Store, error) {
	config.applyDefaults()
	if config.Bucket == "" {
		return nil, fmt.Errorf("s3 storage requires a bucket")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true
		}
	})

	prefix := config.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	logger.Info("s3 payload store initialized",
		logger.Bucket(config.Bucket),
		logger.Region(config.Region))

	return &S3Store{
		client: client,
		bucket: config.Bucket,
		prefix: prefix,
		retry: retryConfig{
			maxRetries:        config.MaxRetries,
			initialBackoff:    config.InitialBackoff,
			maxBackoff:        config.MaxBackoff,
			backoffMultiplier: config.BackoffMultiplier,
		},
	}, nil
}

func (s *S3Store) objectKey(key string) string {
	return s.prefix + key
}

// Save uploads the payload to S3.
//
// The reader is spooled to a temporary file first so the upload body is
// seekable: the SDK needs the content length up front and retries need to
// rewind the body.
func (s *S3Store) Save(ctx context.Context, key string, r io.Reader) (written int64, err error) {
	ctx, span := telemetry.StartBlobSpan(ctx, "save", key)
	defer span.End()
	defer func() {
		if err != nil {
			telemetry.RecordError(ctx, err)
		}
	}()

	if err = ctx.Err(); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp("", "granula-s3-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create spool file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	written, err = io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("failed to spool payload for %s: %w", key, err)
	}

	objectKey := s.objectKey(key)
	var lastErr error

	for attempt := 0; attempt <= int(s.retry.maxRetries); attempt++ {
		if attempt > 0 {
			backoff := s.retry.calculateBackoff(attempt - 1)
			logger.Debug("Save: retrying", "backoff", backoff, "attempt", attempt, "max_retries", s.retry.maxRetries, "key", objectKey)

			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if _, lastErr = tmp.Seek(0, io.SeekStart); lastErr != nil {
			return 0, fmt.Errorf("failed to rewind spool file for %s: %w", key, lastErr)
		}

		_, lastErr = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(objectKey),
			Body:   tmp,
		})

		if lastErr == nil {
			return written, nil
		}

		if !isRetryableError(lastErr) {
			break
		}
	}

	return 0, fmt.Errorf("failed to upload %s after %d attempts: %w", key, s.retry.maxRetries+1, lastErr)
}

// Open returns a reader over the full object.
func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.OpenRange(ctx, key, 0)
}

// OpenRange returns a reader starting at the given offset using an
// open-ended HTTP Range request. An offset at or past the end of the
// object yields an empty reader.
func (s *S3Store) OpenRange(ctx context.Context, key string, offset uint64) (rc io.ReadCloser, err error) {
	ctx, span := telemetry.StartBlobSpan(ctx, "read_range", key)
	defer span.End()
	defer func() {
		if err != nil {
			telemetry.RecordError(ctx, err)
		}
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	objectKey := s.objectKey(key)
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}
	if offset > 0 {
		input.Range = aws.String(fmt.Sprintf("bytes=%d-", offset))
	}

	var result *s3.GetObjectOutput
	var lastErr error

	for attempt := 0; attempt <= int(s.retry.maxRetries); attempt++ {
		if attempt > 0 {
			backoff := s.retry.calculateBackoff(attempt - 1)
			logger.Debug("OpenRange: retrying", "backoff", backoff, "attempt", attempt, "max_retries", s.retry.maxRetries, "key", objectKey)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, lastErr = s.client.GetObject(ctx, input)
		if lastErr == nil {
			return result.Body, nil
		}

		if isNotFoundError(lastErr) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}

		// S3 rejects ranges past the end instead of returning an
		// empty body the way a seek past EOF would.
		if isInvalidRangeError(lastErr) {
			return io.NopCloser(bytes.NewReader(nil)), nil
		}

		if !isRetryableError(lastErr) {
			break
		}

		logger.Debug("OpenRange: transient error", "attempt", attempt+1, "max_retries", s.retry.maxRetries+1, "key", objectKey, "error", lastErr)
	}

	return nil, fmt.Errorf("failed to get object from S3 after %d attempts: %w", s.retry.maxRetries+1, lastErr)
}

// Size returns the object's size via HeadObject.
func (s *S3Store) Size(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	objectKey := s.objectKey(key)
	var result *s3.HeadObjectOutput
	var lastErr error

	for attempt := 0; attempt <= int(s.retry.maxRetries); attempt++ {
		if attempt > 0 {
			backoff := s.retry.calculateBackoff(attempt - 1)

			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, lastErr = s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(objectKey),
		})

		if lastErr == nil {
			return aws.ToInt64(result.ContentLength), nil
		}

		if isNotFoundError(lastErr) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
		}

		if !isRetryableError(lastErr) {
			break
		}
	}

	return 0, fmt.Errorf("failed to head object after %d attempts: %w", s.retry.maxRetries+1, lastErr)
}

// Exists reports whether the object exists via HeadObject.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Size(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Remove deletes the object. S3 deletes are idempotent, so removing a
// missing object succeeds.
func (s *S3Store) Remove(ctx context.Context, key string) (err error) {
	ctx, span := telemetry.StartBlobSpan(ctx, "remove", key)
	defer span.End()
	defer func() {
		if err != nil {
			telemetry.RecordError(ctx, err)
		}
	}()

	if err = ctx.Err(); err != nil {
		return err
	}

	objectKey := s.objectKey(key)
	var lastErr error

	for attempt := 0; attempt <= int(s.retry.maxRetries); attempt++ {
		if attempt > 0 {
			backoff := s.retry.calculateBackoff(attempt - 1)
			logger.Debug("Remove: retrying", "backoff", backoff, "attempt", attempt, "max_retries", s.retry.maxRetries, "key", objectKey)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		_, lastErr = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(objectKey),
		})

		if lastErr == nil {
			return nil
		}

		if !isRetryableError(lastErr) {
			break
		}
	}

	return fmt.Errorf("failed to delete %s after %d attempts: %w", key, s.retry.maxRetries+1, lastErr)
}

// Purge deletes every object under the store's key prefix using batched
// DeleteObjects requests.
func (s *S3Store) Purge(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var keys []string
	var token *string

	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			ContinuationToken: token,
		}
		if s.prefix != "" {
			input.Prefix = aws.String(s.prefix)
		}

		result, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return 0, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range result.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}

		if !aws.ToBool(result.IsTruncated) {
			break
		}
		token = result.NextContinuationToken
	}

	var removed int64
	for i := 0; i < len(keys); i += deleteBatchSize {
		end := i + deleteBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[i:end]

		objects := make([]types.ObjectIdentifier, len(batch))
		for j, k := range batch {
			objects[j] = types.ObjectIdentifier{Key: aws.String(k)}
		}

		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(false),
			},
		})
		if err != nil {
			return removed, fmt.Errorf("failed to delete objects: %w", err)
		}

		removed += int64(len(result.Deleted))
		for _, delErr := range result.Errors {
			logger.Warn("failed to delete object during purge",
				"key", aws.ToString(delErr.Key),
				"code", aws.ToString(delErr.Code),
				"message", aws.ToString(delErr.Message))
		}
	}

	return removed, nil
}

// Backend returns the backend name.
func (s *S3Store) Backend() string {
	return string(BackendS3)
}

// Healthcheck verifies the bucket is reachable.
func (s *S3Store) Healthcheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", s.bucket, err)
	}
	return nil
}

// Close releases resources held by the store.
func (s *S3Store) Close() error {
	return nil
}

var _ Store = (*S3Store)(nil)

// isRetryableError returns true if the error is transient and the operation should be retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Network errors are retryable
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	// Check for AWS API errors
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()

		// Throttling errors - retryable
		if code == "Throttling" || code == "ThrottlingException" ||
			code == "RequestThrottled" || code == "SlowDown" ||
			code == "ProvisionedThroughputExceededException" {
			return true
		}

		// Server errors (5xx) - retryable
		if code == "InternalError" || code == "ServiceUnavailable" ||
			code == "ServiceException" || code == "InternalServiceException" {
			return true
		}

		// Not found, access denied, invalid request - not retryable
		if code == "NoSuchKey" || code == "NotFound" ||
			code == "AccessDenied" || code == "Forbidden" ||
			code == "InvalidRange" || code == "InvalidRequest" {
			return false
		}
	}

	// Check error message for common patterns
	errStr := err.Error()
	if strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "500") {
		return true
	}

	return false
}

// isNotFoundError returns true if the error indicates the object doesn't exist.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	// Check typed errors
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}

	// Check AWS API error code
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "NoSuchKey" || code == "NotFound" || code == "404" {
			return true
		}
	}

	// Check error message for 404 patterns
	errStr := err.Error()
	return strings.Contains(errStr, "StatusCode: 404") ||
		strings.Contains(errStr, "NotFound") ||
		strings.Contains(errStr, "NoSuchKey")
}

// isInvalidRangeError returns true if the error indicates an invalid byte range.
func isInvalidRangeError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "InvalidRange"
	}

	return strings.Contains(err.Error(), "InvalidRange")
}

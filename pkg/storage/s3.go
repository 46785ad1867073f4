package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/uploadkit/pkg/file"
	"github.com/dmitrymomot/uploadkit/pkg/logger"
)

// S3Client defines the S3 operations used by S3.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3ListObjectsV2Paginator defines the interface for paginated list operations.
type S3ListObjectsV2Paginator interface {
	HasMorePages() bool
	NextPage(ctx context.Context, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3 stores files as objects in a bucket, optionally below a key prefix.
// Paths passed to and returned by S3 are relative to that prefix.
// It is safe for concurrent use.
type S3 struct {
	client           S3Client
	bucket           string
	prefix           string
	baseURL          string
	uploadTimeout    time.Duration
	logger           *slog.Logger
	paginatorFactory func(client S3Client, params *s3.ListObjectsV2Input) S3ListObjectsV2Paginator
}

// S3Config contains configuration for S3 storage.
type S3Config struct {
	Bucket         string `env:"BUCKET"`
	Region         string `env:"REGION"`
	AccessKeyID    string `env:"ACCESS_KEY_ID"`
	SecretKey      string `env:"SECRET_KEY"`
	Endpoint       string `env:"ENDPOINT"`         // Optional: for S3-compatible services
	BaseURL        string `env:"BASE_URL"`         // Public URL base for serving files
	Prefix         string `env:"PREFIX"`           // Key prefix acting as the storage root
	ForcePathStyle bool   `env:"FORCE_PATH_STYLE"` // For S3-compatible services like MinIO
}

// S3Option defines a function that configures S3.
type S3Option func(*s3Options)

type s3Options struct {
	httpClient       *http.Client
	s3Client         S3Client
	s3ConfigOptions  []func(*config.LoadOptions) error
	s3ClientOptions  []func(*s3.Options)
	paginatorFactory func(client S3Client, params *s3.ListObjectsV2Input) S3ListObjectsV2Paginator
	uploadTimeout    time.Duration
	logger           *slog.Logger
}

// WithS3Client sets a custom pre-configured S3 client.
// Useful for testing with mocks.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) {
		o.s3Client = client
	}
}

// WithHTTPClient sets a custom HTTP client for S3 requests.
func WithHTTPClient(client *http.Client) S3Option {
	return func(o *s3Options) {
		o.httpClient = client
	}
}

func WithS3ConfigOption(option func(*config.LoadOptions) error) S3Option {
	return func(o *s3Options) {
		o.s3ConfigOptions = append(o.s3ConfigOptions, option)
	}
}

func WithS3ClientOption(option func(*s3.Options)) S3Option {
	return func(o *s3Options) {
		o.s3ClientOptions = append(o.s3ClientOptions, option)
	}
}

// WithPaginatorFactory sets a custom paginator factory.
// Useful for testing pagination.
func WithPaginatorFactory(factory func(client S3Client, params *s3.ListObjectsV2Input) S3ListObjectsV2Paginator) S3Option {
	return func(o *s3Options) {
		o.paginatorFactory = factory
	}
}

// WithS3UploadTimeout bounds each PutObject and CopyObject call.
// If not set, only the caller's context deadline applies.
func WithS3UploadTimeout(timeout time.Duration) S3Option {
	return func(o *s3Options) {
		o.uploadTimeout = timeout
	}
}

func WithS3Logger(l *slog.Logger) S3Option {
	return func(o *s3Options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewS3 creates a new S3 storage instance.
func NewS3(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("%w: bucket and region are required", ErrInvalidConfig)
	}

	options := &s3Options{logger: logger.Discard()}
	for _, opt := range opts {
		opt(options)
	}

	var client S3Client
	if options.s3Client != nil {
		client = options.s3Client
	} else {
		awsOptions := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}

		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions,
				config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretKey,
					"",
				)),
			)
		}

		if options.httpClient != nil {
			awsOptions = append(awsOptions, config.WithHTTPClient(options.httpClient))
		}

		awsOptions = append(awsOptions, options.s3ConfigOptions...)

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToLoadConfig, err)
		}

		client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle

			for _, opt := range options.s3ClientOptions {
				opt(o)
			}
		})
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if strings.Contains(prefix, "..") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, cfg.Prefix)
	}
	if prefix != "" {
		prefix += "/"
	}

	paginatorFactory := options.paginatorFactory
	if paginatorFactory == nil {
		paginatorFactory = func(c S3Client, params *s3.ListObjectsV2Input) S3ListObjectsV2Paginator {
			if realClient, ok := c.(*s3.Client); ok {
				return s3.NewListObjectsV2Paginator(realClient, params)
			}
			// Mock clients provide their own paginator.
			return nil
		}
	}

	return &S3{
		client:           client,
		bucket:           cfg.Bucket,
		prefix:           prefix,
		baseURL:          baseURL,
		uploadTimeout:    options.uploadTimeout,
		logger:           options.logger,
		paginatorFactory: paginatorFactory,
	}, nil
}

// classifyS3Error converts S3 errors to storage errors.
func classifyS3Error(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s operation", ErrOperationTimeout, operation)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s operation", ErrOperationCanceled, operation)
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %s", ErrFileNotFound, err)
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", ErrFileNotFound, err)
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return ErrBucketNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch code {
		case "AccessDenied":
			return fmt.Errorf("%w: %s operation", ErrAccessDenied, operation)
		case "RequestTimeout":
			return fmt.Errorf("%w: %s operation", ErrRequestTimeout, operation)
		case "SlowDown", "ServiceUnavailable":
			return fmt.Errorf("%w: %s operation", ErrServiceUnavailable, operation)
		case "InvalidObjectState":
			return fmt.Errorf("%w: %s operation", ErrInvalidObjectState, operation)
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", ErrFileNotFound, err)
		case "NoSuchBucket":
			return ErrBucketNotFound
		default:
			return fmt.Errorf("%s operation failed (code: %s): %w", operation, code, err)
		}
	}

	return fmt.Errorf("%s operation failed: %w", operation, err)
}

// cleanKey normalizes a path relative to the storage root.
func cleanKey(p string) (string, error) {
	p = strings.Trim(path.Clean("/"+strings.TrimSpace(p)), "/")
	if strings.Contains(p, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	return p, nil
}

func (s *S3) key(rel string) string { return s.prefix + rel }

// List returns the folders (common prefixes) and objects directly below folder.
func (s *S3) List(ctx context.Context, folder string, includeFolders bool) ([]*file.Info, error) {
	dir, err := cleanKey(folder)
	if err != nil {
		return nil, err
	}

	prefix := s.key(dir)
	if dir != "" {
		prefix += "/"
	}

	var folders, files []*file.Info
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}
	for {
		resp, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, classifyS3Error(err, "list directory")
		}

		if includeFolders {
			for _, cp := range resp.CommonPrefixes {
				full := aws.ToString(cp.Prefix)
				name := strings.TrimSuffix(strings.TrimPrefix(full, prefix), "/")
				folders = append(folders, file.New(
					strings.TrimPrefix(strings.TrimSuffix(full, "/"), s.prefix),
					file.WithRemote(),
					file.WithDirectory(),
					file.WithName(name),
				))
			}
		}

		for _, obj := range resp.Contents {
			objKey := aws.ToString(obj.Key)
			name := strings.TrimPrefix(objKey, prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			files = append(files, file.New(
				strings.TrimPrefix(objKey, s.prefix),
				file.WithRemote(),
				file.WithName(name),
				file.WithSize(aws.ToInt64(obj.Size)),
				file.WithModTime(aws.ToTime(obj.LastModified)),
			))
		}

		if !aws.ToBool(resp.IsTruncated) || resp.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = resp.NextContinuationToken
	}

	return append(folders, files...), nil
}

// Persist uploads the local content of f to folder/<DisplayName>, removes the local
// source and rebinds f to the object key.
func (s *S3) Persist(ctx context.Context, f *file.Info, folder string, overwrite bool) error {
	if f == nil {
		return fmt.Errorf("%w: file is nil", ErrInvalidArgument)
	}
	if f.IsRemote() {
		return fmt.Errorf("%w: %s is already stored remotely", ErrInvalidArgument, f.Path())
	}

	dir, err := cleanKey(folder)
	if err != nil {
		return err
	}

	dest := path.Join(dir, f.DisplayName())
	if !overwrite && s.Exists(ctx, dest) {
		name, ext := nameParts(f)
		dest = path.Join(dir, freeName(name, ext, func(candidate string) bool {
			return s.Exists(ctx, path.Join(dir, candidate))
		}))
	}

	if f.IsTransportUpload() && !f.VerifiedUpload() {
		return fmt.Errorf("%w: %s", ErrInvalidUpload, f.Path())
	}

	if err := s.put(ctx, f, dest); err != nil {
		return err
	}

	if err := f.Fs().Remove(f.Path()); err != nil {
		s.logger.WarnContext(ctx, "failed to remove local source after upload",
			logger.Storage("s3"),
			logger.Path(f.Path()),
			logger.Error(err),
		)
	}

	s.logger.DebugContext(ctx, "file persisted",
		logger.Storage("s3"),
		logger.File(path.Base(dest)),
		logger.Folder(folder),
		logger.Size(f.Size()),
	)
	f.MarkRemote(dest)

	return nil
}

func (s *S3) put(ctx context.Context, f *file.Info, dest string) error {
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFailedToMoveFile, f.Path(), err)
	}
	defer func() { _ = src.Close() }()

	contentType := f.MIMEType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(dest)),
		Body:          src,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(f.Size()),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToMoveFile, classifyS3Error(err, "upload file"))
	}
	return nil
}

// Copy duplicates f at dest. Remote sources are copied server side, local sources
// are uploaded.
func (s *S3) Copy(ctx context.Context, f *file.Info, dest string) (*file.Info, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: file is nil", ErrInvalidArgument)
	}

	target, err := cleanKey(dest)
	if err != nil {
		return nil, err
	}
	if target == "" {
		return nil, fmt.Errorf("%w: destination is the storage root", ErrInvalidPath)
	}

	if !f.IsRemote() {
		if err := s.put(ctx, f, target); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToCopyFile, err)
		}
	} else {
		if s.uploadTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
			defer cancel()
		}

		source := (&url.URL{Path: s.bucket + "/" + s.key(f.Path())}).EscapedPath()
		_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(s.bucket),
			Key:        aws.String(s.key(target)),
			CopySource: aws.String(source),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToCopyFile, classifyS3Error(err, "copy file"))
		}
	}

	return file.New(target,
		file.WithRemote(),
		file.WithSize(f.Size()),
		file.WithMIMEType(f.MIMEType()),
		file.WithModTime(time.Now()),
	), nil
}

// Exists checks if an object exists at path.
func (s *S3) Exists(ctx context.Context, p string) bool {
	k, err := cleanKey(p)
	if err != nil || k == "" {
		return false
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(k)),
	})
	return err == nil
}

// Delete removes a single object.
func (s *S3) Delete(ctx context.Context, p string) error {
	k, err := cleanKey(p)
	if err != nil {
		return err
	}
	if k == "" {
		return fmt.Errorf("%w: %s", ErrIsDirectory, p)
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(k)),
	})
	if err != nil {
		return classifyS3Error(err, "check file")
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(k)),
	})
	if err != nil {
		return classifyS3Error(err, "delete file")
	}

	return nil
}

// DeleteDir removes all objects below dir.
func (s *S3) DeleteDir(ctx context.Context, dir string) error {
	d, err := cleanKey(dir)
	if err != nil {
		return err
	}
	if d == "" {
		return fmt.Errorf("%w: refusing to delete the storage root", ErrInvalidPath)
	}
	prefix := s.key(d) + "/"

	paginator := s.paginatorFactory(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if paginator == nil {
		return ErrPaginatorNil
	}

	var objects []types.ObjectIdentifier
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return classifyS3Error(err, "list directory")
		}
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}
	}

	if len(objects) == 0 {
		return fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
	}

	// DeleteObjects accepts at most 1000 keys per request.
	for i := 0; i < len(objects); i += 1000 {
		end := min(i+1000, len(objects))
		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects[i:end]},
		})
		if err != nil {
			return classifyS3Error(err, "delete directory")
		}
	}

	return nil
}

// URL returns the public URL for path.
func (s *S3) URL(p string) string {
	return s.baseURL + s.key(strings.TrimPrefix(p, "/"))
}

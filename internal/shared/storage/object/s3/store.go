package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"pdfvault-backend/internal/shared/storage/object"
)

// Options configures the S3 store. Endpoint and ForcePathStyle target
// S3-compatible services such as MinIO.
type Options struct {
	Region         string
	Bucket         string
	Prefix         string
	Endpoint       string
	ForcePathStyle bool
	PublicBaseURL  string
	KMSKeyID       string

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Store implements object.Uploader and object.Remover using Amazon S3.
type Store struct {
	client    *s3.Client
	bucket    string
	prefix    string
	kmsKeyID  string
	sse       bool
	urlBase   string
	endpoint  string
	pathStyle bool
}

// New creates a new S3-backed object store. Requests are not retried; a
// failed upload is reported to the caller straight away.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newFromConfig(cfg, opts), nil
}

func newFromConfig(cfg aws.Config, opts Options) *Store {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})

	s := &Store{
		client:    client,
		bucket:    strings.TrimSpace(opts.Bucket),
		prefix:    normalizePrefix(opts.Prefix),
		kmsKeyID:  strings.TrimSpace(opts.KMSKeyID),
		endpoint:  endpoint,
		pathStyle: opts.ForcePathStyle,
	}
	// S3-compatible endpoints often lack SSE support; only request it there
	// when a KMS key is configured explicitly.
	s.sse = endpoint == "" || s.kmsKeyID != ""
	s.urlBase = s.resolveURLBase(strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/"), cfg.Region)
	return s
}

// Upload writes data to a fresh key under namespace and returns its URL.
// The URL is only returned once S3 has acknowledged the write.
func (s *Store) Upload(ctx context.Context, data []byte, namespace string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	objectKey := applyPrefix(s.prefix, object.NewKey(namespace))
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(object.ContentTypePDF),
	}
	if s.sse {
		if s.kmsKeyID != "" {
			input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
			input.SSEKMSKeyId = aws.String(s.kmsKeyID)
		} else {
			input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
		}
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return s.urlBase + "/" + objectKey, nil
}

// Remove deletes the object behind a URL previously returned by Upload.
func (s *Store) Remove(ctx context.Context, url string) error {
	objectKey, ok := strings.CutPrefix(url, s.urlBase+"/")
	if !ok || objectKey == "" {
		return fmt.Errorf("url %q does not belong to bucket %s", url, s.bucket)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}); err != nil {
		return fmt.Errorf("s3 delete object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return nil
}

func (s *Store) resolveURLBase(public, region string) string {
	switch {
	case public != "":
		return public
	case s.endpoint != "" && s.pathStyle:
		return s.endpoint + "/" + s.bucket
	case s.endpoint != "":
		scheme, host, found := strings.Cut(s.endpoint, "://")
		if !found {
			return "https://" + s.bucket + "." + s.endpoint
		}
		return scheme + "://" + s.bucket + "." + host
	case region == "" || region == "us-east-1":
		return fmt.Sprintf("https://%s.s3.amazonaws.com", s.bucket)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.bucket, region)
	}
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

var (
	_ object.Uploader = (*Store)(nil)
	_ object.Remover  = (*Store)(nil)
)

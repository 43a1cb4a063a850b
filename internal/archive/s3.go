package archive

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the configuration for the S3 archiver.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
}

// Compile-time check that S3Archiver implements Archiver.
var _ Archiver = (*S3Archiver)(nil)

// S3Archiver mirrors media into an S3 bucket.
type S3Archiver struct {
	client     *s3.Client
	bucket     string
	region     string
	httpClient *http.Client
}

// NewS3Archiver creates a new S3Archiver.
func NewS3Archiver(cfg S3Config) (*S3Archiver, error) {
	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	return &S3Archiver{
		client:     client,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Archive downloads the media and uploads it to S3 under key, returning the
// object URL.
func (s *S3Archiver) Archive(ctx context.Context, sourceURL, key string) (string, error) {
	if key == "" {
		return "", ErrKeyRequired
	}

	body, err := fetch(ctx, s.httpClient, sourceURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", fmt.Errorf("archive: upload to S3: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

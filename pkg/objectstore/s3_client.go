package objectstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Provider represents the S3-compatible storage provider
type Provider string

const (
	ProviderAWS    Provider = "aws"
	ProviderWasabi Provider = "wasabi"
	ProviderCustom Provider = "custom" // MinIO, LocalStack, ...
)

// WasabiEndpoints maps regions to Wasabi endpoints
var WasabiEndpoints = map[string]string{
	"us-east-1":      "s3.us-east-1.wasabisys.com",
	"us-east-2":      "s3.us-east-2.wasabisys.com",
	"us-west-1":      "s3.us-west-1.wasabisys.com",
	"eu-central-1":   "s3.eu-central-1.wasabisys.com",
	"ap-south-1":     "s3.ap-south-1.wasabisys.com",
	"ap-southeast-1": "s3.ap-southeast-1.wasabisys.com",
}

// Config holds connection settings for S3-compatible storage
type Config struct {
	Provider        Provider
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	// Endpoint overrides the provider default (required for ProviderCustom)
	Endpoint string
}

// endpoint resolves the base endpoint, empty for plain AWS
func (c Config) endpoint() (string, error) {
	if c.Endpoint != "" {
		if strings.HasPrefix(c.Endpoint, "http://") || strings.HasPrefix(c.Endpoint, "https://") {
			return c.Endpoint, nil
		}
		return "https://" + c.Endpoint, nil
	}

	switch c.Provider {
	case ProviderWasabi:
		if endpoint, ok := WasabiEndpoints[c.Region]; ok {
			return "https://" + endpoint, nil
		}
		return "", fmt.Errorf("unknown Wasabi region: %s", c.Region)
	case ProviderCustom:
		return "", fmt.Errorf("S3_ENDPOINT is required for provider %q", c.Provider)
	default:
		return "", nil
	}
}

// NewS3Client creates an S3 client for AWS or an S3-compatible provider.
// Static credentials are used when given, the default chain otherwise.
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint, err := cfg.endpoint()
	if err != nil {
		return nil, err
	}

	if endpoint == "" {
		return s3.NewFromConfig(awsCfg), nil
	}

	// Non-AWS providers need path-style addressing
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	}), nil
}

// CheckBucket verifies the bucket is reachable
func CheckBucket(ctx context.Context, client *s3.Client, bucket string) error {
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to access bucket %s: %w", bucket, err)
	}
	return nil
}

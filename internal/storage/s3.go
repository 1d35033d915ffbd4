// Package storage mirrors generated assets to an S3-compatible bucket
// (AWS S3, Cloudflare R2, MinIO).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Client struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// NewS3Client builds a client for the configured bucket. endpoint may be
// empty for AWS proper; R2 and MinIO require it.
func NewS3Client(ctx context.Context, endpoint, region, accessKeyID, secretAccessKey, bucket, publicBaseURL string) (*S3Client, error) {
	creds := credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRegion(region),
	}
	if endpoint != "" {
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: endpoint}, nil
			})))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Client{
		client:        s3.NewFromConfig(cfg),
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

// Upload stores data under key and returns its public URL. Keys are content
// hashes, so an existing object already holds the same bytes and the put is
// skipped.
func (c *S3Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if exists, err := c.ObjectExists(ctx, key); err == nil && exists {
		return c.PublicURL(key), nil
	}

	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(c.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to bucket: %w", err)
	}
	return c.PublicURL(key), nil
}

// ObjectExists reports whether key is already present.
func (c *S3Client) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "404") ||
			strings.Contains(err.Error(), "NotFound") ||
			strings.Contains(err.Error(), "NoSuchKey") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PublicURL returns the public URL for a stored key.
func (c *S3Client) PublicURL(key string) string {
	if c.publicBaseURL == "" {
		return fmt.Sprintf("s3://%s/%s", c.bucket, key)
	}
	return fmt.Sprintf("%s/%s", c.publicBaseURL, key)
}

package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/logging"
)

// S3Gateway issues time-limited upload URLs against an S3-compatible bucket
// and deletes objects on entity deletion.
type S3Gateway struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	presignTTL time.Duration
}

// NewS3Gateway configures a gateway targeting the provided object store.
func NewS3Gateway(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Gateway, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 gateway: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if strings.TrimSpace(cfg.Endpoint) != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:           cfg.Endpoint,
					SigningRegion: cfg.Region,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &S3Gateway{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		presignTTL: ttl,
	}, nil
}

// PresignUpload returns a time-limited PUT URL for the given object name and
// content type.
func (g *S3Gateway) PresignUpload(ctx context.Context, fileName, fileType string) (string, error) {
	key := strings.TrimLeft(fileName, "/")
	if key == "" {
		return "", fmt.Errorf("s3 gateway: empty key")
	}

	req, err := g.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(fileType),
	}, s3.WithPresignExpires(g.presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign upload %s: %w", key, err)
	}

	return req.URL, nil
}

// RemoveObject deletes the object a media URL points at. It is best-effort:
// failures are logged and reported as false, never returned as errors, because
// the database record's deletion is the authoritative action.
func (g *S3Gateway) RemoveObject(ctx context.Context, fileURL string) bool {
	if strings.TrimSpace(fileURL) == "" {
		return false
	}

	key := objectKey(g.bucket, fileURL)
	if key == "" {
		logging.FromContext(ctx).Warn("could not derive object key from url", "url", fileURL)
		return false
	}

	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		logging.FromContext(ctx).Warn("delete object failed", "key", key, "error", err)
		return false
	}

	return true
}

// objectKey extracts the object key from either virtual-hosted-style
// (bucket.s3.region.amazonaws.com/key) or path-style
// (s3.region.amazonaws.com/bucket/key) URLs.
func objectKey(bucket, fileURL string) string {
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return ""
	}

	path := strings.TrimPrefix(parsed.Path, "/")
	if path == "" {
		return ""
	}

	var key string
	if strings.HasPrefix(parsed.Hostname(), bucket+".") {
		key = path
	} else if after, ok := strings.CutPrefix(path, bucket+"/"); ok {
		key = after
	} else {
		key = path
	}

	unescaped, err := url.PathUnescape(key)
	if err != nil {
		return key
	}
	return unescaped
}

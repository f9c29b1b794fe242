package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Sink writes snapshots to an S3 bucket.
type S3Sink struct {
	client *s3.Client
	bucket string
}

// NewS3Sink creates a sink from the default AWS credential chain. An empty
// region falls back to the AWS defaults.
func NewS3Sink(ctx context.Context, bucket, region string) (*S3Sink, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return &S3Sink{client: s3.NewFromConfig(awsCfg), bucket: bucket}, nil
}

// Put uploads data as a JSON object
func (s *S3Sink) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting object %s: %w", key, err)
	}
	return nil
}

// Prune deletes timestamped snapshots last modified before cutoff
func (s *S3Sink) Prune(ctx context.Context, prefix string, cutoff time.Time) (int, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	deleted := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("listing objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !isSnapshot(key) || obj.LastModified == nil || !obj.LastModified.Before(cutoff) {
				continue
			}
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return deleted, fmt.Errorf("deleting object %s: %w", key, err)
			}
			deleted++
		}
	}

	return deleted, nil
}

// Close is a no-op; the S3 client holds no resources.
func (s *S3Sink) Close() error { return nil }

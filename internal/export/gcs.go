package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSSink writes snapshots to a Cloud Storage bucket.
type GCSSink struct {
	client *storage.Client
	bucket string
}

// NewGCSSink creates a sink using application default credentials
func NewGCSSink(ctx context.Context, bucket string) (*GCSSink, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCSSink{client: client, bucket: bucket}, nil
}

// Put uploads data as a JSON object
func (s *GCSSink) Put(ctx context.Context, key string, data []byte) error {
	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("writing object data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing object writer: %w", err)
	}

	return nil
}

// Prune deletes timestamped snapshots created before cutoff
func (s *GCSSink) Prune(ctx context.Context, prefix string, cutoff time.Time) (int, error) {
	bucket := s.client.Bucket(s.bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	deleted := 0
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("listing objects: %w", err)
		}

		if !isSnapshot(attrs.Name) || !attrs.Created.Before(cutoff) {
			continue
		}

		err = bucket.Object(attrs.Name).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return deleted, fmt.Errorf("deleting object %s: %w", attrs.Name, err)
		}
		deleted++
	}

	return deleted, nil
}

// Close closes the Cloud Storage client
func (s *GCSSink) Close() error {
	return s.client.Close()
}

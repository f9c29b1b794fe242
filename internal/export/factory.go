package export

import (
	"context"
	"fmt"

	"github.com/pep299/article-feed-api/internal/config"
)

// NewSinkFromConfig builds the sink selected by EXPORT_TYPE.
func NewSinkFromConfig(ctx context.Context, cfg *config.Config) (Sink, error) {
	switch cfg.ExportType {
	case "gcs":
		return NewGCSSink(ctx, cfg.ExportBucket)
	case "s3":
		return NewS3Sink(ctx, cfg.ExportBucket, cfg.S3Region)
	case "":
		return nil, fmt.Errorf("export is not configured: set EXPORT_TYPE")
	default:
		return nil, fmt.Errorf("unsupported export type: %s", cfg.ExportType)
	}
}

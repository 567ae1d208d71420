package blobstore

import (
	"context"
	"fmt"

	"vouch/internal/platform/config"
)

// FromConfig builds the configured blob backend.
func FromConfig(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.PublicBaseURL), nil
	case "azure":
		return NewAzureStore(AzureConfig{
			AccountName:   cfg.AzureAccount,
			AccountKey:    cfg.AzureKey,
			ContainerName: cfg.AzureContainer,
		})
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.S3Prefix,
		})
	default:
		return nil, fmt.Errorf("unsupported blob backend: %s", cfg.Backend)
	}
}

package config

import (
	"context"
	"fmt"

	"github.com/marmos91/granula/pkg/blob"
	"github.com/marmos91/granula/pkg/store"
)

// CreateStore opens the relational store described by the database section.
// The caller owns the returned store and must close it.
func (c *Config) CreateStore(ctx context.Context) (store.Store, error) {
	dbCfg, err := store.ParseDatabaseURL(c.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}

	st, err := store.New(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

// CreateBlobStore creates the payload store described by the blob section.
func (c *Config) CreateBlobStore(ctx context.Context) (blob.Store, error) {
	blobCfg := &blob.Config{
		Backend: blob.BackendType(c.Blob.Backend),
		FS: blob.FSConfig{
			Path: c.Blob.Path,
			// The upload directory is service-owned, create it on startup.
			CreateDir: true,
		},
		S3: blob.S3Config{
			Bucket:          c.Blob.S3.Bucket,
			Region:          c.Blob.S3.Region,
			Endpoint:        c.Blob.S3.Endpoint,
			AccessKeyID:     c.Blob.S3.AccessKeyID,
			SecretAccessKey: c.Blob.S3.SecretAccessKey,
			KeyPrefix:       c.Blob.S3.KeyPrefix,
		},
	}

	bs, err := blob.New(ctx, blobCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}
	return bs, nil
}

// Package blob re-exports the blob abstractions and selects a backend from
// configuration. Callers depend on blob.Store; concrete stores stay in infra.
package blob

import (
	"context"
	"fmt"

	"speciesdesk/internal/blob/core"
	"speciesdesk/internal/config"
	"speciesdesk/internal/infra/blob/fs"
	memorystore "speciesdesk/internal/infra/blob/memory"
	infraS3 "speciesdesk/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
	// S3Config holds explicit S3 construction parameters.
	S3Config = infraS3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrNotFound = core.ErrNotFound
	ErrExists   = core.ErrExists
)

// Open selects a blob.Store implementation from the resolved configuration.
func Open(ctx context.Context, cfg config.Blob) (Store, error) {
	driver := Driver(cfg.Driver)
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewFilesystem constructs a filesystem-backed store rooted at root.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// NewMemory returns an in-memory store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewS3 constructs an S3-backed store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

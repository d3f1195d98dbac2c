// Package storage keeps uploaded images on local disk or in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"

	"invest-bot/internal/config"
)

const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

// Store saves an object under name and returns the URL clients should use.
type Store interface {
	Save(ctx context.Context, name, contentType string, body io.Reader, size int64) (string, error)
}

func New(ctx context.Context, cfg config.Upload) (Store, error) {
	switch cfg.Driver {
	case "", DriverLocal:
		return NewLocalStore(cfg.Dir)
	case DriverS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown upload driver %q", cfg.Driver)
	}
}

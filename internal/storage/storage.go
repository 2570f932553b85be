// Package storage stores uploaded objects and hands back their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/BradenHooton/labsy/internal/config"
)

// ErrInvalidKey is returned for object keys that are empty, absolute or escape their folder.
var ErrInvalidKey = errors.New("invalid object key")

// Driver is an object store holding publicly readable files.
type Driver interface {
	// Put stores body under key and returns the public URL of the object.
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	// Delete removes the object; deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// KeyFromURL maps a URL produced by Put back to its key.
	KeyFromURL(url string) (string, bool)
	// Bucket names the container objects are written to.
	Bucket() string
}

// NewDriver builds the driver selected by cfg.Driver.
func NewDriver(ctx context.Context, cfg *config.StorageConfig) (Driver, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Driver(ctx, cfg)
	case "local", "":
		return NewLocalDriver(cfg.LocalPath, cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// cleanKey validates a slash separated key and strips a leading slash.
func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, `\`) {
		return "", ErrInvalidKey
	}
	if cleaned := path.Clean(key); cleaned != key || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidKey
	}
	return key, nil
}

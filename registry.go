package uploadkit

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/dmitrymomot/uploadkit/pkg/storage"
)

// StorageFactory builds a storage backend from the configuration.
type StorageFactory func(ctx context.Context, cfg Config, log *slog.Logger) (storage.Storage, error)

// storages is the closed set of backends New understands.
var storages = map[string]StorageFactory{
	"filesystem": newFilesystemStorage,
	"local":      newFilesystemStorage,
	"s3":         newS3Storage,
}

// StorageNames returns the backend names accepted by New, sorted.
func StorageNames() []string {
	return slices.Sorted(maps.Keys(storages))
}

// NewStorage builds the backend registered under name.
// Unknown names fail with ErrStorageNotSupported.
func NewStorage(ctx context.Context, name string, cfg Config, log *slog.Logger) (storage.Storage, error) {
	factory, ok := storages[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrStorageNotSupported, name, strings.Join(StorageNames(), ", "))
	}
	return factory(ctx, cfg, log)
}

func newFilesystemStorage(_ context.Context, cfg Config, log *slog.Logger) (storage.Storage, error) {
	return storage.NewFilesystem(cfg.BasePath,
		storage.WithExcludedFolders(cfg.Exclude...),
		storage.WithHiddenFiles(cfg.IncludeHidden),
		storage.WithBaseURL(cfg.BaseURL),
		storage.WithLogger(log),
	)
}

func newS3Storage(ctx context.Context, cfg Config, log *slog.Logger) (storage.Storage, error) {
	s3cfg := cfg.S3
	if s3cfg.BaseURL == "" {
		s3cfg.BaseURL = cfg.BaseURL
	}
	return storage.NewS3(ctx, s3cfg, storage.WithS3Logger(log))
}

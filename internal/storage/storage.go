package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/straye-as/quotation-api/internal/config"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Read when no artifact exists under the name
var ErrNotFound = errors.New("artifact not found")

// ErrInvalidName is returned for names that are not flat artifact keys
var ErrInvalidName = errors.New("invalid artifact name")

// Storage is a flat, filename-keyed artifact store.
// Implementations must make Write atomic: readers see the old content, the new
// content, or nothing, never a partial file. Storage does no locking.
type Storage interface {
	Exists(ctx context.Context, name string) (bool, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
}

// NewStorage creates a new storage instance based on configuration.
// For local mode, artifacts are stored on the local filesystem.
// For cloud/azure mode, artifacts are stored in Azure Blob Storage.
func NewStorage(cfg *config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalStorage(cfg.LocalBasePath)
	case "cloud", "azure":
		if cfg.CloudConnectionString == "" {
			return nil, fmt.Errorf("cloud connection string required for azure storage")
		}
		return NewAzureBlobStorage(cfg.CloudConnectionString, cfg.CloudContainer, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// ValidateName rejects names that could escape the store or collide with temp files
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`), strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q is hidden", ErrInvalidName, name)
	}
	return nil
}

// ContentType returns the MIME type for an artifact name
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// LocalStorage implements Storage for the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Exists reports whether an artifact is stored under name
func (s *LocalStorage) Exists(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}

	info, err := os.Stat(filepath.Join(s.basePath, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat artifact: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// Read returns the artifact content
func (s *LocalStorage) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.basePath, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}

// Write stores data under name via temp file + rename
func (s *LocalStorage) Write(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.basePath, ".artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(s.basePath, name)); err != nil {
		return fmt.Errorf("failed to rename artifact: %w", err)
	}

	success = true
	return nil
}

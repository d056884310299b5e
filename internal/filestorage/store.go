// File: internal/filestorage/store.go
package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"wasa_admin_backend/internal/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Open for a key that does not exist.
var ErrNotFound = errors.New("file not found")

// Store keeps uploaded CSV files and export archives. Keys are slash
// separated paths relative to the store root.
type Store interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewStore picks the backend named by EXPORT_STORAGE.
func NewStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.ExportStorage {
	case "s3":
		return NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Prefix, logger)
	case "local", "":
		return NewLocalStore(cfg.ExportLocalPath, logger)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.ExportStorage)
	}
}

// CleanKey rejects keys that are empty or try to leave the store root.
func CleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("key cannot be empty")
	}
	clean := path.Clean(filepath.ToSlash(key))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(clean, "/../") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return clean, nil
}

// NewKey builds a unique, date partitioned key such as
// "imports/customers/2026/10/19/<uuid>.csv".
func NewKey(dir string, now time.Time, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(dir, now.UTC().Format("2006/01/02"), uuid.New().String()+ext)
}

// SaveUpload stores a multipart CSV upload under dir and returns its key.
func SaveUpload(ctx context.Context, store Store, fileHeader *multipart.FileHeader, dir string) (string, error) {
	if fileHeader == nil {
		return "", fmt.Errorf("fileHeader cannot be nil")
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(fileHeader.Filename)))
	if ext == "" {
		contentType := fileHeader.Header.Get("Content-Type")
		switch {
		case strings.HasPrefix(contentType, "text/csv"), strings.HasPrefix(contentType, "application/csv"):
			ext = ".csv"
		case strings.HasPrefix(contentType, "text/plain"):
			ext = ".txt"
		default:
			return "", fmt.Errorf("unsupported file type or missing extension: %s", contentType)
		}
	}
	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	key := NewKey(dir, time.Now(), ext)
	if err := store.Save(ctx, key, src, "text/csv"); err != nil {
		return "", err
	}
	return key, nil
}

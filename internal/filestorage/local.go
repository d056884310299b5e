// File: internal/filestorage/local.go
package filestorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// LocalStore keeps files under a directory on the local disk.
type LocalStore struct {
	root   string
	logger *zap.Logger
}

func NewLocalStore(root string, logger *zap.Logger) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		logger.Error("Failed to create storage path directory", zap.String("path", root), zap.Error(err))
		return nil, fmt.Errorf("failed to create storage path %s: %w", root, err)
	}
	logger.Info("Local file storage initialized", zap.String("root", root))
	return &LocalStore{root: root, logger: logger.Named("local_store")}, nil
}

func (s *LocalStore) fullPath(key string) (string, error) {
	clean, err := CleanKey(key)
	if err != nil {
		s.logger.Warn("Rejected storage key", zap.String("key", key))
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *LocalStore) Save(ctx context.Context, key string, r io.Reader, contentType string) error {
	dest, err := s.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	dst, err := os.Create(dest)
	if err != nil {
		s.logger.Error("Failed to create destination file", zap.String("path", dest), zap.Error(err))
		return fmt.Errorf("failed to create file %s: %w", key, err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(dest)
		s.logger.Error("Failed to write file", zap.String("path", dest), zap.Error(err))
		return fmt.Errorf("failed to save file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", key, err)
	}
	s.logger.Info("File saved successfully", zap.String("key", key))
	return nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.fullPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes the file. A missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete file", zap.String("path", p), zap.Error(err))
		return fmt.Errorf("failed to delete file %s: %w", key, err)
	}
	return nil
}

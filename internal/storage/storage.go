package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go-reporting/internal/config"
)

// BlobStorage is the durable artifact store collaborator. Report generation
// writes through it and share downloads stream from it.
type BlobStorage interface {
	WriteArtifact(ctx context.Context, name string, data []byte) (path string, size int64, err error)
	ReadArtifact(ctx context.Context, path string) (io.ReadCloser, error)
	DeleteArtifact(ctx context.Context, path string) error
}

// LocalStorage stores artifacts under a root directory on the local filesystem.
type LocalStorage struct {
	Root string
}

func NewLocalStorage(cfg *config.Config) (BlobStorage, error) {
	if err := os.MkdirAll(cfg.FSPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &LocalStorage{Root: cfg.FSPath}, nil
}

func (s *LocalStorage) WriteArtifact(_ context.Context, name string, data []byte) (string, int64, error) {
	// Shard by month so a single directory never grows unbounded
	dir := filepath.Join(s.Root, time.Now().UTC().Format("2006-01"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, err
	}
	return path, info.Size(), nil
}

func (s *LocalStorage) ReadArtifact(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact not found: %s", path)
		}
		return nil, err
	}
	return f, nil
}

func (s *LocalStorage) DeleteArtifact(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

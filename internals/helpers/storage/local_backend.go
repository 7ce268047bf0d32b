package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

/* =======================================================================
   Backend filesystem lokal (fallback terakhir)
======================================================================= */

type LocalBackend struct {
	BaseDir string
}

func NewLocalBackendFromEnv() *LocalBackend {
	dir := getEnv("LOCAL_STORAGE_DIR")
	if dir == "" {
		dir = "./uploads"
	}
	return &LocalBackend{BaseDir: dir}
}

func (l *LocalBackend) Tag() BackendTag { return BackendLocal }

func (l *LocalBackend) Put(ctx context.Context, key string, data []byte, opt PutOptions) (ImageReference, error) {
	if key == "" {
		return ImageReference{}, fmt.Errorf("empty key")
	}
	path, err := l.safePath(key)
	if err != nil {
		return ImageReference{}, err
	}

	// subdirectory dibuat on demand
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ImageReference{}, fmt.Errorf("%w: mkdir: %v", ErrStorageUnavailable, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ImageReference{}, fmt.Errorf("%w: write %s: %v", ErrStorageUnavailable, key, err)
	}
	return ImageReference{Backend: BackendLocal, Key: key}, nil
}

func (l *LocalBackend) Get(ctx context.Context, key string) ([]byte, string, error) {
	path, err := l.safePath(key)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", ErrImageNotFound
		}
		return nil, "", fmt.Errorf("%w: read %s: %v", ErrStorageUnavailable, key, err)
	}

	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(key)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return data, ct, nil
}

func (l *LocalBackend) Delete(ctx context.Context, key string) error {
	path, err := l.safePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %v", ErrStorageUnavailable, key, err)
	}
	return nil
}

// safePath memastikan key tidak keluar dari BaseDir.
func (l *LocalBackend) safePath(key string) (string, error) {
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key: %s", key)
	}
	clean := filepath.Clean("/" + strings.TrimPrefix(key, "/"))
	return filepath.Join(l.BaseDir, clean), nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Storage stages uploaded images somewhere the detection provider can
// fetch them from. Staged objects are transient: the handler deletes them
// once the provider call returns.
type Storage interface {
	// Save stores the content under key (relative path, e.g. "ab12.png")
	// and returns an absolute public URL for it.
	Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	// Delete removes the object at key. A missing object is not an error.
	Delete(ctx context.Context, key string) error
	// PublicURL builds the absolute public URL for a given key.
	PublicURL(key string) string
	// IsLocal indicates whether this storage writes to local filesystem,
	// in which case the server must serve the staging dir itself.
	IsLocal() bool
}

// NewStorage builds a Storage from config.
func NewStorage(cfg StorageConfig, stagingDir string) (Storage, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "local":
		return NewLocalStorage(stagingDir, cfg.PublicBaseURL), nil
	case "s3", "r2":
		return newS3Storage(cfg.S3, cfg.PublicBaseURL)
	}
	return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
}

// ----- Local storage implementation -----

// LocalStorage stages files on disk under baseDir and exposes them through
// the server's /uploads static mount, so URLs are publicBase + /uploads/key.
type LocalStorage struct {
	baseDir    string
	publicBase string
}

func NewLocalStorage(baseDir, publicBase string) *LocalStorage {
	if baseDir == "" {
		baseDir = "uploads"
	}
	return &LocalStorage{baseDir: baseDir, publicBase: strings.TrimRight(publicBase, "/")}
}

func (s *LocalStorage) Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	key = filepath.ToSlash(key)
	dstPath := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return s.PublicURL(key), nil
}

func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	key = filepath.ToSlash(key)
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func (s *LocalStorage) PublicURL(key string) string {
	key = strings.TrimPrefix(filepath.ToSlash(key), "/")
	return s.publicBase + "/uploads/" + key
}

func (s *LocalStorage) IsLocal() bool { return true }

// BaseDir is the on-disk staging directory, exported for the static mount.
func (s *LocalStorage) BaseDir() string { return s.baseDir }

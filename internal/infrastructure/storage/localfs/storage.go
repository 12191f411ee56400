package localfs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Storage keeps uploaded documents as files under basePath/bucket.
type Storage struct {
	root          string
	bucket        string
	publicBaseURL string
}

func New(basePath, bucket, publicBaseURL string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	bucket = strings.Trim(strings.TrimSpace(bucket), "/")
	if bucket == "" {
		bucket = "uploads"
	}
	if strings.ContainsAny(bucket, `/\`) || bucket == ".." {
		return nil, fmt.Errorf("invalid bucket name %q", bucket)
	}
	root := filepath.Join(basePath, bucket)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{
		root:          root,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}, nil
}

// Put writes data under key and returns the key to store on the job.
// The file appears under its final name only once fully written.
func (s *Storage) Put(_ context.Context, key string, data []byte) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("rename file: %w", err)
	}
	return key, nil
}

func (s *Storage) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("blob %s not found: %w", key, err)
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// PublicURL is only available when a public base URL is configured.
func (s *Storage) PublicURL(key string) (string, bool) {
	if s.publicBaseURL == "" {
		return "", false
	}
	if _, err := s.resolve(key); err != nil {
		return "", false
	}
	return s.publicBaseURL + "/" + url.PathEscape(s.bucket) + "/" + url.PathEscape(key), true
}

func (s *Storage) resolve(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, key), nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidPath is returned for object paths escaping their bucket.
var ErrInvalidPath = errors.New("invalid object path")

// ErrObjectNotFound is returned when an object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object describes a stored file.
type Object struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// LocalStorage keeps bucketed objects on disk under a base directory.
// Object paths have the form "<bucket>/<name>".
type LocalStorage struct {
	baseDir       string
	publicBaseURL string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir, publicBaseURL string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Put writes data to bucket/name and returns the object path.
func (s *LocalStorage) Put(ctx context.Context, bucket, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	objectPath, err := ObjectPath(bucket, name)
	if err != nil {
		return "", err
	}
	full := s.resolve(objectPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("prepare bucket directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return objectPath, nil
}

// Open returns a read-only handle for the object.
func (s *LocalStorage) Open(objectPath string) (*os.File, error) {
	if err := validatePath(objectPath); err != nil {
		return nil, err
	}
	file, err := os.Open(s.resolve(objectPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	return file, nil
}

// Stat returns metadata of the object.
func (s *LocalStorage) Stat(objectPath string) (Object, error) {
	if err := validatePath(objectPath); err != nil {
		return Object{}, err
	}
	info, err := os.Stat(s.resolve(objectPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Object{}, ErrObjectNotFound
		}
		return Object{}, fmt.Errorf("stat object: %w", err)
	}
	return Object{Path: objectPath, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Delete removes an object if present.
func (s *LocalStorage) Delete(ctx context.Context, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePath(objectPath); err != nil {
		return err
	}
	if err := os.Remove(s.resolve(objectPath)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// List walks the objects stored under prefix.
func (s *LocalStorage) List(prefix string) ([]Object, error) {
	if err := validatePath(prefix); err != nil {
		return nil, err
	}
	root := s.resolve(prefix)
	objects := make([]Object, 0)
	err := filepath.WalkDir(root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, full)
		if err != nil {
			return err
		}
		objects = append(objects, Object{Path: filepath.ToSlash(rel), Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	return objects, nil
}

// PublicURL returns the unauthenticated URL of an object.
func (s *LocalStorage) PublicURL(objectPath string) string {
	if s.publicBaseURL == "" {
		return "/" + objectPath
	}
	return s.publicBaseURL + "/" + objectPath
}

// Dir returns the on-disk root, used to serve public buckets statically.
func (s *LocalStorage) Dir() string {
	return s.baseDir
}

func (s *LocalStorage) resolve(objectPath string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(objectPath))
}

// ObjectPath joins a bucket and object name, rejecting traversal.
func ObjectPath(bucket, name string) (string, error) {
	if bucket == "" || name == "" {
		return "", ErrInvalidPath
	}
	joined := path.Join(bucket, name)
	if err := validatePath(joined); err != nil {
		return "", err
	}
	if !strings.HasPrefix(joined, bucket+"/") {
		return "", ErrInvalidPath
	}
	return joined, nil
}

// SplitObjectPath returns the bucket and name of an object path.
func SplitObjectPath(objectPath string) (bucket, name string, err error) {
	if err := validatePath(objectPath); err != nil {
		return "", "", err
	}
	bucket, name, ok := strings.Cut(objectPath, "/")
	if !ok || bucket == "" || name == "" {
		return "", "", ErrInvalidPath
	}
	return bucket, name, nil
}

func validatePath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return ErrInvalidPath
	}
	if path.Clean(p) != p {
		return ErrInvalidPath
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." || part == "." {
			return ErrInvalidPath
		}
	}
	return nil
}

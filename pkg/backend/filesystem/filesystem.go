// Package filesystem implements a backend.Backend that stores one file per
// key under a base directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kylerisse/metricstore/pkg/backend"
	"github.com/sirupsen/logrus"
)

// Kind is the registered name for this backend.
const Kind backend.Kind = "TupleFilesystemStoreBackend"

// tempPrefix marks in-flight writes; ListKeys skips these files.
const tempPrefix = ".metricstore-"

// ErrInvalidKey is returned for keys that cannot be mapped to a file path.
var ErrInvalidKey = errors.New("invalid key")

// DefaultForbiddenSubstrings are rejected inside key elements.
var DefaultForbiddenSubstrings = []string{"/", "\\"}

// Backend stores each value in its own file. Key elements become
// directories and the last element becomes the file name:
//
//	{baseDir}/{prefix}/{k0}/{k1}/.../{kN}{suffix}
//
// Writes go through a temporary file and a rename, so readers never see
// a partially written value.
type Backend struct {
	baseDir   string
	prefix    string
	suffix    string
	forbidden []string
	mutex     sync.RWMutex // serializes writers against ListKeys walks
	logger    *logrus.Logger
}

// Option is a functional option for configuring a filesystem Backend.
type Option func(*Backend) error

// WithPrefix places all files under an extra directory inside baseDir.
func WithPrefix(prefix string) Option {
	return func(b *Backend) error {
		clean := filepath.Clean(prefix)
		if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
			return fmt.Errorf("filepath_prefix %q must be a relative path inside the base directory", prefix)
		}
		if clean == "." {
			clean = ""
		}
		b.prefix = clean
		return nil
	}
}

// WithSuffix appends a suffix such as ".json" to every file name.
func WithSuffix(suffix string) Option {
	return func(b *Backend) error {
		if strings.ContainsAny(suffix, `/\`) {
			return fmt.Errorf("filepath_suffix %q must not contain path separators", suffix)
		}
		b.suffix = suffix
		return nil
	}
}

// WithForbiddenSubstrings replaces the substrings rejected inside key
// elements. Path separators are always rejected.
func WithForbiddenSubstrings(subs []string) Option {
	return func(b *Backend) error {
		b.forbidden = append(append([]string(nil), DefaultForbiddenSubstrings...), subs...)
		return nil
	}
}

// New creates a filesystem Backend rooted at baseDir, creating the
// directory if it does not exist.
func New(baseDir string, logger *logrus.Logger, opts ...Option) (*Backend, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("filesystem: base directory is required")
	}
	if logger == nil {
		logger = backend.DiscardLogger()
	}

	b := &Backend{
		baseDir:   filepath.Clean(baseDir),
		forbidden: DefaultForbiddenSubstrings,
		logger:    logger,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("filesystem: %w", err)
		}
	}

	root := b.root()
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("filesystem: failed to create directory %s: %w", root, err)
	}
	logger.Debugf("filesystem: backend rooted at %s (suffix %q).", root, b.suffix)
	return b, nil
}

// Factory creates a filesystem Backend from a config map.
//
// Required key: "base_directory" (string).
// Optional keys:
//   - "filepath_prefix" (string): extra directory under base_directory
//   - "filepath_suffix" (string): file name suffix, e.g. ".json"
//   - "forbidden_substrings" (list of strings): rejected inside key elements
func Factory(cfg backend.Config, logger *logrus.Logger) (backend.Backend, error) {
	baseDir, ok, err := cfg.String("base_directory")
	if err != nil {
		return nil, fmt.Errorf("filesystem: %w", err)
	}
	if !ok || baseDir == "" {
		return nil, fmt.Errorf("filesystem: config missing required key 'base_directory'")
	}

	var opts []Option
	if prefix, ok, err := cfg.String("filepath_prefix"); err != nil {
		return nil, fmt.Errorf("filesystem: %w", err)
	} else if ok {
		opts = append(opts, WithPrefix(prefix))
	}
	if suffix, ok, err := cfg.String("filepath_suffix"); err != nil {
		return nil, fmt.Errorf("filesystem: %w", err)
	} else if ok {
		opts = append(opts, WithSuffix(suffix))
	}
	if subs, ok, err := cfg.Strings("forbidden_substrings"); err != nil {
		return nil, fmt.Errorf("filesystem: %w", err)
	} else if ok {
		opts = append(opts, WithForbiddenSubstrings(subs))
	}

	return New(baseDir, logger, opts...)
}

// Kind returns the backend kind name.
func (b *Backend) Kind() backend.Kind {
	return Kind
}

// Root returns the directory that holds all key files.
func (b *Backend) Root() string {
	return b.root()
}

func (b *Backend) root() string {
	return filepath.Join(b.baseDir, b.prefix)
}

func (b *Backend) Get(_ context.Context, key backend.Key) (string, bool, error) {
	path, err := b.path(key)
	if err != nil {
		return "", false, err
	}

	b.mutex.RLock()
	defer b.mutex.RUnlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("filesystem: failed to read %s: %w", path, err)
	}
	return string(data), true, nil
}

func (b *Backend) Set(_ context.Context, key backend.Key, value string) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("filesystem: failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("filesystem: failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("filesystem: failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filesystem: failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filesystem: failed to move value into %s: %w", path, err)
	}

	b.logger.Debugf("filesystem: wrote %s (%d bytes).", path, len(value))
	return nil
}

func (b *Backend) Has(_ context.Context, key backend.Key) (bool, error) {
	path, err := b.path(key)
	if err != nil {
		return false, err
	}

	b.mutex.RLock()
	defer b.mutex.RUnlock()

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("filesystem: failed to stat %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

func (b *Backend) Remove(_ context.Context, key backend.Key) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filesystem: failed to remove %s: %w", path, err)
	}
	b.logger.Debugf("filesystem: removed %s.", path)
	return nil
}

// ListKeys walks the directory tree and returns matching keys in lexical
// path order.
func (b *Backend) ListKeys(_ context.Context, prefix backend.Key) ([]backend.Key, error) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	root := b.root()
	var keys []backend.Key
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		if !strings.HasSuffix(d.Name(), b.suffix) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := backend.Key(strings.Split(filepath.ToSlash(rel), "/"))
		last := len(key) - 1
		key[last] = strings.TrimSuffix(key[last], b.suffix)

		if key.HasPrefix(prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filesystem: failed to list %s: %w", root, err)
	}
	return keys, nil
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}

// path maps a key to its file path, rejecting elements that would escape
// the backend root or collide with the directory layout.
func (b *Backend) path(key backend.Key) (string, error) {
	if len(key) == 0 {
		return "", fmt.Errorf("filesystem: %w: empty key", ErrInvalidKey)
	}
	parts := make([]string, 0, len(key)+1)
	parts = append(parts, b.root())
	for i, elem := range key {
		if elem == "" || elem == "." || elem == ".." {
			return "", fmt.Errorf("filesystem: %w: element %d of %s is %q", ErrInvalidKey, i, key, elem)
		}
		if strings.HasPrefix(elem, tempPrefix) {
			return "", fmt.Errorf("filesystem: %w: element %q uses a reserved prefix", ErrInvalidKey, elem)
		}
		for _, sub := range b.forbidden {
			if sub != "" && strings.Contains(elem, sub) {
				return "", fmt.Errorf("filesystem: %w: element %q contains forbidden substring %q", ErrInvalidKey, elem, sub)
			}
		}
		if i == len(key)-1 {
			elem += b.suffix
		}
		parts = append(parts, elem)
	}
	return filepath.Join(parts...), nil
}

// Package state provides the file-backed implementation of storage.Store.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/medistore/medistore/internal/domain/storage"
)

// FileStore keeps every key in a single JSON document on disk.
// Writes are read-modify-write cycles guarded by an in-process mutex and a
// cross-process flock, and land atomically (write-tmp, fsync, rename), so a
// reader never observes a partial document.
type FileStore struct {
	path      string
	mu        sync.Mutex
	logger    *slog.Logger
	permCheck sync.Once
}

// NewFileStore creates a FileStore for the given file path. The parent
// directory is created on first write.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// SetString stores value under key.
func (s *FileStore) SetString(key, value string) error {
	return s.update(func(doc *Document) bool {
		if cur, ok := doc.Values[key]; ok && cur == value {
			return false
		}
		doc.Values[key] = value
		return true
	})
}

// GetString returns the value under key.
func (s *FileStore) GetString(key string) (string, bool, error) {
	doc, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := doc.Values[key]
	return v, ok, nil
}

// Remove deletes key and reports whether it existed.
func (s *FileStore) Remove(key string) (bool, error) {
	var existed bool
	err := s.update(func(doc *Document) bool {
		_, existed = doc.Values[key]
		delete(doc.Values, key)
		return existed
	})
	return existed, err
}

// ClearAll removes every key.
func (s *FileStore) ClearAll() error {
	return s.update(func(doc *Document) bool {
		if len(doc.Values) == 0 {
			return false
		}
		doc.Values = make(map[string]string)
		return true
	})
}

// Contains reports whether key holds a value.
func (s *FileStore) Contains(key string) (bool, error) {
	_, ok, err := s.GetString(key)
	return ok, err
}

// Keys returns all keys in ascending order.
func (s *FileStore) Keys() ([]string, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(doc.Values))
	for k := range doc.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Exists returns true if the store file exists on disk.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the configured file path.
func (s *FileStore) Path() string {
	return s.path
}

// read loads the document. A missing file is an empty document; a corrupt
// one is logged and treated as empty.
func (s *FileStore) read() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newDocument(), nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}
	s.permCheck.Do(s.checkPermissions)
	doc, err := decodeDocument(data)
	if err != nil {
		s.logger.Warn("store file is corrupt, treating as empty", "path", s.path, "error", err)
		return newDocument(), nil
	}
	return doc, nil
}

func decodeDocument(data []byte) (*Document, error) {
	doc := newDocument()
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	if doc.Values == nil {
		doc.Values = make(map[string]string)
	}
	return doc, nil
}

// update applies mutate to the current document and persists it when mutate
// reports a change.
//
// The write sequence is:
//  1. Acquire in-process mutex
//  2. Acquire flock on path+".lock"
//  3. Read the current document (corrupt documents are moved to path+".corrupt")
//  4. Apply the mutation
//  5. Write to path+".tmp" with 0600 permissions, fsync, rename over path
//  6. Release flock, then mutex
func (s *FileStore) update(mutate func(doc *Document) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	lockFile, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = lockFile.Close() }()

	unlock, err := lockExclusive(lockFile)
	if err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer unlock() //nolint:errcheck

	doc := newDocument()
	if data, readErr := os.ReadFile(s.path); readErr == nil {
		s.permCheck.Do(s.checkPermissions)
		decoded, decErr := decodeDocument(data)
		if decErr != nil {
			s.logger.Warn("store file is corrupt, starting fresh",
				"path", s.path, "backup", s.path+".corrupt", "error", decErr)
			if writeErr := os.WriteFile(s.path+".corrupt", data, 0600); writeErr != nil {
				s.logger.Warn("failed to back up corrupt store file", "error", writeErr)
			}
		} else {
			doc = decoded
		}
	} else if !errors.Is(readErr, os.ErrNotExist) {
		return fmt.Errorf("read store file: %w", readErr)
	}

	if !mutate(doc) {
		return nil
	}

	doc.Version = documentVersion
	doc.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	data = append(data, '\n')

	if err := s.writeAtomic(data); err != nil {
		return err
	}
	s.logger.Debug("store saved", "path", s.path, "keys", len(doc.Values))
	return nil
}

// checkPermissions warns once if the existing file is readable by group or other.
// Skipped on Windows where Unix permission bits are not supported.
func (s *FileStore) checkPermissions() {
	if runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		s.logger.Warn("store file has too-open permissions, should be 0600",
			"path", s.path, "current_mode", fmt.Sprintf("%04o", mode))
	}
}

// writeAtomic writes data to a temp file, fsyncs it, and renames it
// over the target path. On any error the temp file is cleaned up.
func (s *FileStore) writeAtomic(data []byte) error {
	tmpPath := s.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to store: %w", err)
	}
	if err := syncDir(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("fsync store directory: %w", err)
	}
	return nil
}

var _ storage.Store = (*FileStore)(nil)

package facts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Entry is a stored fact document. Path is where external tools can read it.
type Entry struct {
	Key  string
	Path string
}

// Store is a key to fact document store. PutIfAbsent must be atomic: of two
// concurrent writers for a key exactly one creates the entry and both get it
// back.
type Store interface {
	Key(lib, prefix string) string
	Lookup(key string) (Entry, bool, error)
	PutIfAbsent(key string, data []byte) (Entry, bool, error)
}

// FileStore keeps one JSON file per key under Dir, mirroring the library
// path: /usr/lib/libz.so with prefix "smeagle" is stored at
// <Dir>/smeagle-usr/lib/libz.so.json.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) Key(lib, prefix string) string {
	name := strings.Trim(filepath.Clean(string(os.PathSeparator)+lib), string(os.PathSeparator))
	if prefix != "" {
		name = prefix + "-" + name
	}
	return name + ".json"
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.Dir, key)
}

func (s *FileStore) Lookup(key string) (Entry, bool, error) {
	p := s.path(key)
	fi, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to stat fact entry '%s': %w", p, err)
	}
	if fi.IsDir() {
		return Entry{}, false, fmt.Errorf("fact entry '%s' is a directory", p)
	}
	return Entry{Key: key, Path: p}, true, nil
}

// PutIfAbsent writes data under key unless an entry already exists. A file
// lock next to the entry serializes writers across processes sharing Dir;
// the document is renamed into place so readers never see a partial file.
func (s *FileStore) PutIfAbsent(key string, data []byte) (Entry, bool, error) {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Entry{}, false, fmt.Errorf("failed to create cache directory: %w", err)
	}

	lock := flock.New(p + ".lock")
	if err := lock.Lock(); err != nil {
		return Entry{}, false, fmt.Errorf("failed to lock fact entry '%s': %w", p, err)
	}
	defer lock.Unlock()

	if entry, ok, err := s.Lookup(key); err != nil || ok {
		return entry, false, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".facts-*")
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Entry{}, false, fmt.Errorf("failed to write fact entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Entry{}, false, fmt.Errorf("failed to write fact entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return Entry{}, false, fmt.Errorf("failed to store fact entry '%s': %w", p, err)
	}
	return Entry{Key: key, Path: p}, true, nil
}

// OpenDir prepares a cache directory. An empty dir yields a process-scoped
// temporary directory that cleanup removes; otherwise the directory is
// created if needed and kept.
func OpenDir(dir string) (string, func() error, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "spliced-cache-")
		if err != nil {
			return "", nil, fmt.Errorf("failed to create temporary cache directory: %w", err)
		}
		return tmp, func() error { return os.RemoveAll(tmp) }, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create cache directory '%s': %w", dir, err)
	}
	return dir, func() error { return nil }, nil
}

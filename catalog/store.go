package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/lo"
)

// Store is the model list used by the web app and its admin API.
type Store interface {
	List(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, provider, model string) (Entry, error)
	Add(ctx context.Context, e Entry) (Entry, error)
	Update(ctx context.Context, provider, model string, e Entry) (Entry, error)
	Delete(ctx context.Context, provider, model string) error
	Import(ctx context.Context, entries []Entry) (int, error)
}

// FileStore keeps the model list in a JSON file. Every call reads the whole
// file and every mutation rewrites it, so edits made by hand show up at once.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// Open returns a FileStore for path, writing seed to it when the file does not exist.
func Open(path string, seed []Entry) (*FileStore, error) {
	s := &FileStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		normalized := make([]Entry, 0, len(seed))
		for _, e := range seed {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("seed %s: %w", e.Key(), err)
			}
			normalized = append(normalized, n)
		}
		if err := s.write(normalized); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat models file: %w", err)
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) read() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read models file: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse models file %s: %w", s.path, err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// write replaces the file through a temp file in the same directory.
func (s *FileStore) write(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode models: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".models-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write models file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write models file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace models file: %w", err)
	}
	return nil
}

func indexOf(entries []Entry, k Key) int {
	_, i, ok := lo.FindIndexOf(entries, func(e Entry) bool { return e.Key() == k })
	if !ok {
		return -1
	}
	return i
}

func key(provider, model string) Key {
	// lookups accept the same provider aliases as writes
	if n, err := Normalize(Entry{Provider: provider, Model: model}); err == nil {
		return n.Key()
	}
	return Key{Provider: provider, Model: model}
}

// List returns every entry in file order.
func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Get returns the entry for (provider, model).
func (s *FileStore) Get(ctx context.Context, provider, model string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return Entry{}, err
	}
	i := indexOf(entries, key(provider, model))
	if i < 0 {
		return Entry{}, fmt.Errorf("%w: %s/%s", ErrNotFound, provider, model)
	}
	return entries[i], nil
}

// Add appends e. A duplicate key fails with ErrExists.
func (s *FileStore) Add(ctx context.Context, e Entry) (Entry, error) {
	e, err := Normalize(e)
	if err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return Entry{}, err
	}
	if indexOf(entries, e.Key()) >= 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrExists, e.Key())
	}
	if err := s.write(append(entries, e)); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Update replaces the entry for (provider, model) with e, keeping its position.
// Empty key fields in e are taken from the path. Renaming onto another
// entry's key fails with ErrExists.
func (s *FileStore) Update(ctx context.Context, provider, model string, e Entry) (Entry, error) {
	if e.Provider == "" {
		e.Provider = provider
	}
	if e.Model == "" {
		e.Model = model
	}
	e, err := Normalize(e)
	if err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return Entry{}, err
	}
	i := indexOf(entries, key(provider, model))
	if i < 0 {
		return Entry{}, fmt.Errorf("%w: %s/%s", ErrNotFound, provider, model)
	}
	if j := indexOf(entries, e.Key()); j >= 0 && j != i {
		return Entry{}, fmt.Errorf("%w: %s", ErrExists, e.Key())
	}
	entries[i] = e
	if err := s.write(entries); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Delete removes the entry for (provider, model).
func (s *FileStore) Delete(ctx context.Context, provider, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}
	i := indexOf(entries, key(provider, model))
	if i < 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, provider, model)
	}
	return s.write(append(entries[:i], entries[i+1:]...))
}

// Import adds the entries whose key is not present yet and returns how many
// were added. Nothing is written if any entry is invalid.
func (s *FileStore) Import(ctx context.Context, in []Entry) (int, error) {
	normalized := make([]Entry, 0, len(in))
	for _, e := range in {
		n, err := Normalize(e)
		if err != nil {
			return 0, err
		}
		normalized = append(normalized, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return 0, err
	}
	seen := lo.SliceToMap(entries, func(e Entry) (Key, bool) { return e.Key(), true })
	added := 0
	for _, e := range normalized {
		if seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		entries = append(entries, e)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.write(entries); err != nil {
		return 0, err
	}
	return added, nil
}

var _ Store = (*FileStore)(nil)

package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
	"gopkg.in/yaml.v3"
)

const (
	stateFileName = "state.yaml"
	appDirName    = "gkadmin"
)

// Stored is everything the console keeps on the client side between runs.
// All of it is wiped on logout and on an unrecoverable session expiry.
type Stored struct {
	User      *client.User          `yaml:"user,omitempty"`
	LastPath  string                `yaml:"last_path,omitempty"`
	Cookies   []client.StoredCookie `yaml:"cookies,omitempty"`
	UpdatedAt time.Time             `yaml:"updated_at,omitempty"`
}

// Storage persists Stored.
type Storage interface {
	Load() (Stored, error)
	Update(fn func(*Stored)) error
	Clear() error
}

// FileStorage keeps Stored in a YAML file readable only by the owner.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

// NewFileStorage creates a FileStorage at path. An empty path selects
// $XDG_STATE_HOME/gkadmin/state.yaml (or ~/.local/state/gkadmin/state.yaml).
func NewFileStorage(path string) *FileStorage {
	if path == "" {
		path = filepath.Join(DefaultStateDir(), stateFileName)
	}
	return &FileStorage{path: path}
}

// DefaultStateDir returns the per-user state directory.
func DefaultStateDir() string {
	if base := os.Getenv("XDG_STATE_HOME"); base != "" {
		return filepath.Join(base, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".local", "state", appDirName)
}

// Path returns the state file location.
func (s *FileStorage) Path() string { return s.path }

// Load reads the state file. A missing file yields an empty Stored.
func (s *FileStorage) Load() (Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStorage) load() (Stored, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Stored{}, nil
		}
		return Stored{}, fmt.Errorf("reading state: %w", err)
	}
	var st Stored
	if err := yaml.Unmarshal(data, &st); err != nil {
		return Stored{}, fmt.Errorf("parsing state: %w", err)
	}
	return st, nil
}

// Update applies fn to the stored state and writes it back atomically.
func (s *FileStorage) Update(fn func(*Stored)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		// Corrupt state is discarded.
		st = Stored{}
	}
	fn(&st)
	st.UpdatedAt = time.Now().UTC()
	return s.save(st)
}

func (s *FileStorage) save(st Stored) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming state file: %w", err)
	}
	committed = true
	return nil
}

// Clear removes the state file.
func (s *FileStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing state: %w", err)
	}
	return nil
}

// MemoryStorage keeps Stored in memory. Used by one-shot commands and tests.
type MemoryStorage struct {
	mu sync.Mutex
	st Stored
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load() (Stored, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyState(m.st), nil
}

func (m *MemoryStorage) Update(fn func(*Stored)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := copyState(m.st)
	fn(&st)
	st.UpdatedAt = time.Now().UTC()
	m.st = st
	return nil
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = Stored{}
	return nil
}

func copyState(st Stored) Stored {
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	st.Cookies = append([]client.StoredCookie(nil), st.Cookies...)
	return st
}

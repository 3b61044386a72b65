// Package profilestore persists provider connection profiles to a JSON
// file and coordinates their API keys with the OS secret store (spec.md
// §4.8, §6): load/save/get/upsert/delete, with base_url and header
// validation applied before a profile is ever written to disk.
package profilestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hqescan/scanner/internal/discovery"
	"github.com/hqescan/scanner/internal/secretstore"
)

// Profile is one provider connection profile (spec.md §6's profile file
// format). APIKeyID is an opaque reference into the secret store, never
// the key itself.
type Profile struct {
	Name          string            `json:"name"`
	BaseURL       string            `json:"base_url"`
	APIKeyID      string            `json:"api_key_id,omitempty"`
	DefaultModel  string            `json:"default_model"`
	Headers       map[string]string `json:"headers,omitempty"`
	Organization  string            `json:"organization,omitempty"`
	Project       string            `json:"project,omitempty"`
	ProviderKind  discovery.Kind    `json:"provider_kind,omitempty"`
	TimeoutS      int               `json:"timeout_s"`
}

// Validate checks a profile's base_url and headers before it is persisted,
// per spec.md §6: "Validation on load: base_url must parse and use
// http(s); header names must be [A-Za-z0-9-]+; no header value may contain
// control characters; Authorization is rejected."
func (p Profile) Validate() error {
	if _, err := discovery.SanitizeBaseURL(p.BaseURL); err != nil {
		return fmt.Errorf("profilestore: profile %q: %w", p.Name, err)
	}
	if _, err := discovery.SanitizeHeaders(p.Headers); err != nil {
		return fmt.Errorf("profilestore: profile %q: %w", p.Name, err)
	}
	return nil
}

// Store persists a flat list of Profiles.
type Store interface {
	ProfilesPath() string
	LoadProfiles() ([]Profile, error)
	SaveProfiles(profiles []Profile) error
	GetProfile(name string) (*Profile, bool, error)
	UpsertProfile(p Profile) error
	DeleteProfile(name string) (bool, error)
}

// FileStore is the default Store: a whole-file JSON array at an
// OS-specific data directory, rewritten wholesale on every mutation
// (spec.md §5: "concurrent writers are not supported").
type FileStore struct {
	path string
}

// DefaultDataDir returns the OS-specific application data directory used
// for the profiles file (spec.md §6: "<data_local>/hqe-workbench/").
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "hqe-workbench")
}

// NewFileStore constructs a FileStore rooted at dir/profiles.json. An
// empty dir uses DefaultDataDir.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = DefaultDataDir()
	}
	return &FileStore{path: filepath.Join(dir, "profiles.json")}
}

func (f *FileStore) ProfilesPath() string {
	return f.path
}

func (f *FileStore) LoadProfiles() ([]Profile, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("profilestore: read %s: %w", f.path, err)
	}
	var profiles []Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("profilestore: decode %s: %w", f.path, err)
	}
	return profiles, nil
}

func (f *FileStore) SaveProfiles(profiles []Profile) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("profilestore: create dir: %w", err)
	}
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("profilestore: encode profiles: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("profilestore: write %s: %w", f.path, err)
	}
	return nil
}

func (f *FileStore) GetProfile(name string) (*Profile, bool, error) {
	profiles, err := f.LoadProfiles()
	if err != nil {
		return nil, false, err
	}
	for _, p := range profiles {
		if p.Name == name {
			return &p, true, nil
		}
	}
	return nil, false, nil
}

func (f *FileStore) UpsertProfile(p Profile) error {
	profiles, err := f.LoadProfiles()
	if err != nil {
		return err
	}
	out := profiles[:0]
	for _, existing := range profiles {
		if existing.Name != p.Name {
			out = append(out, existing)
		}
	}
	out = append(out, p)
	return f.SaveProfiles(out)
}

func (f *FileStore) DeleteProfile(name string) (bool, error) {
	profiles, err := f.LoadProfiles()
	if err != nil {
		return false, err
	}
	out := profiles[:0]
	deleted := false
	for _, existing := range profiles {
		if existing.Name == name {
			deleted = true
			continue
		}
		out = append(out, existing)
	}
	if !deleted {
		return false, nil
	}
	return true, f.SaveProfiles(out)
}

// MemoryStore is an in-process Store for tests.
type MemoryStore struct {
	mu       sync.Mutex
	profiles []Profile
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) ProfilesPath() string {
	return ":memory:"
}

func (m *MemoryStore) LoadProfiles() ([]Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Profile, len(m.profiles))
	copy(out, m.profiles)
	return out, nil
}

func (m *MemoryStore) SaveProfiles(profiles []Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = append([]Profile(nil), profiles...)
	return nil
}

func (m *MemoryStore) GetProfile(name string) (*Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Name == name {
			cp := p
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

func (m *MemoryStore) UpsertProfile(p Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.profiles[:0]
	for _, existing := range m.profiles {
		if existing.Name != p.Name {
			out = append(out, existing)
		}
	}
	m.profiles = append(out, p)
	return nil
}

func (m *MemoryStore) DeleteProfile(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.profiles[:0]
	deleted := false
	for _, existing := range m.profiles {
		if existing.Name == name {
			deleted = true
			continue
		}
		out = append(out, existing)
	}
	m.profiles = out
	return deleted, nil
}

// Manager combines profile persistence with API-key storage, validating
// base_url/headers before a profile ever touches disk.
type Manager struct {
	store    Store
	keyStore secretstore.Store
}

// NewManager constructs a Manager over the given profile and key stores.
func NewManager(store Store, keyStore secretstore.Store) *Manager {
	return &Manager{store: store, keyStore: keyStore}
}

// LoadProfiles returns every stored profile, without API keys.
func (m *Manager) LoadProfiles() ([]Profile, error) {
	return m.store.LoadProfiles()
}

// GetProfileWithKey returns a profile together with its API key, if any.
func (m *Manager) GetProfileWithKey(name string) (*Profile, secretstore.Secret, bool, error) {
	profile, ok, err := m.store.GetProfile(name)
	if err != nil || !ok {
		return nil, secretstore.Secret{}, false, err
	}
	key, found, err := m.keyStore.Get(name)
	if err != nil {
		return nil, secretstore.Secret{}, false, fmt.Errorf("profilestore: load key for %q: %w", name, err)
	}
	if !found {
		return profile, secretstore.Secret{}, true, nil
	}
	return profile, key, true, nil
}

// SaveProfile validates and persists profile, and stores apiKey (if
// non-empty) in the key store under the same profile name.
func (m *Manager) SaveProfile(profile Profile, apiKey *secretstore.Secret) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if err := m.store.UpsertProfile(profile); err != nil {
		return err
	}
	if apiKey != nil {
		if err := m.keyStore.Set(profile.Name, *apiKey); err != nil {
			return fmt.Errorf("profilestore: store key for %q: %w", profile.Name, err)
		}
	}
	return nil
}

// DeleteProfile deletes a profile and its matching secret (spec.md §4.8:
// "Deleting a profile also deletes the matching secret").
func (m *Manager) DeleteProfile(name string) (bool, error) {
	deleted, err := m.store.DeleteProfile(name)
	if err != nil {
		return false, err
	}
	if deleted {
		if err := m.keyStore.Delete(name); err != nil {
			return true, fmt.Errorf("profilestore: profile %q deleted but key deletion failed: %w", name, err)
		}
	}
	return deleted, nil
}

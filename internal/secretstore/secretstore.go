// Package secretstore provides a secret-carrying string wrapper that never
// leaks its value through default formatting, and an OS-keyring-backed
// store for provider API keys (spec.md §4.8, §6, §9).
package secretstore

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

// service is the fixed application identifier used as the keyring service
// name for every account (spec.md §6: "service is a fixed application
// identifier").
const service = "hqe-workbench"

// Secret wraps a sensitive string so it never appears in logs, error
// messages, or %v/%+v formatting by accident. Callers must call Expose to
// read the underlying value.
type Secret struct {
	value string
}

// NewSecret wraps value in a Secret.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Expose returns the wrapped value. Call sites should be narrow and
// deliberate — this is the only way to read a Secret's contents.
func (s Secret) Expose() string {
	return s.value
}

// IsEmpty reports whether the wrapped value is the empty string.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}

// String implements fmt.Stringer, redacting the value so Secret is safe to
// interpolate into log lines or error messages by accident.
func (s Secret) String() string {
	return "Secret(REDACTED)"
}

// GoString implements fmt.GoStringer for the same reason String does.
func (s Secret) GoString() string {
	return "secretstore.Secret{REDACTED}"
}

// account builds the keyring account name for a profile's API key
// (spec.md §6: account is "api_key:<profile_name>").
func account(profileName string) string {
	return "api_key:" + profileName
}

// Store is the OS-level secret store abstraction: get/set/delete keyed by
// profile name (spec.md §6 — "the only operations used are get/set/delete").
type Store interface {
	Get(profileName string) (Secret, bool, error)
	Set(profileName string, value Secret) error
	Delete(profileName string) error
}

// KeyringStore backs Store with the host OS secret store (macOS Keychain,
// Windows Credential Manager, the Secret Service on Linux via D-Bus).
type KeyringStore struct{}

// NewKeyringStore constructs a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

// Get retrieves the API key for profileName. A missing entry returns
// (Secret{}, false, nil) rather than an error.
func (k *KeyringStore) Get(profileName string) (Secret, bool, error) {
	pw, err := keyring.Get(service, account(profileName))
	if err != nil {
		if err == keyring.ErrNotFound {
			return Secret{}, false, nil
		}
		return Secret{}, false, fmt.Errorf("secretstore: get %q: %w", profileName, err)
	}
	return NewSecret(pw), true, nil
}

// Set stores value as the API key for profileName, overwriting any
// existing entry.
func (k *KeyringStore) Set(profileName string, value Secret) error {
	if err := keyring.Set(service, account(profileName), value.Expose()); err != nil {
		return fmt.Errorf("secretstore: set %q: %w", profileName, err)
	}
	return nil
}

// Delete removes the API key for profileName. Deleting an already-absent
// entry is not an error.
func (k *KeyringStore) Delete(profileName string) error {
	if err := keyring.Delete(service, account(profileName)); err != nil {
		if err == keyring.ErrNotFound {
			return nil
		}
		return fmt.Errorf("secretstore: delete %q: %w", profileName, err)
	}
	return nil
}

// MemoryStore is an in-process Store for tests and local-only runs that
// never touch the OS keyring.
type MemoryStore struct {
	values map[string]Secret
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]Secret)}
}

func (m *MemoryStore) Get(profileName string) (Secret, bool, error) {
	v, ok := m.values[profileName]
	return v, ok, nil
}

func (m *MemoryStore) Set(profileName string, value Secret) error {
	m.values[profileName] = value
	return nil
}

func (m *MemoryStore) Delete(profileName string) error {
	delete(m.values, profileName)
	return nil
}

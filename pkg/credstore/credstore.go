// Package credstore stores per-provider FDSN credentials (username/password
// pairs used for restricted-data access) in the operating system's native
// keyring, with a file-based fallback when no keyring is available.
//
// Adapted from pkg/credman/keyring's single-key Keyring: that type stores
// exactly one 256-bit key under a fixed (AppName, KeyField) pair; this
// package generalizes KeyField to the provider name, so one Keyring instance
// serves every configured provider.
package credstore

import (
	"encoding/json"
	"errors"

	"github.com/zalando/go-keyring"
)

// ErrNoCredential is returned when no credential has been stored for a
// provider.
var ErrNoCredential = errors.New("credstore: no credential stored for provider")

// Credential is one provider's FDSN username/password pair (spec.md
// §4.3.EXT: credentialed providers).
type Credential struct {
	Username string
	Password string
}

// Store persists and retrieves provider credentials.
type Store interface {
	Get(provider string) (Credential, error)
	Set(provider string, cred Credential) error
	Delete(provider string) error
}

const appName = "seismicd"

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
)

// Keyring is a Store backed by the OS keyring (Keychain / Secret Service /
// Credential Manager), keyed by (appName, provider name) the same way
// pkg/credman/keyring.Keyring is keyed by (AppName, KeyField).
type Keyring struct{}

// NewKeyring returns a Store that keeps every provider's credential under
// the "seismicd" application name, one keyring entry per provider.
func NewKeyring() *Keyring {
	return &Keyring{}
}

// Set stores cred as a JSON blob under the provider's keyring entry.
func (k *Keyring) Set(provider string, cred Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return keyringSet(appName, provider, string(data))
}

// Get retrieves and decodes the provider's stored credential. Returns
// ErrNoCredential (in place of the keyring's not-found error) if none exists.
func (k *Keyring) Get(provider string) (Credential, error) {
	raw, err := keyringGet(appName, provider)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Credential{}, ErrNoCredential
		}
		return Credential{}, err
	}
	var cred Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return Credential{}, err
	}
	return cred, nil
}

// Delete removes the provider's stored credential, if any.
func (k *Keyring) Delete(provider string) error {
	return keyringDelete(appName, provider)
}

var _ Store = (*Keyring)(nil)

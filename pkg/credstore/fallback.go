package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/seismic-go/seismicd/pkg/logger"
)

// FileStore is a Store backed by one JSON file per provider in a
// configuration directory, the fallback used when the OS keyring is
// unavailable (e.g. headless CI runners), adapted from
// pkg/credman/keyring.FileKeyStore's atomic-write pattern.
type FileStore struct {
	configDir string
}

// NewFileStore returns a Store that writes one <provider>.cred file per
// provider under configDir.
func NewFileStore(configDir string) *FileStore {
	return &FileStore{configDir: configDir}
}

func (f *FileStore) path(provider string) string {
	return filepath.Join(f.configDir, provider+".cred")
}

// Set writes the credential atomically: write to a temp file, then rename.
func (f *FileStore) Set(provider string, cred Credential) error {
	if err := os.MkdirAll(f.configDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.configDir, ".cred.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, f.path(provider)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename credential file: %w", err)
	}
	return nil
}

// Get reads and decodes the provider's credential file.
func (f *FileStore) Get(provider string) (Credential, error) {
	data, err := os.ReadFile(f.path(provider))
	if err != nil {
		if os.IsNotExist(err) {
			return Credential{}, ErrNoCredential
		}
		return Credential{}, err
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return Credential{}, err
	}
	return cred, nil
}

// Delete removes the provider's credential file, if any.
func (f *FileStore) Delete(provider string) error {
	err := os.Remove(f.path(provider))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

var _ Store = (*FileStore)(nil)

// fallbackStore tries the OS keyring first, falling back to file-based
// storage, matching pkg/credman/keyring.NewKeyringWithFallback.
type fallbackStore struct {
	keyring *Keyring
	file    *FileStore
	logger  logger.Logger
}

// NewWithFallback returns a Store that prefers the OS keyring and falls
// back to configDir on keyring errors. Set logs a warning when it falls
// back; Get falls back without logging.
func NewWithFallback(configDir string, l logger.Logger) Store {
	return &fallbackStore{keyring: NewKeyring(), file: NewFileStore(configDir), logger: l}
}

func (f *fallbackStore) Get(provider string) (Credential, error) {
	cred, err := f.keyring.Get(provider)
	if err == nil {
		return cred, nil
	}
	return f.file.Get(provider)
}

func (f *fallbackStore) Set(provider string, cred Credential) error {
	if err := f.keyring.Set(provider, cred); err == nil {
		return nil
	} else if f.logger != nil {
		f.logger.Warning("system keyring unavailable for provider '%s', using file-based credential storage: %v", provider, err)
	}
	return f.file.Set(provider, cred)
}

func (f *fallbackStore) Delete(provider string) error {
	err1 := f.keyring.Delete(provider)
	err2 := f.file.Delete(provider)
	if err1 != nil {
		return err1
	}
	return err2
}

var _ Store = (*fallbackStore)(nil)

// Package keystore keeps roster keys in a password-protected YAML file and
// hands raw key bytes to the record store on demand.
package keystore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/org/rostervault/internal/crypto"
)

const fileVersion = 1

var (
	// ErrNotFound is returned when the keystore file does not exist.
	ErrNotFound = errors.New("keystore not found")
	// ErrAliasNotFound is returned when no key is stored under an alias.
	ErrAliasNotFound = errors.New("no key under alias")
	// ErrBadPassword is returned when a key cannot be unwrapped.
	ErrBadPassword = errors.New("wrong key password or corrupted keystore entry")
)

// entry is one wrapped key. The KEK is derived from the password, the salt
// and the alias.
type entry struct {
	Salt      string    `yaml:"salt"`
	Wrapped   string    `yaml:"wrapped"`
	CreatedAt time.Time `yaml:"created_at"`
}

type file struct {
	Version int              `yaml:"version"`
	Keys    map[string]entry `yaml:"keys"`
}

// Keystore is an in-memory view of a keystore file.
type Keystore struct {
	path string
	data file
}

// New returns an empty keystore that will be written to path on Save.
func New(path string) *Keystore {
	return &Keystore{path: path, data: file{Version: fileVersion, Keys: map[string]entry{}}}
}

// Open reads the keystore at path.
func Open(path string) (*Keystore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading keystore: %w", err)
	}
	ks := New(path)
	if err := yaml.Unmarshal(raw, &ks.data); err != nil {
		return nil, fmt.Errorf("parsing keystore %s: %w", path, err)
	}
	if ks.data.Version != fileVersion {
		return nil, fmt.Errorf("keystore %s: unsupported version %d", path, ks.data.Version)
	}
	if ks.data.Keys == nil {
		ks.data.Keys = map[string]entry{}
	}
	return ks, nil
}

// Path returns the file the keystore is read from and saved to.
func (k *Keystore) Path() string {
	return k.path
}

// Aliases returns the stored aliases in sorted order.
func (k *Keystore) Aliases() []string {
	aliases := make([]string, 0, len(k.data.Keys))
	for a := range k.data.Keys {
		aliases = append(aliases, a)
	}
	slices.Sort(aliases)
	return aliases
}

// Has reports whether a key is stored under alias.
func (k *Keystore) Has(alias string) bool {
	_, ok := k.data.Keys[alias]
	return ok
}

// Put wraps key under password and stores it as alias, replacing any
// existing entry. Call Save to persist.
func (k *Keystore) Put(alias string, password, key []byte) error {
	if alias == "" {
		return errors.New("alias must not be empty")
	}
	if len(key) != crypto.KeySize {
		return fmt.Errorf("key must be %d bytes, got %d", crypto.KeySize, len(key))
	}
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return err
	}
	kek, err := crypto.DeriveKEK(password, salt, alias)
	if err != nil {
		return err
	}
	defer clear(kek)

	wrapped, err := crypto.WrapKey(key, kek)
	if err != nil {
		return fmt.Errorf("wrapping key %q: %w", alias, err)
	}
	k.data.Keys[alias] = entry{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Wrapped:   base64.StdEncoding.EncodeToString(wrapped),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	return nil
}

// Key unwraps the key stored under alias. The caller owns the returned slice
// and should zero it when done.
func (k *Keystore) Key(alias string, password []byte) ([]byte, error) {
	e, ok := k.data.Keys[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAliasNotFound, alias)
	}
	salt, err := base64.StdEncoding.DecodeString(e.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrBadPassword, err)
	}
	wrapped, err := base64.StdEncoding.DecodeString(e.Wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: wrapped key: %v", ErrBadPassword, err)
	}
	kek, err := crypto.DeriveKEK(password, salt, alias)
	if err != nil {
		return nil, err
	}
	defer clear(kek)

	key, err := crypto.UnwrapKey(wrapped, kek)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadPassword, alias)
	}
	return key, nil
}

// Save writes the keystore to its path with owner-only permissions.
func (k *Keystore) Save() error {
	if err := os.MkdirAll(filepath.Dir(k.path), 0o700); err != nil {
		return fmt.Errorf("creating keystore directory: %w", err)
	}
	raw, err := yaml.Marshal(&k.data)
	if err != nil {
		return fmt.Errorf("encoding keystore: %w", err)
	}
	if err := os.WriteFile(k.path, raw, 0o600); err != nil {
		return fmt.Errorf("writing keystore: %w", err)
	}
	return nil
}

package keystore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// Source supplies the raw roster key. Implementations must return a fresh
// slice on every call; callers zero it after use.
type Source interface {
	GetKey() ([]byte, error)
}

// PasswordFunc returns the password protecting a keystore entry.
type PasswordFunc func() ([]byte, error)

// EnvPassword reads the password from the named environment variable.
func EnvPassword(name string) PasswordFunc {
	return func() ([]byte, error) {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			return nil, fmt.Errorf("%s is not set", name)
		}
		return []byte(v), nil
	}
}

// StoreSource reads the key from a keystore file on every call, so the key
// is never held longer than one operation.
type StoreSource struct {
	Path     string
	Alias    string
	Password PasswordFunc
}

// GetKey opens the keystore and unwraps the alias.
func (s StoreSource) GetKey() ([]byte, error) {
	if s.Password == nil {
		return nil, errors.New("keystore password source not configured")
	}
	ks, err := Open(s.Path)
	if err != nil {
		return nil, err
	}
	pw, err := s.Password()
	if err != nil {
		return nil, fmt.Errorf("reading keystore password: %w", err)
	}
	defer clear(pw)
	return ks.Key(s.Alias, pw)
}

// StaticSource always returns a copy of the same key. It is meant for tests
// and one-off tooling.
type StaticSource []byte

// GetKey returns a copy of the key.
func (s StaticSource) GetKey() ([]byte, error) {
	if len(s) == 0 {
		return nil, errors.New("no key configured")
	}
	return bytes.Clone(s), nil
}

package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/org/rostervault/internal/codec"
	"github.com/org/rostervault/internal/crypto"
	"github.com/org/rostervault/internal/sanitize"
	"github.com/org/rostervault/pkg/models"
)

// Extension is appended to every record filename.
const Extension = ".member"

// FileStore persists one encrypted member per file under a single directory.
// It assumes exclusive access to the directory: concurrent writers of the same
// id race and nothing locks the files.
type FileStore struct {
	dir string
}

// Open returns a FileStore rooted at dir, creating the directory if needed.
func Open(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: creating records directory %s: %w", ErrIO, dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the records directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Filename derives the record filename for id: the encrypted decimal id with
// filesystem-unsafe characters removed, plus Extension.
func Filename(id int, km crypto.KeyMaterial) (string, error) {
	encID, err := crypto.Encrypt(strconv.Itoa(id), km.Key, km.IV)
	if err != nil {
		return "", fmt.Errorf("encrypting id: %w", err)
	}
	name := sanitize.Filename(encID)
	if name == "" {
		return "", fmt.Errorf("%w: id %d", ErrInvalidFilename, id)
	}
	return name + Extension, nil
}

// Path returns the full path of the file that holds (or would hold) id.
func (s *FileStore) Path(id int, km crypto.KeyMaterial) (string, error) {
	name, err := Filename(id, km)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Store encodes and encrypts m and writes it to its derived path, replacing
// any existing file. Storing the same member with the same key material twice
// produces the same path and identical content.
func (s *FileStore) Store(m models.Member, km crypto.KeyMaterial) (string, error) {
	if err := km.Validate(); err != nil {
		return "", err
	}
	plaintext, err := codec.Encode(m)
	if err != nil {
		return "", fmt.Errorf("encoding member %d: %w", m.ID, err)
	}
	ciphertext, err := crypto.Encrypt(plaintext, km.Key, km.IV)
	if err != nil {
		return "", fmt.Errorf("encrypting member %d: %w", m.ID, err)
	}
	path, err := s.Path(m.ID, km)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(ciphertext), 0o600); err != nil {
		return "", fmt.Errorf("%w: writing %s: %w", ErrIO, path, err)
	}
	recordsStored.Inc()
	return path, nil
}

// Load reads, decrypts and decodes the record file at path.
func Load(path string, km crypto.KeyMaterial) (models.Member, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Member{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return models.Member{}, fmt.Errorf("%w: reading %s: %w", ErrIO, path, err)
	}
	plaintext, err := crypto.Decrypt(strings.TrimSpace(string(data)), km.Key, km.IV)
	if err != nil {
		return models.Member{}, fmt.Errorf("decrypting %s: %w", path, err)
	}
	m, err := codec.Decode(plaintext)
	if err != nil {
		return models.Member{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return m, nil
}

// Get loads the record for id, if one has been stored.
func (s *FileStore) Get(id int, km crypto.KeyMaterial) (models.Member, error) {
	path, err := s.Path(id, km)
	if err != nil {
		return models.Member{}, err
	}
	return Load(path, km)
}

// Remove deletes the record file for id. Removing a missing record returns
// ErrNotFound.
func (s *FileStore) Remove(id int, km crypto.KeyMaterial) error {
	path, err := s.Path(id, km)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("%w: removing %s: %w", ErrIO, path, err)
	}
	return nil
}

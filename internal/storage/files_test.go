package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/org/rostervault/internal/codec"
	"github.com/org/rostervault/internal/crypto"
	"github.com/org/rostervault/internal/sanitize"
	"github.com/org/rostervault/pkg/models"
)

// testKeys uses the all-zero key and IV. The fixed IV is what makes record
// filenames reproducible; it is not a recommended production setting.
func testKeys() crypto.KeyMaterial {
	return crypto.KeyMaterial{Key: make([]byte, crypto.KeySize), IV: crypto.ZeroIV()}
}

func member(name string, id int) models.Member {
	return models.NewMember(name, id,
		time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC))
}

func openStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	return s
}

func TestStoreThenLoad(t *testing.T) {
	s := openStore(t)
	km := testKeys()
	jane := member("Doe, Jane", 42)

	path, err := s.Store(jane, km)
	require.NoError(t, err)
	require.Equal(t, s.Dir(), filepath.Dir(path))

	name := filepath.Base(path)
	require.True(t, strings.HasSuffix(name, Extension))
	for _, r := range name {
		require.False(t, sanitize.Denied(r), "filename %q contains %q", name, r)
	}

	got, err := Load(path, km)
	require.NoError(t, err)
	require.True(t, jane.Equal(got), "got %+v", got)

	byID, err := s.Get(42, km)
	require.NoError(t, err)
	require.True(t, jane.Equal(byID))
}

func TestStoreIsIdempotent(t *testing.T) {
	s := openStore(t)
	km := testKeys()
	jane := member("Doe, Jane", 42)

	first, err := s.Store(jane, km)
	require.NoError(t, err)
	firstData, err := os.ReadFile(first)
	require.NoError(t, err)

	second, err := s.Store(jane, km)
	require.NoError(t, err)
	secondData, err := os.ReadFile(second)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.True(t, bytes.Equal(firstData, secondData))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestStoreOverwritesSameID(t *testing.T) {
	s := openStore(t)
	km := testKeys()

	_, err := s.Store(member("Doe, Jane", 42), km)
	require.NoError(t, err)
	path, err := s.Store(member("Doe, Janet", 42), km)
	require.NoError(t, err)

	got, err := Load(path, km)
	require.NoError(t, err)
	require.Equal(t, "Doe, Janet", got.Name)
}

func TestStoreFileContentIsBase64Ciphertext(t *testing.T) {
	s := openStore(t)
	km := testKeys()
	jane := member("Doe, Jane", 42)

	path, err := s.Store(jane, km)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	plaintext, err := crypto.Decrypt(string(data), km.Key, km.IV)
	require.NoError(t, err)
	want, err := codec.Encode(jane)
	require.NoError(t, err)
	require.Equal(t, want, plaintext)
}

func TestStoreErrors(t *testing.T) {
	km := testKeys()

	missing := &FileStore{dir: filepath.Join(t.TempDir(), "does-not-exist")}
	_, err := missing.Store(member("Doe, Jane", 1), km)
	require.ErrorIs(t, err, ErrIO)

	s := openStore(t)
	_, err = s.Store(member("Doe, Jane", 1), crypto.KeyMaterial{IV: crypto.ZeroIV()})
	require.ErrorIs(t, err, crypto.ErrCipher)
	_, err = s.Store(member("Doe, Jane", 1), crypto.KeyMaterial{Key: km.Key, IV: []byte("short")})
	require.ErrorIs(t, err, crypto.ErrCipher)

	_, err = s.Store(member("Doe,\nJane", 1), km)
	require.ErrorIs(t, err, codec.ErrFormat)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.member"), testKeys())
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, ErrIO)
	require.Equal(t, ReasonIO, Reason(err))
}

func TestLoadWithWrongKeyFails(t *testing.T) {
	s := openStore(t)
	path, err := s.Store(member("Doe, Jane", 42), testKeys())
	require.NoError(t, err)

	wrong := crypto.KeyMaterial{Key: bytes.Repeat([]byte{1}, crypto.KeySize), IV: crypto.ZeroIV()}
	_, err = Load(path, wrong)
	require.Error(t, err)
	require.Contains(t, []string{ReasonCipher, ReasonFormat}, Reason(err))
}

func TestTamperedFileNeverLoadsWrongRecord(t *testing.T) {
	s := openStore(t)
	km := testKeys()
	jane := member("Doe, Jane", 42)
	path, err := s.Store(jane, km)
	require.NoError(t, err)

	orig, err := os.ReadFile(path)
	require.NoError(t, err)

	for i := range orig {
		tampered := bytes.Clone(orig)
		tampered[i] ^= 0x01
		require.NoError(t, os.WriteFile(path, tampered, 0o600))

		_, err := Load(path, km)
		require.Error(t, err, "flipping byte %d went undetected", i)
		require.True(t, errors.Is(err, crypto.ErrCipher) || errors.Is(err, codec.ErrFormat),
			"byte %d: unexpected error %v", i, err)
	}
}

func TestRemove(t *testing.T) {
	s := openStore(t)
	km := testKeys()
	path, err := s.Store(member("Doe, Jane", 42), km)
	require.NoError(t, err)

	require.NoError(t, s.Remove(42, km))
	_, err = os.Stat(path)
	require.True(t, errors.Is(err, os.ErrNotExist))

	require.ErrorIs(t, s.Remove(42, km), ErrNotFound)
}

func TestFilenameIsStablePerID(t *testing.T) {
	km := testKeys()
	a, err := Filename(7, km)
	require.NoError(t, err)
	b, err := Filename(7, km)
	require.NoError(t, err)
	c, err := Filename(8, km)
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)

	_, err = Filename(7, crypto.KeyMaterial{})
	require.ErrorIs(t, err, crypto.ErrCipher)
}

func TestReason(t *testing.T) {
	require.Equal(t, ReasonCipher, Reason(crypto.ErrCipher))
	require.Equal(t, ReasonFormat, Reason(codec.ErrFormat))
	require.Equal(t, ReasonIO, Reason(ErrIO))
	require.Equal(t, ReasonOther, Reason(errors.New("boom")))
}

func ids(ms []models.Member) []int {
	out := make([]int, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	slices.Sort(out)
	return out
}

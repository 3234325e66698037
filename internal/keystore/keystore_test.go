package keystore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/org/rostervault/internal/crypto"
)

func TestPutSaveOpenKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "roster.keystore")
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	ks := New(path)
	require.NoError(t, ks.Put("roster", []byte("s3cret"), key))
	require.NoError(t, ks.Save())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	reopened, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, []string{"roster"}, reopened.Aliases())
	require.True(t, reopened.Has("roster"))

	got, err := reopened.Key("roster", []byte("s3cret"))
	require.NoError(t, err)
	require.True(t, bytes.Equal(key, got))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), string(key))
}

func TestKeyErrors(t *testing.T) {
	key, _ := crypto.GenerateKey()
	ks := New(filepath.Join(t.TempDir(), "ks.yaml"))
	require.NoError(t, ks.Put("roster", []byte("right"), key))

	_, err := ks.Key("roster", []byte("wrong"))
	require.ErrorIs(t, err, ErrBadPassword)

	_, err = ks.Key("other", []byte("right"))
	require.ErrorIs(t, err, ErrAliasNotFound)

	require.Error(t, ks.Put("", []byte("pw"), key))
	require.Error(t, ks.Put("short", []byte("pw"), key[:16]))
}

func TestAliasesBindTheKEK(t *testing.T) {
	key, _ := crypto.GenerateKey()
	ks := New(filepath.Join(t.TempDir(), "ks.yaml"))
	require.NoError(t, ks.Put("a", []byte("pw"), key))

	// Moving an entry to another alias must not make it readable there.
	ks.data.Keys["b"] = ks.data.Keys["a"]
	_, err := ks.Key("b", []byte("pw"))
	require.ErrorIs(t, err, ErrBadPassword)
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, ErrNotFound)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("version: 99\n"), 0o600))
	_, err = Open(bad)
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("version: 1\n"), 0o600))
	ks, err := Open(empty)
	require.NoError(t, err)
	require.Empty(t, ks.Aliases())
}

func TestStoreSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks.yaml")
	key, _ := crypto.GenerateKey()
	ks := New(path)
	require.NoError(t, ks.Put("roster", []byte("pw"), key))
	require.NoError(t, ks.Save())

	t.Setenv("ROSTER_TEST_KEY_PASS", "pw")
	src := StoreSource{Path: path, Alias: "roster", Password: EnvPassword("ROSTER_TEST_KEY_PASS")}

	got, err := src.GetKey()
	require.NoError(t, err)
	require.True(t, bytes.Equal(key, got))

	got[0] ^= 0xff
	again, err := src.GetKey()
	require.NoError(t, err)
	require.True(t, bytes.Equal(key, again), "each call returns a fresh key")

	_, err = StoreSource{Path: path, Alias: "roster", Password: EnvPassword("ROSTER_TEST_UNSET")}.GetKey()
	require.Error(t, err)
	_, err = StoreSource{Path: path, Alias: "roster"}.GetKey()
	require.Error(t, err)
}

func TestStaticSource(t *testing.T) {
	key := bytes.Repeat([]byte{9}, crypto.KeySize)
	src := StaticSource(key)

	got, err := src.GetKey()
	require.NoError(t, err)
	got[0] = 0
	require.Equal(t, byte(9), key[0], "callers may wipe the returned key")

	_, err = StaticSource(nil).GetKey()
	require.Error(t, err)
}

package storage

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAllReturnsEveryStoredRecord(t *testing.T) {
	s := openStore(t)
	km := testKeys()
	for _, m := range []struct {
		name string
		id   int
	}{{"Doe, Jane", 42}, {"Roe, Richard", 7}, {"Poe, Edgar", 1809}} {
		_, err := s.Store(member(m.name, m.id), km)
		require.NoError(t, err)
	}

	scan := s.LoadAll(km)
	got := slices.Collect(scan.Members())

	require.NoError(t, scan.Err())
	require.Empty(t, scan.Failures())
	require.Equal(t, []int{7, 42, 1809}, ids(got))
}

func TestLoadAllSkipsCorruptFiles(t *testing.T) {
	s := openStore(t)
	km := testKeys()
	_, err := s.Store(member("Doe, Jane", 42), km)
	require.NoError(t, err)
	_, err = s.Store(member("Roe, Richard", 7), km)
	require.NoError(t, err)

	garbage := filepath.Join(s.Dir(), "garbage"+Extension)
	require.NoError(t, os.WriteFile(garbage, []byte("this is *not* base64 at all!"), 0o600))

	scan := s.LoadAll(km)
	got := slices.Collect(scan.Members())

	require.NoError(t, scan.Err())
	require.Equal(t, []int{7, 42}, ids(got))
	require.Len(t, scan.Failures(), 1)
	require.Equal(t, garbage, scan.Failures()[0].Path)
	require.Equal(t, ReasonCipher, Reason(scan.Failures()[0].Err))
}

func TestLoadAllIgnoresOtherEntries(t *testing.T) {
	s := openStore(t)
	km := testKeys()
	_, err := s.Store(member("Doe, Jane", 42), km)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("hello"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "nested"+Extension), 0o700))

	scan := s.LoadAll(km)
	got := slices.Collect(scan.Members())

	require.Equal(t, []int{42}, ids(got))
	require.Empty(t, scan.Failures())
}

func TestLoadAllIsLazyAndSinglePass(t *testing.T) {
	s := openStore(t)
	km := testKeys()
	scan := s.LoadAll(km)

	// Files stored after LoadAll but before iteration are still seen.
	_, err := s.Store(member("Doe, Jane", 42), km)
	require.NoError(t, err)
	_, err = s.Store(member("Roe, Richard", 7), km)
	require.NoError(t, err)

	var first []int
	for m := range scan.Members() {
		first = append(first, m.ID)
		break
	}
	require.Len(t, first, 1)

	require.Empty(t, slices.Collect(scan.Members()), "a consumed scan yields nothing")
	require.Len(t, slices.Collect(s.LoadAll(km).Members()), 2, "a new scan starts over")
}

func TestLoadAllMissingDirectory(t *testing.T) {
	s := &FileStore{dir: filepath.Join(t.TempDir(), "gone")}
	scan := s.LoadAll(testKeys())

	require.Empty(t, slices.Collect(scan.Members()))
	require.ErrorIs(t, scan.Err(), ErrIO)
}

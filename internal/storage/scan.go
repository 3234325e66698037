package storage

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/org/rostervault/internal/crypto"
	"github.com/org/rostervault/pkg/models"
)

// LoadFailure records one record file that could not be loaded.
type LoadFailure struct {
	Path string
	Err  error
}

// Scan is a single pass over the records directory. Members yields the
// records that load; files that fail are skipped and collected as failures.
// A Scan cannot be restarted: start a new one with LoadAll to retry.
type Scan struct {
	dir      string
	km       crypto.KeyMaterial
	started  bool
	err      error
	failures []LoadFailure
}

// LoadAll prepares a scan of every regular *.member file in the store's
// directory. No file is touched until Members is iterated.
func (s *FileStore) LoadAll(km crypto.KeyMaterial) *Scan {
	return &Scan{dir: s.dir, km: km}
}

// Members returns the lazy sequence of successfully loaded records. Only the
// first call yields anything.
func (sc *Scan) Members() iter.Seq[models.Member] {
	return func(yield func(models.Member) bool) {
		if sc.started {
			return
		}
		sc.started = true

		entries, err := os.ReadDir(sc.dir)
		if err != nil {
			sc.err = fmt.Errorf("%w: listing %s: %w", ErrIO, sc.dir, err)
			return
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
				continue
			}
			path := filepath.Join(sc.dir, e.Name())
			m, err := Load(path, sc.km)
			if err != nil {
				sc.failures = append(sc.failures, LoadFailure{Path: path, Err: err})
				loadFailures.WithLabelValues(Reason(err)).Inc()
				continue
			}
			recordsLoaded.Inc()
			if !yield(m) {
				return
			}
		}
	}
}

// Failures returns the files that failed so far, in enumeration order.
func (sc *Scan) Failures() []LoadFailure {
	return sc.failures
}

// Err returns the error that stopped the scan from listing the directory.
func (sc *Scan) Err() error {
	return sc.err
}

// Package session ties a roster to its record files: scrape into the
// roster, save the roster to disk, reload it from disk.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/org/rostervault/internal/config"
	"github.com/org/rostervault/internal/crypto"
	"github.com/org/rostervault/internal/keystore"
	"github.com/org/rostervault/internal/roster"
	"github.com/org/rostervault/internal/scrape"
	"github.com/org/rostervault/internal/storage"
	"github.com/org/rostervault/pkg/models"
)

// Scraper produces members from the external members page.
type Scraper interface {
	Scrape(ctx context.Context) (scrape.Result, error)
}

// Session owns one roster and the record directory it is saved to.
// Operations are serialized; the roster itself may be read concurrently.
type Session struct {
	mu      sync.Mutex
	roster  *roster.Roster
	files   *storage.FileStore
	keys    keystore.Source
	iv      []byte
	scraper Scraper
}

// New creates a Session with an empty roster. iv must be IVSize bytes.
func New(files *storage.FileStore, keys keystore.Source, iv []byte, scraper Scraper) *Session {
	return &Session{
		roster:  roster.New(),
		files:   files,
		keys:    keys,
		iv:      iv,
		scraper: scraper,
	}
}

// Open builds a Session from configuration: the record directory, the
// keystore entry and the scrape client. password supplies the keystore
// password on every key fetch.
func Open(cfg config.Config, password keystore.PasswordFunc) (*Session, error) {
	files, err := storage.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	iv, legacy, err := cfg.IVBytes()
	if err != nil {
		return nil, err
	}
	if legacy {
		log.Warn().Msg("no iv configured: using the all-zero IV; set iv to a random 16-byte value")
	}
	keys := keystore.StoreSource{
		Path:     cfg.Keystore.Path,
		Alias:    cfg.Keystore.Alias,
		Password: password,
	}
	var sc Scraper
	if cfg.Scrape.URL != "" {
		sc = scrape.NewClient(cfg.Scrape.URL, cfg.Scrape.Cookie, cfg.Scrape.TableID, cfg.Scrape.Timeout)
	}
	return New(files, keys, iv, sc), nil
}

// Roster returns the session's roster.
func (s *Session) Roster() *roster.Roster {
	return s.roster
}

// keyMaterial fetches the key for one operation. Callers must Wipe it.
func (s *Session) keyMaterial() (crypto.KeyMaterial, error) {
	key, err := s.keys.GetKey()
	if err != nil {
		return crypto.KeyMaterial{}, fmt.Errorf("fetching roster key: %w", err)
	}
	km := crypto.KeyMaterial{Key: key, IV: s.iv}
	if err := km.Validate(); err != nil {
		km.Wipe()
		return crypto.KeyMaterial{}, err
	}
	return km, nil
}

// Scrape fetches the members page and replaces the roster with every parsed
// member. Rows that fail to parse are logged and skipped. On error the roster
// is left as it was.
func (s *Session) Scrape(ctx context.Context) (int, error) {
	if s.scraper == nil {
		return 0, errors.New("scraper not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.scraper.Scrape(ctx)
	if err != nil {
		return 0, err
	}
	for _, row := range res.Skipped {
		log.Error().Int("row", row.Row).Str("reason", row.Reason).Strs("cells", row.Cells).Msg("skipping member row")
	}

	s.roster.Clear()
	for _, m := range res.Members {
		s.roster.Add(m)
		log.Debug().Int("id", m.ID).Str("name", m.Name).Msg("added member")
	}
	s.warnDuplicates()
	log.Info().Int("members", len(res.Members)).Int("skipped", len(res.Skipped)).Msg("roster scraped")
	return len(res.Members), nil
}

// Save writes every roster member to its record file. Failures are logged
// and the remaining members are still written; the joined errors are
// returned alongside the number saved.
func (s *Session) Save() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	km, err := s.keyMaterial()
	if err != nil {
		return 0, err
	}
	defer km.Wipe()

	var (
		saved int
		errs  []error
	)
	for _, m := range s.roster.All() {
		path, err := s.files.Store(m, km)
		if err != nil {
			log.Error().Err(err).Int("id", m.ID).Str("reason", storage.Reason(err)).Msg("failed to save member")
			errs = append(errs, fmt.Errorf("member %d: %w", m.ID, err))
			continue
		}
		log.Debug().Int("id", m.ID).Str("file", path).Msg("saved member")
		saved++
	}
	log.Info().Int("saved", saved).Int("failed", len(errs)).Str("dir", s.files.Dir()).Msg("roster saved")
	return saved, errors.Join(errs...)
}

// Reload replaces the roster with the records found on disk. Unreadable
// files are logged and skipped; only a failure to list the directory is
// returned as an error.
func (s *Session) Reload() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	km, err := s.keyMaterial()
	if err != nil {
		return 0, err
	}
	defer km.Wipe()

	scan := s.files.LoadAll(km)
	var loaded []models.Member
	for m := range scan.Members() {
		loaded = append(loaded, m)
	}
	if err := scan.Err(); err != nil {
		return 0, err
	}
	for _, f := range scan.Failures() {
		log.Error().Err(f.Err).Str("file", f.Path).Str("reason", storage.Reason(f.Err)).Msg("failed to load member file")
	}

	s.roster.Clear()
	for _, m := range loaded {
		s.roster.Add(m)
	}
	s.warnDuplicates()
	log.Info().Int("loaded", len(loaded)).Int("failed", len(scan.Failures())).Str("dir", s.files.Dir()).Msg("roster reloaded")
	return len(loaded), nil
}

// Prune removes members whose membership has expired at now, first from
// disk and then from the roster. Members sharing an expired member's id go
// with it, since they share one record file. A member whose file cannot be
// removed stays in the roster. It returns the ids removed.
func (s *Session) Prune(now time.Time) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	km, err := s.keyMaterial()
	if err != nil {
		return nil, err
	}
	defer km.Wipe()

	var (
		pruned []int
		errs   []error
		done   = map[int]bool{}
	)
	for _, m := range s.roster.Sorted() {
		if !m.Expired(now) || done[m.ID] {
			continue
		}
		done[m.ID] = true
		if err := s.files.Remove(m.ID, km); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Error().Err(err).Int("id", m.ID).Str("reason", storage.Reason(err)).Msg("failed to remove member file")
			errs = append(errs, fmt.Errorf("member %d: %w", m.ID, err))
			continue
		}
		s.roster.Remove(m.ID)
		log.Info().Int("id", m.ID).Time("expired", m.ExpireDate).Msg("pruned member")
		pruned = append(pruned, m.ID)
	}
	return pruned, errors.Join(errs...)
}

// Lookup reads one member's record file directly, bypassing the roster.
func (s *Session) Lookup(id int) (models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	km, err := s.keyMaterial()
	if err != nil {
		return models.Member{}, err
	}
	defer km.Wipe()
	return s.files.Get(id, km)
}

// Clear empties the roster without touching the record files.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster.Clear()
}

func (s *Session) warnDuplicates() {
	if dups := s.roster.DuplicateIDs(); len(dups) > 0 {
		log.Warn().Ints("ids", dups).Msg("roster holds duplicate member ids; the last saved record per id wins on disk")
	}
}

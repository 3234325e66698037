package api

import (
	"net/http"
)

// HealthHandler handles GET /v1/sys/health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"members": s.sess.Roster().Len(),
		"version": "1.0.0",
	})
}

// ScrapeHandler handles POST /v1/sys/scrape
func (s *Server) ScrapeHandler(w http.ResponseWriter, r *http.Request) {
	n, err := s.sess.Scrape(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.observeRoster()
	writeJSON(w, http.StatusOK, map[string]any{"added": n, "members": s.sess.Roster().Len()})
}

// ReloadHandler handles POST /v1/sys/reload
func (s *Server) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	n, err := s.sess.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.observeRoster()
	writeJSON(w, http.StatusOK, map[string]any{"loaded": n})
}

// SaveHandler handles POST /v1/sys/save. Partial failures still report how
// many records were written.
func (s *Server) SaveHandler(w http.ResponseWriter, r *http.Request) {
	n, err := s.sess.Save()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"saved":  n,
			"errors": []string{err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": n})
}

// PruneHandler handles POST /v1/sys/prune
func (s *Server) PruneHandler(w http.ResponseWriter, r *http.Request) {
	pruned, err := s.sess.Prune(s.now())
	s.observeRoster()
	if pruned == nil {
		pruned = []int{}
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"pruned": pruned,
			"errors": []string{err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pruned": pruned})
}

func (s *Server) observeRoster() {
	rosterMembers.Set(float64(s.sess.Roster().Len()))
}

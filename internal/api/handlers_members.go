package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/org/rostervault/internal/codec"
	"github.com/org/rostervault/pkg/models"
)

type memberResponse struct {
	Name       string `json:"name"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	ID         int    `json:"id"`
	JoinDate   string `json:"join_date"`
	ExpireDate string `json:"expire_date"`
	Expired    bool   `json:"expired"`
}

func toResponse(m models.Member, now time.Time) memberResponse {
	return memberResponse{
		Name:       m.Name,
		FirstName:  m.FirstName(),
		LastName:   m.LastName(),
		ID:         m.ID,
		JoinDate:   m.JoinDate.UTC().Format(codec.TimeLayout),
		ExpireDate: m.ExpireDate.UTC().Format(codec.TimeLayout),
		Expired:    m.Expired(now),
	}
}

// MemberListHandler handles GET /v1/members
func (s *Server) MemberListHandler(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	members := s.sess.Roster().Sorted()
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toResponse(m, now))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"members":       out,
		"duplicate_ids": s.sess.Roster().DuplicateIDs(),
	})
}

// MemberGetHandler handles GET /v1/members/{id}
func (s *Server) MemberGetHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid member id")
		return
	}
	m, ok := s.sess.Roster().Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(m, s.now()))
}

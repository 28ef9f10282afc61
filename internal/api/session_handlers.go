package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/certmap/internal/filter"
	"github.com/terra-clan/certmap/internal/models"
	"github.com/terra-clan/certmap/internal/sessions"
)

// sessionState is the session echo returned by every session endpoint
type sessionState struct {
	ID             string `json:"id"`
	CatalogVersion int64  `json:"catalog_version"`
	Summary        string `json:"summary"`
	filter.View
}

func newSessionState(sess *sessions.Session, v filter.View) sessionState {
	return sessionState{
		ID:             sess.ID(),
		CatalogVersion: sess.Snapshot().Version,
		Summary:        v.Summary(),
		View:           v,
	}
}

type categoryRequest struct {
	Category string `json:"category"`
}

type searchRequest struct {
	Text string `json:"text"`
}

// session resolves {id} or writes the error response
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*sessions.Session, bool) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "get session")
		return nil, false
	}
	return sess, true
}

func (s *Server) respondState(w http.ResponseWriter, status int, sess *sessions.Session) {
	respondJSON(w, status, newSessionState(sess, sess.Engine().View()))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		respondServiceError(w, err, "create session")
		return
	}
	s.respondState(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondState(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "delete session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSetCategory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	category, err := filter.ParseCategory(req.Category)
	if err != nil {
		respondServiceError(w, err, "set category")
		return
	}
	if err := sess.Engine().SetCategory(category); err != nil {
		respondServiceError(w, err, "set category")
		return
	}
	s.respondState(w, http.StatusOK, sess)
}

func (s *Server) handleToggleLevel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	level, err := filter.ParseSkillLevel(chi.URLParam(r, "level"))
	if err != nil {
		respondServiceError(w, err, "toggle skill level")
		return
	}
	if err := sess.Engine().ToggleSkillLevel(level); err != nil {
		respondServiceError(w, err, "toggle skill level")
		return
	}
	s.respondState(w, http.StatusOK, sess)
}

func (s *Server) handleClearLevels(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Engine().ClearSkillLevels()
	s.respondState(w, http.StatusOK, sess)
}

// handleSetSearch answers 202: the text is echoed but applied after the debounce period
func (s *Server) handleSetSearch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess.Engine().SetSearchText(req.Text)
	s.respondState(w, http.StatusAccepted, sess)
}

func (s *Server) handleFlushSearch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Engine().Flush()
	s.respondState(w, http.StatusOK, sess)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Engine().Clear()
	s.respondState(w, http.StatusOK, sess)
}

func (s *Server) handleFiltered(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	v := sess.Engine().View()
	respondJSON(w, http.StatusOK, listResponse{
		Records: v.Records,
		Shown:   v.Shown,
		Total:   v.Total,
		Summary: v.Summary(),
	})
}

func (s *Server) handleSessionPoints(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, filter.Points(sess.Engine().Filtered()))
}

// --- Admin handlers (API key auth) ---

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list := s.sessions.List(r.Context())
	respondJSON(w, http.StatusOK, struct {
		Sessions []*models.Session `json:"sessions"`
		Total    int               `json:"total"`
	}{list, len(list)})
}

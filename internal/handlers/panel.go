package handlers

import (
	"errors"
	"net/http"
	"visionary-backend/internal/admin"
	"visionary-backend/internal/adminclient"
	"visionary-backend/internal/models"

	"github.com/go-chi/chi/v5"
)

// panel returns the session's panel after bringing it in line with the
// identity of the request. A failed admin check only leaves the panel
// denied, so it is logged and not answered.
func (s *Server) panel(r *http.Request) *admin.Panel {
	panel := s.session(sessionIDFrom(r)).panel

	err := panel.Authenticate(r.Context(), identityFrom(r))
	if err != nil {
		s.sugar.Error(err)
	}
	return panel
}

func (s *Server) GetPanel(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.panel(r).View())
}

func (s *Server) SelectTab(w http.ResponseWriter, r *http.Request) {
	tab, err := admin.ParseTab(chi.URLParam(r, "tab"))
	if err != nil {
		s.sugar.Debug(err)
		http.Error(w, "", http.StatusNotFound)
		return
	}

	panel := s.panel(r)
	err = panel.SelectTab(r.Context(), tab)
	if err != nil {
		// the view carries the load error
		s.sugar.Error(err)
	}

	s.writeJSON(w, http.StatusOK, panel.View())
}

// answerMutation maps the outcome of a panel mutation to a response. The
// toast was already sent by the panel.
func (s *Server) answerMutation(w http.ResponseWriter, panel *admin.Panel, err error) {
	if err == nil {
		s.writeJSON(w, http.StatusOK, panel.View())
		return
	}

	var apiErr *adminclient.APIError
	switch {
	case errors.Is(err, admin.ErrNotAdmin):
		s.sugar.Debug(err)
		http.Error(w, "", http.StatusForbidden)
	case errors.Is(err, admin.ErrMutationPending):
		s.sugar.Debug(err)
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		http.Error(w, apiErr.Message, apiErr.Status)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

func (s *Server) ModerateImage(w http.ResponseWriter, r *http.Request) {
	type Moderation struct {
		Status models.ModerationStatus `json:"status" validate:"required,oneof=pending approved rejected"`
	}

	var moderation Moderation
	if !s.decodeBody(w, r, &moderation) {
		return
	}

	panel := s.panel(r)
	err := panel.ModerateImage(r.Context(), chi.URLParam(r, "id"), moderation.Status)
	s.answerMutation(w, panel, err)
}

func (s *Server) DeleteImage(w http.ResponseWriter, r *http.Request) {
	panel := s.panel(r)
	err := panel.DeleteImage(r.Context(), chi.URLParam(r, "id"))
	s.answerMutation(w, panel, err)
}

func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	panel := s.panel(r)
	err := panel.DeleteUser(r.Context(), chi.URLParam(r, "id"))
	s.answerMutation(w, panel, err)
}

func (s *Server) BanUser(w http.ResponseWriter, r *http.Request) {
	panel := s.panel(r)
	err := panel.BanUser(r.Context(), chi.URLParam(r, "id"))
	s.answerMutation(w, panel, err)
}

func (s *Server) UnbanUser(w http.ResponseWriter, r *http.Request) {
	panel := s.panel(r)
	err := panel.UnbanUser(r.Context(), chi.URLParam(r, "id"))
	s.answerMutation(w, panel, err)
}

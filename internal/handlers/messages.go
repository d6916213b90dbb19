package handlers

import (
	"errors"
	"net/http"
	"visionary-backend/internal/messages"
	"visionary-backend/internal/models"

	"github.com/go-chi/chi/v5"
)

// inbox resolves the inbox of the request. Guests have none; for them the
// request is answered here and nil is returned.
func (s *Server) inbox(w http.ResponseWriter, r *http.Request) *messages.Inbox {
	identity := identityFrom(r)
	if identity == nil {
		http.Error(w, "", http.StatusUnauthorized)
		return nil
	}

	inbox, err := s.inboxFor(r.Context(), s.session(sessionIDFrom(r)), identity)
	if err != nil {
		s.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return nil
	}
	return inbox
}

func (s *Server) GetMessages(w http.ResponseWriter, r *http.Request) {
	if identityFrom(r) == nil {
		s.writeJSON(w, http.StatusOK, messages.View{Messages: []models.Message{}, Empty: true})
		return
	}

	inbox := s.inbox(w, r)
	if inbox == nil {
		return
	}

	s.writeJSON(w, http.StatusOK, inbox.View())
}

func (s *Server) CreateMessage(w http.ResponseWriter, r *http.Request) {
	type NewMessage struct {
		ID      string             `json:"id" validate:"omitempty,max=128"`
		Type    models.MessageType `json:"type" validate:"omitempty,oneof=welcome info notification"`
		Title   string             `json:"title" validate:"required,max=200"`
		Content string             `json:"content" validate:"max=4000"`
	}

	inbox := s.inbox(w, r)
	if inbox == nil {
		return
	}

	var newMessage NewMessage
	if !s.decodeBody(w, r, &newMessage) {
		return
	}

	msg, err := inbox.Push(r.Context(), models.Message{
		ID:      newMessage.ID,
		Type:    newMessage.Type,
		Title:   newMessage.Title,
		Content: newMessage.Content,
	})
	if err != nil {
		if errors.Is(err, messages.ErrDuplicateID) {
			s.sugar.Debug(err)
			http.Error(w, "", http.StatusConflict)
			return
		}
		s.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	inbox := s.inbox(w, r)
	if inbox == nil {
		return
	}

	err := inbox.MarkRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, inbox.View())
}

func (s *Server) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	inbox := s.inbox(w, r)
	if inbox == nil {
		return
	}

	err := inbox.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, inbox.View())
}

func (s *Server) MarkAllMessagesRead(w http.ResponseWriter, r *http.Request) {
	inbox := s.inbox(w, r)
	if inbox == nil {
		return
	}

	err := inbox.MarkAllRead(r.Context())
	if err != nil {
		s.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, inbox.View())
}

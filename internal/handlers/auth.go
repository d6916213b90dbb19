package handlers

import (
	"net/http"

	"github.com/google/uuid"
)

func (s *Server) NewSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.NewV7()
	if err != nil {
		s.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	s.sugar.Debugf("Issuing session ID [%s]", sessionID)

	signedID, err := s.issuer.SignSessionID(sessionID.String())
	if err != nil {
		s.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	sessionCookie := http.Cookie{
		Name:     sessionCookieName,
		Value:    signedID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isHttps,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, &sessionCookie)
}

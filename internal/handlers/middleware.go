package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"
	"visionary-backend/internal/jwt"
	"visionary-backend/internal/models"

	"github.com/google/uuid"
)

const (
	sessionCookieName = "session"
	tokenLifetime     = 7 * 24 * time.Hour
	tokenRenewAfter   = 15 * time.Minute
)

type SessionIDKeyType struct{}
type IdentityKeyType struct{}

// IdentityLoader attaches the identity carried by the JWT cookie. A missing
// or invalid token leaves the request a guest.
func (s *Server) IdentityLoader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jwtCookie, err := r.Cookie(jwt.CookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		userToken, err := s.issuer.VerifyToken(jwtCookie.Value)
		if err != nil {
			s.sugar.Debug(err)

			deleteJwtCookie := &http.Cookie{
				Name:     jwt.CookieName,
				Value:    "",
				Path:     "/",
				Expires:  time.Unix(0, 0),
				HttpOnly: true,
			}
			http.SetCookie(w, deleteJwtCookie)

			next.ServeHTTP(w, r)
			return
		}

		// renew JWT and cookie
		if userToken.IssuedAt != nil && time.Since(userToken.IssuedAt.Time) >= tokenRenewAfter {
			updatedCookie, err := s.issuer.CreateToken(*userToken.Identity(), tokenLifetime)
			if err != nil {
				s.sugar.Error(err)
			} else {
				http.SetCookie(w, &updatedCookie)
			}
		}

		ctx := context.WithValue(r.Context(), IdentityKeyType{}, userToken.Identity())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) SessionVerifier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionCookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			s.sugar.Debug(err)
			switch {
			case errors.Is(err, http.ErrNoCookie):
				http.Error(w, "No session cookie was provided", http.StatusUnauthorized)
			default:
				http.Error(w, "Couldn't read session cookie", http.StatusInternalServerError)
			}
			return
		}

		rawID, err := s.issuer.VerifySessionID(sessionCookie.Value)
		if err != nil {
			s.sugar.Debug(err)
			http.Error(w, "Session cookie was not issued by this server", http.StatusUnauthorized)
			return
		}

		sessionID, err := uuid.Parse(rawID)
		if err != nil {
			s.sugar.Debug(err)
			http.Error(w, "Session cookie is in improper format", http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), SessionIDKeyType{}, sessionID.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identityFrom returns nil for guests.
func identityFrom(r *http.Request) *models.Identity {
	identity, _ := r.Context().Value(IdentityKeyType{}).(*models.Identity)
	return identity
}

func sessionIDFrom(r *http.Request) string {
	sessionID, _ := r.Context().Value(SessionIDKeyType{}).(string)
	return sessionID
}

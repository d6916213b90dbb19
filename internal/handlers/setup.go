package handlers

import (
	"fmt"
	"net/http"
	"sync"
	"time"
	"visionary-backend/internal/admin"
	"visionary-backend/internal/hub"
	"visionary-backend/internal/jwt"
	"visionary-backend/internal/keyValue"
	"visionary-backend/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Server struct {
	sugar   *zap.SugaredLogger
	cfg     *models.ConfigFile
	isHttps bool
	store   *keyValue.Store
	api     admin.API
	hub     *hub.Hub
	issuer  *jwt.Issuer

	sessionsMutex sync.Mutex
	sessions      map[string]*session
	maxSessions   int
}

func New(sugar *zap.SugaredLogger, cfg *models.ConfigFile, isHttps bool, store *keyValue.Store, api admin.API, h *hub.Hub, issuer *jwt.Issuer) *Server {
	return &Server{
		sugar:       sugar,
		cfg:         cfg,
		isHttps:     isHttps,
		store:       store,
		api:         api,
		hub:         h,
		issuer:      issuer,
		sessions:    make(map[string]*session),
		maxSessions: maxSessions,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	if s.cfg.PrintHttpRequests {
		r.Use(middleware.Logger)
	}

	r.Use(middleware.Recoverer)
	r.Use(s.IdentityLoader)

	r.Route("/api", func(api chi.Router) {
		// not on /ws, the socket outlives any request timeout
		api.Use(middleware.Timeout(60 * time.Second))

		api.Get("/test", s.Test)

		api.Route("/auth", func(r chi.Router) {
			r.Get("/newSession", s.NewSession)
		})

		api.Route("/messages", func(r chi.Router) {
			r.Use(s.SessionVerifier)
			r.Get("/", s.GetMessages)
			r.Post("/", s.CreateMessage)
			r.Post("/read-all", s.MarkAllMessagesRead)
			r.Post("/{id}/read", s.MarkMessageRead)
			r.Delete("/{id}", s.DeleteMessage)
		})

		api.Route("/panel", func(r chi.Router) {
			r.Use(s.SessionVerifier)
			r.Get("/", s.GetPanel)
			r.Post("/tab/{tab}", s.SelectTab)
			r.Patch("/images/{id}/moderation", s.ModerateImage)
			r.Delete("/images/{id}", s.DeleteImage)
			r.Delete("/users/{id}", s.DeleteUser)
			r.Patch("/users/{id}/ban", s.BanUser)
			r.Patch("/users/{id}/unban", s.UnbanUser)
		})
	})

	r.With(s.SessionVerifier).Get("/ws", s.HandleWebSocket)

	return r
}

func (s *Server) ListenAndServe() error {
	address := fmt.Sprintf("%s:%s", s.cfg.Address, s.cfg.Port)

	if s.isHttps {
		return http.ListenAndServeTLS(address, s.cfg.TlsCert, s.cfg.TlsKey, s.Router())
	}
	return http.ListenAndServe(address, s.Router())
}

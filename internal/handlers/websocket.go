package handlers

import (
	"net/http"
)

func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.hub.HandleClient(sessionIDFrom(r), w, r)
}

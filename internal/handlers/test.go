package handlers

import (
	"fmt"
	"net/http"
)

func (s *Server) Test(w http.ResponseWriter, r *http.Request) {
	_, err := fmt.Fprint(w, "Hello world!")
	if err != nil {
		s.sugar.Error(err)
		return
	}
}

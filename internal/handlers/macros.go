package handlers

import (
	"encoding/json"
	"net/http"
	"visionary-backend/internal/validator"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		s.sugar.Error(err)
	}
}

// decodeBody decodes and validates the request body into v. It answers the
// request itself and returns false when the body is unusable.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		s.sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return false
	}

	fieldErrors, err := validator.Struct(v)
	if err != nil {
		s.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return false
	}
	if fieldErrors != nil {
		// sends back 400 with the form field errors
		s.writeJSON(w, http.StatusBadRequest, fieldErrors)
		return false
	}

	return true
}

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"dayplan/internal/repository"
	"dayplan/internal/service"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps service and repository errors to responses.
// Ownership violations never echo task data back to the caller.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ownErr *service.OwnershipError
	switch {
	case errors.Is(err, service.ErrInvalidTask), errors.Is(err, service.ErrInvalidSettings):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrInstanceWrite):
		writeError(w, http.StatusConflict, "recurring instances are read-only; edit the template")
	case errors.As(err, &ownErr):
		s.logger.Error("request withheld: task ownership mismatch",
			zap.String("alert", "ownership_violation"),
			zap.String("user_id", ownErr.OwnerID),
			zap.Int("foreign_tasks", ownErr.Mismatched),
			zap.String("path", r.URL.Path),
		)
		writeError(w, http.StatusInternalServerError, "server error")
	default:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

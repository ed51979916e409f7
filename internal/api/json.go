package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/redline/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps service sentinels to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrLocked):
		return http.StatusLocked, "session is locked"
	case errors.Is(err, apperr.ErrNotEditable):
		return http.StatusForbidden, "session is not editable"
	case errors.Is(err, apperr.ErrNoSelection):
		return http.StatusConflict, "no selection"
	case errors.Is(err, apperr.ErrNoProposal):
		return http.StatusConflict, "no pending proposal"
	case errors.Is(err, apperr.ErrNoHighlight):
		return http.StatusConflict, "no pending highlight"
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeError answers with the mapped status and logs unexpected failures.
func writeError(w http.ResponseWriter, op, session string, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("session", session), slog.String("error", err.Error()))
	} else if errors.Is(err, apperr.ErrInvalid) {
		msg = err.Error()
	}
	writeJSON(w, status, errorBody(msg))
}

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	appI18n "github.com/pavelanni/tutorquiz/internal/i18n"
	"github.com/pavelanni/tutorquiz/internal/quiz"
)

const maxBodyBytes = 1 << 20

type problem struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, kind, msgID, fallback string, fields map[string]string) {
	writeJSON(w, status, map[string]problem{
		"error": {
			Kind:    kind,
			Message: appI18n.Message(r.Context(), msgID, nil, fallback),
			Fields:  fields,
		},
	})
}

func statusFor(kind quiz.Kind) int {
	switch kind {
	case quiz.KindNotFound:
		return http.StatusNotFound
	case quiz.KindForbidden:
		return http.StatusForbidden
	case quiz.KindValidation:
		return http.StatusUnprocessableEntity
	case quiz.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError renders err as a JSON error body. Errors that are not domain
// errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var qe *quiz.Error
	if !errors.As(err, &qe) {
		slog.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "error", err)
		writeProblem(w, r, http.StatusInternalServerError, string(quiz.KindInternal), "InternalError", "internal error", nil)
		return
	}

	if qe.Retryable() {
		w.Header().Set("Retry-After", "0")
	}
	writeJSON(w, statusFor(qe.Kind), map[string]problem{
		"error": {
			Kind:    string(qe.Kind),
			Message: appI18n.Message(r.Context(), qe.MessageID, qe.Data, qe.Message),
			Fields:  qe.Fields,
		},
	})
}

// decodeJSON reads the request body into v. A body that cannot be decoded
// is a validation error: it writes a 422 response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		slog.Debug("invalid request body", "path", r.URL.Path, "error", err)
		writeProblem(w, r, http.StatusUnprocessableEntity, string(quiz.KindValidation), "InvalidRequestBody", "invalid request body", nil)
		return false
	}
	return true
}

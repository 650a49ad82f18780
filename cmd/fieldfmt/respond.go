package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/CTAG07/fieldfmt/pkg/fieldfmt"
	"github.com/CTAG07/fieldfmt/pkg/presets"
	"github.com/CTAG07/fieldfmt/pkg/templating"
)

// statusFor maps an error from the formatting stack to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, fieldfmt.ErrDirectiveSyntax),
		errors.Is(err, fieldfmt.ErrDirectiveValue),
		errors.Is(err, fieldfmt.ErrPattern),
		errors.Is(err, fieldfmt.ErrValue),
		errors.Is(err, presets.ErrInvalidName),
		errors.Is(err, presets.ErrInvalidDirective),
		errors.Is(err, templating.ErrLimitExceeded):
		return http.StatusBadRequest
	case errors.Is(err, presets.ErrNotFound),
		errors.Is(err, templating.ErrTemplateNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondWithErr writes err with the status statusFor picks. Server errors
// are logged; client errors are only echoed back.
func respondWithErr(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.Error(msg, "error", err)
	}
	respondWithError(w, code, err.Error())
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("Failed to encode JSON response", "error", err)
		}
	}
}

func respondWithText(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

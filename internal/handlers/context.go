package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/authz"
	"github.com/stanstork/workforce-api/internal/models"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps service errors onto HTTP status codes. Unexpected errors are logged and hidden.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error, action string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, models.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		logger.Error().Err(err).Msg("failed to " + action)
		http.Error(w, "Failed to "+action, http.StatusInternalServerError)
	}
}

func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return "", false
	}
	return uid, true
}

// pathID reads the UUID path variable key. A malformed id names no record, so it answers 404 for kind.
func pathID(w http.ResponseWriter, r *http.Request, key, kind string) (string, bool) {
	raw := strings.TrimSpace(mux.Vars(r)[key])
	if _, err := uuid.Parse(raw); err != nil {
		http.Error(w, kind+" not found", http.StatusNotFound)
		return "", false
	}
	return raw, true
}

func queryLimit(r *http.Request, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. An empty value yields the zero time.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

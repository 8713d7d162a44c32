package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"costbook/internal/catalog"
	"costbook/internal/costing"
	applog "costbook/internal/log"
)

var errInvalidItem = errors.New("invalid item reference")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps catalogue failures onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case catalog.IsValidation(err), errors.Is(err, errInvalidItem):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, costing.ErrDanglingReference):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, catalog.ErrInUse), errors.Is(err, catalog.ErrConcurrentEdit):
		writeJSONError(w, http.StatusConflict, err.Error())
	default:
		applog.Error(r.Context(), "catalog operation failed", "action", action, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to "+action)
	}
}

// resourcePath splits what follows prefix into segments. The first segment,
// when present, must be a numeric id.
func resourcePath(r *http.Request, prefix string) (uint, []string, bool) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if path == "" {
		return 0, nil, true
	}
	segments := strings.Split(path, "/")
	idValue, err := strconv.ParseUint(segments[0], 10, 64)
	if err != nil || idValue == 0 {
		applog.Debug(r.Context(), "invalid resource identifier", "identifier", segments[0])
		return 0, nil, false
	}
	return uint(idValue), segments[1:], true
}

// requireStore answers 503 when the catalogue is not configured and returns
// the caller's workspace otherwise.
func requireStore(w http.ResponseWriter, r *http.Request) (uint, bool) {
	if store == nil {
		applog.Debug(r.Context(), "catalog request without store", "path", r.URL.Path)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return 0, false
	}
	workspaceID, ok := currentWorkspaceID(r)
	if !ok {
		applog.Debug(r.Context(), "catalog request missing workspace", "path", r.URL.Path)
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return 0, false
	}
	return workspaceID, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		applog.Debug(r.Context(), "invalid request payload", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

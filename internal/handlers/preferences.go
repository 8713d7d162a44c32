package handlers

import (
	"errors"
	"net/http"
	"strings"

	applog "costbook/internal/log"
	"costbook/internal/prefs"
	"costbook/internal/units"
)

type preferencesPayload struct {
	UnitSystem string `json:"unit_system"`
}

// Preferences reads or updates the workspace's display unit system.
func Preferences(w http.ResponseWriter, r *http.Request) {
	if preferences == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	workspaceID, ok := currentWorkspaceID(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	switch r.Method {
	case http.MethodGet:
		system, err := preferences.UnitSystem(r.Context(), workspaceID)
		if err != nil {
			writePreferencesError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, preferencesPayload{UnitSystem: string(system)})
	case http.MethodPost:
		var payload preferencesPayload
		if !decodeJSON(w, r, &payload) {
			return
		}
		value := strings.ToLower(strings.TrimSpace(payload.UnitSystem))
		if !units.ValidSystem(value) {
			applog.Debug(r.Context(), "received invalid unit system", "value", payload.UnitSystem)
			writeJSONError(w, http.StatusBadRequest, "invalid unit system")
			return
		}
		if err := preferences.SetUnitSystem(r.Context(), workspaceID, units.System(value)); err != nil {
			writePreferencesError(w, r, err)
			return
		}
		applog.Info(r.Context(), "unit system updated", "workspaceID", workspaceID, "unitSystem", value)
		writeJSON(w, http.StatusOK, preferencesPayload{UnitSystem: value})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writePreferencesError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, prefs.ErrWorkspaceNotFound) {
		writeJSONError(w, http.StatusNotFound, "workspace not found")
		return
	}
	applog.Error(r.Context(), "failed to access preferences", "error", err)
	writeJSONError(w, http.StatusInternalServerError, "unable to access preferences")
}

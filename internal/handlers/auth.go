package handlers

import (
	"net/http"

	"github.com/alexedwards/scs/v2"

	"costbook/internal/catalog"
	applog "costbook/internal/log"
	"costbook/internal/prefs"
	"costbook/internal/units"
)

// The auth front end writes the caller's workspace into the shared session
// under this key. Handlers only read it.
const sessionWorkspaceIDKey = "workspace:id"

var (
	sessionManager *scs.SessionManager
	store          *catalog.Store
	preferences    prefs.Repository
)

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(sm *scs.SessionManager, catalogStore *catalog.Store, repo prefs.Repository) {
	sessionManager = sm
	store = catalogStore
	preferences = repo
}

// currentWorkspaceID returns the workspace bound to the request's session.
func currentWorkspaceID(r *http.Request) (uint, bool) {
	if sessionManager == nil {
		return 0, false
	}
	id := sessionManager.GetInt(r.Context(), sessionWorkspaceIDKey)
	if id <= 0 {
		return 0, false
	}
	return uint(id), true
}

// ActiveSession returns true when the current request carries a workspace.
func ActiveSession(r *http.Request) bool {
	_, ok := currentWorkspaceID(r)
	return ok
}

// RequireWorkspace rejects requests whose session does not name a workspace.
func RequireWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ActiveSession(r) {
			applog.Debug(r.Context(), "request without workspace session", "path", r.URL.Path)
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// workspaceUnitSystem resolves the display system for the workspace, falling
// back to the small system when the preference cannot be read.
func workspaceUnitSystem(r *http.Request, workspaceID uint) units.System {
	if preferences == nil {
		return units.SystemSmall
	}
	system, err := preferences.UnitSystem(r.Context(), workspaceID)
	if err != nil {
		applog.Warn(r.Context(), "unable to load unit system preference", "workspaceID", workspaceID, "error", err)
		return units.SystemSmall
	}
	return system
}

package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"costbook/internal/handlers"
	applog "costbook/internal/log"
)

const requestIDHeader = "X-Request-ID"

func newRouter() http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")
	mux.HandleFunc("/healthz", handlers.Health)
	applog.Debug(context.Background(), "route registered", "path", "/healthz")

	protected := map[string]http.HandlerFunc{
		"/app/api/ingredients":          handlers.IngredientResource,
		"/app/api/ingredients/":         handlers.IngredientResource,
		"/app/api/base-recipes":         handlers.BaseRecipeResource,
		"/app/api/base-recipes/":        handlers.BaseRecipeResource,
		"/app/api/final-products":       handlers.FinalProductResource,
		"/app/api/final-products/":      handlers.FinalProductResource,
		"/app/api/units/convert":        handlers.ConvertUnits,
		"/app/api/preferences":          handlers.Preferences,
		"/app/api/reports/costing.xlsx": handlers.CostingWorkbook,
	}
	for path, handler := range protected {
		mux.Handle(path, handlers.RequireWorkspace(handler))
		applog.Debug(context.Background(), "route registered", "path", path, "protected", true)
	}
	return mux
}

// withRequestID tags every request with an id, reusing the caller's header
// when it carries one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(applog.WithRequestID(r.Context(), id)))
	})
}

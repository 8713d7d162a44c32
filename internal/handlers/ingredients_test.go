package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"costbook/internal/units"
)

func createTestIngredient(t *testing.T, workspaceID uint, body string) ingredientResponse {
	t.Helper()
	sm := sessionManager
	req := authenticateRequest(t, sm, newJSONRequest(http.MethodPost, "/app/api/ingredients", body), workspaceID)
	w := httptest.NewRecorder()
	IngredientResource(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var response ingredientResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return response
}

func TestIngredientResourceLifecycle(t *testing.T) {
	_, workspaceID, cleanupDB := withTestCatalog(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	created := createTestIngredient(t, workspaceID, `{"name":"Flour","quantity":1000,"unit":"g","average_cost":"10.00"}`)
	if !created.UnitCost.Equal(decimal.RequireFromString("0.01")) {
		t.Fatalf("expected unit cost 0.01, got %s", created.UnitCost)
	}
	if created.DisplayUnit != "g" || created.DisplayQuantity != 1000 {
		t.Fatalf("unexpected display projection: %+v", created)
	}

	if err := preferences.SetUnitSystem(t.Context(), workspaceID, units.SystemLarge); err != nil {
		t.Fatalf("SetUnitSystem returned error: %v", err)
	}

	req := authenticateRequest(t, sm, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/app/api/ingredients/%d", created.ID), nil), workspaceID)
	w := httptest.NewRecorder()
	IngredientResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var shown ingredientResponse
	if err := json.Unmarshal(w.Body.Bytes(), &shown); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if shown.DisplayUnit != "kg" || shown.DisplayQuantity != 1 {
		t.Fatalf("expected large system projection, got %+v", shown)
	}

	body := fmt.Sprintf(`{"name":"Flour","quantity":"1000","unit":"g","average_cost":"12.00","version":%d}`, created.Version)
	req = authenticateRequest(t, sm, newJSONRequest(http.MethodPut, fmt.Sprintf("/app/api/ingredients/%d", created.ID), body), workspaceID)
	w = httptest.NewRecorder()
	IngredientResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 on update, got %d: %s", w.Code, w.Body.String())
	}

	req = authenticateRequest(t, sm, newJSONRequest(http.MethodPut, fmt.Sprintf("/app/api/ingredients/%d", created.ID), body), workspaceID)
	w = httptest.NewRecorder()
	IngredientResource(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409 for stale version, got %d", w.Code)
	}

	req = authenticateRequest(t, sm, httptest.NewRequest(http.MethodGet, "/app/api/ingredients?q=flo", nil), workspaceID)
	w = httptest.NewRecorder()
	IngredientResource(w, req)
	var listed []ingredientResponse
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(listed) != 1 || !listed[0].AverageCost.Equal(decimal.RequireFromString("12")) {
		t.Fatalf("unexpected list response: %+v", listed)
	}

	req = authenticateRequest(t, sm, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/app/api/ingredients/%d", created.ID), nil), workspaceID)
	w = httptest.NewRecorder()
	IngredientResource(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 on delete, got %d", w.Code)
	}

	req = authenticateRequest(t, sm, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/app/api/ingredients/%d", created.ID), nil), workspaceID)
	w = httptest.NewRecorder()
	IngredientResource(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", w.Code)
	}
}

func TestIngredientResourceValidation(t *testing.T) {
	_, workspaceID, cleanupDB := withTestCatalog(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"loss factor of one hundred", `{"name":"Salt","quantity":1,"unit":"g","average_cost":1,"loss_factor":100}`, http.StatusBadRequest},
		{"zero quantity", `{"name":"Salt","quantity":0,"unit":"g","average_cost":1}`, http.StatusBadRequest},
		{"malformed payload", `{"name":`, http.StatusBadRequest},
		{"unknown unit", `{"name":"Salt","quantity":1,"unit":"lb","average_cost":1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		req := authenticateRequest(t, sm, newJSONRequest(http.MethodPost, "/app/api/ingredients", tt.body), workspaceID)
		w := httptest.NewRecorder()
		IngredientResource(w, req)
		if w.Code != tt.want {
			t.Fatalf("%s: expected status %d, got %d", tt.name, tt.want, w.Code)
		}
	}
}

func TestIngredientResourceRouting(t *testing.T) {
	_, workspaceID, cleanupDB := withTestCatalog(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	tests := []struct {
		method string
		target string
		want   int
	}{
		{http.MethodPatch, "/app/api/ingredients", http.StatusMethodNotAllowed},
		{http.MethodPost, "/app/api/ingredients/1", http.StatusMethodNotAllowed},
		{http.MethodGet, "/app/api/ingredients/abc", http.StatusNotFound},
		{http.MethodGet, "/app/api/ingredients/1/extra", http.StatusNotFound},
	}
	for _, tt := range tests {
		req := authenticateRequest(t, sm, httptest.NewRequest(tt.method, tt.target, nil), workspaceID)
		w := httptest.NewRecorder()
		IngredientResource(w, req)
		if w.Code != tt.want {
			t.Fatalf("%s %s: expected %d, got %d", tt.method, tt.target, tt.want, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/app/api/ingredients", nil)
	ctx, err := sm.Load(req.Context(), "")
	if err != nil {
		t.Fatalf("failed to load session context: %v", err)
	}
	w := httptest.NewRecorder()
	IngredientResource(w, req.WithContext(ctx))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", w.Code)
	}
}

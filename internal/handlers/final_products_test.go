package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("failed to decode response: %v (%s)", err, w.Body.String())
	}
}

func TestFinalProductCostingFlow(t *testing.T) {
	_, workspaceID, cleanupDB := withTestCatalog(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	flour := createTestIngredient(t, workspaceID, `{"name":"Flour","quantity":1000,"unit":"g","average_cost":"10.00"}`)

	body := fmt.Sprintf(`{"name":"Dough","unit":"g","loss_factor":20,"items":[{"ingredient_id":%d,"quantity":500}]}`, flour.ID)
	req := authenticateRequest(t, sm, newJSONRequest(http.MethodPost, "/app/api/base-recipes", body), workspaceID)
	w := httptest.NewRecorder()
	BaseRecipeResource(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for base recipe, got %d: %s", w.Code, w.Body.String())
	}
	var recipe baseRecipeResponse
	decodeBody(t, w, &recipe)
	if !recipe.TotalCost.Equal(decimal.RequireFromString("6.25")) {
		t.Fatalf("expected recipe total 6.25, got %s", recipe.TotalCost)
	}

	body = fmt.Sprintf(`{"name":"Loaf","selling_price":"10.00","items":[{"item_type":"base_recipe","base_recipe_id":%d,"quantity":1}]}`, recipe.ID)
	req = authenticateRequest(t, sm, newJSONRequest(http.MethodPost, "/app/api/final-products", body), workspaceID)
	w = httptest.NewRecorder()
	FinalProductResource(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for final product, got %d: %s", w.Code, w.Body.String())
	}
	var product finalProductResponse
	decodeBody(t, w, &product)
	if !product.TotalCost.Equal(decimal.RequireFromString("6.25")) {
		t.Fatalf("expected product total 6.25, got %s", product.TotalCost)
	}
	if !product.ProfitMargin.Valid || !product.ProfitMargin.Decimal.Equal(decimal.RequireFromString("37.5")) {
		t.Fatalf("expected margin 37.5, got %+v", product.ProfitMargin)
	}

	req = authenticateRequest(t, sm, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/app/api/final-products/%d/requirements?quantity=2", product.ID), nil), workspaceID)
	w = httptest.NewRecorder()
	FinalProductResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for requirements, got %d: %s", w.Code, w.Body.String())
	}
	var requirements requirementsResponse
	decodeBody(t, w, &requirements)
	if len(requirements.Ingredients) != 1 || !requirements.Ingredients[0].Quantity.Equal(decimal.NewFromInt(1250)) {
		t.Fatalf("unexpected requirements: %+v", requirements)
	}
	if !requirements.TotalCost.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("expected requirements cost 12.5, got %s", requirements.TotalCost)
	}

	req = authenticateRequest(t, sm, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/app/api/final-products/%d/cost-sheet", product.ID), nil), workspaceID)
	w = httptest.NewRecorder()
	FinalProductResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for cost sheet, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html content type, got %q", ct)
	}
	for _, token := range []string{"Loaf", "Dough", "6.25", "37.5%"} {
		if !strings.Contains(w.Body.String(), token) {
			t.Fatalf("expected cost sheet to contain %q: %s", token, w.Body.String())
		}
	}

	req = authenticateRequest(t, sm, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/app/api/base-recipes/%d", recipe.ID), nil), workspaceID)
	w = httptest.NewRecorder()
	BaseRecipeResource(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409 deleting a referenced recipe, got %d", w.Code)
	}
}

func TestFinalProductItemValidation(t *testing.T) {
	_, workspaceID, cleanupDB := withTestCatalog(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"both ids set", `{"name":"A","items":[{"item_type":"ingredient","ingredient_id":1,"base_recipe_id":1,"quantity":1}]}`, http.StatusBadRequest},
		{"unknown item type", `{"name":"A","items":[{"item_type":"product","ingredient_id":1,"quantity":1}]}`, http.StatusBadRequest},
		{"missing id", `{"name":"A","items":[{"item_type":"base_recipe","quantity":1}]}`, http.StatusBadRequest},
		{"dangling recipe", `{"name":"A","items":[{"item_type":"base_recipe","base_recipe_id":99,"quantity":1}]}`, http.StatusUnprocessableEntity},
		{"zero selling price", `{"name":"A","selling_price":0}`, http.StatusBadRequest},
		{"loss of one hundred", `{"name":"A","loss_factor":100}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		req := authenticateRequest(t, sm, newJSONRequest(http.MethodPost, "/app/api/final-products", tt.body), workspaceID)
		w := httptest.NewRecorder()
		FinalProductResource(w, req)
		if w.Code != tt.want {
			t.Fatalf("%s: expected status %d, got %d: %s", tt.name, tt.want, w.Code, w.Body.String())
		}
	}
}

func TestFinalProductRequirementsQuantity(t *testing.T) {
	_, workspaceID, cleanupDB := withTestCatalog(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	req := authenticateRequest(t, sm, newJSONRequest(http.MethodPost, "/app/api/final-products", `{"name":"Empty"}`), workspaceID)
	w := httptest.NewRecorder()
	FinalProductResource(w, req)
	var product finalProductResponse
	decodeBody(t, w, &product)

	tests := []struct {
		query string
		want  int
	}{
		{"quantity=abc", http.StatusBadRequest},
		{"quantity=0", http.StatusBadRequest},
		{"quantity=3", http.StatusOK},
	}
	for _, tt := range tests {
		target := fmt.Sprintf("/app/api/final-products/%d/requirements?%s", product.ID, tt.query)
		req := authenticateRequest(t, sm, httptest.NewRequest(http.MethodGet, target, nil), workspaceID)
		w := httptest.NewRecorder()
		FinalProductResource(w, req)
		if w.Code != tt.want {
			t.Fatalf("%s: expected status %d, got %d", tt.query, tt.want, w.Code)
		}
	}

	req = authenticateRequest(t, sm, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/app/api/final-products/%d/unknown", product.ID), nil), workspaceID)
	w = httptest.NewRecorder()
	FinalProductResource(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown sub-resource, got %d", w.Code)
	}
}

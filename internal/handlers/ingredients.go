package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"costbook/internal/catalog"
	"costbook/internal/costing"
	applog "costbook/internal/log"
	"costbook/internal/units"
	"costbook/internal/views/pages"
	"costbook/models"
)

type ingredientResponse struct {
	ID              uint            `json:"id"`
	Name            string          `json:"name"`
	Quantity        decimal.Decimal `json:"quantity"`
	Unit            string          `json:"unit"`
	DisplayQuantity float64         `json:"display_quantity"`
	DisplayUnit     string          `json:"display_unit"`
	AverageCost     decimal.Decimal `json:"average_cost"`
	LossFactor      decimal.Decimal `json:"loss_factor"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	Type            string          `json:"type"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type ingredientRequest struct {
	Name        string          `json:"name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	AverageCost decimal.Decimal `json:"average_cost"`
	LossFactor  decimal.Decimal `json:"loss_factor"`
	Type        string          `json:"type"`
	Version     int             `json:"version"`
}

func (p ingredientRequest) input() catalog.IngredientInput {
	return catalog.IngredientInput{
		Name:        p.Name,
		Quantity:    p.Quantity,
		Unit:        p.Unit,
		AverageCost: p.AverageCost,
		LossFactor:  p.LossFactor,
		Type:        p.Type,
		Version:     p.Version,
	}
}

// IngredientResource handles REST-style interactions for ingredient records.
func IngredientResource(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := requireStore(w, r)
	if !ok {
		return
	}

	id, rest, ok := resourcePath(r, "/app/api/ingredients")
	if !ok || len(rest) > 0 {
		http.NotFound(w, r)
		return
	}

	if id == 0 {
		switch r.Method {
		case http.MethodGet:
			listIngredients(w, r, workspaceID)
		case http.MethodPost:
			createIngredient(w, r, workspaceID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		showIngredient(w, r, workspaceID, id)
	case http.MethodPut:
		updateIngredient(w, r, workspaceID, id)
	case http.MethodDelete:
		deleteIngredient(w, r, workspaceID, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listIngredients(w http.ResponseWriter, r *http.Request, workspaceID uint) {
	ingredients, err := store.ListIngredients(r.Context(), workspaceID)
	if err != nil {
		writeStoreError(w, r, err, "load ingredients")
		return
	}
	ingredients = pages.FilterIngredients(ingredients, pages.CatalogFiltersFromRequest(r))

	system := workspaceUnitSystem(r, workspaceID)
	responses := make([]ingredientResponse, 0, len(ingredients))
	for _, ingredient := range ingredients {
		responses = append(responses, projectIngredient(ingredient, system))
	}
	writeJSON(w, http.StatusOK, responses)
}

func showIngredient(w http.ResponseWriter, r *http.Request, workspaceID, id uint) {
	ingredient, err := store.GetIngredient(r.Context(), workspaceID, id)
	if err != nil {
		writeStoreError(w, r, err, "load ingredient")
		return
	}
	writeJSON(w, http.StatusOK, projectIngredient(*ingredient, workspaceUnitSystem(r, workspaceID)))
}

func createIngredient(w http.ResponseWriter, r *http.Request, workspaceID uint) {
	var payload ingredientRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	ingredient, err := store.CreateIngredient(r.Context(), workspaceID, payload.input())
	if err != nil {
		writeStoreError(w, r, err, "create ingredient")
		return
	}
	applog.Info(r.Context(), "ingredient created", "workspaceID", workspaceID, "ingredientID", ingredient.ID)
	writeJSON(w, http.StatusCreated, projectIngredient(*ingredient, workspaceUnitSystem(r, workspaceID)))
}

func updateIngredient(w http.ResponseWriter, r *http.Request, workspaceID, id uint) {
	var payload ingredientRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	ingredient, err := store.UpdateIngredient(r.Context(), workspaceID, id, payload.input())
	if err != nil {
		writeStoreError(w, r, err, "update ingredient")
		return
	}
	writeJSON(w, http.StatusOK, projectIngredient(*ingredient, workspaceUnitSystem(r, workspaceID)))
}

func deleteIngredient(w http.ResponseWriter, r *http.Request, workspaceID, id uint) {
	if err := store.DeleteIngredient(r.Context(), workspaceID, id); err != nil {
		writeStoreError(w, r, err, "delete ingredient")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func projectIngredient(ingredient models.Ingredient, system units.System) ingredientResponse {
	unit := units.Unit(ingredient.Unit)
	unitCost, err := costing.IngredientUnitCost(ingredient.Costing())
	if err != nil {
		unitCost = decimal.Zero
	}
	return ingredientResponse{
		ID:              ingredient.ID,
		Name:            ingredient.Name,
		Quantity:        ingredient.Quantity,
		Unit:            ingredient.Unit,
		DisplayQuantity: units.ToDisplay(ingredient.Quantity.InexactFloat64(), unit, system),
		DisplayUnit:     units.DisplayUnitLabel(unit, system),
		AverageCost:     ingredient.AverageCost,
		LossFactor:      ingredient.LossFactor,
		UnitCost:        unitCost,
		Type:            ingredient.Type,
		Version:         ingredient.Version,
		CreatedAt:       ingredient.CreatedAt,
		UpdatedAt:       ingredient.UpdatedAt,
	}
}

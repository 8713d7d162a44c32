package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"costbook/internal/catalog"
	"costbook/internal/costing"
	"costbook/internal/units"
	"costbook/internal/views/pages"
	"costbook/models"
)

type baseRecipeItemPayload struct {
	IngredientID uint            `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
}

type baseRecipeItemResponse struct {
	ID           uint            `json:"id"`
	IngredientID uint            `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
}

type baseRecipeRequest struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	LossFactor  decimal.Decimal         `json:"loss_factor"`
	Unit        string                  `json:"unit"`
	Yield       decimal.Decimal         `json:"yield"`
	Items       []baseRecipeItemPayload `json:"items"`
	Version     int                     `json:"version"`
}

type baseRecipeResponse struct {
	ID           uint                     `json:"id"`
	Name         string                   `json:"name"`
	Description  string                   `json:"description"`
	LossFactor   decimal.Decimal          `json:"loss_factor"`
	Unit         string                   `json:"unit"`
	Yield        decimal.Decimal          `json:"yield"`
	DisplayYield float64                  `json:"display_yield"`
	DisplayUnit  string                   `json:"display_unit"`
	TotalCost    decimal.Decimal          `json:"total_cost"`
	Version      int                      `json:"version"`
	Items        []baseRecipeItemResponse `json:"items"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

func (p baseRecipeRequest) input() catalog.BaseRecipeInput {
	items := make([]costing.RecipeItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, costing.RecipeItem{
			Ingredient: costing.IngredientRef(item.IngredientID),
			Quantity:   item.Quantity,
		})
	}
	return catalog.BaseRecipeInput{
		Name:        p.Name,
		Description: p.Description,
		LossFactor:  p.LossFactor,
		Unit:        p.Unit,
		Yield:       p.Yield,
		Items:       items,
		Version:     p.Version,
	}
}

// BaseRecipeResource handles REST-style interactions for base recipes.
func BaseRecipeResource(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := requireStore(w, r)
	if !ok {
		return
	}

	id, rest, ok := resourcePath(r, "/app/api/base-recipes")
	if !ok || len(rest) > 0 {
		http.NotFound(w, r)
		return
	}

	if id == 0 {
		switch r.Method {
		case http.MethodGet:
			listBaseRecipes(w, r, workspaceID)
		case http.MethodPost:
			createBaseRecipe(w, r, workspaceID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		recipe, err := store.GetBaseRecipe(r.Context(), workspaceID, id)
		if err != nil {
			writeStoreError(w, r, err, "load base recipe")
			return
		}
		writeJSON(w, http.StatusOK, projectBaseRecipe(*recipe, workspaceUnitSystem(r, workspaceID)))
	case http.MethodPut:
		updateBaseRecipe(w, r, workspaceID, id)
	case http.MethodDelete:
		if err := store.DeleteBaseRecipe(r.Context(), workspaceID, id); err != nil {
			writeStoreError(w, r, err, "delete base recipe")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listBaseRecipes(w http.ResponseWriter, r *http.Request, workspaceID uint) {
	recipes, err := store.ListBaseRecipes(r.Context(), workspaceID)
	if err != nil {
		writeStoreError(w, r, err, "load base recipes")
		return
	}
	recipes = pages.FilterBaseRecipes(recipes, pages.CatalogFiltersFromRequest(r))

	system := workspaceUnitSystem(r, workspaceID)
	responses := make([]baseRecipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		responses = append(responses, projectBaseRecipe(recipe, system))
	}
	writeJSON(w, http.StatusOK, responses)
}

func createBaseRecipe(w http.ResponseWriter, r *http.Request, workspaceID uint) {
	var payload baseRecipeRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	recipe, err := store.CreateBaseRecipe(r.Context(), workspaceID, payload.input())
	if err != nil {
		writeStoreError(w, r, err, "create base recipe")
		return
	}
	writeJSON(w, http.StatusCreated, projectBaseRecipe(*recipe, workspaceUnitSystem(r, workspaceID)))
}

func updateBaseRecipe(w http.ResponseWriter, r *http.Request, workspaceID, id uint) {
	var payload baseRecipeRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	recipe, err := store.UpdateBaseRecipe(r.Context(), workspaceID, id, payload.input())
	if err != nil {
		writeStoreError(w, r, err, "update base recipe")
		return
	}
	writeJSON(w, http.StatusOK, projectBaseRecipe(*recipe, workspaceUnitSystem(r, workspaceID)))
}

func projectBaseRecipe(recipe models.BaseRecipe, system units.System) baseRecipeResponse {
	unit := units.Unit(recipe.Unit)
	items := make([]baseRecipeItemResponse, 0, len(recipe.Items))
	for _, item := range recipe.Items {
		items = append(items, baseRecipeItemResponse{
			ID:           item.ID,
			IngredientID: item.IngredientID,
			Quantity:     item.Quantity,
		})
	}
	return baseRecipeResponse{
		ID:           recipe.ID,
		Name:         recipe.Name,
		Description:  recipe.Description,
		LossFactor:   recipe.LossFactor,
		Unit:         recipe.Unit,
		Yield:        recipe.Yield,
		DisplayYield: units.ToDisplay(recipe.Yield.InexactFloat64(), unit, system),
		DisplayUnit:  units.DisplayUnitLabel(unit, system),
		TotalCost:    recipe.TotalCost,
		Version:      recipe.Version,
		Items:        items,
		CreatedAt:    recipe.CreatedAt,
		UpdatedAt:    recipe.UpdatedAt,
	}
}

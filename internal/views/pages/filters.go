package pages

import (
	"net/http"
	"strings"

	"costbook/models"
)

// CatalogFilters capture the client-driven state for catalogue listings.
type CatalogFilters struct {
	Query    string
	Type     string
	Category string
}

// CatalogFiltersFromRequest extracts filter inputs from an HTTP request.
func CatalogFiltersFromRequest(r *http.Request) CatalogFilters {
	query := r.URL.Query()
	return CatalogFilters{
		Query:    strings.TrimSpace(query.Get("q")),
		Type:     strings.ToLower(strings.TrimSpace(query.Get("type"))),
		Category: strings.TrimSpace(query.Get("category")),
	}
}

// FilterIngredients keeps ingredients whose name matches the query and whose
// type matches when one is requested.
func FilterIngredients(all []models.Ingredient, filters CatalogFilters) []models.Ingredient {
	if filters.Query == "" && filters.Type == "" {
		return all
	}
	query := strings.ToLower(filters.Query)
	filtered := make([]models.Ingredient, 0, len(all))
	for _, ingredient := range all {
		if filters.Type != "" && ingredient.Type != filters.Type {
			continue
		}
		if containsFold(ingredient.Name, query) {
			filtered = append(filtered, ingredient)
		}
	}
	return filtered
}

// FilterBaseRecipes matches the query against name and description.
func FilterBaseRecipes(all []models.BaseRecipe, filters CatalogFilters) []models.BaseRecipe {
	if filters.Query == "" {
		return all
	}
	query := strings.ToLower(filters.Query)
	filtered := make([]models.BaseRecipe, 0, len(all))
	for _, recipe := range all {
		if containsFold(recipe.Name, query) || containsFold(recipe.Description, query) {
			filtered = append(filtered, recipe)
		}
	}
	return filtered
}

// FilterFinalProducts matches the query against name and keeps only the
// requested category, compared case-insensitively.
func FilterFinalProducts(all []models.FinalProduct, filters CatalogFilters) []models.FinalProduct {
	if filters.Query == "" && filters.Category == "" {
		return all
	}
	query := strings.ToLower(filters.Query)
	filtered := make([]models.FinalProduct, 0, len(all))
	for _, product := range all {
		if filters.Category != "" && !strings.EqualFold(product.Category, filters.Category) {
			continue
		}
		if containsFold(product.Name, query) {
			filtered = append(filtered, product)
		}
	}
	return filtered
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), needle)
}

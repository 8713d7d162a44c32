package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"costbook/internal/costing"
	"costbook/internal/events"
	"costbook/models"
)

// recomputeIngredientDependents revalues the base recipes that use the
// ingredient, then every final product that uses the ingredient or one of
// those recipes.
func recomputeIngredientDependents(tx *gorm.DB, workspaceID, ingredientID uint) ([]events.Event, error) {
	var recipeIDs []uint
	if err := tx.Model(&models.BaseRecipeItem{}).
		Where("ingredient_id = ?", ingredientID).
		Distinct().
		Pluck("base_recipe_id", &recipeIDs).Error; err != nil {
		return nil, fmt.Errorf("find recipes using ingredient %d: %w", ingredientID, err)
	}

	var pending []events.Event
	for _, recipeID := range recipeIDs {
		event, err := recomputeBaseRecipe(tx, workspaceID, recipeID)
		if err != nil {
			return nil, err
		}
		if event != nil {
			pending = append(pending, *event)
		}
	}

	query := tx.Model(&models.FinalProductItem{}).Where("ingredient_id = ?", ingredientID)
	if len(recipeIDs) > 0 {
		query = query.Or("base_recipe_id IN ?", recipeIDs)
	}
	var productIDs []uint
	if err := query.Distinct().Pluck("final_product_id", &productIDs).Error; err != nil {
		return nil, fmt.Errorf("find products using ingredient %d: %w", ingredientID, err)
	}

	productEvents, err := recomputeFinalProducts(tx, workspaceID, productIDs)
	if err != nil {
		return nil, err
	}
	return append(pending, productEvents...), nil
}

// recomputeRecipeDependents revalues every final product that uses the base
// recipe.
func recomputeRecipeDependents(tx *gorm.DB, workspaceID, recipeID uint) ([]events.Event, error) {
	var productIDs []uint
	if err := tx.Model(&models.FinalProductItem{}).
		Where("base_recipe_id = ?", recipeID).
		Distinct().
		Pluck("final_product_id", &productIDs).Error; err != nil {
		return nil, fmt.Errorf("find products using base recipe %d: %w", recipeID, err)
	}
	return recomputeFinalProducts(tx, workspaceID, productIDs)
}

func recomputeFinalProducts(tx *gorm.DB, workspaceID uint, ids []uint) ([]events.Event, error) {
	var pending []events.Event
	for _, id := range ids {
		event, err := recomputeFinalProduct(tx, workspaceID, id)
		if err != nil {
			return nil, err
		}
		if event != nil {
			pending = append(pending, *event)
		}
	}
	return pending, nil
}

// recomputeBaseRecipe stores a fresh total for the recipe. It returns nil
// when the recipe belongs to another workspace or is gone.
func recomputeBaseRecipe(tx *gorm.DB, workspaceID, id uint) (*events.Event, error) {
	recipe, err := getBaseRecipe(tx, workspaceID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	total, err := valueBaseRecipe(tx, workspaceID, recipe.LossFactor, recipe.CostingItems())
	if err != nil {
		return nil, fmt.Errorf("base recipe #%d: %w", id, err)
	}
	if err := tx.Model(&models.BaseRecipe{}).Where("id = ?", id).Update("total_cost", total.TotalCost).Error; err != nil {
		return nil, fmt.Errorf("store base recipe %d total: %w", id, err)
	}

	event := costEvent(events.BaseRecipeChanged, workspaceID, id, total.TotalCost)
	return &event, nil
}

// recomputeFinalProduct stores a fresh total and margin for the product.
func recomputeFinalProduct(tx *gorm.DB, workspaceID, id uint) (*events.Event, error) {
	product, err := getFinalProduct(tx, workspaceID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	items, err := product.CostingItems()
	if err != nil {
		return nil, fmt.Errorf("final product #%d: %w", id, err)
	}
	result, err := valueFinalProduct(tx, workspaceID, product.Costing(), items)
	if err != nil {
		return nil, fmt.Errorf("final product #%d: %w", id, err)
	}
	if err := tx.Model(&models.FinalProduct{}).Where("id = ?", id).Updates(map[string]any{
		"total_cost":    result.TotalCost,
		"profit_margin": result.ProfitMargin,
	}).Error; err != nil {
		return nil, fmt.Errorf("store final product %d total: %w", id, err)
	}

	event := costEvent(events.FinalProductChanged, workspaceID, id, result.TotalCost)
	return &event, nil
}

func valueBaseRecipe(tx *gorm.DB, workspaceID uint, loss decimal.Decimal, items []costing.RecipeItem) (costing.RecipeCost, error) {
	catalog, err := loadCatalog(tx, workspaceID, recipeIngredientIDs(items), nil)
	if err != nil {
		return costing.RecipeCost{}, err
	}
	return costing.BaseRecipeCost(costing.Recipe{LossFactor: loss}, items, catalog)
}

func valueFinalProduct(tx *gorm.DB, workspaceID uint, product costing.Product, items []costing.ProductItem) (costing.ProductCost, error) {
	ingredientIDs, recipeIDs := productRefIDs(items)
	catalog, err := loadCatalog(tx, workspaceID, ingredientIDs, recipeIDs)
	if err != nil {
		return costing.ProductCost{}, err
	}
	return costing.FinalProductCost(product, items, catalog)
}

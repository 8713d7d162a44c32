package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"costbook/internal/costing"
	"costbook/models"
)

// SheetLine is one valued line of a final product with the name and unit of
// the referenced record.
type SheetLine struct {
	Ref      costing.ItemRef
	Name     string
	Unit     string
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
	Cost     decimal.Decimal
}

// CostSheet is the line by line valuation of a final product.
type CostSheet struct {
	Product      models.FinalProduct
	Lines        []SheetLine
	RawTotal     decimal.Decimal
	TotalCost    decimal.Decimal
	ProfitMargin decimal.NullDecimal
}

// RequirementLine is the amount of one ingredient consumed by a batch and
// what it costs.
type RequirementLine struct {
	Ingredient models.Ingredient
	Quantity   decimal.Decimal
	Cost       decimal.Decimal
}

// RequirementsReport expands a batch of a final product into ingredients.
type RequirementsReport struct {
	Product   models.FinalProduct
	Batch     decimal.Decimal
	Lines     []RequirementLine
	TotalCost decimal.Decimal
}

// CostSheet values the product from current data and names every line.
func (s *Store) CostSheet(ctx context.Context, workspaceID, productID uint) (*CostSheet, error) {
	tx := s.db.WithContext(ctx)
	product, err := getFinalProduct(tx, workspaceID, productID)
	if err != nil {
		return nil, err
	}
	items, err := product.CostingItems()
	if err != nil {
		return nil, err
	}
	cost, err := valueFinalProduct(tx, workspaceID, product.Costing(), items)
	if err != nil {
		return nil, err
	}

	ingredientIDs, recipeIDs := productRefIDs(items)
	ingredients, err := ingredientsByID(ctx, s, workspaceID, ingredientIDs)
	if err != nil {
		return nil, err
	}
	recipes := make(map[uint]models.BaseRecipe, len(recipeIDs))
	if len(recipeIDs) > 0 {
		var rows []models.BaseRecipe
		if err := tx.Where("workspace_id = ? AND id IN ?", workspaceID, uniqueIDs(recipeIDs)).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("load base recipes: %w", err)
		}
		for _, row := range rows {
			recipes[row.ID] = row
		}
	}

	sheet := &CostSheet{
		Product:      *product,
		RawTotal:     cost.RawTotal,
		TotalCost:    cost.TotalCost,
		ProfitMargin: cost.ProfitMargin,
		Lines:        make([]SheetLine, 0, len(cost.Lines)),
	}
	for _, line := range cost.Lines {
		entry := SheetLine{Ref: line.Ref, Quantity: line.Quantity, UnitCost: line.UnitCost, Cost: line.Cost}
		switch ref := line.Ref.(type) {
		case costing.IngredientRef:
			entry.Name = ingredients[ref.ID()].Name
			entry.Unit = ingredients[ref.ID()].Unit
		case costing.BaseRecipeRef:
			entry.Name = recipes[ref.ID()].Name
			entry.Unit = recipes[ref.ID()].Unit
		}
		sheet.Lines = append(sheet.Lines, entry)
	}
	return sheet, nil
}

// Requirements lists the ingredients consumed to produce batch units of the
// product. The line costs add up to the product's total cost times batch.
func (s *Store) Requirements(ctx context.Context, workspaceID, productID uint, batch decimal.Decimal) (*RequirementsReport, error) {
	tx := s.db.WithContext(ctx)
	product, err := getFinalProduct(tx, workspaceID, productID)
	if err != nil {
		return nil, err
	}
	items, err := product.CostingItems()
	if err != nil {
		return nil, err
	}

	_, recipeIDs := productRefIDs(items)
	definitions := make(map[uint]costing.RecipeDefinition, len(recipeIDs))
	if len(recipeIDs) > 0 {
		var recipes []models.BaseRecipe
		if err := tx.Preload("Items", preloadRecipeItems).
			Where("workspace_id = ? AND id IN ?", workspaceID, uniqueIDs(recipeIDs)).
			Find(&recipes).Error; err != nil {
			return nil, fmt.Errorf("load base recipes: %w", err)
		}
		for _, recipe := range recipes {
			definitions[recipe.ID] = recipe.Definition()
		}
	}

	requirements, err := costing.Requirements(product.Costing(), items, definitions, batch)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(requirements))
	for _, requirement := range requirements {
		ids = append(ids, requirement.Ingredient.ID())
	}
	ingredients, err := ingredientsByID(ctx, s, workspaceID, ids)
	if err != nil {
		return nil, err
	}

	report := &RequirementsReport{
		Product:   *product,
		Batch:     batch,
		Lines:     make([]RequirementLine, 0, len(requirements)),
		TotalCost: decimal.Zero,
	}
	for _, requirement := range requirements {
		ingredient, ok := ingredients[requirement.Ingredient.ID()]
		if !ok {
			return nil, fmt.Errorf("%w: %s", costing.ErrDanglingReference, requirement.Ingredient)
		}
		unitCost, err := costing.IngredientUnitCost(ingredient.Costing())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", requirement.Ingredient, err)
		}
		cost := unitCost.Mul(requirement.Quantity)
		report.TotalCost = report.TotalCost.Add(cost)
		report.Lines = append(report.Lines, RequirementLine{
			Ingredient: ingredient,
			Quantity:   requirement.Quantity,
			Cost:       cost,
		})
	}
	return report, nil
}

func ingredientsByID(ctx context.Context, s *Store, workspaceID uint, ids []uint) (map[uint]models.Ingredient, error) {
	out := make(map[uint]models.Ingredient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Ingredient
	if err := s.db.WithContext(ctx).Where("workspace_id = ? AND id IN ?", workspaceID, uniqueIDs(ids)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load ingredients: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

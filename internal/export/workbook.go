// Package export renders the costing catalogue as an xlsx workbook.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"costbook/internal/costing"
	"costbook/internal/units"
	"costbook/models"
)

const (
	IngredientsSheet   = "Ingredients"
	BaseRecipesSheet   = "Base recipes"
	FinalProductsSheet = "Final products"
)

// Catalog is the data placed in the workbook.
type Catalog struct {
	Ingredients   []models.Ingredient
	BaseRecipes   []models.BaseRecipe
	FinalProducts []models.FinalProduct
	UnitSystem    units.System
}

// Workbook builds one sheet per record kind. Quantities are written in the
// catalogue's display system.
func Workbook(data Catalog) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), IngredientsSheet); err != nil {
		return nil, err
	}

	ingredientRows := [][]any{{"ID", "Name", "Type", "Quantity", "Unit", "Average cost", "Unit cost", "Loss %"}}
	for _, ingredient := range data.Ingredients {
		unit := units.Unit(ingredient.Unit)
		unitCost, err := costing.IngredientUnitCost(ingredient.Costing())
		if err != nil {
			unitCost = decimal.Zero
		}
		ingredientRows = append(ingredientRows, []any{
			ingredient.ID,
			ingredient.Name,
			ingredient.Type,
			units.ToDisplay(ingredient.Quantity.InexactFloat64(), unit, data.UnitSystem),
			units.DisplayUnitLabel(unit, data.UnitSystem),
			ingredient.AverageCost.InexactFloat64(),
			unitCost.InexactFloat64(),
			ingredient.LossFactor.InexactFloat64(),
		})
	}
	if err := writeRows(f, IngredientsSheet, ingredientRows); err != nil {
		return nil, err
	}

	recipeRows := [][]any{{"ID", "Name", "Yield", "Unit", "Loss %", "Items", "Total cost"}}
	for _, recipe := range data.BaseRecipes {
		unit := units.Unit(recipe.Unit)
		recipeRows = append(recipeRows, []any{
			recipe.ID,
			recipe.Name,
			units.ToDisplay(recipe.Yield.InexactFloat64(), unit, data.UnitSystem),
			units.DisplayUnitLabel(unit, data.UnitSystem),
			recipe.LossFactor.InexactFloat64(),
			len(recipe.Items),
			recipe.TotalCost.InexactFloat64(),
		})
	}
	if err := addSheet(f, BaseRecipesSheet, recipeRows); err != nil {
		return nil, err
	}

	productRows := [][]any{{"ID", "Name", "Category", "Loss %", "Items", "Total cost", "Selling price", "Margin %"}}
	for _, product := range data.FinalProducts {
		productRows = append(productRows, []any{
			product.ID,
			product.Name,
			product.Category,
			product.LossFactor.InexactFloat64(),
			len(product.Items),
			product.TotalCost.InexactFloat64(),
			nullable(product.SellingPrice),
			nullable(product.ProfitMargin),
		})
	}
	if err := addSheet(f, FinalProductsSheet, productRows); err != nil {
		return nil, err
	}

	return f, nil
}

// Write renders the workbook to w.
func Write(w io.Writer, data Catalog) error {
	f, err := Workbook(data)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func addSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func nullable(value decimal.NullDecimal) any {
	if !value.Valid {
		return ""
	}
	return value.Decimal.InexactFloat64()
}

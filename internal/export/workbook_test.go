package export

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"costbook/internal/units"
	"costbook/models"
)

func sampleCatalog(system units.System) Catalog {
	return Catalog{
		Ingredients: []models.Ingredient{{
			Model:       gorm.Model{ID: 1},
			Name:        "Flour",
			Quantity:    decimal.NewFromInt(1000),
			Unit:        "g",
			AverageCost: decimal.RequireFromString("10.00"),
			Type:        models.IngredientTypeIngredient,
		}},
		BaseRecipes: []models.BaseRecipe{{
			Model:      gorm.Model{ID: 2},
			Name:       "Dough",
			Unit:       "g",
			Yield:      decimal.NewFromInt(400),
			LossFactor: decimal.NewFromInt(20),
			TotalCost:  decimal.RequireFromString("6.25"),
		}},
		FinalProducts: []models.FinalProduct{{
			Model:        gorm.Model{ID: 3},
			Name:         "Loaf",
			TotalCost:    decimal.RequireFromString("6.25"),
			SellingPrice: decimal.NewNullDecimal(decimal.RequireFromString("10")),
			ProfitMargin: decimal.NewNullDecimal(decimal.RequireFromString("37.5")),
		}},
		UnitSystem: system,
	}
}

func TestWorkbookSheets(t *testing.T) {
	t.Parallel()

	f, err := Workbook(sampleCatalog(units.SystemLarge))
	if err != nil {
		t.Fatalf("Workbook returned error: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 3 || sheets[0] != IngredientsSheet || sheets[1] != BaseRecipesSheet || sheets[2] != FinalProductsSheet {
		t.Fatalf("unexpected sheets: %v", sheets)
	}

	rows, err := f.GetRows(IngredientsSheet)
	if err != nil {
		t.Fatalf("GetRows returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d rows", len(rows))
	}
	if rows[1][1] != "Flour" || rows[1][3] != "1" || rows[1][4] != "kg" || rows[1][6] != "0.01" {
		t.Fatalf("unexpected ingredient row: %v", rows[1])
	}

	products, err := f.GetRows(FinalProductsSheet)
	if err != nil {
		t.Fatalf("GetRows returned error: %v", err)
	}
	if products[1][7] != "37.5" {
		t.Fatalf("unexpected margin cell: %v", products[1])
	}
}

func TestWriteProducesReadableWorkbook(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, sampleCatalog(units.SystemSmall)); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader returned error: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(BaseRecipesSheet)
	if err != nil {
		t.Fatalf("GetRows returned error: %v", err)
	}
	if rows[1][2] != "400" || rows[1][3] != "g" || rows[1][6] != "6.25" {
		t.Fatalf("unexpected recipe row: %v", rows[1])
	}
}

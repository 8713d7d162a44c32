package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"costbook/internal/catalog"
	"costbook/internal/db"
	"costbook/internal/events"
	"costbook/internal/units"
	"costbook/models"
)

func newImportStore(t *testing.T, name string) (*gorm.DB, *catalog.Store, uint) {
	t.Helper()
	database, err := gorm.Open(sqlite.Open("file:import_"+name+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(database); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	workspace := models.Workspace{Name: "Import kitchen"}
	if err := database.Create(&workspace).Error; err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}
	return database, catalog.New(database, events.Nop{}), workspace.ID
}

func TestImportFileFromCSV(t *testing.T) {
	database, store, workspaceID := newImportStore(t, "csv")
	path := filepath.Join(t.TempDir(), "ingredients.csv")
	content := "Name,Qty,Unit,Average cost,Loss %,Type,Supplier\n" +
		"Wheat flour,1000,g,10.00,,ingredient,Mill\n" +
		"\n" +
		"Pastry box,50,units,25,,material,\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}

	result, err := importFile(context.Background(), store, workspaceID, path, units.SystemSmall)
	if err != nil {
		t.Fatalf("importFile returned error: %v", err)
	}
	if result.Created != 2 || result.Updated != 0 {
		t.Fatalf("expected two created ingredients, got %+v", result)
	}

	content = "name,quantity,unit,cost\nwheat flour,1000,g,20.00\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to rewrite csv: %v", err)
	}
	result, err = importFile(context.Background(), store, workspaceID, path, units.SystemSmall)
	if err != nil {
		t.Fatalf("second import returned error: %v", err)
	}
	if result.Created != 0 || result.Updated != 1 {
		t.Fatalf("expected the existing ingredient to be updated, got %+v", result)
	}

	var flour models.Ingredient
	if err := database.Where("name = ?", "Wheat flour").First(&flour).Error; err != nil {
		t.Fatalf("failed to load flour: %v", err)
	}
	if !flour.AverageCost.Equal(decimal.NewFromInt(20)) || flour.Version != 2 {
		t.Fatalf("expected updated cost and version, got %s v%d", flour.AverageCost, flour.Version)
	}

	var box models.Ingredient
	if err := database.Where("name = ?", "Pastry box").First(&box).Error; err != nil {
		t.Fatalf("failed to load box: %v", err)
	}
	if box.Unit != "un" || box.Type != models.IngredientTypeMaterial {
		t.Fatalf("unexpected box: %+v", box)
	}
}

func TestImportFileFromWorkbookInLargeUnits(t *testing.T) {
	database, store, workspaceID := newImportStore(t, "xlsx")
	path := filepath.Join(t.TempDir(), "ingredients.xlsx")

	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	rows := [][]any{
		{"Ingredient", "Quantity", "Unit", "Price"},
		{"Milk", "2", "ml", "6.50"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("failed to resolve cell: %v", err)
		}
		if err := book.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("failed to write row: %v", err)
		}
	}
	if err := book.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
	book.Close()

	result, err := importFile(context.Background(), store, workspaceID, path, units.SystemLarge)
	if err != nil {
		t.Fatalf("importFile returned error: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("expected one created ingredient, got %+v", result)
	}

	var milk models.Ingredient
	if err := database.Where("name = ?", "Milk").First(&milk).Error; err != nil {
		t.Fatalf("failed to load milk: %v", err)
	}
	if !milk.Quantity.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected 2 L stored as 2000 ml, got %s", milk.Quantity)
	}
}

func TestImportFileRejectsBadRows(t *testing.T) {
	_, store, workspaceID := newImportStore(t, "bad")
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"no name column", "quantity,unit\n1,g\n"},
		{"unknown unit", "name,quantity,unit,cost\nFlour,1,lb,2\n"},
		{"bad number", "name,quantity,unit,cost\nFlour,one,g,2\n"},
		{"zero quantity", "name,quantity,unit,cost\nFlour,0,g,2\n"},
	}
	for _, tt := range tests {
		path := filepath.Join(dir, tt.name+".csv")
		if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
			t.Fatalf("failed to write csv: %v", err)
		}
		if _, err := importFile(context.Background(), store, workspaceID, path, units.SystemSmall); err == nil {
			t.Fatalf("%s: expected an error", tt.name)
		}
	}
}

func TestResolveWorkspace(t *testing.T) {
	database, _, workspaceID := newImportStore(t, "resolve")
	ctx := context.Background()

	if id, err := resolveWorkspace(ctx, database, ""); err != nil || id != workspaceID {
		t.Fatalf("expected default workspace %d, got %d (%v)", workspaceID, id, err)
	}
	if _, err := resolveWorkspace(ctx, database, "abc"); err == nil {
		t.Fatal("expected error for malformed id")
	}
	if _, err := resolveWorkspace(ctx, database, "999"); err == nil {
		t.Fatal("expected error for unknown workspace")
	}
	if _, err := resolveWorkspace(ctx, nil, ""); err == nil {
		t.Fatal("expected error for nil database")
	}
}

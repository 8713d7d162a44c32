package mock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"costbook/internal/costing"
	applog "costbook/internal/log"
	"costbook/models"
)

// New returns an in-memory sqlite database seeded with a small bakery
// catalogue whose costs are already rolled up.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	db, err := gorm.Open(sqlite.Open("file:costbook-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.Workspace{},
		&models.Ingredient{},
		&models.BaseRecipe{},
		&models.BaseRecipeItem{},
		&models.FinalProduct{},
		&models.FinalProductItem{},
	); err != nil {
		return nil, err
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Workspace{}).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		if err := seed(ctx, db); err != nil {
			return nil, err
		}
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		workspace := &models.Workspace{Name: "Corner Bakery", UnitSystem: "small"}
		if err := tx.Create(workspace).Error; err != nil {
			return err
		}

		flour := models.Ingredient{
			WorkspaceID: workspace.ID,
			Name:        "Wheat flour",
			Quantity:    decimal.NewFromInt(1000),
			Unit:        "g",
			AverageCost: decimal.RequireFromString("10.00"),
			LossFactor:  decimal.Zero,
			Type:        models.IngredientTypeIngredient,
		}
		butter := models.Ingredient{
			WorkspaceID: workspace.ID,
			Name:        "Butter",
			Quantity:    decimal.NewFromInt(500),
			Unit:        "g",
			AverageCost: decimal.RequireFromString("20.00"),
			LossFactor:  decimal.Zero,
			Type:        models.IngredientTypeIngredient,
		}
		box := models.Ingredient{
			WorkspaceID: workspace.ID,
			Name:        "Pastry box",
			Quantity:    decimal.NewFromInt(50),
			Unit:        "un",
			AverageCost: decimal.RequireFromString("25.00"),
			LossFactor:  decimal.Zero,
			Type:        models.IngredientTypeMaterial,
		}
		for _, ingredient := range []*models.Ingredient{&flour, &butter, &box} {
			if err := tx.Create(ingredient).Error; err != nil {
				return err
			}
		}

		// 500 g flour at 0.01/g with 20% loss: 5.00 / 0.8 = 6.25.
		dough := models.BaseRecipe{
			WorkspaceID: workspace.ID,
			Name:        "Bread dough",
			Description: "Basic lean dough.",
			LossFactor:  decimal.NewFromInt(20),
			Unit:        "g",
			Yield:       decimal.NewFromInt(400),
			TotalCost:   decimal.RequireFromString("6.25"),
			Items: []models.BaseRecipeItem{
				{IngredientID: flour.ID, Quantity: decimal.NewFromInt(500)},
			},
		}
		if err := tx.Create(&dough).Error; err != nil {
			return err
		}

		// One dough plus one box: 6.25 + 0.50 = 6.75, sold at 10.00.
		loaf := models.FinalProduct{
			WorkspaceID:  workspace.ID,
			Name:         "Boxed loaf",
			Category:     "Bread",
			LossFactor:   decimal.Zero,
			SellingPrice: decimal.NewNullDecimal(decimal.RequireFromString("10.00")),
			ProfitMargin: decimal.NewNullDecimal(decimal.RequireFromString("32.5")),
			TotalCost:    decimal.RequireFromString("6.75"),
			Items: []models.FinalProductItem{
				models.NewFinalProductItem(costing.BaseRecipeRef(dough.ID), decimal.NewFromInt(1)),
				models.NewFinalProductItem(costing.IngredientRef(box.ID), decimal.NewFromInt(1)),
			},
		}
		if err := tx.Create(&loaf).Error; err != nil {
			return err
		}

		applog.Debug(ctx, "mock database seeded", "workspaceID", workspace.ID)
		return nil
	})
}

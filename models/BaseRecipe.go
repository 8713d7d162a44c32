package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"costbook/internal/costing"
)

// BaseRecipe is an intermediate preparation made of ingredients. TotalCost
// is derived from Items and persisted alongside them.
type BaseRecipe struct {
	gorm.Model
	WorkspaceID uint             `gorm:"not null;index" json:"workspace_id"`
	Name        string           `gorm:"not null" json:"name"`
	Description string           `gorm:"type:text" json:"description"`
	LossFactor  decimal.Decimal  `gorm:"type:numeric(9,4);not null" json:"loss_factor"`
	Unit        string           `gorm:"type:varchar(8);not null" json:"unit"`
	Yield       decimal.Decimal  `gorm:"type:numeric(18,6);not null" json:"yield"`
	TotalCost   decimal.Decimal  `gorm:"type:numeric(18,6);not null" json:"total_cost"`
	Version     int              `gorm:"not null;default:1" json:"version"`
	Items       []BaseRecipeItem `gorm:"foreignKey:BaseRecipeID" json:"items"`
}

// BaseRecipeItem links a base recipe to one ingredient. Items are owned by
// their recipe and replaced wholesale on every edit.
type BaseRecipeItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	BaseRecipeID uint            `gorm:"not null;index" json:"base_recipe_id"`
	IngredientID uint            `gorm:"not null;index" json:"ingredient_id"`
	Quantity     decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"quantity"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CostingItems converts the persisted items into costing lines.
func (r BaseRecipe) CostingItems() []costing.RecipeItem {
	items := make([]costing.RecipeItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, costing.RecipeItem{
			Ingredient: costing.IngredientRef(item.IngredientID),
			Quantity:   item.Quantity,
		})
	}
	return items
}

// Definition returns the composition used to expand the recipe into raw
// ingredient requirements.
func (r BaseRecipe) Definition() costing.RecipeDefinition {
	return costing.RecipeDefinition{
		LossFactor: r.LossFactor,
		Items:      r.CostingItems(),
	}
}

package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"costbook/internal/costing"
)

const (
	IngredientTypeIngredient = "ingredient"
	IngredientTypeMaterial   = "material"
)

// Ingredient is a raw purchasable item. AverageCost is the price paid for
// Quantity canonical units.
type Ingredient struct {
	gorm.Model
	WorkspaceID uint            `gorm:"not null;index" json:"workspace_id"`
	Name        string          `gorm:"not null" json:"name"`
	Quantity    decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"quantity"`
	Unit        string          `gorm:"type:varchar(8);not null" json:"unit"`
	AverageCost decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"average_cost"`
	LossFactor  decimal.Decimal `gorm:"type:numeric(9,4);not null" json:"loss_factor"`
	Type        string          `gorm:"type:varchar(16);not null;default:ingredient" json:"type"`
	Version     int             `gorm:"not null;default:1" json:"version"`
}

// ValidIngredientType reports whether value is a known classification.
func ValidIngredientType(value string) bool {
	return value == IngredientTypeIngredient || value == IngredientTypeMaterial
}

// Costing returns the valuation inputs of the ingredient.
func (i Ingredient) Costing() costing.Ingredient {
	return costing.Ingredient{
		Quantity:    i.Quantity,
		AverageCost: i.AverageCost,
		LossFactor:  i.LossFactor,
	}
}

package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"costbook/internal/costing"
)

// FinalProduct is a sellable item costed from ingredients and base recipes.
type FinalProduct struct {
	gorm.Model
	WorkspaceID  uint                `gorm:"not null;index" json:"workspace_id"`
	Name         string              `gorm:"not null" json:"name"`
	Category     string              `json:"category"`
	LossFactor   decimal.Decimal     `gorm:"type:numeric(9,4);not null" json:"loss_factor"`
	SellingPrice decimal.NullDecimal `gorm:"type:numeric(18,6)" json:"selling_price"`
	ProfitMargin decimal.NullDecimal `gorm:"type:numeric(18,6)" json:"profit_margin"`
	TotalCost    decimal.Decimal     `gorm:"type:numeric(18,6);not null" json:"total_cost"`
	ImageURL     string              `json:"image_url"`
	Version      int                 `gorm:"not null;default:1" json:"version"`
	Items        []FinalProductItem  `gorm:"foreignKey:FinalProductID" json:"items"`
}

// FinalProductItem links a final product to either an ingredient or a base
// recipe. The row keeps one nullable column per target; use Ref to work with
// the reference as a single value.
type FinalProductItem struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	FinalProductID uint            `gorm:"not null;index" json:"final_product_id"`
	ItemType       string          `gorm:"type:varchar(16);not null" json:"item_type"`
	IngredientID   *uint           `gorm:"index" json:"ingredient_id,omitempty"`
	BaseRecipeID   *uint           `gorm:"index" json:"base_recipe_id,omitempty"`
	Quantity       decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"quantity"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewFinalProductItem builds the row shape for ref.
func NewFinalProductItem(ref costing.ItemRef, quantity decimal.Decimal) FinalProductItem {
	item := FinalProductItem{Quantity: quantity}
	if ref == nil {
		return item
	}
	id := ref.ID()
	item.ItemType = string(ref.Kind())
	switch ref.(type) {
	case costing.IngredientRef:
		item.IngredientID = &id
	case costing.BaseRecipeRef:
		item.BaseRecipeID = &id
	}
	return item
}

// Ref decodes the item's target. It fails when the row does not hold exactly
// the column selected by ItemType.
func (i FinalProductItem) Ref() (costing.ItemRef, error) {
	kind, err := costing.ParseItemKind(i.ItemType)
	if err != nil {
		return nil, err
	}
	switch kind {
	case costing.KindIngredient:
		if i.IngredientID == nil || i.BaseRecipeID != nil {
			return nil, fmt.Errorf("final product item %d: ingredient item must set only ingredient_id", i.ID)
		}
		return costing.NewItemRef(kind, *i.IngredientID)
	default:
		if i.BaseRecipeID == nil || i.IngredientID != nil {
			return nil, fmt.Errorf("final product item %d: base recipe item must set only base_recipe_id", i.ID)
		}
		return costing.NewItemRef(kind, *i.BaseRecipeID)
	}
}

// CostingItems converts the persisted items into costing lines.
func (p FinalProduct) CostingItems() ([]costing.ProductItem, error) {
	items := make([]costing.ProductItem, 0, len(p.Items))
	for _, item := range p.Items {
		ref, err := item.Ref()
		if err != nil {
			return nil, err
		}
		items = append(items, costing.ProductItem{Ref: ref, Quantity: item.Quantity})
	}
	return items, nil
}

// Costing returns the product-level valuation inputs.
func (p FinalProduct) Costing() costing.Product {
	return costing.Product{
		LossFactor:   p.LossFactor,
		SellingPrice: p.SellingPrice,
	}
}

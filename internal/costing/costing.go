// Package costing values ingredients and rolls their cost up through base
// recipes into final products.
//
// Data flows one way: ingredient -> base recipe -> final product. Loss
// factors are percentages in [0, 100) and inflate cost at the point of
// consumption: total = raw / (1 - loss/100).
package costing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TotalScale is the number of decimal places kept on recipe and product
// totals and margins. It matches the persisted numeric columns, so a total
// read back from storage equals the one just computed.
const TotalScale int32 = 6

// Ingredient carries the inputs needed to value a raw ingredient. AverageCost
// is the price paid for Quantity canonical units.
type Ingredient struct {
	Quantity    decimal.Decimal
	AverageCost decimal.Decimal
	LossFactor  decimal.Decimal
}

// ValidateIngredient checks the ingredient invariants without valuing it.
func ValidateIngredient(in Ingredient) error {
	if !in.Quantity.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidQuantity, in.Quantity)
	}
	if in.AverageCost.IsNegative() {
		return fmt.Errorf("%w: average cost %s is negative", ErrInvalidIngredientData, in.AverageCost)
	}
	if in.LossFactor.IsNegative() || in.LossFactor.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("%w: loss factor %s outside [0, 100)", ErrInvalidIngredientData, in.LossFactor)
	}
	return nil
}

// IngredientUnitCost returns the cost of one canonical unit of the
// ingredient. Loss is not folded in here.
func IngredientUnitCost(in Ingredient) (decimal.Decimal, error) {
	if err := ValidateIngredient(in); err != nil {
		return decimal.Zero, err
	}
	return in.AverageCost.Div(in.Quantity), nil
}

// ValidateLossFactor rejects loss factors outside [0, 100).
func ValidateLossFactor(loss decimal.Decimal) error {
	if loss.IsNegative() || loss.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("%w: got %s", ErrInvalidLossFactor, loss)
	}
	return nil
}

// ApplyLoss inflates raw by the loss factor.
func ApplyLoss(raw, loss decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateLossFactor(loss); err != nil {
		return decimal.Zero, err
	}
	if loss.IsZero() {
		return raw, nil
	}
	usable := decimal.NewFromInt(1).Sub(loss.Div(hundred))
	return raw.Div(usable), nil
}

// ProfitMargin returns (price - total) / price * 100.
func ProfitMargin(price, total decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: got %s", ErrInvalidSellingPrice, price)
	}
	return price.Sub(total).Div(price).Mul(hundred), nil
}

// Catalog holds the resolved costs that recipe and product items point at.
type Catalog struct {
	unitCosts   map[uint]decimal.Decimal
	recipeCosts map[uint]decimal.Decimal
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		unitCosts:   make(map[uint]decimal.Decimal),
		recipeCosts: make(map[uint]decimal.Decimal),
	}
}

// AddIngredient values in and registers its unit cost under id.
func (c *Catalog) AddIngredient(id uint, in Ingredient) error {
	unitCost, err := IngredientUnitCost(in)
	if err != nil {
		return fmt.Errorf("ingredient #%d: %w", id, err)
	}
	c.unitCosts[id] = unitCost
	return nil
}

// SetBaseRecipeCost registers the persisted total cost of a base recipe.
func (c *Catalog) SetBaseRecipeCost(id uint, total decimal.Decimal) {
	c.recipeCosts[id] = total
}

// UnitCost returns the per-unit cost of the referenced item: an ingredient's
// unit cost or a base recipe's total cost.
func (c *Catalog) UnitCost(ref ItemRef) (decimal.Decimal, error) {
	var (
		cost decimal.Decimal
		ok   bool
	)
	switch r := ref.(type) {
	case IngredientRef:
		cost, ok = c.unitCosts[r.ID()]
	case BaseRecipeRef:
		cost, ok = c.recipeCosts[r.ID()]
	case nil:
		return decimal.Zero, fmt.Errorf("%w: item has no reference", ErrDanglingReference)
	}
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrDanglingReference, ref)
	}
	return cost, nil
}

// LineCost is the valuation of a single recipe or product item.
type LineCost struct {
	Ref      ItemRef
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
	Cost     decimal.Decimal
}

func (c *Catalog) lines(refs []ItemRef, quantities []decimal.Decimal) ([]LineCost, decimal.Decimal, error) {
	lines := make([]LineCost, 0, len(refs))
	raw := decimal.Zero
	for i, ref := range refs {
		qty := quantities[i]
		if !qty.IsPositive() {
			return nil, decimal.Zero, fmt.Errorf("item %d: %w: got %s", i+1, ErrInvalidQuantity, qty)
		}
		unitCost, err := c.UnitCost(ref)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("item %d: %w", i+1, err)
		}
		cost := unitCost.Mul(qty)
		raw = raw.Add(cost)
		lines = append(lines, LineCost{Ref: ref, Quantity: qty, UnitCost: unitCost, Cost: cost})
	}
	return lines, raw, nil
}

// Recipe carries the recipe-level inputs of a base recipe valuation.
type Recipe struct {
	LossFactor decimal.Decimal
}

// RecipeItem is one ingredient line of a base recipe, quantity in the
// ingredient's canonical unit.
type RecipeItem struct {
	Ingredient IngredientRef
	Quantity   decimal.Decimal
}

// RecipeCost is the result of a base recipe valuation.
type RecipeCost struct {
	RawTotal  decimal.Decimal
	TotalCost decimal.Decimal
	Lines     []LineCost
}

// BaseRecipeCost sums the ingredient lines of a recipe and applies the
// recipe's loss factor. An empty recipe costs zero.
func BaseRecipeCost(recipe Recipe, items []RecipeItem, catalog *Catalog) (RecipeCost, error) {
	if err := ValidateLossFactor(recipe.LossFactor); err != nil {
		return RecipeCost{}, err
	}
	if catalog == nil {
		catalog = NewCatalog()
	}
	refs := make([]ItemRef, len(items))
	quantities := make([]decimal.Decimal, len(items))
	for i, item := range items {
		refs[i] = item.Ingredient
		quantities[i] = item.Quantity
	}
	lines, raw, err := catalog.lines(refs, quantities)
	if err != nil {
		return RecipeCost{}, err
	}
	total, err := ApplyLoss(raw, recipe.LossFactor)
	if err != nil {
		return RecipeCost{}, err
	}
	return RecipeCost{RawTotal: raw, TotalCost: total.Round(TotalScale), Lines: lines}, nil
}

// Product carries the product-level inputs of a final product valuation.
type Product struct {
	LossFactor   decimal.Decimal
	SellingPrice decimal.NullDecimal
}

// ProductItem is one line of a final product. For base recipe lines the
// quantity multiplies the recipe's total cost.
type ProductItem struct {
	Ref      ItemRef
	Quantity decimal.Decimal
}

// ProductCost is the result of a final product valuation.
type ProductCost struct {
	RawTotal     decimal.Decimal
	TotalCost    decimal.Decimal
	ProfitMargin decimal.NullDecimal
	Lines        []LineCost
}

// FinalProductCost sums mixed ingredient and base recipe lines, applies the
// product loss factor and derives the profit margin when a selling price is
// set.
func FinalProductCost(product Product, items []ProductItem, catalog *Catalog) (ProductCost, error) {
	if err := ValidateLossFactor(product.LossFactor); err != nil {
		return ProductCost{}, err
	}
	if product.SellingPrice.Valid && !product.SellingPrice.Decimal.IsPositive() {
		return ProductCost{}, fmt.Errorf("%w: got %s", ErrInvalidSellingPrice, product.SellingPrice.Decimal)
	}
	if catalog == nil {
		catalog = NewCatalog()
	}
	refs := make([]ItemRef, len(items))
	quantities := make([]decimal.Decimal, len(items))
	for i, item := range items {
		refs[i] = item.Ref
		quantities[i] = item.Quantity
	}
	lines, raw, err := catalog.lines(refs, quantities)
	if err != nil {
		return ProductCost{}, err
	}
	total, err := ApplyLoss(raw, product.LossFactor)
	if err != nil {
		return ProductCost{}, err
	}
	total = total.Round(TotalScale)

	result := ProductCost{RawTotal: raw, TotalCost: total, Lines: lines}
	if product.SellingPrice.Valid {
		margin, err := ProfitMargin(product.SellingPrice.Decimal, total)
		if err != nil {
			return ProductCost{}, err
		}
		result.ProfitMargin = decimal.NewNullDecimal(margin.Round(TotalScale))
	}
	return result, nil
}

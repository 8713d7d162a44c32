package costing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// RecipeDefinition is the composition of a base recipe needed to expand it
// into raw ingredients.
type RecipeDefinition struct {
	LossFactor decimal.Decimal
	Items      []RecipeItem
}

// Requirement is the amount of one ingredient, in its canonical unit,
// consumed to produce a batch.
type Requirement struct {
	Ingredient IngredientRef
	Quantity   decimal.Decimal
}

// Requirements expands quantity units of a product into the raw ingredient
// amounts they consume. Recipe and product losses are applied the same way
// as in costing, so valuing the result reproduces total cost times quantity.
func Requirements(product Product, items []ProductItem, recipes map[uint]RecipeDefinition, quantity decimal.Decimal) ([]Requirement, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: batch quantity %s", ErrInvalidQuantity, quantity)
	}
	productFactor, err := ApplyLoss(quantity, product.LossFactor)
	if err != nil {
		return nil, err
	}

	totals := make(map[uint]decimal.Decimal)
	add := func(id uint, amount decimal.Decimal) {
		totals[id] = totals[id].Add(amount)
	}

	for i, item := range items {
		if !item.Quantity.IsPositive() {
			return nil, fmt.Errorf("item %d: %w: got %s", i+1, ErrInvalidQuantity, item.Quantity)
		}
		scaled := item.Quantity.Mul(productFactor)
		switch ref := item.Ref.(type) {
		case IngredientRef:
			add(ref.ID(), scaled)
		case BaseRecipeRef:
			recipe, ok := recipes[ref.ID()]
			if !ok {
				return nil, fmt.Errorf("item %d: %w: %s", i+1, ErrDanglingReference, ref)
			}
			recipeFactor, err := ApplyLoss(scaled, recipe.LossFactor)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", ref, err)
			}
			for _, sub := range recipe.Items {
				if !sub.Quantity.IsPositive() {
					return nil, fmt.Errorf("%s: %w: got %s", ref, ErrInvalidQuantity, sub.Quantity)
				}
				add(sub.Ingredient.ID(), sub.Quantity.Mul(recipeFactor))
			}
		default:
			return nil, fmt.Errorf("item %d: %w: item has no reference", i+1, ErrDanglingReference)
		}
	}

	result := make([]Requirement, 0, len(totals))
	for id, amount := range totals {
		result = append(result, Requirement{Ingredient: IngredientRef(id), Quantity: amount})
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Quantity.Equal(result[j].Quantity) {
			return result[i].Quantity.GreaterThan(result[j].Quantity)
		}
		return result[i].Ingredient < result[j].Ingredient
	})
	return result, nil
}

package costing

import "fmt"

// ItemKind discriminates the two kinds of component a final product may use.
type ItemKind string

const (
	KindIngredient ItemKind = "ingredient"
	KindBaseRecipe ItemKind = "base_recipe"
)

// ParseItemKind validates a persisted or submitted item type.
func ParseItemKind(value string) (ItemKind, error) {
	switch ItemKind(value) {
	case KindIngredient, KindBaseRecipe:
		return ItemKind(value), nil
	}
	return "", fmt.Errorf("unknown item type %q", value)
}

// ItemRef points at either an ingredient or a base recipe. The set of
// implementations is closed to this package.
type ItemRef interface {
	ID() uint
	Kind() ItemKind
	isItemRef()
}

// IngredientRef references an ingredient by id.
type IngredientRef uint

func (r IngredientRef) ID() uint       { return uint(r) }
func (IngredientRef) Kind() ItemKind   { return KindIngredient }
func (IngredientRef) isItemRef()       {}
func (r IngredientRef) String() string { return fmt.Sprintf("ingredient #%d", uint(r)) }

// BaseRecipeRef references a base recipe by id.
type BaseRecipeRef uint

func (r BaseRecipeRef) ID() uint       { return uint(r) }
func (BaseRecipeRef) Kind() ItemKind   { return KindBaseRecipe }
func (BaseRecipeRef) isItemRef()       {}
func (r BaseRecipeRef) String() string { return fmt.Sprintf("base recipe #%d", uint(r)) }

// NewItemRef builds the reference variant matching kind.
func NewItemRef(kind ItemKind, id uint) (ItemRef, error) {
	if id == 0 {
		return nil, fmt.Errorf("%s reference requires an id", kind)
	}
	switch kind {
	case KindIngredient:
		return IngredientRef(id), nil
	case KindBaseRecipe:
		return BaseRecipeRef(id), nil
	}
	return nil, fmt.Errorf("unknown item type %q", kind)
}

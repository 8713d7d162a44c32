// Package catalog persists a workspace's ingredients, base recipes and final
// products and keeps their derived costs in step.
//
// Every write runs in one transaction: the aggregate row, its item list and
// the totals of anything that depends on it either all change or none do.
// Change events are published only after the transaction commits.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"costbook/internal/costing"
	"costbook/internal/events"
	applog "costbook/internal/log"
	"costbook/internal/units"
	"costbook/models"
)

var (
	ErrNotFound     = errors.New("catalog: record not found")
	ErrInUse        = errors.New("catalog: record is still referenced")
	ErrNameRequired = errors.New("catalog: name is required")
	ErrInvalidUnit  = errors.New("catalog: unknown unit")
	ErrInvalidYield = errors.New("catalog: yield must not be negative")

	// ErrConcurrentEdit is returned when the row changed between read and
	// write, or the caller's version is stale.
	ErrConcurrentEdit = costing.ErrConcurrentEdit
)

// IsValidation reports whether err was caused by the submitted data.
func IsValidation(err error) bool {
	return costing.IsValidation(err) ||
		errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrInvalidUnit) ||
		errors.Is(err, ErrInvalidYield)
}

// Store is the gorm backed catalogue.
type Store struct {
	db        *gorm.DB
	publisher events.Publisher
}

// New returns a Store. A nil publisher discards events.
func New(db *gorm.DB, publisher events.Publisher) *Store {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Store{db: db, publisher: publisher}
}

// DB exposes the underlying handle for read-only reporting queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) publish(ctx context.Context, pending []events.Event) {
	for _, event := range pending {
		if err := s.publisher.Publish(ctx, event); err != nil {
			applog.Warn(ctx, "failed to publish cost event", "type", event.Type, "entityID", event.EntityID, "error", err)
		}
	}
}

func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s #%d", ErrNotFound, what, id)
	}
	return fmt.Errorf("load %s %d: %w", what, id, err)
}

func cleanName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrNameRequired
	}
	return trimmed, nil
}

func cleanUnit(value string) (string, error) {
	unit, ok := units.ParseUnit(value)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidUnit, value)
	}
	return string(unit), nil
}

// checkVersion compares the caller's expected version with the stored one.
// Zero means the caller did not send a version.
func checkVersion(expected, stored int) error {
	if expected != 0 && expected != stored {
		return fmt.Errorf("%w: expected version %d, found %d", ErrConcurrentEdit, expected, stored)
	}
	return nil
}

// bumpVersion applies updates to the row only if its version is still
// current and increments it.
func bumpVersion(tx *gorm.DB, model any, workspaceID, id uint, current int, updates map[string]any) error {
	updates["version"] = current + 1
	result := tx.Model(model).
		Where("id = ? AND workspace_id = ? AND version = ?", id, workspaceID, current).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: row #%d changed during update", ErrConcurrentEdit, id)
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// loadCatalog resolves the unit costs of the referenced ingredients and the
// totals of the referenced base recipes. Rows of other workspaces are left
// out so that references to them dangle.
func loadCatalog(tx *gorm.DB, workspaceID uint, ingredientIDs, recipeIDs []uint) (*costing.Catalog, error) {
	catalog := costing.NewCatalog()

	if ids := uniqueIDs(ingredientIDs); len(ids) > 0 {
		var ingredients []models.Ingredient
		if err := tx.Where("workspace_id = ? AND id IN ?", workspaceID, ids).Find(&ingredients).Error; err != nil {
			return nil, fmt.Errorf("load ingredients: %w", err)
		}
		for _, ingredient := range ingredients {
			if err := catalog.AddIngredient(ingredient.ID, ingredient.Costing()); err != nil {
				return nil, err
			}
		}
	}

	if ids := uniqueIDs(recipeIDs); len(ids) > 0 {
		var recipes []models.BaseRecipe
		if err := tx.Select("id", "total_cost").Where("workspace_id = ? AND id IN ?", workspaceID, ids).Find(&recipes).Error; err != nil {
			return nil, fmt.Errorf("load base recipes: %w", err)
		}
		for _, recipe := range recipes {
			catalog.SetBaseRecipeCost(recipe.ID, recipe.TotalCost)
		}
	}

	return catalog, nil
}

func recipeIngredientIDs(items []costing.RecipeItem) []uint {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.Ingredient.ID())
	}
	return ids
}

func productRefIDs(items []costing.ProductItem) (ingredientIDs, recipeIDs []uint) {
	for _, item := range items {
		switch ref := item.Ref.(type) {
		case costing.IngredientRef:
			ingredientIDs = append(ingredientIDs, ref.ID())
		case costing.BaseRecipeRef:
			recipeIDs = append(recipeIDs, ref.ID())
		}
	}
	return ingredientIDs, recipeIDs
}

func costEvent(kind events.Type, workspaceID, id uint, total decimal.Decimal) events.Event {
	return events.Event{Type: kind, WorkspaceID: workspaceID, EntityID: id, TotalCost: total.String()}
}

package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"costbook/internal/costing"
	"costbook/internal/events"
	applog "costbook/internal/log"
	"costbook/models"
)

// BaseRecipeInput is the editable state of a base recipe. Items replace the
// stored list wholesale.
type BaseRecipeInput struct {
	Name        string
	Description string
	LossFactor  decimal.Decimal
	Unit        string
	Yield       decimal.Decimal
	Items       []costing.RecipeItem
	Version     int
}

func (in BaseRecipeInput) normalize() (BaseRecipeInput, error) {
	name, err := cleanName(in.Name)
	if err != nil {
		return in, err
	}
	in.Name = name
	in.Description = strings.TrimSpace(in.Description)

	unit, err := cleanUnit(in.Unit)
	if err != nil {
		return in, err
	}
	in.Unit = unit

	if in.Yield.IsNegative() {
		return in, fmt.Errorf("%w: got %s", ErrInvalidYield, in.Yield)
	}
	if err := costing.ValidateLossFactor(in.LossFactor); err != nil {
		return in, err
	}
	return in, nil
}

func recipeItemRows(items []costing.RecipeItem, recipeID uint) []models.BaseRecipeItem {
	rows := make([]models.BaseRecipeItem, 0, len(items))
	for _, item := range items {
		rows = append(rows, models.BaseRecipeItem{
			BaseRecipeID: recipeID,
			IngredientID: item.Ingredient.ID(),
			Quantity:     item.Quantity,
		})
	}
	return rows
}

func preloadRecipeItems(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}

// ListBaseRecipes returns the workspace's base recipes with their items.
func (s *Store) ListBaseRecipes(ctx context.Context, workspaceID uint) ([]models.BaseRecipe, error) {
	var recipes []models.BaseRecipe
	if err := s.db.WithContext(ctx).
		Preload("Items", preloadRecipeItems).
		Where("workspace_id = ?", workspaceID).
		Order("name asc").
		Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("list base recipes: %w", err)
	}
	return recipes, nil
}

// GetBaseRecipe loads one base recipe with its items.
func (s *Store) GetBaseRecipe(ctx context.Context, workspaceID, id uint) (*models.BaseRecipe, error) {
	return getBaseRecipe(s.db.WithContext(ctx), workspaceID, id)
}

func getBaseRecipe(tx *gorm.DB, workspaceID, id uint) (*models.BaseRecipe, error) {
	var recipe models.BaseRecipe
	if err := tx.Preload("Items", preloadRecipeItems).
		Where("workspace_id = ?", workspaceID).
		First(&recipe, id).Error; err != nil {
		return nil, notFound(err, "base recipe", id)
	}
	return &recipe, nil
}

// CreateBaseRecipe values and stores a new base recipe with its items.
func (s *Store) CreateBaseRecipe(ctx context.Context, workspaceID uint, input BaseRecipeInput) (*models.BaseRecipe, error) {
	in, err := input.normalize()
	if err != nil {
		return nil, err
	}

	var created *models.BaseRecipe
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cost, err := valueBaseRecipe(tx, workspaceID, in.LossFactor, in.Items)
		if err != nil {
			return err
		}

		recipe := &models.BaseRecipe{
			WorkspaceID: workspaceID,
			Name:        in.Name,
			Description: in.Description,
			LossFactor:  in.LossFactor,
			Unit:        in.Unit,
			Yield:       in.Yield,
			TotalCost:   cost.TotalCost,
			Version:     1,
		}
		if err := tx.Omit("Items").Create(recipe).Error; err != nil {
			return fmt.Errorf("create base recipe: %w", err)
		}
		if err := insertRecipeItems(tx, recipe.ID, in.Items); err != nil {
			return err
		}

		created, err = getBaseRecipe(tx, workspaceID, recipe.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	applog.Debug(ctx, "base recipe created", "workspaceID", workspaceID, "baseRecipeID", created.ID, "totalCost", created.TotalCost.String())
	s.publish(ctx, []events.Event{costEvent(events.BaseRecipeChanged, workspaceID, created.ID, created.TotalCost)})
	return created, nil
}

// UpdateBaseRecipe replaces the recipe's state and items, revalues it and
// every final product that uses it. On any failure the stored recipe, its
// items and its dependents are left untouched.
func (s *Store) UpdateBaseRecipe(ctx context.Context, workspaceID, id uint, input BaseRecipeInput) (*models.BaseRecipe, error) {
	in, err := input.normalize()
	if err != nil {
		return nil, err
	}

	var (
		updated *models.BaseRecipe
		pending []events.Event
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getBaseRecipe(tx, workspaceID, id)
		if err != nil {
			return err
		}
		if err := checkVersion(in.Version, current.Version); err != nil {
			return err
		}

		cost, err := valueBaseRecipe(tx, workspaceID, in.LossFactor, in.Items)
		if err != nil {
			return err
		}

		if err := bumpVersion(tx, &models.BaseRecipe{}, workspaceID, id, current.Version, map[string]any{
			"name":        in.Name,
			"description": in.Description,
			"loss_factor": in.LossFactor,
			"unit":        in.Unit,
			"yield":       in.Yield,
			"total_cost":  cost.TotalCost,
		}); err != nil {
			return err
		}

		if err := tx.Where("base_recipe_id = ?", id).Delete(&models.BaseRecipeItem{}).Error; err != nil {
			return fmt.Errorf("clear base recipe %d items: %w", id, err)
		}
		if err := insertRecipeItems(tx, id, in.Items); err != nil {
			return err
		}

		pending = append(pending, costEvent(events.BaseRecipeChanged, workspaceID, id, cost.TotalCost))
		dependents, err := recomputeRecipeDependents(tx, workspaceID, id)
		if err != nil {
			return err
		}
		pending = append(pending, dependents...)

		updated, err = getBaseRecipe(tx, workspaceID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	applog.Debug(ctx, "base recipe updated", "workspaceID", workspaceID, "baseRecipeID", id, "totalCost", updated.TotalCost.String())
	s.publish(ctx, pending)
	return updated, nil
}

// DeleteBaseRecipe removes a base recipe no final product uses, together
// with its items.
func (s *Store) DeleteBaseRecipe(ctx context.Context, workspaceID, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getBaseRecipe(tx, workspaceID, id); err != nil {
			return err
		}

		var uses int64
		if err := tx.Model(&models.FinalProductItem{}).Where("base_recipe_id = ?", id).Count(&uses).Error; err != nil {
			return err
		}
		if uses > 0 {
			return fmt.Errorf("%w: base recipe #%d is used by %d product items", ErrInUse, id, uses)
		}

		if err := tx.Where("base_recipe_id = ?", id).Delete(&models.BaseRecipeItem{}).Error; err != nil {
			return err
		}
		return tx.Where("workspace_id = ?", workspaceID).Delete(&models.BaseRecipe{}, id).Error
	})
	if err != nil {
		return err
	}

	s.publish(ctx, []events.Event{{Type: events.BaseRecipeDeleted, WorkspaceID: workspaceID, EntityID: id}})
	return nil
}

func insertRecipeItems(tx *gorm.DB, recipeID uint, items []costing.RecipeItem) error {
	rows := recipeItemRows(items, recipeID)
	if len(rows) == 0 {
		return nil
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert base recipe %d items: %w", recipeID, err)
	}
	return nil
}

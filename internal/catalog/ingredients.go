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
	"costbook/models"
)

// IngredientInput is the editable state of an ingredient. Quantity is in
// the canonical unit.
type IngredientInput struct {
	Name        string
	Quantity    decimal.Decimal
	Unit        string
	AverageCost decimal.Decimal
	LossFactor  decimal.Decimal
	Type        string
	Version     int
}

func (in IngredientInput) normalize() (IngredientInput, error) {
	name, err := cleanName(in.Name)
	if err != nil {
		return in, fmt.Errorf("%w: %v", costing.ErrInvalidIngredientData, err)
	}
	in.Name = name

	unit, err := cleanUnit(in.Unit)
	if err != nil {
		return in, err
	}
	in.Unit = unit

	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	if in.Type == "" {
		in.Type = models.IngredientTypeIngredient
	}
	if !models.ValidIngredientType(in.Type) {
		return in, fmt.Errorf("%w: unknown type %q", costing.ErrInvalidIngredientData, in.Type)
	}

	if err := costing.ValidateIngredient(costing.Ingredient{
		Quantity:    in.Quantity,
		AverageCost: in.AverageCost,
		LossFactor:  in.LossFactor,
	}); err != nil {
		return in, err
	}
	return in, nil
}

// ListIngredients returns the workspace's ingredients ordered by name.
func (s *Store) ListIngredients(ctx context.Context, workspaceID uint) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	if err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("name asc").
		Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	return ingredients, nil
}

// GetIngredient loads one ingredient of the workspace.
func (s *Store) GetIngredient(ctx context.Context, workspaceID, id uint) (*models.Ingredient, error) {
	return getIngredient(s.db.WithContext(ctx), workspaceID, id)
}

func getIngredient(tx *gorm.DB, workspaceID, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := tx.Where("workspace_id = ?", workspaceID).First(&ingredient, id).Error; err != nil {
		return nil, notFound(err, "ingredient", id)
	}
	return &ingredient, nil
}

// CreateIngredient validates and stores a new ingredient.
func (s *Store) CreateIngredient(ctx context.Context, workspaceID uint, input IngredientInput) (*models.Ingredient, error) {
	in, err := input.normalize()
	if err != nil {
		return nil, err
	}

	ingredient := &models.Ingredient{
		WorkspaceID: workspaceID,
		Name:        in.Name,
		Quantity:    in.Quantity,
		Unit:        in.Unit,
		AverageCost: in.AverageCost,
		LossFactor:  in.LossFactor,
		Type:        in.Type,
		Version:     1,
	}
	if err := s.db.WithContext(ctx).Create(ingredient).Error; err != nil {
		return nil, fmt.Errorf("create ingredient: %w", err)
	}

	applog.Debug(ctx, "ingredient created", "workspaceID", workspaceID, "ingredientID", ingredient.ID)
	s.publish(ctx, []events.Event{{Type: events.IngredientChanged, WorkspaceID: workspaceID, EntityID: ingredient.ID}})
	return ingredient, nil
}

// UpdateIngredient replaces the ingredient's editable state and revalues
// every base recipe and final product that uses it.
func (s *Store) UpdateIngredient(ctx context.Context, workspaceID, id uint, input IngredientInput) (*models.Ingredient, error) {
	in, err := input.normalize()
	if err != nil {
		return nil, err
	}

	var (
		updated *models.Ingredient
		pending []events.Event
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getIngredient(tx, workspaceID, id)
		if err != nil {
			return err
		}
		if err := checkVersion(in.Version, current.Version); err != nil {
			return err
		}
		// Item quantities are expressed in the ingredient's unit.
		if in.Unit != current.Unit {
			recipeUses, productUses, err := ingredientUses(tx, id)
			if err != nil {
				return err
			}
			if recipeUses+productUses > 0 {
				return fmt.Errorf("%w: cannot change unit of ingredient #%d from %s to %s while %d recipe and %d product items use it",
					ErrInUse, id, current.Unit, in.Unit, recipeUses, productUses)
			}
		}

		if err := bumpVersion(tx, &models.Ingredient{}, workspaceID, id, current.Version, map[string]any{
			"name":         in.Name,
			"quantity":     in.Quantity,
			"unit":         in.Unit,
			"average_cost": in.AverageCost,
			"loss_factor":  in.LossFactor,
			"type":         in.Type,
		}); err != nil {
			return err
		}

		pending = append(pending, events.Event{Type: events.IngredientChanged, WorkspaceID: workspaceID, EntityID: id})
		dependents, err := recomputeIngredientDependents(tx, workspaceID, id)
		if err != nil {
			return err
		}
		pending = append(pending, dependents...)

		updated, err = getIngredient(tx, workspaceID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	applog.Debug(ctx, "ingredient updated", "workspaceID", workspaceID, "ingredientID", id, "dependents", len(pending)-1)
	s.publish(ctx, pending)
	return updated, nil
}

// DeleteIngredient removes an ingredient that no recipe or product uses.
func (s *Store) DeleteIngredient(ctx context.Context, workspaceID, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getIngredient(tx, workspaceID, id); err != nil {
			return err
		}

		recipeUses, productUses, err := ingredientUses(tx, id)
		if err != nil {
			return err
		}
		if recipeUses+productUses > 0 {
			return fmt.Errorf("%w: ingredient #%d is used by %d recipe and %d product items", ErrInUse, id, recipeUses, productUses)
		}

		return tx.Where("workspace_id = ?", workspaceID).Delete(&models.Ingredient{}, id).Error
	})
	if err != nil {
		return err
	}

	s.publish(ctx, []events.Event{{Type: events.IngredientDeleted, WorkspaceID: workspaceID, EntityID: id}})
	return nil
}

// ingredientUses counts the recipe and product items that reference the
// ingredient.
func ingredientUses(tx *gorm.DB, id uint) (recipeUses, productUses int64, err error) {
	if err = tx.Model(&models.BaseRecipeItem{}).Where("ingredient_id = ?", id).Count(&recipeUses).Error; err != nil {
		return 0, 0, err
	}
	if err = tx.Model(&models.FinalProductItem{}).Where("ingredient_id = ?", id).Count(&productUses).Error; err != nil {
		return 0, 0, err
	}
	return recipeUses, productUses, nil
}

// UpsertIngredient updates the workspace ingredient whose name matches
// case-insensitively, keeping its stored name, or creates one. It reports
// whether a row was created.
func (s *Store) UpsertIngredient(ctx context.Context, workspaceID uint, input IngredientInput) (*models.Ingredient, bool, error) {
	name, err := cleanName(input.Name)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", costing.ErrInvalidIngredientData, err)
	}

	var existing models.Ingredient
	err = s.db.WithContext(ctx).
		Where("workspace_id = ? AND lower(name) = ?", workspaceID, strings.ToLower(name)).
		First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, err := s.CreateIngredient(ctx, workspaceID, input)
		return created, true, err
	case err != nil:
		return nil, false, fmt.Errorf("find ingredient %q: %w", name, err)
	}

	input.Name = existing.Name
	input.Version = 0
	updated, err := s.UpdateIngredient(ctx, workspaceID, existing.ID, input)
	return updated, false, err
}

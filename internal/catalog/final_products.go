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

// FinalProductInput is the editable state of a final product. Items replace
// the stored list wholesale.
type FinalProductInput struct {
	Name         string
	Category     string
	LossFactor   decimal.Decimal
	SellingPrice decimal.NullDecimal
	ImageURL     string
	Items        []costing.ProductItem
	Version      int
}

func (in FinalProductInput) normalize() (FinalProductInput, error) {
	name, err := cleanName(in.Name)
	if err != nil {
		return in, err
	}
	in.Name = name
	in.Category = strings.TrimSpace(in.Category)
	in.ImageURL = strings.TrimSpace(in.ImageURL)

	if err := costing.ValidateLossFactor(in.LossFactor); err != nil {
		return in, err
	}
	if in.SellingPrice.Valid && !in.SellingPrice.Decimal.IsPositive() {
		return in, fmt.Errorf("%w: got %s", costing.ErrInvalidSellingPrice, in.SellingPrice.Decimal)
	}
	return in, nil
}

func (in FinalProductInput) product() costing.Product {
	return costing.Product{LossFactor: in.LossFactor, SellingPrice: in.SellingPrice}
}

func productItemRows(items []costing.ProductItem, productID uint) []models.FinalProductItem {
	rows := make([]models.FinalProductItem, 0, len(items))
	for _, item := range items {
		row := models.NewFinalProductItem(item.Ref, item.Quantity)
		row.FinalProductID = productID
		rows = append(rows, row)
	}
	return rows
}

func preloadProductItems(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}

// ListFinalProducts returns the workspace's final products with their items.
func (s *Store) ListFinalProducts(ctx context.Context, workspaceID uint) ([]models.FinalProduct, error) {
	var products []models.FinalProduct
	if err := s.db.WithContext(ctx).
		Preload("Items", preloadProductItems).
		Where("workspace_id = ?", workspaceID).
		Order("name asc").
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list final products: %w", err)
	}
	return products, nil
}

// GetFinalProduct loads one final product with its items.
func (s *Store) GetFinalProduct(ctx context.Context, workspaceID, id uint) (*models.FinalProduct, error) {
	return getFinalProduct(s.db.WithContext(ctx), workspaceID, id)
}

func getFinalProduct(tx *gorm.DB, workspaceID, id uint) (*models.FinalProduct, error) {
	var product models.FinalProduct
	if err := tx.Preload("Items", preloadProductItems).
		Where("workspace_id = ?", workspaceID).
		First(&product, id).Error; err != nil {
		return nil, notFound(err, "final product", id)
	}
	return &product, nil
}

// CreateFinalProduct values and stores a new final product with its items.
func (s *Store) CreateFinalProduct(ctx context.Context, workspaceID uint, input FinalProductInput) (*models.FinalProduct, error) {
	in, err := input.normalize()
	if err != nil {
		return nil, err
	}

	var created *models.FinalProduct
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cost, err := valueFinalProduct(tx, workspaceID, in.product(), in.Items)
		if err != nil {
			return err
		}

		product := &models.FinalProduct{
			WorkspaceID:  workspaceID,
			Name:         in.Name,
			Category:     in.Category,
			LossFactor:   in.LossFactor,
			SellingPrice: in.SellingPrice,
			ProfitMargin: cost.ProfitMargin,
			TotalCost:    cost.TotalCost,
			ImageURL:     in.ImageURL,
			Version:      1,
		}
		if err := tx.Omit("Items").Create(product).Error; err != nil {
			return fmt.Errorf("create final product: %w", err)
		}
		if err := insertProductItems(tx, product.ID, in.Items); err != nil {
			return err
		}

		created, err = getFinalProduct(tx, workspaceID, product.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	applog.Debug(ctx, "final product created", "workspaceID", workspaceID, "finalProductID", created.ID, "totalCost", created.TotalCost.String())
	s.publish(ctx, []events.Event{costEvent(events.FinalProductChanged, workspaceID, created.ID, created.TotalCost)})
	return created, nil
}

// UpdateFinalProduct replaces the product's state and items and revalues
// it. On any failure the stored product and items are left untouched.
func (s *Store) UpdateFinalProduct(ctx context.Context, workspaceID, id uint, input FinalProductInput) (*models.FinalProduct, error) {
	in, err := input.normalize()
	if err != nil {
		return nil, err
	}

	var updated *models.FinalProduct
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getFinalProduct(tx, workspaceID, id)
		if err != nil {
			return err
		}
		if err := checkVersion(in.Version, current.Version); err != nil {
			return err
		}

		cost, err := valueFinalProduct(tx, workspaceID, in.product(), in.Items)
		if err != nil {
			return err
		}

		if err := bumpVersion(tx, &models.FinalProduct{}, workspaceID, id, current.Version, map[string]any{
			"name":          in.Name,
			"category":      in.Category,
			"loss_factor":   in.LossFactor,
			"selling_price": in.SellingPrice,
			"profit_margin": cost.ProfitMargin,
			"total_cost":    cost.TotalCost,
			"image_url":     in.ImageURL,
		}); err != nil {
			return err
		}

		if err := tx.Where("final_product_id = ?", id).Delete(&models.FinalProductItem{}).Error; err != nil {
			return fmt.Errorf("clear final product %d items: %w", id, err)
		}
		if err := insertProductItems(tx, id, in.Items); err != nil {
			return err
		}

		updated, err = getFinalProduct(tx, workspaceID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	applog.Debug(ctx, "final product updated", "workspaceID", workspaceID, "finalProductID", id, "totalCost", updated.TotalCost.String())
	s.publish(ctx, []events.Event{costEvent(events.FinalProductChanged, workspaceID, id, updated.TotalCost)})
	return updated, nil
}

// DeleteFinalProduct removes a final product and its items.
func (s *Store) DeleteFinalProduct(ctx context.Context, workspaceID, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getFinalProduct(tx, workspaceID, id); err != nil {
			return err
		}
		if err := tx.Where("final_product_id = ?", id).Delete(&models.FinalProductItem{}).Error; err != nil {
			return err
		}
		return tx.Where("workspace_id = ?", workspaceID).Delete(&models.FinalProduct{}, id).Error
	})
	if err != nil {
		return err
	}

	s.publish(ctx, []events.Event{{Type: events.FinalProductDeleted, WorkspaceID: workspaceID, EntityID: id}})
	return nil
}

func insertProductItems(tx *gorm.DB, productID uint, items []costing.ProductItem) error {
	rows := productItemRows(items, productID)
	if len(rows) == 0 {
		return nil
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert final product %d items: %w", productID, err)
	}
	return nil
}

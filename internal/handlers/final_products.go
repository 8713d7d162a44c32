package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"costbook/internal/catalog"
	"costbook/internal/costing"
	applog "costbook/internal/log"
	"costbook/internal/units"
	"costbook/internal/views/pages"
	"costbook/models"
)

type finalProductItemPayload struct {
	ItemType     string          `json:"item_type"`
	IngredientID *uint           `json:"ingredient_id,omitempty"`
	BaseRecipeID *uint           `json:"base_recipe_id,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
}

type finalProductItemResponse struct {
	ID           uint            `json:"id"`
	ItemType     string          `json:"item_type"`
	IngredientID *uint           `json:"ingredient_id,omitempty"`
	BaseRecipeID *uint           `json:"base_recipe_id,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
}

type finalProductRequest struct {
	Name         string                    `json:"name"`
	Category     string                    `json:"category"`
	LossFactor   decimal.Decimal           `json:"loss_factor"`
	SellingPrice decimal.NullDecimal       `json:"selling_price"`
	ImageURL     string                    `json:"image_url"`
	Items        []finalProductItemPayload `json:"items"`
	Version      int                       `json:"version"`
}

type finalProductResponse struct {
	ID           uint                       `json:"id"`
	Name         string                     `json:"name"`
	Category     string                     `json:"category"`
	LossFactor   decimal.Decimal            `json:"loss_factor"`
	SellingPrice decimal.NullDecimal        `json:"selling_price"`
	ProfitMargin decimal.NullDecimal        `json:"profit_margin"`
	TotalCost    decimal.Decimal            `json:"total_cost"`
	ImageURL     string                     `json:"image_url"`
	Version      int                        `json:"version"`
	Items        []finalProductItemResponse `json:"items"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

type requirementResponse struct {
	IngredientID    uint            `json:"ingredient_id"`
	Name            string          `json:"name"`
	Quantity        decimal.Decimal `json:"quantity"`
	Unit            string          `json:"unit"`
	DisplayQuantity float64         `json:"display_quantity"`
	DisplayUnit     string          `json:"display_unit"`
	Cost            decimal.Decimal `json:"cost"`
}

type requirementsResponse struct {
	FinalProductID uint                  `json:"final_product_id"`
	Quantity       decimal.Decimal       `json:"quantity"`
	TotalCost      decimal.Decimal       `json:"total_cost"`
	Ingredients    []requirementResponse `json:"ingredients"`
}

// itemRef turns the wire shape into a reference, insisting that exactly the
// id matching item_type is set.
func (p finalProductItemPayload) itemRef() (costing.ItemRef, error) {
	kind, err := costing.ParseItemKind(strings.TrimSpace(p.ItemType))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidItem, err)
	}
	var id *uint
	switch kind {
	case costing.KindIngredient:
		if p.BaseRecipeID != nil {
			return nil, fmt.Errorf("%w: ingredient item must not set base_recipe_id", errInvalidItem)
		}
		id = p.IngredientID
	case costing.KindBaseRecipe:
		if p.IngredientID != nil {
			return nil, fmt.Errorf("%w: base recipe item must not set ingredient_id", errInvalidItem)
		}
		id = p.BaseRecipeID
	}
	if id == nil {
		return nil, fmt.Errorf("%w: %s item is missing its id", errInvalidItem, kind)
	}
	ref, err := costing.NewItemRef(kind, *id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidItem, err)
	}
	return ref, nil
}

func (p finalProductRequest) input() (catalog.FinalProductInput, error) {
	items := make([]costing.ProductItem, 0, len(p.Items))
	for i, item := range p.Items {
		ref, err := item.itemRef()
		if err != nil {
			return catalog.FinalProductInput{}, fmt.Errorf("item %d: %w", i+1, err)
		}
		items = append(items, costing.ProductItem{Ref: ref, Quantity: item.Quantity})
	}
	return catalog.FinalProductInput{
		Name:         p.Name,
		Category:     p.Category,
		LossFactor:   p.LossFactor,
		SellingPrice: p.SellingPrice,
		ImageURL:     p.ImageURL,
		Items:        items,
		Version:      p.Version,
	}, nil
}

// FinalProductResource handles REST-style interactions for final products,
// plus the requirements and cost-sheet views of a single product.
func FinalProductResource(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := requireStore(w, r)
	if !ok {
		return
	}

	id, rest, ok := resourcePath(r, "/app/api/final-products")
	if !ok || len(rest) > 1 {
		http.NotFound(w, r)
		return
	}

	if id == 0 {
		switch r.Method {
		case http.MethodGet:
			listFinalProducts(w, r, workspaceID)
		case http.MethodPost:
			saveFinalProduct(w, r, workspaceID, 0)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if len(rest) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch rest[0] {
		case "requirements":
			showRequirements(w, r, workspaceID, id)
		case "cost-sheet":
			showCostSheet(w, r, workspaceID, id)
		default:
			http.NotFound(w, r)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		product, err := store.GetFinalProduct(r.Context(), workspaceID, id)
		if err != nil {
			writeStoreError(w, r, err, "load final product")
			return
		}
		writeJSON(w, http.StatusOK, projectFinalProduct(*product))
	case http.MethodPut:
		saveFinalProduct(w, r, workspaceID, id)
	case http.MethodDelete:
		if err := store.DeleteFinalProduct(r.Context(), workspaceID, id); err != nil {
			writeStoreError(w, r, err, "delete final product")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listFinalProducts(w http.ResponseWriter, r *http.Request, workspaceID uint) {
	products, err := store.ListFinalProducts(r.Context(), workspaceID)
	if err != nil {
		writeStoreError(w, r, err, "load final products")
		return
	}
	products = pages.FilterFinalProducts(products, pages.CatalogFiltersFromRequest(r))
	responses := make([]finalProductResponse, 0, len(products))
	for _, product := range products {
		responses = append(responses, projectFinalProduct(product))
	}
	writeJSON(w, http.StatusOK, responses)
}

// saveFinalProduct creates a product when id is zero and updates it
// otherwise.
func saveFinalProduct(w http.ResponseWriter, r *http.Request, workspaceID, id uint) {
	var payload finalProductRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	input, err := payload.input()
	if err != nil {
		writeStoreError(w, r, err, "save final product")
		return
	}

	var (
		product *models.FinalProduct
		status  = http.StatusOK
	)
	if id == 0 {
		product, err = store.CreateFinalProduct(r.Context(), workspaceID, input)
		status = http.StatusCreated
	} else {
		product, err = store.UpdateFinalProduct(r.Context(), workspaceID, id, input)
	}
	if err != nil {
		writeStoreError(w, r, err, "save final product")
		return
	}
	writeJSON(w, status, projectFinalProduct(*product))
}

func showRequirements(w http.ResponseWriter, r *http.Request, workspaceID, id uint) {
	batch := decimal.NewFromInt(1)
	if raw := strings.TrimSpace(r.URL.Query().Get("quantity")); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "quantity must be a number")
			return
		}
		batch = parsed
	}

	report, err := store.Requirements(r.Context(), workspaceID, id, batch)
	if err != nil {
		writeStoreError(w, r, err, "build requirements")
		return
	}

	system := workspaceUnitSystem(r, workspaceID)
	response := requirementsResponse{
		FinalProductID: report.Product.ID,
		Quantity:       report.Batch,
		TotalCost:      report.TotalCost,
		Ingredients:    make([]requirementResponse, 0, len(report.Lines)),
	}
	for _, line := range report.Lines {
		unit := units.Unit(line.Ingredient.Unit)
		response.Ingredients = append(response.Ingredients, requirementResponse{
			IngredientID:    line.Ingredient.ID,
			Name:            line.Ingredient.Name,
			Quantity:        line.Quantity,
			Unit:            line.Ingredient.Unit,
			DisplayQuantity: units.ToDisplay(line.Quantity.InexactFloat64(), unit, system),
			DisplayUnit:     units.DisplayUnitLabel(unit, system),
			Cost:            line.Cost,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func showCostSheet(w http.ResponseWriter, r *http.Request, workspaceID, id uint) {
	sheet, err := store.CostSheet(r.Context(), workspaceID, id)
	if err != nil {
		writeStoreError(w, r, err, "build cost sheet")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.CostSheet(sheet, workspaceUnitSystem(r, workspaceID)).Render(r.Context(), w); err != nil {
		applog.Error(r.Context(), "failed to render cost sheet", "error", err, "finalProductID", id)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func projectFinalProduct(product models.FinalProduct) finalProductResponse {
	items := make([]finalProductItemResponse, 0, len(product.Items))
	for _, item := range product.Items {
		items = append(items, finalProductItemResponse{
			ID:           item.ID,
			ItemType:     item.ItemType,
			IngredientID: item.IngredientID,
			BaseRecipeID: item.BaseRecipeID,
			Quantity:     item.Quantity,
		})
	}
	return finalProductResponse{
		ID:           product.ID,
		Name:         product.Name,
		Category:     product.Category,
		LossFactor:   product.LossFactor,
		SellingPrice: product.SellingPrice,
		ProfitMargin: product.ProfitMargin,
		TotalCost:    product.TotalCost,
		ImageURL:     product.ImageURL,
		Version:      product.Version,
		Items:        items,
		CreatedAt:    product.CreatedAt,
		UpdatedAt:    product.UpdatedAt,
	}
}

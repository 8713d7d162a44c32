package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"costbook/internal/export"
	applog "costbook/internal/log"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CostingWorkbook exports the workspace catalogue as an xlsx download.
func CostingWorkbook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	workspaceID, ok := requireStore(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	ingredients, err := store.ListIngredients(ctx, workspaceID)
	if err != nil {
		writeStoreError(w, r, err, "export catalogue")
		return
	}
	recipes, err := store.ListBaseRecipes(ctx, workspaceID)
	if err != nil {
		writeStoreError(w, r, err, "export catalogue")
		return
	}
	products, err := store.ListFinalProducts(ctx, workspaceID)
	if err != nil {
		writeStoreError(w, r, err, "export catalogue")
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, export.Catalog{
		Ingredients:   ingredients,
		BaseRecipes:   recipes,
		FinalProducts: products,
		UnitSystem:    workspaceUnitSystem(r, workspaceID),
	}); err != nil {
		applog.Error(ctx, "failed to build costing workbook", "error", err, "workspaceID", workspaceID)
		writeJSONError(w, http.StatusInternalServerError, "unable to export catalogue")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="costing-%d.xlsx"`, workspaceID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		applog.Error(ctx, "failed to write costing workbook", "error", err)
	}
}

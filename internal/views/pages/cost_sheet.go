package pages

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"

	"costbook/internal/catalog"
	"costbook/internal/costing"
	"costbook/internal/units"
)

// FormatQuantity renders a quantity with two decimal places and a trailing
// unit. Counts are shown without decimals.
func FormatQuantity(value float64, unit string) string {
	if unit == string(units.Units) {
		return fmt.Sprintf("%.0f %s", value, unit)
	}
	return fmt.Sprintf("%.2f %s", value, unit)
}

// FormatMoney renders an amount rounded to cents.
func FormatMoney(value decimal.Decimal) string {
	return value.StringFixed(2)
}

// FormatPercent renders a percentage with one decimal, or a dash when unset.
func FormatPercent(value decimal.NullDecimal) string {
	if !value.Valid {
		return "-"
	}
	return value.Decimal.StringFixed(1) + "%"
}

// LineKindLabel names the kind of component a line refers to.
func LineKindLabel(ref costing.ItemRef) string {
	switch ref.(type) {
	case costing.BaseRecipeRef:
		return "Base recipe"
	case costing.IngredientRef:
		return "Ingredient"
	default:
		return ""
	}
}

// lineQuantity shows ingredient lines in the display system. Base recipe
// lines count portions of the recipe.
func lineQuantity(line catalog.SheetLine, system units.System) string {
	if _, ok := line.Ref.(costing.BaseRecipeRef); ok {
		return line.Quantity.String() + " x"
	}
	unit := units.Unit(line.Unit)
	return FormatQuantity(units.ToDisplay(line.Quantity.InexactFloat64(), unit, system), units.DisplayUnitLabel(unit, system))
}

// CostSheet renders the valuation of a final product as an HTML fragment.
func CostSheet(sheet *catalog.CostSheet, system units.System) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if sheet == nil {
			_, err := io.WriteString(w, `<section class="cost-sheet empty"><p>No cost sheet available.</p></section>`)
			return err
		}

		var b strings.Builder
		product := sheet.Product
		fmt.Fprintf(&b, `<section class="cost-sheet" data-product-id="%d">`, product.ID)
		fmt.Fprintf(&b, `<header><h1>%s</h1>`, templ.EscapeString(product.Name))
		if product.Category != "" {
			fmt.Fprintf(&b, `<p class="category">%s</p>`, templ.EscapeString(product.Category))
		}
		b.WriteString(`</header>`)

		b.WriteString(`<table><thead><tr><th>Component</th><th>Kind</th><th>Quantity</th><th>Unit cost</th><th>Cost</th></tr></thead><tbody>`)
		for _, line := range sheet.Lines {
			fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				templ.EscapeString(line.Name),
				LineKindLabel(line.Ref),
				templ.EscapeString(lineQuantity(line, system)),
				line.UnitCost.StringFixed(4),
				FormatMoney(line.Cost),
			)
		}
		b.WriteString(`</tbody></table>`)

		b.WriteString(`<dl class="totals">`)
		fmt.Fprintf(&b, `<dt>Raw cost</dt><dd>%s</dd>`, FormatMoney(sheet.RawTotal))
		fmt.Fprintf(&b, `<dt>Loss</dt><dd>%s%%</dd>`, product.LossFactor.String())
		fmt.Fprintf(&b, `<dt>Total cost</dt><dd class="total-cost">%s</dd>`, FormatMoney(sheet.TotalCost))
		if product.SellingPrice.Valid {
			fmt.Fprintf(&b, `<dt>Selling price</dt><dd>%s</dd>`, FormatMoney(product.SellingPrice.Decimal))
		}
		fmt.Fprintf(&b, `<dt>Margin</dt><dd class="margin">%s</dd>`, FormatPercent(sheet.ProfitMargin))
		b.WriteString(`</dl></section>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

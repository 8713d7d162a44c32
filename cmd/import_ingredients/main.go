package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"costbook/internal/catalog"
	"costbook/internal/config"
	"costbook/internal/db"
	"costbook/internal/events"
	applog "costbook/internal/log"
	"costbook/internal/units"
	"costbook/models"
)

// headerAliases maps accepted column titles onto record keys.
var headerAliases = map[string]string{
	"name":         "name",
	"ingredient":   "name",
	"quantity":     "quantity",
	"qty":          "quantity",
	"unit":         "unit",
	"average cost": "average_cost",
	"average_cost": "average_cost",
	"cost":         "average_cost",
	"price":        "average_cost",
	"loss":         "loss_factor",
	"loss %":       "loss_factor",
	"loss_factor":  "loss_factor",
	"type":         "type",
}

type summary struct {
	Created int
	Updated int
}

func main() {
	_ = godotenv.Load()

	path := "ingredients.csv"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	if err := run(path); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("input path must not be empty")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("locate input: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applog.SetLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("set log level: %w", err)
	}

	database, err := db.Configure(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	ctx := context.Background()
	workspaceID, err := resolveWorkspace(ctx, database, os.Getenv("COSTBOOK_IMPORT_WORKSPACE_ID"))
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}

	system := units.ParseSystem(os.Getenv("COSTBOOK_IMPORT_UNIT_SYSTEM"))
	result, err := importFile(ctx, catalog.New(database, events.Nop{}), workspaceID, path, system)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Imported %d new and %d updated ingredients from %s\n", result.Created, result.Updated, filepath.Base(path))
	return nil
}

// resolveWorkspace returns the workspace named by raw, or the oldest one when
// raw is empty.
func resolveWorkspace(ctx context.Context, database *gorm.DB, raw string) (uint, error) {
	if database == nil {
		return 0, fmt.Errorf("database handle is nil")
	}

	var workspace models.Workspace
	query := database.WithContext(ctx)
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		id, err := strconv.ParseUint(trimmed, 10, 64)
		if err != nil || id == 0 {
			return 0, fmt.Errorf("invalid workspace id %q", raw)
		}
		if err := query.First(&workspace, id).Error; err != nil {
			return 0, fmt.Errorf("find workspace %d: %w", id, err)
		}
		return workspace.ID, nil
	}

	if err := query.Order("id asc").First(&workspace).Error; err != nil {
		return 0, fmt.Errorf("find default workspace: %w", err)
	}
	return workspace.ID, nil
}

func importFile(ctx context.Context, store *catalog.Store, workspaceID uint, path string, system units.System) (summary, error) {
	rows, err := readRows(path)
	if err != nil {
		return summary{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	records, err := toRecords(rows)
	if err != nil {
		return summary{}, err
	}

	var result summary
	for idx, record := range records {
		input, err := buildIngredient(record, system)
		if err != nil {
			return result, fmt.Errorf("record %d (%s): %w", idx+1, record["name"], err)
		}
		ingredient, created, err := store.UpsertIngredient(ctx, workspaceID, input)
		if err != nil {
			return result, fmt.Errorf("record %d (%s): %w", idx+1, record["name"], err)
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		applog.Debug(ctx, "ingredient imported", "ingredientID", ingredient.ID, "name", ingredient.Name, "created", created)
	}
	return result, nil
}

// readRows loads the first sheet of an xlsx workbook or every line of a CSV
// file, depending on the extension.
func readRows(path string) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		book, err := excelize.OpenFile(path)
		if err != nil {
			return nil, err
		}
		defer book.Close()
		return book.GetRows(book.GetSheetName(0))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func toRecords(rows [][]string) ([]map[string]string, error) {
	if len(rows) == 0 {
		return nil, errors.New("input is empty")
	}

	keys := make([]string, len(rows[0]))
	hasName := false
	for idx, title := range rows[0] {
		keys[idx] = headerAliases[strings.ToLower(strings.TrimSpace(title))]
		if keys[idx] == "name" {
			hasName = true
		}
	}
	if !hasName {
		return nil, errors.New("header must include a name column")
	}

	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(keys))
		blank := true
		for idx, key := range keys {
			if key == "" || idx >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[idx])
			if value != "" {
				blank = false
			}
			record[key] = value
		}
		if blank {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// buildIngredient converts a record into catalogue input. Quantities are
// read in system and stored canonically.
func buildIngredient(record map[string]string, system units.System) (catalog.IngredientInput, error) {
	unit, ok := units.ParseUnit(record["unit"])
	if !ok {
		return catalog.IngredientInput{}, fmt.Errorf("unknown unit %q", record["unit"])
	}

	quantity, err := parseDecimal(record["quantity"], "quantity", decimal.Zero)
	if err != nil {
		return catalog.IngredientInput{}, err
	}
	cost, err := parseDecimal(record["average_cost"], "average cost", decimal.Zero)
	if err != nil {
		return catalog.IngredientInput{}, err
	}
	loss, err := parseDecimal(strings.TrimSuffix(record["loss_factor"], "%"), "loss factor", decimal.Zero)
	if err != nil {
		return catalog.IngredientInput{}, err
	}

	factor := decimal.NewFromFloat(units.ToCanonical(1, unit, system))
	return catalog.IngredientInput{
		Name:        record["name"],
		Quantity:    quantity.Mul(factor),
		Unit:        string(unit),
		AverageCost: cost,
		LossFactor:  loss,
		Type:        record["type"],
	}, nil
}

func parseDecimal(raw, field string, def decimal.Decimal) (decimal.Decimal, error) {
	cleaned := strings.TrimPrefix(strings.TrimSpace(raw), "$")
	if cleaned == "" {
		return def, nil
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", field, raw)
	}
	return value, nil
}

package db

import (
	"testing"

	"costbook/internal/config"
	"costbook/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestInitializeRequiresURL(t *testing.T) {
	t.Parallel()

	db, err := Initialize(config.DatabaseConfig{URL: ""})
	if err == nil {
		t.Fatal("expected error when database URL is empty")
	}
	if db != nil {
		t.Fatal("expected returned db handle to be nil on error")
	}
}

func TestAutoMigrateRejectsNilDatabase(t *testing.T) {
	t.Parallel()

	if err := AutoMigrate(nil); err == nil {
		t.Fatal("expected error when database handle is nil")
	}
}

func TestAutoMigrateWithSQLite(t *testing.T) {
	t.Parallel()

	sqliteDB, err := gorm.Open(sqlite.Open("file:costbook-migrate?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}

	if err := AutoMigrate(sqliteDB); err != nil {
		t.Fatalf("automigrate sqlite database: %v", err)
	}

	for _, model := range []any{&models.Ingredient{}, &models.BaseRecipeItem{}, &models.FinalProductItem{}} {
		if !sqliteDB.Migrator().HasTable(model) {
			t.Fatalf("expected table for %T", model)
		}
	}
}

func TestConfigureWithSQLiteURL(t *testing.T) {
	t.Parallel()

	database, err := Configure(config.DatabaseConfig{URL: "sqlite://file:costbook-configure?mode=memory&cache=shared", MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if Get() != database {
		t.Fatal("expected Configure to install the global handle")
	}
	if !database.Migrator().HasTable(&models.Workspace{}) {
		t.Fatal("expected workspaces table to exist")
	}
}

func TestConfigurePropagatesInitializationError(t *testing.T) {
	t.Parallel()

	if _, err := Configure(config.DatabaseConfig{}); err == nil {
		t.Fatal("expected configuration error when initialize fails")
	}
}

func TestMustConfigurePanicsOnError(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when configuration fails")
		}
	}()

	MustConfigure(config.DatabaseConfig{})
}

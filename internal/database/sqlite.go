package database

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/foodgram/internal/catalog"
	"github.com/MarcoPoloResearchLab/foodgram/internal/recipes"
	"github.com/MarcoPoloResearchLab/foodgram/internal/subscriptions"
	"github.com/MarcoPoloResearchLab/foodgram/internal/users"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}

	if err := migrateSchema(db); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}

func migrateSchema(db *gorm.DB) error {
	if err := db.SetupJoinTable(&recipes.Recipe{}, "Tags", &recipes.RecipeTag{}); err != nil {
		return err
	}
	return db.AutoMigrate(
		&users.User{},
		&users.AuthToken{},
		&catalog.Unit{},
		&catalog.Ingredient{},
		&catalog.Tag{},
		&recipes.Recipe{},
		&recipes.RecipeTag{},
		&recipes.RecipeIngredient{},
		&recipes.Favorite{},
		&recipes.CartEntry{},
		&subscriptions.Subscription{},
		&migrationRecord{},
	)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MarcoPoloResearchLab/foodgram/internal/catalog"
	"github.com/MarcoPoloResearchLab/foodgram/internal/database"
	"github.com/MarcoPoloResearchLab/foodgram/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newImportIngredientsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import-ingredients <file.json>",
		Short: "Load ingredients from a JSON array of {name, measurement_unit}",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var inputs []catalog.IngredientInput
			if err := json.Unmarshal(payload, &inputs); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			return withCatalog(func(service *catalog.Service, logger *zap.Logger) error {
				created, err := service.CreateIngredients(cmd.Context(), inputs)
				if err != nil {
					return err
				}
				logger.Info("ingredients imported", zap.String("file", args[0]), zap.Int("count", len(created)))
				return nil
			})
		},
	}
}

func newDeleteUnitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-unit <name>",
		Short: "Delete a measurement unit; its ingredients lose their unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(func(service *catalog.Service, logger *zap.Logger) error {
				detached, err := service.DeleteUnit(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				logger.Info("unit deleted", zap.String("unit", args[0]), zap.Int64("ingredients_detached", detached))
				return nil
			})
		},
	}
}

func newAddTagCommand() *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "add-tag <name> <slug>",
		Short: "Create a recipe tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(func(service *catalog.Service, logger *zap.Logger) error {
				tag, err := service.CreateTag(cmd.Context(), catalog.TagInput{Name: args[0], Slug: args[1], Color: color})
				if err != nil {
					return err
				}
				logger.Info("tag created", zap.Uint("id", tag.ID), zap.String("slug", tag.Slug), zap.String("color", tag.Color))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "Tag colour as #RRGGBB")
	return cmd
}

// withCatalog opens the configured database for a maintenance command. Only database.path and
// log.level are read, so the signing secret is not needed here.
func withCatalog(run func(service *catalog.Service, logger *zap.Logger) error) error {
	logger, err := logging.NewLogger(viper.GetString("log.level"))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(viper.GetString("database.path"), logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	service, err := catalog.NewService(catalog.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	if err := run(service, logger); err != nil {
		logger.Error("maintenance command failed", zap.Error(err))
		return err
	}
	return nil
}

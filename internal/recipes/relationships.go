package recipes

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/foodgram/internal/apperror"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// relationship describes a per-user recipe table such as favorites or the shopping cart.
type relationship struct {
	model     func() interface{}
	newRow    func(userID, recipeID uint) interface{}
	addOp     string
	removeOp  string
	duplicate string
	missing   string
}

var (
	favoritesRelationship = relationship{
		model:     func() interface{} { return &Favorite{} },
		newRow:    func(userID, recipeID uint) interface{} { return &Favorite{UserID: userID, RecipeID: recipeID} },
		addOp:     opAddFavorite,
		removeOp:  opRemoveFavorite,
		duplicate: "recipe is already in favorites",
		missing:   "recipe is not in favorites",
	}
	cartRelationship = relationship{
		model:     func() interface{} { return &CartEntry{} },
		newRow:    func(userID, recipeID uint) interface{} { return &CartEntry{UserID: userID, RecipeID: recipeID} },
		addOp:     opAddToCart,
		removeOp:  opRemoveFromCart,
		duplicate: "recipe is already in the shopping cart",
		missing:   "recipe is not in the shopping cart",
	}
)

// AddFavorite marks a recipe as the user's favorite and returns its summary.
func (s *Service) AddFavorite(ctx context.Context, userID, recipeID uint) (Summary, error) {
	return s.addRelationship(ctx, favoritesRelationship, userID, recipeID)
}

// RemoveFavorite removes a recipe from the user's favorites.
func (s *Service) RemoveFavorite(ctx context.Context, userID, recipeID uint) error {
	return s.removeRelationship(ctx, favoritesRelationship, userID, recipeID)
}

// AddToCart puts a recipe into the user's shopping cart and returns its summary.
func (s *Service) AddToCart(ctx context.Context, userID, recipeID uint) (Summary, error) {
	return s.addRelationship(ctx, cartRelationship, userID, recipeID)
}

// RemoveFromCart takes a recipe out of the user's shopping cart.
func (s *Service) RemoveFromCart(ctx context.Context, userID, recipeID uint) error {
	return s.removeRelationship(ctx, cartRelationship, userID, recipeID)
}

func (s *Service) addRelationship(ctx context.Context, rel relationship, userID, recipeID uint) (Summary, error) {
	db := s.db.WithContext(ctx)
	recipe, err := s.findRecipe(db, rel.addOp, recipeID)
	if err != nil {
		return Summary{}, err
	}

	exists, err := relationshipExists(db, rel, userID, recipeID)
	if err != nil {
		s.logError(rel.addOp, "lookup_failed", err, zap.Uint("user_id", userID), zap.Uint("recipe_id", recipeID))
		return Summary{}, apperror.Internal(rel.addOp, "lookup_failed", err)
	}
	if exists {
		return Summary{}, apperror.New(rel.addOp, "duplicate", apperror.ErrDuplicateRelationship, rel.duplicate, nil)
	}

	if err := db.Create(rel.newRow(userID, recipeID)).Error; err != nil {
		if apperror.IsUniqueViolation(err) {
			return Summary{}, apperror.New(rel.addOp, "duplicate", apperror.ErrDuplicateRelationship, rel.duplicate, err)
		}
		s.logError(rel.addOp, "insert_failed", err, zap.Uint("user_id", userID), zap.Uint("recipe_id", recipeID))
		return Summary{}, apperror.Internal(rel.addOp, "insert_failed", err)
	}
	return recipe.Summary(), nil
}

func (s *Service) removeRelationship(ctx context.Context, rel relationship, userID, recipeID uint) error {
	db := s.db.WithContext(ctx)
	if _, err := s.findRecipe(db, rel.removeOp, recipeID); err != nil {
		return err
	}

	result := db.Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(rel.model())
	if result.Error != nil {
		s.logError(rel.removeOp, "delete_failed", result.Error, zap.Uint("user_id", userID), zap.Uint("recipe_id", recipeID))
		return apperror.Internal(rel.removeOp, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.New(rel.removeOp, "missing", apperror.ErrRelationshipNotFound, rel.missing, nil)
	}
	return nil
}

func (s *Service) findRecipe(db *gorm.DB, operation string, recipeID uint) (Recipe, error) {
	var recipe Recipe
	err := db.Take(&recipe, recipeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Recipe{}, apperror.New(operation, "not_found", apperror.ErrNotFound, "recipe not found", err)
	}
	if err != nil {
		s.logError(operation, "query_failed", err, zap.Uint("recipe_id", recipeID))
		return Recipe{}, apperror.Internal(operation, "query_failed", err)
	}
	return recipe, nil
}

func relationshipExists(db *gorm.DB, rel relationship, userID, recipeID uint) (bool, error) {
	var count int64
	err := db.Model(rel.model()).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Count(&count).Error
	return count > 0, err
}

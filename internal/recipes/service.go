package recipes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MarcoPoloResearchLab/foodgram/internal/apperror"
	"github.com/MarcoPoloResearchLab/foodgram/internal/catalog"
	"github.com/MarcoPoloResearchLab/foodgram/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	opServiceNew      = "recipes.service.new"
	opList            = "recipes.list"
	opGet             = "recipes.get"
	opCreate          = "recipes.create"
	opUpdate          = "recipes.update"
	opDelete          = "recipes.delete"
	opAuthorRecipes   = "recipes.author_recipes"
	opCountByAuthors  = "recipes.count_by_authors"
	opMemberships     = "recipes.memberships"
	opShoppingList    = "recipes.shopping_list"
	opAddFavorite     = "recipes.add_favorite"
	opRemoveFavorite  = "recipes.remove_favorite"
	opAddToCart       = "recipes.add_to_cart"
	opRemoveFromCart  = "recipes.remove_from_cart"
	recipeOrderClause = "recipes.created_at DESC, recipes.id DESC"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// ServiceConfig describes the dependencies of the recipe service.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
	// AnonymousMembership is AnonymousMembershipAny (default) or AnonymousMembershipNone.
	AnonymousMembership string
}

// Service stores recipes and the favorite and cart relationships that point at them.
type Service struct {
	db                  *gorm.DB
	logger              *zap.Logger
	anonymousMembership string
}

// NewService constructs the recipe service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperror.Internal(opServiceNew, "missing_database", errMissingDatabase)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	policy := strings.ToLower(strings.TrimSpace(cfg.AnonymousMembership))
	switch policy {
	case "":
		policy = AnonymousMembershipAny
	case AnonymousMembershipAny, AnonymousMembershipNone:
	default:
		return nil, apperror.Internal(opServiceNew, "invalid_anonymous_membership", fmt.Errorf("unknown anonymous membership policy %q", cfg.AnonymousMembership))
	}
	return &Service{db: cfg.Database, logger: logger, anonymousMembership: policy}, nil
}

// Page selects a window of a listing.
type Page struct {
	Offset int
	Limit  int
}

// List returns one page of recipes matching filter, newest first, and the total match count.
// viewerID is nil for anonymous callers.
func (s *Service) List(ctx context.Context, filter Filter, viewerID *uint, page Page) ([]Recipe, int64, error) {
	scope, err := filter.scope(viewerID, s.anonymousMembership)
	if err != nil {
		return nil, 0, err
	}

	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&Recipe{}).Scopes(scope).Count(&total).Error; err != nil {
		s.logError(opList, "count_failed", err)
		return nil, 0, apperror.Internal(opList, "count_failed", err)
	}

	var recipes []Recipe
	err = withDetails(db.Model(&Recipe{})).
		Scopes(scope).
		Order(recipeOrderClause).
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&recipes).Error
	if err != nil {
		s.logError(opList, "query_failed", err)
		return nil, 0, apperror.Internal(opList, "query_failed", err)
	}
	return recipes, total, nil
}

// Get loads a recipe with author, tags and ingredient lines.
func (s *Service) Get(ctx context.Context, id uint) (Recipe, error) {
	return s.get(s.db.WithContext(ctx), opGet, id)
}

func (s *Service) get(db *gorm.DB, operation string, id uint) (Recipe, error) {
	var recipe Recipe
	err := withDetails(db).Take(&recipe, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Recipe{}, apperror.New(operation, "not_found", apperror.ErrNotFound, "recipe not found", err)
	}
	if err != nil {
		s.logError(operation, "query_failed", err, zap.Uint("recipe_id", id))
		return Recipe{}, apperror.Internal(operation, "query_failed", err)
	}
	return recipe, nil
}

// Create stores a recipe with its tags and ingredient lines in one transaction.
func (s *Service) Create(ctx context.Context, authorID uint, input RecipeInput) (Recipe, error) {
	input.Name = strings.TrimSpace(input.Name)
	if fields := validation.ValidateStruct(&input); fields != nil {
		return Recipe{}, apperror.Validation(opCreate, "invalid_input", fields.Error(), fields)
	}

	var recipeID uint
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkReferences(tx, opCreate, input.Tags, input.Ingredients); err != nil {
			return err
		}
		recipe := Recipe{
			AuthorID:       authorID,
			Title:          input.Name,
			Description:    input.Text,
			Image:          input.Image,
			CookingMinutes: input.CookingTime,
		}
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return apperror.Internal(opCreate, "insert_failed", err)
		}
		recipeID = recipe.ID
		if err := replaceTags(tx, recipe.ID, input.Tags); err != nil {
			return apperror.Internal(opCreate, "tags_insert_failed", err)
		}
		if err := replaceIngredients(tx, recipe.ID, input.Ingredients); err != nil {
			return apperror.Internal(opCreate, "ingredients_insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logTransactionError(opCreate, txErr, zap.Uint("author_id", authorID))
		return Recipe{}, txErr
	}
	return s.Get(ctx, recipeID)
}

// Update applies a partial update. Only the author may change a recipe.
func (s *Service) Update(ctx context.Context, actorID, recipeID uint, update RecipeUpdate) (Recipe, error) {
	current, err := s.authorizeAuthor(ctx, opUpdate, actorID, recipeID)
	if err != nil {
		return Recipe{}, err
	}
	if update.Name != nil {
		*update.Name = strings.TrimSpace(*update.Name)
	}
	if fields := validation.ValidateStruct(&update); fields != nil {
		return Recipe{}, apperror.Validation(opUpdate, "invalid_input", fields.Error(), fields)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tags []uint
		if update.Tags != nil {
			tags = *update.Tags
		}
		var ingredients []IngredientAmount
		if update.Ingredients != nil {
			ingredients = *update.Ingredients
		}
		if err := s.checkReferences(tx, opUpdate, tags, ingredients); err != nil {
			return err
		}

		columns := map[string]interface{}{}
		if update.Name != nil {
			columns["title"] = *update.Name
		}
		if update.Text != nil {
			columns["description"] = *update.Text
		}
		if update.Image != nil {
			columns["image"] = *update.Image
		}
		if update.CookingTime != nil {
			columns["cooking_minutes"] = *update.CookingTime
		}
		if len(columns) > 0 {
			if err := tx.Model(&Recipe{}).Where("id = ?", current.ID).Updates(columns).Error; err != nil {
				return apperror.Internal(opUpdate, "update_failed", err)
			}
		}
		if update.Tags != nil {
			if err := replaceTags(tx, current.ID, tags); err != nil {
				return apperror.Internal(opUpdate, "tags_replace_failed", err)
			}
		}
		if update.Ingredients != nil {
			if err := replaceIngredients(tx, current.ID, ingredients); err != nil {
				return apperror.Internal(opUpdate, "ingredients_replace_failed", err)
			}
		}
		return nil
	})
	if txErr != nil {
		s.logTransactionError(opUpdate, txErr, zap.Uint("recipe_id", recipeID))
		return Recipe{}, txErr
	}
	return s.Get(ctx, recipeID)
}

// Delete removes a recipe with its ingredient lines, tag links, favorites and cart entries.
// Only the author may delete a recipe.
func (s *Service) Delete(ctx context.Context, actorID, recipeID uint) error {
	if _, err := s.authorizeAuthor(ctx, opDelete, actorID, recipeID); err != nil {
		return err
	}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, dependent := range []interface{}{&RecipeIngredient{}, &RecipeTag{}, &Favorite{}, &CartEntry{}} {
			if err := tx.Where("recipe_id = ?", recipeID).Delete(dependent).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&Recipe{}, recipeID).Error
	})
	if txErr != nil {
		s.logError(opDelete, "transaction_failed", txErr, zap.Uint("recipe_id", recipeID))
		return apperror.Internal(opDelete, "transaction_failed", txErr)
	}
	return nil
}

// AuthorRecipes returns an author's recipes, newest first. A negative limit returns all of them.
func (s *Service) AuthorRecipes(ctx context.Context, authorID uint, limit int) ([]Recipe, error) {
	var recipes []Recipe
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order(recipeOrderClause).
		Limit(limit).
		Find(&recipes).Error
	if err != nil {
		s.logError(opAuthorRecipes, "query_failed", err, zap.Uint("author_id", authorID))
		return nil, apperror.Internal(opAuthorRecipes, "query_failed", err)
	}
	return recipes, nil
}

// CountByAuthors returns the number of recipes per author id. Authors without recipes are absent.
func (s *Service) CountByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(authorIDs))
	if len(authorIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		AuthorID uint
		Total    int64
	}
	err := s.db.WithContext(ctx).
		Model(&Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		s.logError(opCountByAuthors, "query_failed", err)
		return nil, apperror.Internal(opCountByAuthors, "query_failed", err)
	}
	for _, row := range rows {
		counts[row.AuthorID] = row.Total
	}
	return counts, nil
}

// Memberships reports which of recipeIDs the user has favorited and put in the cart.
func (s *Service) Memberships(ctx context.Context, userID uint, recipeIDs []uint) (map[uint]bool, map[uint]bool, error) {
	favorited := map[uint]bool{}
	inCart := map[uint]bool{}
	if len(recipeIDs) == 0 {
		return favorited, inCart, nil
	}
	db := s.db.WithContext(ctx)
	for _, target := range []struct {
		model interface{}
		into  map[uint]bool
	}{
		{model: &Favorite{}, into: favorited},
		{model: &CartEntry{}, into: inCart},
	} {
		var ids []uint
		if err := db.Model(target.model).Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).Pluck("recipe_id", &ids).Error; err != nil {
			s.logError(opMemberships, "query_failed", err, zap.Uint("user_id", userID))
			return nil, nil, apperror.Internal(opMemberships, "query_failed", err)
		}
		for _, id := range ids {
			target.into[id] = true
		}
	}
	return favorited, inCart, nil
}

// ShoppingList aggregates the ingredient lines of every recipe in the user's cart.
func (s *Service) ShoppingList(ctx context.Context, userID uint) ([]ShoppingItem, error) {
	var lines []ShoppingLine
	err := s.db.WithContext(ctx).
		Table("cart_entries").
		Select("ingredients.name AS ingredient_name, COALESCE(units.name, '') AS unit_name, recipe_ingredients.amount AS amount").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = cart_entries.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("LEFT JOIN units ON units.id = ingredients.unit_id").
		Where("cart_entries.user_id = ?", userID).
		Order("cart_entries.id ASC, recipe_ingredients.position ASC, recipe_ingredients.id ASC").
		Scan(&lines).Error
	if err != nil {
		s.logError(opShoppingList, "query_failed", err, zap.Uint("user_id", userID))
		return nil, apperror.Internal(opShoppingList, "query_failed", err)
	}
	return AggregateShoppingList(lines), nil
}

func (s *Service) authorizeAuthor(ctx context.Context, operation string, actorID, recipeID uint) (Recipe, error) {
	recipe, err := s.findRecipe(s.db.WithContext(ctx), operation, recipeID)
	if err != nil {
		return Recipe{}, err
	}
	if recipe.AuthorID != actorID {
		return Recipe{}, apperror.New(operation, "not_author", apperror.ErrPermissionDenied, "only the author may change this recipe", nil)
	}
	return recipe, nil
}

// checkReferences verifies that tag and ingredient ids exist. Unknown tags are a validation
// failure; unknown ingredients are reported as not found.
func (s *Service) checkReferences(tx *gorm.DB, operation string, tagIDs []uint, ingredients []IngredientAmount) error {
	if len(tagIDs) > 0 {
		var found []uint
		if err := tx.Model(&catalog.Tag{}).Where("id IN ?", tagIDs).Pluck("id", &found).Error; err != nil {
			return apperror.Internal(operation, "tag_lookup_failed", err)
		}
		if missing := missingIDs(tagIDs, found); len(missing) > 0 {
			message := fmt.Sprintf("unknown tag id(s): %s", joinIDs(missing))
			return apperror.Validation(operation, "unknown_tag", message, map[string]string{"tags": message})
		}
	}
	if len(ingredients) > 0 {
		requested := make([]uint, 0, len(ingredients))
		for _, line := range ingredients {
			requested = append(requested, line.ID)
		}
		var found []uint
		if err := tx.Model(&catalog.Ingredient{}).Where("id IN ?", requested).Pluck("id", &found).Error; err != nil {
			return apperror.Internal(operation, "ingredient_lookup_failed", err)
		}
		if missing := missingIDs(requested, found); len(missing) > 0 {
			return apperror.New(operation, "unknown_ingredient", apperror.ErrNotFound,
				fmt.Sprintf("ingredient(s) not found: %s", joinIDs(missing)), nil)
		}
	}
	return nil
}

func replaceTags(tx *gorm.DB, recipeID uint, tagIDs []uint) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&RecipeTag{}).Error; err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	links := make([]RecipeTag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		links = append(links, RecipeTag{RecipeID: recipeID, TagID: tagID})
	}
	return tx.Create(&links).Error
}

func replaceIngredients(tx *gorm.DB, recipeID uint, ingredients []IngredientAmount) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&RecipeIngredient{}).Error; err != nil {
		return err
	}
	if len(ingredients) == 0 {
		return nil
	}
	lines := make([]RecipeIngredient, 0, len(ingredients))
	for position, line := range ingredients {
		lines = append(lines, RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: line.ID,
			Amount:       line.Amount,
			Position:     position,
		})
	}
	return tx.Omit(clause.Associations).Create(&lines).Error
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(tx *gorm.DB) *gorm.DB { return tx.Order("tags.id ASC") }).
		Preload("Ingredients", func(tx *gorm.DB) *gorm.DB { return tx.Order("recipe_ingredients.position ASC") }).
		Preload("Ingredients.Ingredient.Unit")
}

func missingIDs(requested, found []uint) []uint {
	present := make(map[uint]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []uint
	for _, id := range requested {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

func joinIDs(ids []uint) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	return strings.Join(parts, ", ")
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

// logTransactionError logs failures that are not client errors.
func (s *Service) logTransactionError(operation string, err error, fields ...zap.Field) {
	if apperror.KindOf(err) != nil {
		return
	}
	s.logError(operation, "transaction_failed", err, fields...)
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("recipes service error", attrs...)
}

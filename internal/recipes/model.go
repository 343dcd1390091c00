package recipes

import (
	"time"

	"github.com/MarcoPoloResearchLab/foodgram/internal/catalog"
	"github.com/MarcoPoloResearchLab/foodgram/internal/users"
)

// Recipe is a published recipe. Tags and ingredient lines are owned by the recipe and removed
// with it.
type Recipe struct {
	ID             uint               `gorm:"column:id;primaryKey"`
	AuthorID       uint               `gorm:"column:author_id;not null;index"`
	Author         users.User         `gorm:"foreignKey:AuthorID"`
	Title          string             `gorm:"column:title;size:200;not null"`
	Description    string             `gorm:"column:description;type:text;not null"`
	Image          string             `gorm:"column:image;type:text;not null"`
	CookingMinutes int                `gorm:"column:cooking_minutes;not null"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime;index"`
	Tags           []catalog.Tag      `gorm:"many2many:recipe_tags;joinForeignKey:RecipeID;joinReferences:TagID"`
	Ingredients    []RecipeIngredient `gorm:"foreignKey:RecipeID"`
}

// TableName provides the explicit table binding for GORM.
func (Recipe) TableName() string {
	return "recipes"
}

// RecipeTag links a recipe to a tag.
type RecipeTag struct {
	RecipeID uint `gorm:"column:recipe_id;primaryKey"`
	TagID    uint `gorm:"column:tag_id;primaryKey"`
}

// TableName provides the explicit table binding for GORM.
func (RecipeTag) TableName() string {
	return "recipe_tags"
}

// RecipeIngredient is one ingredient line. Each ingredient appears once per recipe; Position
// keeps the order the author supplied.
type RecipeIngredient struct {
	ID           uint               `gorm:"column:id;primaryKey"`
	RecipeID     uint               `gorm:"column:recipe_id;not null;uniqueIndex:idx_recipe_ingredients_pair,priority:1"`
	IngredientID uint               `gorm:"column:ingredient_id;not null;uniqueIndex:idx_recipe_ingredients_pair,priority:2"`
	Ingredient   catalog.Ingredient `gorm:"foreignKey:IngredientID"`
	Amount       int                `gorm:"column:amount;not null"`
	Position     int                `gorm:"column:position;not null"`
}

// TableName provides the explicit table binding for GORM.
func (RecipeIngredient) TableName() string {
	return "recipe_ingredients"
}

// Favorite marks a recipe as a favorite of a user.
type Favorite struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:idx_favorites_pair,priority:1"`
	RecipeID  uint      `gorm:"column:recipe_id;not null;uniqueIndex:idx_favorites_pair,priority:2;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Favorite) TableName() string {
	return "favorites"
}

// CartEntry puts a recipe into a user's shopping cart. Insertion order drives the shopping list.
type CartEntry struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:idx_cart_entries_pair,priority:1"`
	RecipeID  uint      `gorm:"column:recipe_id;not null;uniqueIndex:idx_cart_entries_pair,priority:2;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (CartEntry) TableName() string {
	return "cart_entries"
}

// Summary is the short recipe form returned by favorite, cart and subscription endpoints.
type Summary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// Summary returns the short form of r.
func (r Recipe) Summary() Summary {
	return Summary{ID: r.ID, Name: r.Title, Image: r.Image, CookingTime: r.CookingMinutes}
}

// IngredientAmount references a catalog ingredient with the amount a recipe uses.
type IngredientAmount struct {
	ID     uint `json:"id" validate:"required"`
	Amount int  `json:"amount" validate:"gte=1"`
}

// RecipeInput is the payload for creating a recipe.
type RecipeInput struct {
	Name        string             `json:"name" validate:"required,max=200"`
	Text        string             `json:"text" validate:"required"`
	Image       string             `json:"image" validate:"required"`
	CookingTime int                `json:"cooking_time" validate:"gte=1"`
	Tags        []uint             `json:"tags" validate:"min=1,unique"`
	Ingredients []IngredientAmount `json:"ingredients" validate:"min=1,unique=ID,dive"`
}

// RecipeUpdate is the payload for a partial update. Supplied tags or ingredients replace the
// current sets.
type RecipeUpdate struct {
	Name        *string             `json:"name" validate:"omitnil,min=1,max=200"`
	Text        *string             `json:"text" validate:"omitnil,min=1"`
	Image       *string             `json:"image" validate:"omitnil,min=1"`
	CookingTime *int                `json:"cooking_time" validate:"omitnil,gte=1"`
	Tags        *[]uint             `json:"tags" validate:"omitnil,min=1,unique"`
	Ingredients *[]IngredientAmount `json:"ingredients" validate:"omitnil,min=1,unique=ID,dive"`
}

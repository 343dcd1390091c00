package server

import (
	"context"

	"github.com/MarcoPoloResearchLab/foodgram/internal/catalog"
	"github.com/MarcoPoloResearchLab/foodgram/internal/recipes"
	"github.com/MarcoPoloResearchLab/foodgram/internal/subscriptions"
	"github.com/MarcoPoloResearchLab/foodgram/internal/users"
)

type userView struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

type registeredUserView struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type subscriptionView struct {
	userView
	Recipes      []recipes.Summary `json:"recipes"`
	RecipesCount int64             `json:"recipes_count"`
}

type tagView struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

type ingredientView struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type recipeIngredientView struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

type recipeView struct {
	ID               uint                   `json:"id"`
	Tags             []tagView              `json:"tags"`
	Author           userView               `json:"author"`
	Ingredients      []recipeIngredientView `json:"ingredients"`
	IsFavorited      bool                   `json:"is_favorited"`
	IsInShoppingCart bool                   `json:"is_in_shopping_cart"`
	Name             string                 `json:"name"`
	Image            string                 `json:"image"`
	Text             string                 `json:"text"`
	CookingTime      int                    `json:"cooking_time"`
}

func newUserView(user users.User, isSubscribed bool) userView {
	return userView{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsSubscribed: isSubscribed,
	}
}

func newSubscriptionView(summary subscriptions.AuthorSummary) subscriptionView {
	previews := summary.Recipes
	if previews == nil {
		previews = []recipes.Summary{}
	}
	return subscriptionView{
		userView:     newUserView(summary.User, summary.IsSubscribed),
		Recipes:      previews,
		RecipesCount: summary.RecipesCount,
	}
}

func newTagView(tag catalog.Tag) tagView {
	return tagView{ID: tag.ID, Name: tag.Name, Color: tag.Color, Slug: tag.Slug}
}

func newIngredientView(ingredient catalog.Ingredient) ingredientView {
	return ingredientView{ID: ingredient.ID, Name: ingredient.Name, MeasurementUnit: ingredient.UnitName()}
}

// userViews renders users with is_subscribed resolved for the caller.
func (h *httpHandler) userViews(ctx context.Context, viewer *uint, list []users.User) ([]userView, error) {
	subscribed := map[uint]bool{}
	if viewer != nil && len(list) > 0 {
		ids := make([]uint, 0, len(list))
		for _, user := range list {
			ids = append(ids, user.ID)
		}
		var err error
		if subscribed, err = h.subscriptions.SubscribedTo(ctx, *viewer, ids); err != nil {
			return nil, err
		}
	}
	views := make([]userView, 0, len(list))
	for _, user := range list {
		views = append(views, newUserView(user, subscribed[user.ID]))
	}
	return views, nil
}

// recipeViews renders recipes with favorite, cart and subscription flags resolved for the caller.
// Anonymous callers get false for every flag.
func (h *httpHandler) recipeViews(ctx context.Context, viewer *uint, list []recipes.Recipe) ([]recipeView, error) {
	favorited := map[uint]bool{}
	inCart := map[uint]bool{}
	subscribed := map[uint]bool{}
	if viewer != nil && len(list) > 0 {
		recipeIDs := make([]uint, 0, len(list))
		authorIDs := make([]uint, 0, len(list))
		for _, recipe := range list {
			recipeIDs = append(recipeIDs, recipe.ID)
			authorIDs = append(authorIDs, recipe.AuthorID)
		}
		var err error
		if favorited, inCart, err = h.recipes.Memberships(ctx, *viewer, recipeIDs); err != nil {
			return nil, err
		}
		if subscribed, err = h.subscriptions.SubscribedTo(ctx, *viewer, authorIDs); err != nil {
			return nil, err
		}
	}

	views := make([]recipeView, 0, len(list))
	for _, recipe := range list {
		tags := make([]tagView, 0, len(recipe.Tags))
		for _, tag := range recipe.Tags {
			tags = append(tags, newTagView(tag))
		}
		lines := make([]recipeIngredientView, 0, len(recipe.Ingredients))
		for _, line := range recipe.Ingredients {
			lines = append(lines, recipeIngredientView{
				ID:              line.IngredientID,
				Name:            line.Ingredient.Name,
				MeasurementUnit: line.Ingredient.UnitName(),
				Amount:          line.Amount,
			})
		}
		views = append(views, recipeView{
			ID:               recipe.ID,
			Tags:             tags,
			Author:           newUserView(recipe.Author, subscribed[recipe.AuthorID]),
			Ingredients:      lines,
			IsFavorited:      favorited[recipe.ID],
			IsInShoppingCart: inCart[recipe.ID],
			Name:             recipe.Title,
			Image:            recipe.Image,
			Text:             recipe.Description,
			CookingTime:      recipe.CookingMinutes,
		})
	}
	return views, nil
}

func (h *httpHandler) recipeView(ctx context.Context, viewer *uint, recipe recipes.Recipe) (recipeView, error) {
	views, err := h.recipeViews(ctx, viewer, []recipes.Recipe{recipe})
	if err != nil {
		return recipeView{}, err
	}
	return views[0], nil
}

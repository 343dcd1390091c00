package server

import (
	"context"
	"net/http"

	"github.com/MarcoPoloResearchLab/foodgram/internal/recipes"
	"github.com/gin-gonic/gin"
)

const shoppingListFilename = "shopping_cart.txt"

func (h *httpHandler) handleListRecipes(c *gin.Context) {
	page, err := parsePagination(c, h.pageSize)
	if err != nil {
		h.respondError(c, err)
		return
	}
	filter, err := recipes.ParseFilter(c.Request.URL.Query())
	if err != nil {
		h.respondError(c, err)
		return
	}
	viewer := viewerID(c)
	list, total, err := h.recipes.List(c.Request.Context(), filter, viewer, page.window())
	if err != nil {
		h.respondError(c, err)
		return
	}
	views, err := h.recipeViews(c.Request.Context(), viewer, list)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page.envelope(c, total, views))
}

func (h *httpHandler) handleGetRecipe(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, recipe)
}

func (h *httpHandler) handleCreateRecipe(c *gin.Context) {
	user, _ := currentUser(c)
	var request recipes.RecipeInput
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, invalidJSON(err))
		return
	}
	recipe, err := h.recipes.Create(c.Request.Context(), user.ID, request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusCreated, recipe)
}

func (h *httpHandler) handleUpdateRecipe(c *gin.Context) {
	user, _ := currentUser(c)
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var request recipes.RecipeUpdate
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, invalidJSON(err))
		return
	}
	recipe, err := h.recipes.Update(c.Request.Context(), user.ID, id, request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, recipe)
}

func (h *httpHandler) handleDeleteRecipe(c *gin.Context) {
	user, _ := currentUser(c)
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), user.ID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAddFavorite(c *gin.Context) {
	h.addRelationship(c, h.recipes.AddFavorite)
}

func (h *httpHandler) handleRemoveFavorite(c *gin.Context) {
	h.removeRelationship(c, h.recipes.RemoveFavorite)
}

func (h *httpHandler) handleAddToCart(c *gin.Context) {
	h.addRelationship(c, h.recipes.AddToCart)
}

func (h *httpHandler) handleRemoveFromCart(c *gin.Context) {
	h.removeRelationship(c, h.recipes.RemoveFromCart)
}

func (h *httpHandler) handleDownloadShoppingCart(c *gin.Context) {
	user, _ := currentUser(c)
	items, err := h.recipes.ShoppingList(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+shoppingListFilename+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(recipes.RenderShoppingList(items)))
}

func (h *httpHandler) addRelationship(c *gin.Context, add func(ctx context.Context, userID, recipeID uint) (recipes.Summary, error)) {
	user, _ := currentUser(c)
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	summary, err := add(c.Request.Context(), user.ID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

func (h *httpHandler) removeRelationship(c *gin.Context, remove func(ctx context.Context, userID, recipeID uint) error) {
	user, _ := currentUser(c)
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := remove(c.Request.Context(), user.ID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) respondRecipe(c *gin.Context, status int, recipe recipes.Recipe) {
	view, err := h.recipeView(c.Request.Context(), viewerID(c), recipe)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(status, view)
}

package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/foodgram/internal/catalog"
	"github.com/gin-gonic/gin"
)

func (h *httpHandler) handleListTags(c *gin.Context) {
	tags, err := h.catalog.ListTags(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	views := make([]tagView, 0, len(tags))
	for _, tag := range tags {
		views = append(views, newTagView(tag))
	}
	c.JSON(http.StatusOK, views)
}

func (h *httpHandler) handleGetTag(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	tag, err := h.catalog.GetTag(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTagView(tag))
}

func (h *httpHandler) handleListIngredients(c *gin.Context) {
	ingredients, err := h.catalog.ListIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredientViews(ingredients))
}

func (h *httpHandler) handleGetIngredient(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ingredient, err := h.catalog.GetIngredient(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newIngredientView(ingredient))
}

func (h *httpHandler) handleCreateIngredients(c *gin.Context) {
	var request []catalog.IngredientInput
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, invalidJSON(err))
		return
	}
	created, err := h.catalog.CreateIngredients(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ingredientViews(created))
}

func ingredientViews(ingredients []catalog.Ingredient) []ingredientView {
	views := make([]ingredientView, 0, len(ingredients))
	for _, ingredient := range ingredients {
		views = append(views, newIngredientView(ingredient))
	}
	return views
}

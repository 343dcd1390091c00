package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/foodgram/internal/subscriptions"
	"github.com/MarcoPoloResearchLab/foodgram/internal/users"
	"github.com/gin-gonic/gin"
)

type loginResponsePayload struct {
	AuthToken string `json:"auth_token"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request users.LoginInput
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, invalidJSON(err))
		return
	}
	issued, err := h.users.Login(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponsePayload{AuthToken: issued.Token})
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	if err := h.users.Logout(c.Request.Context(), c.GetString(tokenIDContextKey)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request users.RegisterInput
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, invalidJSON(err))
		return
	}
	user, err := h.users.Register(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, registeredUserView{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

func (h *httpHandler) handleListUsers(c *gin.Context) {
	page, err := parsePagination(c, h.pageSize)
	if err != nil {
		h.respondError(c, err)
		return
	}
	window := page.window()
	list, total, err := h.users.List(c.Request.Context(), window.Offset, window.Limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	views, err := h.userViews(c.Request.Context(), viewerID(c), list)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page.envelope(c, total, views))
}

func (h *httpHandler) handleGetUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	views, err := h.userViews(c.Request.Context(), viewerID(c), []users.User{user})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views[0])
}

func (h *httpHandler) handleGetMe(c *gin.Context) {
	user, _ := currentUser(c)
	c.JSON(http.StatusOK, newUserView(user, false))
}

func (h *httpHandler) handleUpdateMe(c *gin.Context) {
	user, _ := currentUser(c)
	var request users.ProfileUpdate
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, invalidJSON(err))
		return
	}
	updated, err := h.users.UpdateProfile(c.Request.Context(), user.ID, request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserView(updated, false))
}

func (h *httpHandler) handleSetPassword(c *gin.Context) {
	user, _ := currentUser(c)
	var request users.PasswordChange
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, invalidJSON(err))
		return
	}
	if err := h.users.SetPassword(c.Request.Context(), user.ID, request); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleListSubscriptions(c *gin.Context) {
	user, _ := currentUser(c)
	page, err := parsePagination(c, h.pageSize)
	if err != nil {
		h.respondError(c, err)
		return
	}
	recipesLimit, err := subscriptions.ParseRecipesLimit(c.Query("recipes_limit"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	summaries, total, err := h.subscriptions.List(c.Request.Context(), user.ID, page.window(), recipesLimit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	views := make([]subscriptionView, 0, len(summaries))
	for _, summary := range summaries {
		views = append(views, newSubscriptionView(summary))
	}
	c.JSON(http.StatusOK, page.envelope(c, total, views))
}

func (h *httpHandler) handleSubscribe(c *gin.Context) {
	user, _ := currentUser(c)
	authorID, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	recipesLimit, err := subscriptions.ParseRecipesLimit(c.Query("recipes_limit"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	summary, err := h.subscriptions.Subscribe(c.Request.Context(), user.ID, authorID, recipesLimit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSubscriptionView(summary))
}

func (h *httpHandler) handleUnsubscribe(c *gin.Context) {
	user, _ := currentUser(c)
	authorID, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.subscriptions.Unsubscribe(c.Request.Context(), user.ID, authorID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/foodgram/internal/auth"
	"github.com/MarcoPoloResearchLab/foodgram/internal/catalog"
	"github.com/MarcoPoloResearchLab/foodgram/internal/recipes"
	"github.com/MarcoPoloResearchLab/foodgram/internal/subscriptions"
	"github.com/MarcoPoloResearchLab/foodgram/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errMissingAuthenticator       = errors.New("authenticator dependency required")
	errMissingUsersService        = errors.New("users service dependency required")
	errMissingCatalogService      = errors.New("catalog service dependency required")
	errMissingRecipesService      = errors.New("recipes service dependency required")
	errMissingSubscriptionService = errors.New("subscriptions service dependency required")
	errInvalidPageSize            = errors.New("page size must be between 1 and 100")
)

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (users.User, auth.TokenClaims, error)
}

// Dependencies wires the services behind the HTTP API.
type Dependencies struct {
	Authenticator        Authenticator
	UsersService         *users.Service
	CatalogService       *catalog.Service
	RecipesService       *recipes.Service
	SubscriptionsService *subscriptions.Service
	Logger               *zap.Logger
	PageSize             int
	AllowedOrigins       []string
}

// NewHTTPHandler builds the gin router serving the /api endpoints.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Authenticator == nil {
		return nil, errMissingAuthenticator
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.CatalogService == nil {
		return nil, errMissingCatalogService
	}
	if deps.RecipesService == nil {
		return nil, errMissingRecipesService
	}
	if deps.SubscriptionsService == nil {
		return nil, errMissingSubscriptionService
	}
	if deps.PageSize < 1 || deps.PageSize > maxPageLimit {
		return nil, errInvalidPageSize
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))
	router.Use(accessLog(logger))

	handler := &httpHandler{
		authenticator: deps.Authenticator,
		users:         deps.UsersService,
		catalog:       deps.CatalogService,
		recipes:       deps.RecipesService,
		subscriptions: deps.SubscriptionsService,
		logger:        logger,
		pageSize:      deps.PageSize,
	}

	router.GET("/healthz", handler.handleHealth)

	api := router.Group("/api")
	api.Use(handler.authenticate)

	api.POST("/auth/token/login/", handler.handleLogin)
	api.POST("/auth/token/logout/", handler.requireAuth, handler.handleLogout)

	api.GET("/users/", handler.handleListUsers)
	api.POST("/users/", handler.handleRegister)
	api.GET("/users/me/", handler.requireAuth, handler.handleGetMe)
	api.PATCH("/users/me/", handler.requireAuth, handler.handleUpdateMe)
	api.POST("/users/set_password/", handler.requireAuth, handler.handleSetPassword)
	api.GET("/users/subscriptions/", handler.requireAuth, handler.handleListSubscriptions)
	api.GET("/users/:id/", handler.handleGetUser)
	api.POST("/users/:id/subscribe/", handler.requireAuth, handler.handleSubscribe)
	api.DELETE("/users/:id/subscribe/", handler.requireAuth, handler.handleUnsubscribe)

	api.GET("/tags/", handler.handleListTags)
	api.GET("/tags/:id/", handler.handleGetTag)
	api.GET("/ingredients/", handler.handleListIngredients)
	api.POST("/ingredients/", handler.requireAuth, handler.handleCreateIngredients)
	api.GET("/ingredients/:id/", handler.handleGetIngredient)

	api.GET("/recipes/", handler.handleListRecipes)
	api.POST("/recipes/", handler.requireAuth, handler.handleCreateRecipe)
	api.GET("/recipes/download_shopping_cart/", handler.requireAuth, handler.handleDownloadShoppingCart)
	api.GET("/recipes/:id/", handler.handleGetRecipe)
	api.PATCH("/recipes/:id/", handler.requireAuth, handler.handleUpdateRecipe)
	api.DELETE("/recipes/:id/", handler.requireAuth, handler.handleDeleteRecipe)
	api.POST("/recipes/:id/favorite/", handler.requireAuth, handler.handleAddFavorite)
	api.DELETE("/recipes/:id/favorite/", handler.requireAuth, handler.handleRemoveFavorite)
	api.POST("/recipes/:id/shopping_cart/", handler.requireAuth, handler.handleAddToCart)
	api.DELETE("/recipes/:id/shopping_cart/", handler.requireAuth, handler.handleRemoveFromCart)

	return router, nil
}

type httpHandler struct {
	authenticator Authenticator
	users         *users.Service
	catalog       *catalog.Service
	recipes       *recipes.Service
	subscriptions *subscriptions.Service
	logger        *zap.Logger
	pageSize      int
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/foodgram/internal/apperror"
	"github.com/MarcoPoloResearchLab/foodgram/internal/auth"
	"github.com/MarcoPoloResearchLab/foodgram/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	userContextKey    = "foodgram_user"
	tokenIDContextKey = "foodgram_token_id"
)

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || containsWildcard(allowedOrigins) {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
		config.AllowCredentials = true
	}
	return cors.New(config)
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// accessLog logs each request once it completes: 5xx at error, 4xx at warn, the rest at info.
func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if user, ok := currentUser(c); ok {
			fields = append(fields, zap.Uint("user_id", user.ID))
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("http request", fields...)
		default:
			logger.Info("http request", fields...)
		}
	}
}

// authenticate resolves the bearer token when one is present. Requests without credentials
// continue anonymously; a bad token is rejected.
func (h *httpHandler) authenticate(c *gin.Context) {
	token, err := auth.TokenFromRequest(c.Request)
	if errors.Is(err, auth.ErrMissingCredentials) {
		c.Next()
		return
	}
	if err != nil {
		h.respondError(c, unauthenticated(err.Error()))
		return
	}

	user, claims, err := h.authenticator.Authenticate(c.Request.Context(), token)
	if err != nil {
		if apperror.KindOf(err) != apperror.ErrUnauthenticated {
			h.respondError(c, err)
			return
		}
		if errors.Is(err, auth.ErrExpiredToken) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		h.respondError(c, err)
		return
	}

	c.Set(userContextKey, user)
	c.Set(tokenIDContextKey, claims.TokenID)
	c.Next()
}

func (h *httpHandler) requireAuth(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		h.respondError(c, unauthenticated("authentication credentials were not provided"))
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) (users.User, bool) {
	value, ok := c.Get(userContextKey)
	if !ok {
		return users.User{}, false
	}
	user, ok := value.(users.User)
	return user, ok
}

func viewerID(c *gin.Context) *uint {
	user, ok := currentUser(c)
	if !ok {
		return nil
	}
	id := user.ID
	return &id
}

package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/foodgram/internal/apperror"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const internalErrorKind = "internal_error"

type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Detail string            `json:"detail,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusForKind maps an error kind onto the HTTP status reported to clients.
func statusForKind(kind error) int {
	switch kind {
	case apperror.ErrValidation,
		apperror.ErrDuplicateRelationship,
		apperror.ErrRelationshipNotFound,
		apperror.ErrSelfSubscriptionForbidden:
		return http.StatusBadRequest
	case apperror.ErrNotFound:
		return http.StatusNotFound
	case apperror.ErrPermissionDenied:
		return http.StatusForbidden
	case apperror.ErrUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body. Client errors carry their detail; anything else
// is logged and reported without internals.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	var serviceErr *apperror.ServiceError
	hasServiceErr := errors.As(err, &serviceErr)

	kind := apperror.KindOf(err)
	if kind == nil {
		response := errorResponse{Error: internalErrorKind}
		if hasServiceErr {
			response.Code = serviceErr.Code()
		}
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("code", response.Code),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response)
		return
	}

	response := errorResponse{Error: kind.Error()}
	if hasServiceErr {
		response.Code = serviceErr.Code()
		response.Detail = serviceErr.Detail()
		response.Fields = serviceErr.Fields()
	}
	c.AbortWithStatusJSON(statusForKind(kind), response)
}

func invalidJSON(err error) error {
	return apperror.New("request", "invalid_json", apperror.ErrValidation, "request body is not valid JSON for this endpoint", err)
}

func unauthenticated(detail string) error {
	return apperror.New("request", "unauthenticated", apperror.ErrUnauthenticated, detail, nil)
}

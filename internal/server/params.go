package server

import (
	"strconv"

	"github.com/MarcoPoloResearchLab/foodgram/internal/apperror"
	"github.com/gin-gonic/gin"
)

// pathID parses the :id route parameter. Anything but a positive integer is treated as an
// unknown resource.
func pathID(c *gin.Context) (uint, error) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.New("request", "invalid_id", apperror.ErrNotFound, "not found", err)
	}
	return uint(id), nil
}

package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"trackApply/internal/api/middleware"
)

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id != 0
}

// jobIDParam parses :id. A non-numeric id cannot name any record, so callers
// answer it with the same 404 as a missing one.
func jobIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

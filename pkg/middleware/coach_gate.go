package middleware

import (
	"github.com/gin-gonic/gin"
	"glucoach/pkg/utils"
)

// CoachEnabled answers every request with CoachDisabled when the coach is
// switched off.
func CoachEnabled(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			utils.AbortWithError(c, utils.ErrCoachDisabled)
			return
		}
		c.Next()
	}
}

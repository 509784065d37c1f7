package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"glucoach/pkg/utils"
)

const principalKey = "principal"

func JWTAuthMiddleware(tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.AbortWithError(c, utils.ErrUnauthenticated)
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		principal, err := tokens.Authenticate(tokenString)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}

		// Pass user information to the next handler
		c.Set(principalKey, *principal)
		c.Set("user_id", principal.UserID.String())
		c.Next()
	}
}

// GetPrincipal returns the caller placed on the context by JWTAuthMiddleware.
func GetPrincipal(c *gin.Context) (utils.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return utils.Principal{}, false
	}
	p, ok := v.(utils.Principal)
	return p, ok
}

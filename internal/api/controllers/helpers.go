package controllers

import (
	"github.com/gin-gonic/gin"
	"glucoach/pkg/middleware"
	"glucoach/pkg/utils"
)

// principal fetches the authenticated caller or writes a 401.
func principal(c *gin.Context) (utils.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.HandleServiceError(c, utils.ErrUnauthenticated)
		return utils.Principal{}, false
	}
	return p, true
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.HandleServiceError(c, utils.NewBadRequest("invalid request body: missing or malformed fields"))
		return false
	}
	return true
}

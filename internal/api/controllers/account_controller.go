package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"glucoach/internal/models/request_models"
	"glucoach/internal/models/response_models"
	"glucoach/internal/services"
	"glucoach/pkg/utils"
)

type AccountController struct {
	accountService services.AccountServiceInterface
}

func NewAccountController(accountService services.AccountServiceInterface) *AccountController {
	return &AccountController{
		accountService: accountService,
	}
}

// Register godoc
// @Summary Register a new account
// @Description Create a user in a new tenant with a trial subscription
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body request_models.SignUpRequest true "Account registration payload"
// @Success 201 {object} response_models.AuthResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (a *AccountController) Register(c *gin.Context) {
	var req request_models.SignUpRequest
	if !bindJSON(c, &req) {
		return
	}

	token, user, err := a.accountService.CreateAccount(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusCreated, response_models.AuthResponse{Token: token, User: user})
}

// Login godoc
// @Summary Login to an account
// @Description Authenticate a user and return a bearer token
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body request_models.LoginRequest true "Login payload"
// @Success 200 {object} response_models.AuthResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (a *AccountController) Login(c *gin.Context) {
	var req request_models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, user, err := a.accountService.Login(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, response_models.AuthResponse{Token: token, User: user})
}

// Me godoc
// @Summary Current user
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} db_models.User
// @Failure 401 {object} utils.ErrorResponse
// @Router /users/me [get]
func (a *AccountController) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	user, err := a.accountService.Me(c.Request.Context(), p)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, user)
}

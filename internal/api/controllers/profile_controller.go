package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"glucoach/internal/models/request_models"
	"glucoach/internal/services"
	"glucoach/pkg/utils"
)

type ProfileController struct {
	profileService services.ProfileServiceInterface
}

func NewProfileController(profileService services.ProfileServiceInterface) *ProfileController {
	return &ProfileController{profileService: profileService}
}

// GetProfile godoc
// @Summary Get the caller's nutrition profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} db_models.Profile
// @Failure 404 {object} utils.ErrorResponse
// @Router /profile [get]
func (p *ProfileController) GetProfile(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}

	profile, err := p.profileService.GetProfile(c.Request.Context(), caller)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	if profile == nil {
		utils.HandleServiceError(c, utils.ErrNotFound)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, profile)
}

// UpsertProfile godoc
// @Summary Create or replace the caller's nutrition profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body request_models.UpsertProfileRequest true "Profile"
// @Success 200 {object} db_models.Profile
// @Failure 400 {object} utils.ErrorResponse
// @Router /profile [put]
func (p *ProfileController) UpsertProfile(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}

	var req request_models.UpsertProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := p.profileService.UpsertProfile(c.Request.Context(), caller, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, profile)
}

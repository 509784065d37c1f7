package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"glucoach/internal/models/request_models"
	"glucoach/internal/services"
	"glucoach/pkg/utils"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// maxMessageBodyBytes bounds the raw /coach/message body; the message field
// itself is checked against services.MaxMessageBytes.
const maxMessageBodyBytes = 2 * services.MaxMessageBytes

type CoachController struct {
	coachService       services.CoachServiceInterface
	exportService      services.ExportServiceInterface
	idempotencyService services.IdempotencyServiceInterface
}

func NewCoachController(
	coachService services.CoachServiceInterface,
	exportService services.ExportServiceInterface,
	idempotencyService services.IdempotencyServiceInterface,
) *CoachController {
	return &CoachController{
		coachService:       coachService,
		exportService:      exportService,
		idempotencyService: idempotencyService,
	}
}

// FeatureFlags godoc
// @Summary Coach feature flags
// @Tags Coach
// @Produce json
// @Success 200 {object} response_models.FeatureFlags
// @Router /coach/feature-flags [get]
func (cc *CoachController) FeatureFlags(c *gin.Context) {
	utils.RespondSuccess(c, http.StatusOK, cc.coachService.FeatureFlags())
}

// AcceptDisclaimer godoc
// @Summary Accept the medical disclaimer
// @Description Appends a signed acceptance to the consent ledger
// @Tags Coach
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body request_models.AcceptDisclaimerRequest true "Acceptance"
// @Success 200 {object} response_models.AcceptDisclaimerResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /coach/accept-disclaimer [post]
func (cc *CoachController) AcceptDisclaimer(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req request_models.AcceptDisclaimerRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := cc.coachService.AcceptDisclaimer(c.Request.Context(), p, req, c.Request.UserAgent())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, resp)
}

// DisclaimerStatus godoc
// @Summary Disclaimer acceptance status
// @Tags Coach
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "User ID"
// @Success 200 {object} response_models.DisclaimerStatusResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /coach/disclaimer-status/{user_id} [get]
func (cc *CoachController) DisclaimerStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	resp, err := cc.coachService.DisclaimerStatus(c.Request.Context(), p, c.Param("user_id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, resp)
}

// ConsultationLimit godoc
// @Summary Monthly consultation usage
// @Tags Coach
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "User ID"
// @Success 200 {object} response_models.ConsultationLimitResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /coach/consultation-limit/{user_id} [get]
func (cc *CoachController) ConsultationLimit(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	resp, err := cc.coachService.ConsultationLimit(c.Request.Context(), p, c.Param("user_id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, resp)
}

// CreateSession godoc
// @Summary Start a coach session
// @Tags Coach
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user_id query string true "User ID"
// @Param request body request_models.CreateSessionRequest false "Session"
// @Success 201 {object} db_models.Session
// @Failure 403 {object} utils.ErrorResponse
// @Failure 429 {object} utils.QuotaExceededResponse
// @Router /coach/sessions [post]
func (cc *CoachController) CreateSession(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req request_models.CreateSessionRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	session, err := cc.coachService.CreateSession(c.Request.Context(), p, c.Query("user_id"), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusCreated, session)
}

// ListSessions godoc
// @Summary List the caller's sessions, most recent first
// @Tags Coach
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "User ID"
// @Success 200 {array} db_models.Session
// @Failure 404 {object} utils.ErrorResponse
// @Router /coach/sessions/{user_id} [get]
func (cc *CoachController) ListSessions(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	sessions, err := cc.coachService.ListSessions(c.Request.Context(), p, c.Param("user_id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, sessions)
}

// SendMessage godoc
// @Summary Send a message to the coach
// @Description Runs one coach turn. An Idempotency-Key header makes retries safe.
// @Tags Coach
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body request_models.SendMessageRequest true "Message"
// @Success 200 {object} response_models.SendMessageResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 429 {object} utils.QuotaExceededResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /coach/message [post]
func (cc *CoachController) SendMessage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMessageBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.HandleServiceError(c, utils.NewBadRequest("request body is larger than %d bytes", maxMessageBodyBytes))
			return
		}
		utils.HandleServiceError(c, utils.NewBadRequest("unreadable request body"))
		return
	}
	var req request_models.SendMessageRequest
	if err := binding.JSON.BindBody(body, &req); err != nil {
		utils.HandleServiceError(c, utils.NewBadRequest("session_id and message are required"))
		return
	}

	run := func() (any, error) {
		return cc.coachService.SendMessage(c.Request.Context(), p, req)
	}

	key := c.GetHeader(IdempotencyKeyHeader)
	if key == "" {
		resp, err := run()
		if err != nil {
			utils.HandleServiceError(c, err)
			return
		}
		utils.RespondSuccess(c, http.StatusOK, resp)
		return
	}

	payload, err := cc.idempotencyService.Execute(c.Request.Context(), p, key, body, run)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// ListMessages godoc
// @Summary Messages of a session in order
// @Tags Coach
// @Produce json
// @Security BearerAuth
// @Param session_id path string true "Session ID"
// @Success 200 {array} db_models.Message
// @Failure 404 {object} utils.ErrorResponse
// @Router /coach/messages/{session_id} [get]
func (cc *CoachController) ListMessages(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	messages, err := cc.coachService.ListMessages(c.Request.Context(), p, c.Param("session_id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, messages)
}

// Search godoc
// @Summary Search the caller's coach history
// @Tags Coach
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "User ID"
// @Param query query string true "Search text"
// @Success 200 {object} response_models.SearchResponse
// @Failure 400 {object} utils.ErrorResponse
// @Router /coach/search/{user_id} [get]
func (cc *CoachController) Search(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	resp, err := cc.coachService.Search(c.Request.Context(), p, c.Param("user_id"), c.Query("query"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, resp)
}

// ExportTranscript godoc
// @Summary Download a session transcript as xlsx
// @Tags Coach
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param session_id path string true "Session ID"
// @Success 200 {file} binary
// @Failure 404 {object} utils.ErrorResponse
// @Router /coach/export/{session_id} [get]
func (cc *CoachController) ExportTranscript(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		utils.HandleServiceError(c, utils.ErrNotFound)
		return
	}

	data, fileName, err := cc.exportService.ExportTranscript(c.Request.Context(), p, sessionID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", fileName))
	c.Header("Content-Transfer-Encoding", "binary")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type QuotaExceededResponse struct {
	Error        string `json:"error"`
	Detail       string `json:"detail,omitempty"`
	CurrentCount int    `json:"current_count"`
	Limit        int    `json:"limit"`
	Remaining    int    `json:"remaining"`
}

func RespondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

func RespondError(c *gin.Context, status int, kind, detail string) {
	c.JSON(status, ErrorResponse{
		Error:  kind,
		Detail: detail,
	})
}

// AbortWithError writes the error body and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	HandleServiceError(c, err)
	c.Abort()
}

func HandleServiceError(c *gin.Context, err error) {
	var quotaErr *QuotaExceededError
	var badReq *BadRequestError

	switch {
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusTooManyRequests, QuotaExceededResponse{
			Error:        KindQuotaExceeded,
			Detail:       ErrQuotaExceeded.Error(),
			CurrentCount: quotaErr.CurrentCount,
			Limit:        quotaErr.Limit,
			Remaining:    0,
		})
	case errors.As(err, &badReq):
		RespondError(c, http.StatusBadRequest, KindBadRequest, badReq.Detail)
	case errors.Is(err, ErrBadRequest):
		RespondError(c, http.StatusBadRequest, KindBadRequest, "")
	case errors.Is(err, ErrInvalidCredentials):
		RespondError(c, http.StatusUnauthorized, KindUnauthenticated, ErrInvalidCredentials.Error())
	case errors.Is(err, ErrUnauthenticated):
		RespondError(c, http.StatusUnauthorized, KindUnauthenticated, "")
	case errors.Is(err, ErrConsentRequired):
		RespondError(c, http.StatusForbidden, KindConsentRequired, ErrConsentRequired.Error())
	case errors.Is(err, ErrSubscriptionRequired):
		RespondError(c, http.StatusForbidden, KindSubscriptionRequired, ErrSubscriptionRequired.Error())
	case errors.Is(err, ErrNotFound):
		RespondError(c, http.StatusNotFound, KindNotFound, "")
	case errors.Is(err, ErrEmailAlreadyExists):
		RespondError(c, http.StatusConflict, KindConflict, ErrEmailAlreadyExists.Error())
	case errors.Is(err, ErrRateLimited):
		RespondError(c, http.StatusTooManyRequests, KindRateLimited, "")
	case errors.Is(err, ErrRequestInProgress):
		RespondError(c, http.StatusConflict, KindRequestInProgress, ErrRequestInProgress.Error())
	case errors.Is(err, ErrIdempotencyConflict):
		RespondError(c, http.StatusConflict, KindIdempotencyConflict, ErrIdempotencyConflict.Error())
	case errors.Is(err, ErrUpstreamUnavailable):
		RespondError(c, http.StatusServiceUnavailable, KindUpstreamUnavailable, ErrUpstreamUnavailable.Error())
	case errors.Is(err, ErrCoachDisabled):
		RespondError(c, http.StatusServiceUnavailable, KindCoachDisabled, "")
	default:
		traceID := c.GetString("trace_id")
		zap.L().Error("internal error",
			zap.String("trace_id", traceID),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   KindInternal,
			TraceID: traceID,
		})
	}
}

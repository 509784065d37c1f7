package api

import (
	"github.com/gin-gonic/gin"
	"glucoach/internal/api/controllers"
	"glucoach/internal/config"
	"glucoach/pkg/middleware"
	"glucoach/pkg/utils"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type RouterParams struct {
	fx.In

	Config            *config.Config
	Log               *zap.Logger
	Tokens            *utils.TokenIssuer
	RateLimiter       *middleware.RateLimiter
	AccountController *controllers.AccountController
	ProfileController *controllers.ProfileController
	CoachController   *controllers.CoachController
	HealthController  *controllers.HealthController
}

func NewRouter(p RouterParams) *gin.Engine {
	r := gin.New()
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(p.Log))
	r.Use(middleware.Recovery(p.Log))
	r.Use(middleware.CORSMiddleware(p.Config.Server.AllowedOrigins))

	RegisterRoutes(r, p)
	return r
}

func RegisterRoutes(r *gin.Engine, p RouterParams) {
	auth := middleware.JWTAuthMiddleware(p.Tokens)
	limit := middleware.RateLimitMiddleware(p.RateLimiter)

	r.GET("/health", p.HealthController.Health)

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", p.AccountController.Register)
	authGroup.POST("/login", p.AccountController.Login)

	apiGroup.GET("/users/me", auth, p.AccountController.Me)

	profileGroup := apiGroup.Group("/profile", auth)
	profileGroup.GET("", p.ProfileController.GetProfile)
	profileGroup.PUT("", p.ProfileController.UpsertProfile)

	coachGroup := apiGroup.Group("/coach")
	coachGroup.GET("/feature-flags", p.CoachController.FeatureFlags)

	gated := coachGroup.Group("", middleware.CoachEnabled(p.Config.Coach.Enabled), auth, limit)
	gated.POST("/accept-disclaimer", p.CoachController.AcceptDisclaimer)
	gated.GET("/disclaimer-status/:user_id", p.CoachController.DisclaimerStatus)
	gated.GET("/consultation-limit/:user_id", p.CoachController.ConsultationLimit)
	gated.POST("/sessions", p.CoachController.CreateSession)
	gated.GET("/sessions/:user_id", p.CoachController.ListSessions)
	gated.POST("/message", p.CoachController.SendMessage)
	gated.GET("/messages/:session_id", p.CoachController.ListMessages)
	gated.GET("/search/:user_id", p.CoachController.Search)
	gated.GET("/export/:session_id", p.CoachController.ExportTranscript)
}

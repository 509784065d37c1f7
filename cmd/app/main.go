package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"glucoach/cmd/fx/account_fx"
	"glucoach/cmd/fx/coach_fx"
	"glucoach/cmd/fx/config_fx"
	"glucoach/cmd/fx/controllers_fx"
	"glucoach/cmd/fx/core_fx"
	"glucoach/cmd/fx/db_fx"
	"glucoach/cmd/fx/llm_fx"
	"glucoach/cmd/fx/memcache_fx"
	"glucoach/cmd/fx/profile_fx"
	"glucoach/internal/api"
	"glucoach/internal/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config_fx.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		core_fx.Module,
		db_fx.Module,
		memcache_fx.Module,
		llm_fx.Module,
		account_fx.Module,
		profile_fx.Module,
		coach_fx.Module,
		controllers_fx.Module,

		fx.Provide(api.NewRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("starting HTTP server", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("failed to start server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}

package controllers_fx

import (
	"glucoach/internal/api/controllers"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(controllers.NewAccountController),
	fx.Provide(controllers.NewProfileController),
	fx.Provide(controllers.NewCoachController),
	fx.Provide(controllers.NewHealthController))

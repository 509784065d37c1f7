package profile_fx

import (
	"glucoach/internal/repositories"
	"glucoach/internal/services"
	"glucoach/pkg/utils"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Provide(
	provideProfileService, provideProfileRepo)

func provideProfileRepo(db *gorm.DB) repositories.ProfileRepository {
	return repositories.NewProfileRepository(db)
}

func provideProfileService(profileRepo repositories.ProfileRepository, clock utils.Clock) services.ProfileServiceInterface {
	return services.NewProfileService(profileRepo, clock)
}

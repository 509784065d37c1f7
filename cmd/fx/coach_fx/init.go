package coach_fx

import (
	"glucoach/internal/config"
	"glucoach/internal/repositories"
	"glucoach/internal/services"
	mem "glucoach/pkg/memcache"
	"glucoach/pkg/utils"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(
		repositories.NewConsentRepository,
		repositories.NewCounterRepository,
		repositories.NewSessionRepository,
		repositories.NewMessageRepository,
	),
	fx.Provide(
		provideConsentService,
		provideQuotaService,
		provideSessionService,
		provideSearchService,
		provideExportService,
		provideIdempotencyService,
		provideCoachService,
	),
)

func provideConsentService(repo repositories.ConsentRepository, cfg *config.Config, clock utils.Clock) services.ConsentServiceInterface {
	return services.NewConsentService(repo, cfg.Security.HMACSecret, clock)
}

func provideQuotaService(repo repositories.CounterRepository, cfg *config.Config, clock utils.Clock) services.QuotaServiceInterface {
	return services.NewQuotaService(repo, clock, cfg.Coach.StandardLimit, cfg.Coach.PremiumLimit)
}

func provideSessionService(
	sessionRepo repositories.SessionRepository,
	messageRepo repositories.MessageRepository,
	clock utils.Clock,
	seq utils.SequenceGenerator,
) services.SessionServiceInterface {
	return services.NewSessionService(sessionRepo, messageRepo, clock, seq)
}

func provideSearchService(sessionRepo repositories.SessionRepository, messageRepo repositories.MessageRepository) services.SearchServiceInterface {
	return services.NewSearchService(sessionRepo, messageRepo)
}

func provideExportService(sessionService services.SessionServiceInterface) services.ExportServiceInterface {
	return services.NewExportService(sessionService)
}

func provideIdempotencyService(store mem.IdempotencyStore, log *zap.Logger) services.IdempotencyServiceInterface {
	return services.NewIdempotencyService(store, log)
}

func provideCoachService(
	accountRepo repositories.AccountRepository,
	consentService services.ConsentServiceInterface,
	quotaService services.QuotaServiceInterface,
	sessionService services.SessionServiceInterface,
	profileService services.ProfileServiceInterface,
	searchService services.SearchServiceInterface,
	gateway utils.LLMGateway,
	clock utils.Clock,
	cfg *config.Config,
	log *zap.Logger,
) services.CoachServiceInterface {
	return services.NewCoachService(
		accountRepo, consentService, quotaService, sessionService, profileService, searchService,
		gateway, clock, cfg.Coach, cfg.LLM, log.Named("coach"),
	)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/tenantcore/internal/api"
	"github.com/flexprice/tenantcore/internal/api/cron"
	v1 "github.com/flexprice/tenantcore/internal/api/v1"
	"github.com/flexprice/tenantcore/internal/auth"
	"github.com/flexprice/tenantcore/internal/cache"
	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/domain/alert"
	"github.com/flexprice/tenantcore/internal/domain/directory"
	"github.com/flexprice/tenantcore/internal/domain/plan"
	"github.com/flexprice/tenantcore/internal/domain/provisioning"
	"github.com/flexprice/tenantcore/internal/domain/subscription"
	"github.com/flexprice/tenantcore/internal/domain/tenant"
	"github.com/flexprice/tenantcore/internal/domain/usage"
	"github.com/flexprice/tenantcore/internal/email"
	"github.com/flexprice/tenantcore/internal/export"
	"github.com/flexprice/tenantcore/internal/integration"
	"github.com/flexprice/tenantcore/internal/integration/generic"
	"github.com/flexprice/tenantcore/internal/integration/stripe"
	"github.com/flexprice/tenantcore/internal/isolation"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/metrics"
	"github.com/flexprice/tenantcore/internal/postgres"
	"github.com/flexprice/tenantcore/internal/pubsub"
	"github.com/flexprice/tenantcore/internal/pubsub/kafka"
	"github.com/flexprice/tenantcore/internal/pubsub/memory"
	pubsubRouter "github.com/flexprice/tenantcore/internal/pubsub/router"
	"github.com/flexprice/tenantcore/internal/ratelimit"
	"github.com/flexprice/tenantcore/internal/redis"
	"github.com/flexprice/tenantcore/internal/repository/pgsql"
	"github.com/flexprice/tenantcore/internal/sentry"
	"github.com/flexprice/tenantcore/internal/service"
	"github.com/flexprice/tenantcore/internal/tenancy"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/flexprice/tenantcore/internal/webhook"
	"github.com/flexprice/tenantcore/internal/webhook/payload"
	"github.com/flexprice/tenantcore/internal/worker"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

const notifierConsumerGroup = "tenantcore-notifier"

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			provideLogger,
			metrics.NewMetrics,
			auth.NewProvider,
			provideDB,
			provideCache,
			provideRateLimiter,
			provideEventBus,
			provideExportSink,
			provideWebhookAdapters,
			provideEmail,
			isolation.DefaultAllowList,
			tenancy.NewResolver,
		),

		// repositories
		fx.Provide(
			pgsql.NewTenantRepository,
			pgsql.NewSubscriptionRepository,
			pgsql.NewPlanRepository,
			pgsql.NewLifecycleEventRepository,
			pgsql.NewWebhookEventRepository,
			pgsql.NewAdminAuditRepository,
			pgsql.NewUsageRepository,
			pgsql.NewProvisioningRepository,
			pgsql.NewAlertRepository,
			provideDirectoryStores,
		),

		fx.Provide(
			webhook.NewPublisher,
			provideNotifier,
		),

		// services
		fx.Provide(
			service.NewTenantService,
			service.NewLifecycleService,
			service.NewProvisioningService,
			service.NewBillingWebhookService,
			service.NewPlanService,
			service.NewDirectoryService,
			service.NewAuditService,
			service.NewExportService,
			service.NewUsageService,
			service.NewMonitorService,
			service.NewAlertService,
		),

		fx.Provide(
			provideHandlers,
			provideRouter,
		),

		fx.Invoke(
			sentry.Register,
			startEventBus,
			startWorkers,
			startServer,
		),
	)

	app.Run()
}

func provideLogger(lc fx.Lifecycle, cfg *config.Configuration) (*logger.Logger, error) {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return log.Close()
		},
	})
	return log, nil
}

func provideDB(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (postgres.IClient, isolation.Transactor, error) {
	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(db, log); err != nil {
			return nil, nil, err
		}
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})

	client := postgres.NewClient(db, log)
	return client, client, nil
}

type redisResult struct {
	fx.Out

	Cache   cache.Cache
	Counter ratelimit.Counter
}

// provideCache picks the plan cache and the rate counter backend. Both use
// redis when configured so every replica shares them.
func provideCache(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (redisResult, error) {
	useRedis := cfg.RateLimit.Backend == "redis" || (cfg.Cache.Enabled && cfg.Cache.Type == "redis")
	if !useRedis {
		return redisResult{Cache: cache.NewInMemoryCache(), Counter: ratelimit.NewMemoryCounter()}, nil
	}

	client, err := redis.NewClient(cfg, log)
	if err != nil {
		return redisResult{}, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	out := redisResult{Cache: cache.Initialize(cfg, log, client), Counter: ratelimit.NewMemoryCounter()}
	if cfg.RateLimit.Backend == "redis" {
		out.Counter = ratelimit.NewRedisCounter(client)
	}
	return out, nil
}

func provideRateLimiter(counter ratelimit.Counter) *ratelimit.DailyLimiter {
	return ratelimit.NewDailyLimiter(counter)
}

type eventBusResult struct {
	fx.Out

	PubSub     pubsub.PubSub
	Subscriber message.Subscriber
}

func provideEventBus(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (eventBusResult, error) {
	var ps pubsub.PubSub
	switch cfg.Events.Publisher {
	case "kafka":
		k, err := kafka.NewPubSubFromConfig(cfg, log, notifierConsumerGroup)
		if err != nil {
			return eventBusResult{}, err
		}
		ps = k
	default:
		ps = memory.NewPubSub(log)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ps.Close()
		},
	})
	return eventBusResult{PubSub: ps, Subscriber: ps}, nil
}

func provideExportSink(cfg *config.Configuration, log *logger.Logger) (export.Sink, error) {
	return export.NewSink(context.Background(), cfg, log)
}

func provideWebhookAdapters(cfg *config.Configuration, log *logger.Logger) *integration.Registry {
	return integration.NewRegistry(
		stripe.NewAdapter(integration.WebhookSecret(cfg, types.BillingProviderStripe, log)),
		generic.NewAdapter(types.BillingProviderInternal, integration.WebhookSecret(cfg, types.BillingProviderInternal, log)),
	)
}

func provideEmail(cfg *config.Configuration, log *logger.Logger) *email.Email {
	return email.NewEmail(email.NewEmailClient(cfg), log)
}

type directoryStores struct {
	fx.Out

	Directory service.Directory
	Purgers   service.Purgers
}

// provideDirectoryStores builds the gated directory collaborators and the
// purgers hard delete walks through, children before parents
func provideDirectoryStores(
	client postgres.IClient,
	tx isolation.Transactor,
	log *logger.Logger,
	subscriptions subscription.Repository,
	usageRepo usage.Repository,
	alerts alert.Repository,
	runs provisioning.Repository,
) directoryStores {
	roles := pgsql.NewEntityStore(client, log, types.TableNameRoles,
		func() *directory.Role { return &directory.Role{} })
	modules := pgsql.NewEntityStore(client, log, types.TableNameModules,
		func() *directory.Module { return &directory.Module{} })
	departments := pgsql.NewEntityStore(client, log, types.TableNameDepartments,
		func() *directory.Department { return &directory.Department{} })
	positions := pgsql.NewEntityStore(client, log, types.TableNamePositions,
		func() *directory.Position { return &directory.Position{} })
	rolePermissions := pgsql.NewEntityStore(client, log, types.TableNameRolePermissions,
		func() *directory.RolePermission { return &directory.RolePermission{} })
	users := pgsql.NewEntityStore(client, log, types.TableNameUsers,
		func() *directory.User { return &directory.User{} })

	return directoryStores{
		Directory: service.NewDirectory(tx, log, roles, modules, departments, positions, rolePermissions, users),
		Purgers: service.Purgers{
			types.TableNameRolePermissions:  rolePermissions,
			types.TableNameUsers:            users,
			types.TableNamePositions:        positions,
			types.TableNameDepartments:      departments,
			types.TableNameModules:          modules,
			types.TableNameRoles:            roles,
			types.TableNameAlerts:           alerts,
			types.TableNameUsageMetrics:     usageRepo,
			types.TableNameProvisioningRuns: runs,
			types.TableNameSubscriptions:    subscriptions,
		},
	}
}

func provideNotifier(
	tenants tenant.Repository,
	plans plan.Repository,
	mail *email.Email,
	cfg *config.Configuration,
	log *logger.Logger,
) *webhook.Notifier {
	factory := payload.NewFactory(&payload.Services{TenantRepo: tenants, PlanRepo: plans})
	return webhook.NewNotifier(factory, mail, cfg, log)
}

func provideHandlers(
	tenantService service.TenantService,
	lifecycleService service.LifecycleService,
	provisioningService service.ProvisioningService,
	billingWebhookService service.BillingWebhookService,
	planService service.PlanService,
	directoryService service.DirectoryService,
	auditService service.AuditService,
	exportService service.ExportService,
	usageService service.UsageService,
	monitorService service.MonitorService,
	alertService service.AlertService,
	log *logger.Logger,
) api.Handlers {
	return api.Handlers{
		Tenant:    v1.NewTenantHandler(tenantService, lifecycleService, provisioningService, exportService, log),
		Directory: v1.NewDirectoryHandler(directoryService, log),
		Usage:     v1.NewUsageHandler(usageService, alertService, exportService, log),
		Plan:      v1.NewPlanHandler(planService, log),
		Webhook:   v1.NewWebhookHandler(billingWebhookService, log),
		Audit:     v1.NewAuditHandler(auditService, log),
		Cron:      cron.NewLifecycleCronHandler(monitorService, provisioningService, log),
	}
}

type routerParams struct {
	fx.In

	Handlers     api.Handlers
	Config       *config.Configuration
	Logger       *logger.Logger
	Metrics      *metrics.Metrics
	Resolver     *tenancy.Resolver
	AllowList    *isolation.AllowList
	Limiter      *ratelimit.DailyLimiter
	TenantRepo   tenant.Repository
	PlanService  service.PlanService
	UsageService service.UsageService
	AuditService service.AuditService
}

func provideRouter(p routerParams) *gin.Engine {
	return api.NewRouter(p.Handlers, api.RouterParams{
		Config:       p.Config,
		Logger:       p.Logger,
		Metrics:      p.Metrics,
		Resolver:     p.Resolver,
		AllowList:    p.AllowList,
		Limiter:      p.Limiter,
		TenantRepo:   p.TenantRepo,
		PlanService:  p.PlanService,
		UsageService: p.UsageService,
		AuditService: p.AuditService,
	})
}

func startEventBus(lc fx.Lifecycle, notifier *webhook.Notifier, subscriber message.Subscriber, log *logger.Logger) error {
	router, err := pubsubRouter.NewRouter(log)
	if err != nil {
		return err
	}
	notifier.Register(router, subscriber)

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := router.Run(ctx); err != nil {
					log.Errorw("event router stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return router.Close()
		},
	})
	return nil
}

func startWorkers(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	provisioningService service.ProvisioningService,
	monitorService service.MonitorService,
	log *logger.Logger,
) {
	var workers []*worker.Ticker
	if cfg.Provisioning.WorkerEnabled {
		workers = append(workers, worker.NewProvisioningWorker(cfg, provisioningService, log))
	}
	if cfg.Lifecycle.MonitorEnabled {
		workers = append(workers, worker.NewMonitorWorker(cfg, monitorService, log))
	}

	for _, w := range workers {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				w.Start(ctx)
				return nil
			},
			OnStop: w.Stop,
		})
	}
}

func startServer(lc fx.Lifecycle, cfg *config.Configuration, router *gin.Engine, log *logger.Logger) {
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Infow("starting http server", "address", cfg.Server.Address)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("http server failed: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down http server")
			return server.Shutdown(ctx)
		},
	})
}

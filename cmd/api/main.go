package main

import (
	"context"
	"fmt"
	common_api "go-outreach/internal/common/api"
	"go-outreach/internal/config"
	"go-outreach/internal/database"
	"go-outreach/internal/features/account"
	"go-outreach/internal/features/audit"
	"go-outreach/internal/features/automation"
	cron_feature "go-outreach/internal/features/cron"
	"go-outreach/internal/features/engine"
	"go-outreach/internal/features/execution_log"
	"go-outreach/internal/features/prospect"
	"go-outreach/internal/features/system"
	"go-outreach/internal/logger"
	"go-outreach/internal/middleware"
	"go-outreach/pkg/utils"
	"log"
	"time"
	_ "time/tzdata"

	_ "go-outreach/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute tags the constructor so Fx adds it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes calls Setup() on every member of the "routes" group.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for i, route := range routes {
		log.Printf("Setting up route %d: %T\n", i+1, route)
		route.Setup(app)
	}
	log.Println("All routes registered successfully")
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer starts Fiber in a goroutine and shuts it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	utils.SetSecret(cfg.JWTSecret)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(lc fx.Lifecycle, logRepo execution_log.ExecutionLogRepository, prospectRepo *prospect.ProspectRepositoryImpl) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				// The partial unique index on SUCCESS entries backs at-most-once
				// delivery per (rule, target); keep it before the first sweep.
				if err := logRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure execution log indexes: %v", err)
				}
				if err := prospectRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure prospect indexes: %v", err)
				}
			}()
			return nil
		},
	})
}

// NewCandidateStore picks the prospect source named by PROSPECT_SOURCE.
func NewCandidateStore(lc fx.Lifecycle, cfg *config.Config, mongoRepo *prospect.ProspectRepositoryImpl, logger *zap.Logger) (engine.CandidateStore, error) {
	switch cfg.ProspectSource {
	case "", "mongo":
		return mongoRepo, nil
	case "postgres", "postgresql", "mysql":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		repo, err := prospect.NewSQLProspectRepository(ctx, cfg.ProspectSource, cfg.ProspectSQLDSN)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return repo.Close()
			},
		})
		logger.Info("Reading prospects from SQL", zap.String("driver", cfg.ProspectSource))
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown PROSPECT_SOURCE %q", cfg.ProspectSource)
	}
}

// NewBackend sends actions to ACTION_BACKEND_URL, or simulates them when unset.
func NewBackend(cfg *config.Config, logger *zap.Logger) engine.Backend {
	if cfg.ActionBackendURL == "" {
		logger.Warn("ACTION_BACKEND_URL not set, actions are simulated")
		return engine.NewSimulatedBackend()
	}
	return engine.NewHTTPBackend(cfg.ActionBackendURL, cfg.ActionBackendToken)
}

// NewDrafter uses OpenAI when a key is configured and plain templates otherwise.
func NewDrafter(cfg *config.Config, logger *zap.Logger) engine.Drafter {
	if cfg.OpenAIAPIKey == "" {
		return engine.TemplateDrafter{}
	}
	return engine.NewOpenAIDrafter(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
}

// @title           Outreach Automation API
// @version         1.0
// @description     Rule execution engine for LinkedIn outreach automation.

// @host            localhost:8000
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			logger.NewLogger,
			NewFiberServer,

			// Repositories
			audit.NewAuditRepository,
			automation.NewAutomationRepository,
			account.NewAccountRepository,
			prospect.NewProspectRepository,
			execution_log.NewExecutionLogRepository,
			cron_feature.NewSweepRepository,
			engine.NewMongoMarkerStore,

			// Services
			execution_log.NewFeed,
			audit.NewAuditService,
			execution_log.NewExecutionLogService,
			automation.NewAutomationService,
			cron_feature.NewSweepService,

			// Engine
			NewCandidateStore,
			NewBackend,
			NewDrafter,
			engine.NewRealClock,
			func() engine.Jitter { return engine.NewJitter(time.Now().UnixNano()) },
			func(cfg *config.Config) *engine.AccountThrottle {
				return engine.NewAccountThrottle(cfg.AccountActionsPerMinute)
			},
			engine.NewTargetResolver,
			engine.NewBudgetTracker,
			engine.NewTriggerScheduler,
			engine.NewActionExecutor,
			engine.NewCoordinator,

			// Interface adapters
			func(s execution_log.ExecutionLogService) engine.ActedLookup { return s },
			func(s execution_log.ExecutionLogService) engine.SuccessCounter { return s },
			func(s execution_log.ExecutionLogService) engine.LogStore { return s },
			func(r automation.AutomationRepository) engine.RuleStore { return r },
			func(r automation.AutomationRepository) engine.StatusWriter { return r },
			func(r automation.AutomationRepository) cron_feature.RuleLister { return r },
			func(r account.AccountRepository) engine.AccountStore { return r },
			func(s *engine.MongoMarkerStore) engine.MarkerStore { return s },
			func(c *engine.Coordinator) automation.RunGuard { return c },
			func(c *engine.Coordinator) cron_feature.PassRunner { return c },
			func() automation.ScriptChecker { return engine.CheckFilterScript },
			func(db *database.MongodbDB) system.Pinger { return db },
			func(f *execution_log.Feed) system.SubscriberCounter { return f },

			// Controllers
			audit.NewAuditController,
			automation.NewAutomationController,
			execution_log.NewExecutionLogController,
			engine.NewEngineController,
			cron_feature.NewSweepController,
			system.NewSystemController,

			// API Routes
			AsRoute(audit.NewAuditApi),
			AsRoute(automation.NewAutomationApi),
			AsRoute(execution_log.NewExecutionLogApi),
			AsRoute(engine.NewEngineApi),
			AsRoute(cron_feature.NewSweepApi),
			AsRoute(system.NewSystemApi),
			AsRoute(system.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			RegisterAllRoutesWithAnnotation,
			StartServer,
			InitializeIndexes,
			func(lc fx.Lifecycle, sweepService cron_feature.SweepService) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return sweepService.InitializeScheduler(ctx)
					},
					OnStop: func(ctx context.Context) error {
						return sweepService.StopScheduler()
					},
				})
			},
		),
	)

	app.Run()
}

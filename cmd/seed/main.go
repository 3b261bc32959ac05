package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go-outreach/internal/config"
	"go-outreach/internal/database"
	"go-outreach/internal/features/account"
	"go-outreach/internal/features/audit"
	"go-outreach/internal/features/automation"
	"go-outreach/internal/features/engine"
	"go-outreach/internal/features/execution_log"
	"go-outreach/internal/features/prospect"
	"go-outreach/internal/logger"
	"go-outreach/pkg/utils"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type seedFile struct {
	UserID    string                    `json:"user_id"`
	Accounts  []account.LinkedInAccount `json:"accounts"`
	Prospects []prospect.Prospect       `json:"prospects"`
	Rules     []struct {
		Account string `json:"account"`
		automation.AutomationRule
	} `json:"rules"`
}

// idleGuard reports no running passes; the seeder never executes rules.
type idleGuard struct{}

func (idleGuard) IsRunning(ctx context.Context, ruleID string) (bool, error) { return false, nil }

// Seed loads demo accounts, prospects and rules for one user.
func Seed(
	lc fx.Lifecycle,
	accountRepo account.AccountRepository,
	prospectRepo *prospect.ProspectRepositoryImpl,
	logRepo execution_log.ExecutionLogRepository,
	rules automation.AutomationService,
	cfg *config.Config,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()

				path := "cmd/seed/data/demo.json"
				if len(os.Args) > 1 {
					path = os.Args[1]
				}

				logger.Info("🌱 Seeding outreach demo data", zap.String("file", path))
				data, err := readSeed(path)
				if err != nil {
					logger.Error("Failed to read seed file", zap.Error(err))
					return
				}

				if err := logRepo.EnsureIndexes(ctx); err != nil {
					logger.Error("Failed to ensure execution log indexes", zap.Error(err))
				}
				if err := prospectRepo.EnsureIndexes(ctx); err != nil {
					logger.Error("Failed to ensure prospect indexes", zap.Error(err))
				}

				accountIDs := seedAccounts(ctx, accountRepo, data, logger)
				seedProspects(ctx, prospectRepo, data, logger)
				seedRules(ctx, rules, data, accountIDs, logger)

				token, err := devToken(cfg.JWTSecret, data.UserID)
				if err != nil {
					logger.Error("Failed to mint dev token", zap.Error(err))
				} else {
					logger.Info("🔑 Dev bearer token", zap.String("user_id", data.UserID), zap.String("token", token))
				}

				logger.Info("✅ Seeding finished")
			}()
			return nil
		},
	})
}

func readSeed(path string) (*seedFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data seedFile
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if data.UserID == "" {
		data.UserID = "dev-user-id"
	}
	return &data, nil
}

// devToken signs a week-long bearer token for the seeded user, so the API can
// be exercised with auth enabled.
func devToken(secret, userID string) (string, error) {
	utils.SetSecret(secret)
	return utils.GenerateToken(userID, []string{"admin"}, 7*24*time.Hour)
}

// seedAccounts returns account ids keyed by name. Existing accounts are reused.
func seedAccounts(ctx context.Context, repo account.AccountRepository, data *seedFile, logger *zap.Logger) map[string]string {
	ids := map[string]string{}

	existing, err := repo.ListByUser(ctx, data.UserID)
	if err != nil {
		logger.Error("Failed to list accounts", zap.Error(err))
		return ids
	}
	for _, a := range existing {
		ids[a.Name] = a.ID.Hex()
	}

	for _, a := range data.Accounts {
		if _, ok := ids[a.Name]; ok {
			logger.Info("Account exists, skipping", zap.String("account", a.Name))
			continue
		}
		a.UserID = data.UserID
		if err := repo.Create(ctx, &a); err != nil {
			logger.Error("Failed to create account", zap.String("account", a.Name), zap.Error(err))
			continue
		}
		ids[a.Name] = a.ID.Hex()
		logger.Info("Account created", zap.String("account", a.Name), zap.String("timezone", a.Timezone))
	}
	return ids
}

func seedProspects(ctx context.Context, repo *prospect.ProspectRepositoryImpl, data *seedFile, logger *zap.Logger) {
	base := time.Now().Add(-time.Duration(len(data.Prospects)) * time.Minute)
	created := 0
	for i, p := range data.Prospects {
		p.UserID = data.UserID
		if p.CreatedAt.IsZero() {
			p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		}
		if err := repo.Create(ctx, &p); err != nil {
			logger.Warn("Failed to create prospect", zap.String("prospect", p.DisplayName()), zap.Error(err))
			continue
		}
		created++
	}
	logger.Info("Prospects seeded", zap.Int("count", created), zap.Int("total", len(data.Prospects)))
}

func seedRules(ctx context.Context, svc automation.AutomationService, data *seedFile, accountIDs map[string]string, logger *zap.Logger) {
	existing, err := svc.ListRules(ctx, data.UserID)
	if err != nil {
		logger.Error("Failed to list rules", zap.Error(err))
		return
	}
	names := map[string]bool{}
	for _, r := range existing {
		names[r.Name] = true
	}

	for _, item := range data.Rules {
		rule := item.AutomationRule
		if names[rule.Name] {
			logger.Info("Rule exists, skipping", zap.String("rule", rule.Name))
			continue
		}
		rule.UserID = data.UserID
		if item.Account != "" {
			id, ok := accountIDs[item.Account]
			if !ok {
				logger.Warn("Unknown account for rule", zap.String("rule", rule.Name), zap.String("account", item.Account))
				continue
			}
			rule.AccountID = id
		}
		if err := svc.CreateRule(ctx, &rule); err != nil {
			logger.Error("Failed to create rule", zap.String("rule", rule.Name), zap.Error(err))
			continue
		}
		logger.Info("Rule created", zap.String("rule", rule.Name), zap.String("status", string(rule.Status)))
	}
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			logger.NewLogger,
			audit.NewAuditRepository,
			audit.NewAuditService,
			account.NewAccountRepository,
			prospect.NewProspectRepository,
			execution_log.NewExecutionLogRepository,
			automation.NewAutomationRepository,
			automation.NewAutomationService,
			func() automation.ScriptChecker { return engine.CheckFilterScript },
			func() automation.RunGuard { return idleGuard{} },
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}

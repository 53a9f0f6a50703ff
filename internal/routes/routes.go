package routes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/estate-link/estate_link/internal/auth"
	"github.com/estate-link/estate_link/internal/config"
	"github.com/estate-link/estate_link/internal/identity"
	"github.com/estate-link/estate_link/internal/middleware"
	"github.com/estate-link/estate_link/internal/notification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Notifier receives OTPs and reset tokens. Defaults to the logger.
	Notifier notification.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var identityRepo identity.Repository
	if d.DB != nil {
		repo := identity.NewPostgresRepository(d.DB)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			return err
		}
		identityRepo = repo
	} else {
		identityRepo = identity.NewMemoryRepository()
	}

	var codes auth.CodeStore
	if d.Cache != nil {
		codes = auth.NewRedisCodeStore(d.Cache)
	} else {
		codes = auth.NewMemoryCodeStore()
	}

	notifier := d.Notifier
	if notifier == nil {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}

	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identitySvc, codes, notifier, d.Logger)

	bearer := middleware.Bearer(authSvc)
	RegisterAuthRoutes(app, auth.NewHandler(authSvc), bearer, d.Cache, d.Cfg.LoginRateLimit)
	RegisterProfileRoutes(app, identity.NewHandler(identitySvc), bearer)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "", "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/bankaccount/internal/accounts"
	"github.com/congo-pay/bankaccount/internal/config"
	"github.com/congo-pay/bankaccount/internal/journal"
	"github.com/congo-pay/bankaccount/internal/metrics"
	"github.com/congo-pay/bankaccount/internal/middleware"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Registry *prometheus.Registry
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	recorder, err := metrics.NewRecorder(d.Registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	sink, err := buildJournal(d)
	if err != nil {
		return err
	}

	repo := accounts.NewMemoryRepository()
	accountSvc := accounts.NewService(repo, d.Logger,
		accounts.WithJournal(sink),
		accounts.WithMetrics(recorder),
	)
	accountHandler := accounts.NewHandler(accountSvc)

	// Health and metrics
	RegisterHealthRoutes(app, d, repo)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.GetRequestID(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	rateLimiter := middleware.AccountRateLimit(d.Cache, d.Cfg.MutationRateLimit, d.Logger)
	RegisterAccountRoutes(api, accountHandler, rateLimiter)

	return nil
}

func buildJournal(d Deps) (journal.Journal, error) {
	sinks := []journal.Journal{journal.NewLoggerJournal(d.Logger)}
	if d.DB != nil {
		pg := journal.NewPostgresJournal(d.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		sinks = append(sinks, pg)
	}
	if d.Cache != nil {
		sinks = append(sinks, journal.NewRedisJournal(d.Cache, journal.DefaultStream, 100_000))
	}
	return journal.Multi(sinks...), nil
}

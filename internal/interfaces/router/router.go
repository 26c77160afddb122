package router

import (
	"context"
	"errors"
	"time"

	"fundgate-backend/internal/application/approval"
	"fundgate-backend/internal/application/audit"
	kycsvc "fundgate-backend/internal/application/kyc"
	"fundgate-backend/internal/application/risk"
	settlementsvc "fundgate-backend/internal/application/settlement"
	txsvc "fundgate-backend/internal/application/transactions"
	"fundgate-backend/internal/config"
	"fundgate-backend/internal/infrastructure/database"
	healthhandler "fundgate-backend/internal/interfaces/handlers/health"
	invhandler "fundgate-backend/internal/interfaces/handlers/investors"
	kychandler "fundgate-backend/internal/interfaces/handlers/kyc"
	settlehandler "fundgate-backend/internal/interfaces/handlers/settlement"
	txhandler "fundgate-backend/internal/interfaces/handlers/transactions"
	"fundgate-backend/internal/middleware"
	"fundgate-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Resources are the long-lived connections behind the app.
type Resources struct {
	DB    *gorm.DB
	Rdb   *redis.Client
	Audit *audit.Dispatcher
	kafka *audit.KafkaSink
}

// Close drains the audit queue and releases connections.
func (r *Resources) Close(ctx context.Context) error {
	var errs []error
	if r.Audit != nil {
		errs = append(errs, r.Audit.Close(ctx))
	}
	if r.kafka != nil {
		errs = append(errs, r.kafka.Close())
	}
	if r.Rdb != nil {
		errs = append(errs, r.Rdb.Close())
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

// CreateApp opens the database and Redis from cfg and builds the app.
func CreateApp(cfg *config.Config) (*fiber.App, *Resources, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, errors.New("database url is not configured")
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	res := &Resources{DB: db, Rdb: redis.NewClient(opt)}

	sinks := audit.MultiSink{&audit.GormStore{DB: db}}
	if cfg.Audit.RedisStream != "" {
		sinks = append(sinks, &audit.RedisStream{Client: res.Rdb, Stream: cfg.Audit.RedisStream, MaxLen: 100_000})
	}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		ks, err := audit.NewKafkaSink(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		res.kafka = ks
		sinks = append(sinks, ks)
	}
	res.Audit = audit.NewDispatcher(sinks, &audit.LogReporter{Rdb: res.Rdb, Source: "audit"}, audit.DispatcherOptions{
		QueueSize:  cfg.Audit.QueueSize,
		Workers:    cfg.Audit.Workers,
		MaxRetries: cfg.Audit.MaxRetries,
	})
	log.Info().Int("sinks", len(sinks)).Msg("audit pipeline ready")

	return NewApp(cfg, res), res, nil
}

// NewApp registers middleware and routes over already opened resources.
func NewApp(cfg *config.Config, res *Resources) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var sink audit.Sink = &audit.GormStore{DB: res.DB}
	if res.Audit != nil {
		sink = res.Audit
	}
	reporter := &audit.LogReporter{Rdb: res.Rdb, Source: "api"}

	// Signed by the provider; no session.
	kh := &kychandler.WebhookHandler{
		Service:       &kycsvc.Service{DB: res.DB, Audit: sink, Reporter: reporter},
		WebhookSecret: cfg.KycWebhookSecret,
	}
	app.Post("/api/v1/kyc/webhook", kh.HandleWebhook)

	app.Use(middleware.Session(res.Rdb, cfg.SessionSecret))
	app.Use(middleware.HealthMarker(res.Rdb))

	hh := &healthhandler.Handlers{
		Rdb:            res.Rdb,
		DB:             &gormDBPinger{db: res.DB},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	if res.Audit != nil {
		hh.AuditQueue = res.Audit
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	now := func() time.Time { return time.Now().UTC() }

	// Investors
	as := &approval.Service{DB: res.DB, Audit: sink, Reporter: reporter, Now: now}
	ih := &invhandler.Handlers{Service: as}
	ig := app.Group("/api/v1/investors", middleware.RequireAuth())
	ig.Post("/bulk-approve", middleware.AuthorizePermission(constants.ManageInvestors), ih.BulkApprove)
	ig.Post("/:id/transition", middleware.AuthorizePermission(constants.ManageInvestors), ih.Transition)
	ig.Post("/:id/confirm-funded", middleware.AuthorizePermission(constants.ConfirmWires), ih.ConfirmFunded)
	ig.Get("/:id/history", middleware.AuthorizePermission(constants.ViewData), ih.History)

	// Transactions
	ts := &txsvc.Service{
		DB:       res.DB,
		Gate:     &kycsvc.Gate{DB: res.DB},
		Policy:   risk.PolicyFromConfig(cfg.Risk),
		Audit:    sink,
		Reporter: reporter,
		Now:      now,
	}
	th := &txhandler.Handlers{Service: ts}
	ss := &settlementsvc.Service{DB: res.DB, Audit: sink, Reporter: reporter, Now: now}
	sh := &settlehandler.Handlers{Service: ss}
	limit := middleware.RateLimit(res.Rdb, middleware.RateLimitConfig{
		PerMinute: cfg.RateLimit.PerMinute,
		Burst:     cfg.RateLimit.Burst,
	})
	tg := app.Group("/api/v1/transactions", middleware.RequireAuth())
	tg.Post("/", middleware.AuthorizePermission(constants.CreateTransactions), limit, th.Create)
	tg.Get("/", middleware.AuthorizePermission(constants.ViewData), th.List)
	tg.Post("/:id/proof", middleware.AuthorizePermission(constants.UploadProof), sh.UploadProof)
	tg.Post("/:id/confirm-wire", middleware.AuthorizePermission(constants.ConfirmWires), sh.ConfirmWire)

	return app
}

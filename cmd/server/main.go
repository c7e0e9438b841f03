package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/coupon"
	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/invoice"
	"github.com/example/storefront/internal/jobs"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/orders"
	"github.com/example/storefront/internal/reviews"
	"github.com/example/storefront/internal/routes"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/store"
	"github.com/example/storefront/internal/store/memstore"
)

const shutdownTimeout = 10 * time.Second

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, func(), error) {
	if cfg.DBDriver == config.DriverMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL, cfg.DBLogLevel, log)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return store.NewGorm(db), closeDB, nil
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer closeStore()

	var sender auth.CodeSender = services.NewLogSender(log)
	if cfg.PlumEnabled {
		sender = services.NewPlumSender(cfg.Plum(), nil)
	}

	var (
		notifier  orders.Notifier
		documents invoice.DocumentSender
	)
	if cfg.TelegramBotToken != "" && cfg.TelegramAdminChat != "" {
		tg := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, cfg.Currency, "")
		notifier, documents = tg, tg
	} else {
		log.Info("telegram notifications disabled")
	}

	coupons := coupon.NewService(st, log)
	if err := coupons.LoadFilter(ctx); err != nil {
		return errors.Wrap(err, "load coupon filter")
	}
	reviewService := reviews.NewService(st, log)

	app := fiber.New(fiber.Config{
		AppName:      "Storefront Backend",
		ErrorHandler: middleware.ErrorHandler(log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: cfg.CORSOrigins != "*",
	}))

	routes.Register(app, routes.Deps{
		Store:    st,
		Auth:     auth.NewManager(st, sender, cfg.Auth(), log),
		Orders:   orders.NewCoordinator(st, notifier, log),
		Catalog:  catalog.NewService(st, log),
		Coupons:  coupons,
		Carts:    cart.NewService(st),
		Reviews:  reviewService,
		Invoices: invoice.NewService(st, invoice.NewHTMLRenderer(), documents, log),
		Cookies: handlers.CookieConfig{
			Secure:     cfg.CookieSecure,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
		},
		GlobalLimit: 100,
		OTPLimit:    5,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return jobs.NewReviewSweep(reviewService, cfg.ReviewSweepInterval, log).Run(ctx)
	})
	g.Go(func() error {
		log.Info("Starting server", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	return g.Wait()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot, _ := zap.NewProduction()
		boot.Fatal("invalid configuration", zap.Error(err))
	}

	log, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

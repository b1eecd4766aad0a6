package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/court-reservation/internal/booking"
	"github.com/iliyamo/court-reservation/internal/catalog"
	"github.com/iliyamo/court-reservation/internal/config"
	"github.com/iliyamo/court-reservation/internal/database"
	"github.com/iliyamo/court-reservation/internal/handler"
	"github.com/iliyamo/court-reservation/internal/middleware"
	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/queue"
	"github.com/iliyamo/court-reservation/internal/repository"
	"github.com/iliyamo/court-reservation/internal/repository/memstore"
	"github.com/iliyamo/court-reservation/internal/router"
	"github.com/iliyamo/court-reservation/internal/utils"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store init failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Redis is optional: without it caching and rate limiting are disabled.
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logger.Warn("redis unavailable; cache and rate limit disabled", "addr", cfg.Redis.Addr)
	} else {
		defer rdb.Close()
	}
	cache := middleware.NewCache(cfg.Cache, rdb, logger)

	var events booking.Publisher = queue.Discard{}
	if cfg.AMQP.URL != "" {
		pub := queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		defer pub.Close()
		events = pub

		if cfg.Audit.Enabled {
			consumer := &queue.AuditConsumer{
				URL:      cfg.AMQP.URL,
				Exchange: cfg.AMQP.Exchange,
				Queue:    cfg.AMQP.AuditQueue,
				Dir:      cfg.Audit.LogDir,
				Log:      logger.With("component", "audit"),
			}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("audit consumer stopped", "error", err)
				}
			}()
		}
	} else {
		logger.Warn("AMQP_URL not set; domain events are discarded")
	}

	courts := catalog.NewService(store, cache, logger)
	bookings := booking.NewService(store, events, logger)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(requestLogger(logger))
	if cfg.RequestTimeout > 0 {
		e.Use(echomw.ContextTimeout(cfg.RequestTimeout))
	}

	router.RegisterRoutes(e, router.Deps{
		Courts:       handler.NewCourtHandler(courts, logger),
		Reservations: handler.NewReservationHandler(bookings, logger),
		Payments:     handler.NewPaymentHandler(bookings, logger),
		JWTSecret:    cfg.JWT.Secret,
		RateLimit:    middleware.NewTokenBucket(cfg.RateLimit, rdb, logger),
		Cache:        cache.Middleware(),
	})

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// openStore returns the configured storage backend and its cleanup.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.Store, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		st := memstore.New()
		seedDemoActors(st, cfg, logger)
		return st, func() {}, nil
	}

	db, err := database.Open(database.Options{
		User:            cfg.DB.User,
		Password:        cfg.DB.Pass,
		Host:            cfg.DB.Host,
		Port:            cfg.DB.Port,
		Name:            cfg.DB.Name,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return repository.NewSQLStore(db), func() { _ = db.Close() }, nil
}

// seedDemoActors registers one actor per role in the in-memory store and
// logs a token for each, since account issuance lives outside this service.
func seedDemoActors(st *memstore.Store, cfg config.Config, logger *slog.Logger) {
	demo := []model.Actor{
		{Username: "admin", Role: model.RoleAdmin},
		{Username: "worker", Role: model.RoleWorker},
		{Username: "client", Role: model.RoleClient},
		{Username: "vip", Role: model.RoleClient, CanReserveWithoutDeposit: true},
	}
	for _, a := range demo {
		a = st.AddActor(a)
		tok, err := utils.NewAccessToken(cfg.JWT.Secret, a, cfg.JWT.AccessTTL)
		if err != nil {
			logger.Error("demo token failed", "username", a.Username, "error", err)
			continue
		}
		logger.Info("demo actor", "id", a.ID, "username", a.Username, "role", a.Role, "token", tok.Token)
	}
}

func setupLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.IsProduction() {
		// JSON logging for production
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Human-readable logging for development
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(h)
}

// requestLogger bridges echo's request logging into slog.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), level, "http request", attrs...)
			return nil
		},
	})
}

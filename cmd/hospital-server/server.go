package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/GreycodeDev/hospital-management-sub000/internal/config"
	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/admission"
	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/bill"
	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/charge"
	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/directory"
	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/ward"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/auth"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/billno"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/cache"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/db"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/events"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/middleware"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/websocket"
)

const version = "0.1.0"

type routeRegistrar interface {
	RegisterRoutes(api *echo.Group)
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
	}
}

// authMiddleware verifies bearer tokens against the configured issuer or
// shared key. In development, requests without a token run as the admin
// dev-user; tokens that are sent are still verified when a verifier exists.
func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	var verify echo.MiddlewareFunc
	if cfg.AuthIssuer != "" || cfg.AuthSigningKey != "" {
		jwtCfg := auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
			Skipper:  auth.AuthSkipper,
		}
		if cfg.AuthSigningKey != "" {
			jwtCfg.SigningKey = []byte(cfg.AuthSigningKey)
		}
		verify = auth.JWTMiddleware(jwtCfg)
	}
	if cfg.IsDev() {
		return auth.DevAuthMiddleware(verify)
	}
	return verify
}

// newEcho builds the server with the global middleware chain, the public
// health routes and an /api/v1 group. The group is returned so callers can
// add tenant resolution and domain routes.
func newEcho(cfg *config.Config, logger zerolog.Logger) (*echo.Echo, *echo.Group) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
	}))
	if mw := authMiddleware(cfg); mw != nil {
		e.Use(mw)
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	return e, e.Group("/api/v1")
}

// services holds the wired domain layer.
type services struct {
	wards      *ward.Service
	admissions *admission.Service
	charges    *charge.Service
	bills      *bill.Service
}

func newServices(pool *pgxpool.Pool, cfg *config.Config, pub events.Publisher, statsCache cache.Cache, numbers bill.NumberGenerator) *services {
	dir := directory.NewRepo(pool)
	tx := db.NewTxManager(pool)

	wardSvc := ward.NewService(ward.NewRepo(pool))
	wardSvc.SetPublisher(pub)

	admSvc := admission.NewService(admission.NewRepo(pool), wardSvc, dir, tx)
	admSvc.SetPublisher(pub)
	admSvc.SetCache(statsCache, cfg.StatsCacheTTL)

	chargeSvc := charge.NewService(charge.NewRepo(pool), dir, admSvc)
	chargeSvc.SetPublisher(pub)
	chargeSvc.SetCache(statsCache)

	billSvc := bill.NewService(bill.NewRepo(pool), chargeSvc, admSvc, dir, tx, numbers)
	billSvc.SetDueDays(cfg.BillDueDays)
	billSvc.SetPublisher(pub)
	billSvc.SetCache(statsCache, cfg.StatsCacheTTL)

	return &services{wards: wardSvc, admissions: admSvc, charges: chargeSvc, bills: billSvc}
}

func (s *services) handlers() []routeRegistrar {
	return []routeRegistrar{
		ward.NewHandler(s.wards),
		admission.NewHandler(s.admissions),
		charge.NewHandler(s.charges),
		bill.NewHandler(s.bills),
	}
}

func registerRoutes(api *echo.Group, handlers ...routeRegistrar) {
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}
}

// connectRedis returns nil when REDIS_URL is unset or unreachable; the server
// then runs with an uncached single-instance setup.
func connectRedis(ctx context.Context, url string, logger zerolog.Logger) *redis.Client {
	if url == "" {
		return nil
	}
	client, err := cache.NewClient(ctx, url)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable; statistics cache and cross-instance events disabled")
		return nil
	}
	return client
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, poolConfig(cfg))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	numbers, err := billno.New(cfg.BillNumberPrefix, cfg.SnowflakeNode)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create bill number generator")
	}

	// Events reach the local hub directly, or through Redis so that every
	// instance's bed board sees them.
	hub := websocket.NewHub(logger)
	var (
		pub        events.Publisher = hub
		statsCache cache.Cache      = cache.Noop{}
	)
	if client := connectRedis(ctx, cfg.RedisURL, logger); client != nil {
		defer client.Close()
		statsCache = cache.NewRedis(client, "hospital")
		pub = events.NewRedisPublisher(client, events.DefaultChannel)
		go func() {
			if err := events.Relay(ctx, client, events.DefaultChannel, hub, logger); err != nil {
				logger.Error().Err(err).Msg("event relay stopped")
			}
		}()
		logger.Info().Msg("connected to redis")
	}

	svcs := newServices(pool, cfg, pub, statsCache, numbers)

	e, apiV1 := newEcho(cfg, logger)
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1.Use(db.TenantMiddleware(pool, cfg.DefaultTenant))
	apiV1.Use(middleware.Audit(logger))
	registerRoutes(apiV1, append(svcs.handlers(), websocket.NewHandler(hub))...)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"storefront/cfg"
	"storefront/internal/airport"
	"storefront/internal/multidate"
	"storefront/internal/offer"
	"storefront/internal/storefront"
	"storefront/pkg/apiclient"
	"storefront/pkg/cache"
	"storefront/pkg/idgen"
	"storefront/pkg/logger"
	"storefront/pkg/ratelimit"

	_ "storefront/cmd/storefront/docs" // swagger docs

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// @title           Flight Storefront API
// @version         1.0
// @description     Backend for the flight storefront: search, filtering, date strip, pricing and booking per browser session.
// @BasePath        /
// @schemes         http
func main() {
	// ============
	// config
	// ============
	config, errCfg := cfg.Load()
	if errCfg != nil {
		log.Fatal(errCfg)
	}

	// ============
	// logger
	// ============
	zlogger := logger.NewZeroLog(config.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ============
	// Otel
	// ============
	if config.OtelConfig.Endpoint != "" {
		shutdownTelemetry, err := setupTelemetry(ctx, config.OtelConfig, config.AppEnv, zlogger)
		if err != nil {
			zlogger.Warn("telemetry disabled", logger.Field{Key: "error", Value: err.Error()})
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTelemetry(ctx); err != nil {
					zlogger.Error("telemetry shutdown failed", logger.Field{Key: "error", Value: err.Error()})
				}
			}()
		}
	}

	// ============
	// Cache
	// ============
	var dateCache cache.Cache
	if config.RedisConfig.Enabled() {
		dateCache = cache.NewRedisCache(config.RedisConfig.Addr(), config.RedisConfig.Password)
		if err := cache.Ping(ctx, dateCache); err != nil {
			log.Fatalf("redis unreachable at %s: %v", config.RedisConfig.Addr(), err)
		}
	} else {
		zlogger.Info("redis not configured, using in-memory cache")
		dateCache = cache.NewMemoryCache()
	}

	// ============
	// Session ids
	// ============
	ids, err := idgen.NewSnowflakeGenerator(config.SnowflakeNodeID)
	if err != nil {
		log.Fatal(err)
	}

	// ============
	// External Service
	// ============
	httpClient := &http.Client{
		Timeout: config.FlightAPIConfig.Timeout,
	}
	flightAPI := apiclient.New(config.FlightAPIConfig.BaseURL,
		apiclient.WithHTTPClient(httpClient),
		apiclient.WithLogger(zlogger),
		apiclient.WithRequestID(uuid.NewString),
	)

	// ============
	// Internal Service
	// ============
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: config.MultiDateConfig.RequestsPerSecond,
		BurstSize:         config.MultiDateConfig.Window + 1,
	})
	prefetcher := multidate.NewPrefetcher(flightAPI, dateCache, limiter, zlogger, multidate.Config{
		Window:   config.MultiDateConfig.Window,
		CacheTTL: config.SessionTTL,
	})
	suggester := airport.NewSuggester(flightAPI, config.SuggestDebounce, airport.DefaultLimit, zlogger)
	sessions := storefront.NewSessionStore(ids, config.SessionTTL)

	offerOpts := offer.DefaultOptions()
	offerOpts.DefaultBaggage = config.OfferConfig.DefaultBaggageKg
	offerOpts.DefaultCurrency = config.OfferConfig.DefaultCurrency
	offerOpts.LogoBaseURL = config.OfferConfig.AirlineLogoBaseURL

	svc := storefront.NewService(flightAPI, prefetcher, suggester, sessions, offerOpts, zlogger)
	handler := storefront.NewStorefrontHandler(svc)

	go svc.SweepSessions(ctx, time.Minute)

	// ============
	// HTTP
	// ============
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(config.OtelConfig.ServiceName))
	r.Use(requestLogger(zlogger))

	handler.RegisterRoutes(r)
	initSwagger(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.AppPort),
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	zlogger.Info("storefront listening", logger.Field{Key: "addr", Value: srv.Addr})

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlogger.Error("server_shutdown_failed", logger.Field{Key: "error", Value: err.Error()})
	}
}

func initSwagger(r *gin.Engine) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		html := `<!DOCTYPE html>
<html>
<head>
    <title>API Documentation</title>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
    <script id="api-reference" data-url="/swagger/doc.json"></script>
    <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body>
</html>`
		c.String(200, html)
	})
}

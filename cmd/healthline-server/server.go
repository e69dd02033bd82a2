package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/healthline/healthline/internal/action"
	"github.com/healthline/healthline/internal/agent"
	"github.com/healthline/healthline/internal/agent/gemini"
	"github.com/healthline/healthline/internal/agent/memory"
	"github.com/healthline/healthline/internal/config"
	"github.com/healthline/healthline/internal/domain/account"
	"github.com/healthline/healthline/internal/domain/conversation"
	"github.com/healthline/healthline/internal/domain/profile"
	"github.com/healthline/healthline/internal/platform/auth"
	"github.com/healthline/healthline/internal/platform/db"
	"github.com/healthline/healthline/internal/platform/logging"
	"github.com/healthline/healthline/internal/platform/middleware"
)

const version = "0.1.0"

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(os.Stdout, cfg.ResolvedLogFormat(), cfg.LogLevel, "healthline")
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open record store")
	}
	defer store.Close()
	logger.Info().Str("driver", cfg.StoreDriver).Msg("record store ready")
	if cfg.StoreDriver == "memory" && !cfg.IsDev() {
		logger.Warn().Msg("STORE_DRIVER=memory is meant for development; records are lost on restart")
	}

	memories, closeMemory, err := newMemoryServices(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to memory index")
	}
	defer closeMemory()

	if cfg.GoogleAPIKey == "" {
		logger.Warn().Msg("GOOGLE_API_KEY is not set; chat requests will fail")
	}
	model := gemini.New(gemini.Config{
		APIKey:  cfg.GoogleAPIKey,
		Model:   cfg.LLMModel,
		BaseURL: cfg.LLMBaseURL,
		Timeout: cfg.LLMTimeout,
		Retry: gemini.RetryPolicy{
			Attempts:     cfg.LLMRetryAttempts,
			InitialDelay: cfg.LLMRetryInitialDelay,
			ExpBase:      cfg.LLMRetryExpBase,
			MaxDelay:     cfg.LLMRetryMaxDelay,
			StatusCodes:  gemini.DefaultRetryPolicy().StatusCodes,
		},
	})

	e, err := newServer(cfg, logger, store, model, memories)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newMemoryServices returns one memory index per persona key. With REDIS_URL
// set both share a client; keys are already scoped by app name.
func newMemoryServices(ctx context.Context, cfg *config.Config) (map[string]memory.Service, func(), error) {
	keys := []string{conversation.Concierge.Key, conversation.Doctor.Key}
	out := make(map[string]memory.Service, len(keys))

	if cfg.RedisURL == "" {
		for _, k := range keys {
			out[k] = memory.NewInMemory()
		}
		return out, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	for _, k := range keys {
		out[k] = memory.NewRedis(client, cfg.MemoryTTL)
	}
	return out, func() { _ = client.Close() }, nil
}

// newServer assembles services and routes. It does not start listening.
func newServer(cfg *config.Config, logger zerolog.Logger, store *backend, model agent.Model, memories map[string]memory.Service) (*echo.Echo, error) {
	tokens := auth.NewTokens(cfg.SigningKey(), cfg.AuthTokenTTL)
	accounts := account.NewService(store.accountRepos(), store.tx, tokens, cfg.BcryptCost)

	registry := action.NewRegistry(action.Deps{
		Patients:    store.patients,
		Carers:      store.carers,
		Conditions:  store.conditions,
		Medications: store.medications,
		Accounts:    accounts,
	})

	profiles := profile.NewService(profile.Repos{
		Patients:     store.patients,
		Carers:       store.carers,
		Doctors:      store.doctors,
		Conditions:   store.conditions,
		Medications:  store.medications,
		Appointments: store.appointments,
		Referrals:    store.referrals,
	})

	bridges := map[string]*conversation.Bridge{}
	for _, p := range []conversation.Persona{conversation.Concierge, conversation.Doctor} {
		mem := memories[p.Key]
		personaCfg := agent.PersonaConfig{
			Model:    model,
			Memory:   mem,
			MaxSteps: cfg.AgentMaxSteps,
			DBTools:  registry.AgentTools(),
		}
		var (
			engine *agent.Agent
			err    error
		)
		if p.Key == conversation.Doctor.Key {
			engine, err = agent.NewDoctorAssistant(personaCfg)
		} else {
			engine, err = agent.NewConcierge(personaCfg)
		}
		if err != nil {
			return nil, fmt.Errorf("build %s agent: %w", p.Key, err)
		}
		bridges[p.Key] = conversation.NewBridge(p, store.conversations[p.Key], engine, mem, accounts)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(auth.BearerMiddleware(tokens))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Hello from Healthline"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(store.pinger()))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	root := e.Group("")
	conversation.NewHandler(bridges[conversation.Concierge.Key]).RegisterRoutes(root, "/ask")
	conversation.NewHandler(bridges[conversation.Doctor.Key]).RegisterRoutes(root, "/doctor/ask")
	account.NewHandler(accounts).RegisterRoutes(root)
	profile.NewHandler(profiles).RegisterRoutes(root)

	// The dev caller only applies to the admin API; chat routes must keep
	// the user_name supplied in the body.
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	}
	action.NewHandler(registry).RegisterRoutes(apiV1)

	return e, nil
}

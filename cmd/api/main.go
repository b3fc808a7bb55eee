package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/catalog"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/identity"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/infra/geoip"
	"server/internal/metering"
	"server/internal/middleware"
	"server/internal/providers/llm"
	"server/internal/routing"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	creds := credentials.NewStore(runner)

	verifier := identity.NewVerifier(cfg.AuthIssuer, cfg.AuthAudience, logger)
	router := buildModelRouter(ctx, cfg, creds, logger)

	accounts := repo.NewAccountRepository(dbpool, runner, logger)
	executor := metering.NewExecutor(metering.ExecutorOptions{
		Verifier: verifier,
		Accounts: accounts,
		Router:   router,
		Usage:    repo.NewUsageRepository(runner),
		Logger:   logger,
	})

	app := &handlers.App{
		Logger:   logger,
		Executor: executor,
		Catalog:  catalog.New(runner, logger),
		Accounts: accounts,
	}

	var lookup middleware.CountryLookup
	if resolver, err := geoip.NewResolver(cfg.GeoIPDBPath); err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		defer func() {
			_ = resolver.(*geoip.Resolver).Close()
		}()
		lookup = resolver.CountryCode
	}

	handler := httpapi.NewRouter(httpapi.RouterOptions{
		App:            app,
		Verifier:       verifier,
		CountryLookup:  lookup,
		DefaultLocale:  cfg.DefaultLanguage,
		AllowedOrigins: cfg.CORSOrigins,
		RateLimit:      cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, handler)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// buildModelRouter wires whichever providers have keys. Keys come from the
// environment first, then from the credentials table so rotated keys apply
// without a redeploy. A model whose provider has no key answers as
// unsupported at request time instead of crashing startup.
func buildModelRouter(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger infra.Logger) *routing.Router {
	lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := routing.Options{
		Placeholder: llm.NewPlaceholderClient(),
		Logger:      logger,
	}

	openAIKey := cfg.OpenAIAPIKey
	if openAIKey == "" {
		if key, err := creds.OpenAIAPIKey(lookupCtx); err != nil {
			logger.Warn().Err(err).Msg("openai key lookup failed")
		} else {
			openAIKey = key
		}
	}
	if openAIKey != "" {
		client, err := llm.NewOpenAIClient(llm.OpenAIOptions{APIKey: openAIKey, BaseURL: cfg.OpenAIBaseURL})
		if err != nil {
			logger.Error().Err(err).Msg("openai client not configured")
		} else {
			opts.OpenAI = client
		}
	} else {
		logger.Warn().Msg("no openai key, openai models unavailable")
	}

	geminiKey := cfg.GeminiAPIKey
	if geminiKey == "" {
		if key, err := creds.GeminiAPIKey(lookupCtx); err != nil {
			logger.Warn().Err(err).Msg("gemini key lookup failed")
		} else {
			geminiKey = key
		}
	}
	if geminiKey != "" {
		client, err := llm.NewGeminiClient(llm.GeminiOptions{APIKey: geminiKey, BaseURL: cfg.GeminiBaseURL})
		if err != nil {
			logger.Error().Err(err).Msg("gemini client not configured")
		} else {
			opts.Google = client
		}
	} else {
		logger.Warn().Msg("no gemini key, gemini models unavailable")
	}

	return routing.NewRouter(opts)
}

// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"webgpt-server/internal/config"
	"webgpt-server/internal/domain/model"
	"webgpt-server/internal/domain/ports/adapter"
	aiAdapters "webgpt-server/internal/infra/adapters/ai"
	pg "webgpt-server/internal/infra/db/postgres"
	"webgpt-server/internal/infra/logging"
	"webgpt-server/internal/infra/metrics"
	red "webgpt-server/internal/infra/redis"
	"webgpt-server/internal/infra/security"
	"webgpt-server/internal/infra/web"
	"webgpt-server/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (canned AI, relaxed config)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	userRepo := pg.NewPostgresUserRepo(pool)
	tokenRepo := pg.NewPostgresInviteTokenRepo(pool)
	txManager := pg.NewTxManager(pool)

	policy := model.RetentionPolicy{
		MaxSessions:           cfg.Retention.MaxSessions,
		MaxMessagesPerSession: cfg.Retention.MaxMessagesPerSession,
		MaxImageBytes:         cfg.Retention.MaxImageBytes,
	}
	sessionStore := red.NewSessionStore(redisClient, policy, logger)
	if cfg.Security.EncryptionKey != "" {
		cipher, err := security.NewCipher(cfg.Security.EncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("encryption")
		}
		sessionStore = sessionStore.WithCipher(cipher)
		logger.Info().Msg("session store encryption enabled")
	}
	loginThrottle := red.NewLoginThrottle(redisClient, cfg.Auth.LoginLimit, cfg.Auth.LoginWindow)

	// ---- AI adapters ----
	ai, err := buildAIAdapter(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("ai adapter")
	}
	ai = aiAdapters.NewLimitedAI(ai, cfg.AI.ConcurrentLimit)

	// ---- Use cases ----
	chatUC := usecase.NewChatUseCase(sessionStore, ai, cfg.AI.SystemPrompt, cfg.AI.DefaultModel, cfg.AI.FlushInterval, logger)
	authUC := usecase.NewAuthUseCase(userRepo, tokenRepo, txManager, loginThrottle,
		usecase.AdminBootstrap{Username: cfg.Auth.AdminUsername, Password: cfg.Auth.AdminPassword}, logger)
	adminUC := usecase.NewAdminUseCase(userRepo, tokenRepo, logger)

	// ---- HTTP server ----
	authManager := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Server.CookieSecure, cfg.Server.CookieDomain, cfg.Auth.SessionTTL)
	srv := web.NewServer(chatUC, authUC, adminUC, sessionStore, authManager, logger)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     srv.Router(),
		ReadTimeout: cfg.Server.ReadTimeout,
		// No write timeout: chat responses stream for as long as the
		// model keeps talking.
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}

// buildAIAdapter wires every configured provider behind one router. Dev mode
// without keys gets a canned adapter so the full stack runs offline.
func buildAIAdapter(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (adapter.AIStreamAdapter, error) {
	providers := map[string]adapter.AIStreamAdapter{}
	defaultProvider := ""

	if cfg.AI.OpenAIKey != "" {
		oa, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.OpenAIBaseURL, cfg.AI.DefaultModel)
		if err != nil {
			return nil, fmt.Errorf("openai adapter: %w", err)
		}
		providers["openai"] = oa
		defaultProvider = "openai"
		logger.Info().Str("base", cfg.AI.OpenAIBaseURL).Str("model", cfg.AI.DefaultModel).Msg("ai provider: openai")
	}
	if cfg.AI.GeminiKey != "" {
		ga, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			return nil, fmt.Errorf("gemini adapter: %w", err)
		}
		providers["gemini"] = ga
		if defaultProvider == "" {
			defaultProvider = "gemini"
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("ai provider: gemini")
	}

	if len(providers) == 0 {
		if !cfg.Runtime.Dev {
			return nil, fmt.Errorf("no AI provider configured")
		}
		logger.Warn().Msg("ai provider: noop (dev)")
		return aiAdapters.NewNoopAIAdapter(), nil
	}
	if len(providers) == 1 {
		return providers[defaultProvider], nil
	}
	return aiAdapters.NewMultiAIAdapter(defaultProvider, providers, nil), nil
}

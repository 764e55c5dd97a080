package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/relaydesk/warelay/internal/api/router"
	"github.com/relaydesk/warelay/internal/channels/whatsapp"
	appconfig "github.com/relaydesk/warelay/internal/config"
	"github.com/relaydesk/warelay/internal/conversation"
	"github.com/relaydesk/warelay/internal/http/handlers"
	observemetrics "github.com/relaydesk/warelay/internal/observability/metrics"
	"github.com/relaydesk/warelay/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting warelay API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"backend", cfg.ConversationBackend,
		"compat_fallback", cfg.DispatchCompatFallback,
	)

	store, err := newStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize conversation store", "error", err)
		os.Exit(1)
	}

	sender, err := newSender(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize message sender", "error", err)
		os.Exit(1)
	}

	generator, cleanup := newGenerator(cfg, logger)
	defer cleanup()

	relayMetrics := observemetrics.NewRelayMetrics(nil)
	dispatchStats := &observemetrics.DispatchStats{}

	webhookHandler := whatsapp.NewWebhookHandler(whatsapp.WebhookConfig{
		VerifyToken: cfg.VerifyToken,
		Store:       store,
		Generator:   generator,
		Sender:      sender,
		Logger:      logger.Component("webhook"),
		Metrics:     relayMetrics,
		Stats:       dispatchStats,
		Timeout:     cfg.HTTPTimeout,
	})
	dashboardHandler := handlers.NewDashboardHandler(handlers.DashboardConfig{
		Store:     store,
		Sender:    sender,
		Generator: generator,
		Logger:    logger.Component("dashboard"),
		Metrics:   relayMetrics,
		Stats:     dispatchStats,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		Webhook:            webhookHandler,
		Dashboard:          dashboardHandler,
		MetricsHandler:     promhttp.Handler(),
		OperatorAuthSecret: cfg.AdminJWTSecret,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newStore(cfg *appconfig.Config, logger *logging.Logger) (conversation.Store, error) {
	if cfg.ConversationBackend != appconfig.BackendRedis {
		return conversation.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	logger.Info("using redis conversation store", "addr", cfg.RedisAddr)
	return conversation.NewRedisStore(client), nil
}

func newSender(cfg *appconfig.Config, logger *logging.Logger) (whatsapp.MessageSender, error) {
	if cfg.DispatchCompatFallback {
		logger.Warn("multi-candidate dispatch fallback enabled; unconfirmed provider endpoints will be tried in order")
		return whatsapp.NewDispatcher(whatsapp.DispatcherConfig{
			Candidates: whatsapp.DefaultCandidates(cfg.WhatsAppPhoneNumberID),
			AuthHeader: "Bearer " + cfg.WhatsAppToken,
			Timeout:    cfg.HTTPTimeout,
			Logger:     logger.Component("dispatcher"),
		})
	}
	authScheme := whatsapp.AuthBearer
	if cfg.WhatsAppAuthScheme == appconfig.AuthSchemeToken {
		authScheme = whatsapp.AuthToken
	}
	return whatsapp.NewClient(whatsapp.ClientConfig{
		BaseURL:       cfg.WhatsAppBaseURL,
		Token:         cfg.WhatsAppToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		AuthScheme:    authScheme,
		Timeout:       cfg.HTTPTimeout,
		Logger:        logger.Component("whatsapp"),
	})
}

func newGenerator(cfg *appconfig.Config, logger *logging.Logger) (*conversation.ReplyGenerator, func()) {
	openaiClient := openai.NewClient(cfg.OpenAIAPIKey)

	cleanup := func() {}
	var secondary *conversation.GeminiClient
	if cfg.GeminiAPIKey != "" {
		gc, err := conversation.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, "")
		if err != nil {
			logger.Warn("gemini fallback unavailable", "error", err)
		} else {
			secondary = gc
			cleanup = func() { _ = gc.Close() }
		}
	}

	gen := conversation.NewReplyGenerator(openaiClient, secondaryOrNil(secondary), cfg.OpenAIModel, cfg.ReplyMaxTokens, logger.Component("generator"))
	return gen, cleanup
}

// secondaryOrNil keeps a typed-nil *GeminiClient from sneaking into
// the generator's interface field.
func secondaryOrNil(c *conversation.GeminiClient) conversation.LLMClient {
	if c == nil {
		return nil
	}
	return c
}

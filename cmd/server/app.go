package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	routes "github.com/scmlabs/modsentry/internal/api"
	v1 "github.com/scmlabs/modsentry/internal/api/v1"
	"github.com/scmlabs/modsentry/internal/analytics"
	"github.com/scmlabs/modsentry/internal/config"
	"github.com/scmlabs/modsentry/internal/db"
	"github.com/scmlabs/modsentry/internal/llm"
	"github.com/scmlabs/modsentry/internal/llm/gemini"
	"github.com/scmlabs/modsentry/internal/llm/openai"
	"github.com/scmlabs/modsentry/internal/models"
	"github.com/scmlabs/modsentry/internal/moderation"
	"github.com/scmlabs/modsentry/internal/notify"
	"github.com/scmlabs/modsentry/internal/notify/email"
	"github.com/scmlabs/modsentry/internal/notify/slack"
	"github.com/scmlabs/modsentry/pkg/logger"
	storage "github.com/scmlabs/modsentry/pkg/redis"
	"github.com/scmlabs/modsentry/pkg/utils"
)

func main() {
	ctx := context.Background()

	cfg := config.LoadConfig()

	log, err := logger.NewLogger()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	redisClient, err := storage.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Warn(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Redis unavailable, outcome cache disabled")
		redisClient = nil
	} else {
		defer redisClient.Close(log)
	}

	gormDB, err := db.NewDB(
		ctx,
		cfg.DatabaseDSN,
		models.RegisterModels(),
		db.WithLogger(log),
	)
	if err != nil {
		log.Error(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to initialize PostgreSQL database")
		panic("DB init failed")
	}
	defer db.CloseDB(log)

	store := moderation.NewStore(gormDB)

	// Only backends with credentials join the fallback list; eligibility
	// is decided here, once, not per request.
	providers := buildProviders(ctx, cfg, log)
	if len(providers) == 0 {
		log.Warn(ctx).Logs("No LLM providers configured; every moderation request will fail")
	}

	dispatcher := notify.NewDispatcher(store, log, buildSenders(ctx, cfg, log)...)
	defer dispatcher.Close()

	modOpts := []moderation.ServiceOption{moderation.WithTimeout(cfg.LLMTimeout)}
	if redisClient != nil {
		modOpts = append(modOpts, moderation.WithCache(redisClient))
	}
	modService := moderation.NewService(store, dispatcher, providers, log, modOpts...)
	statsService := analytics.NewService(gormDB)

	app := fiber.New()
	api := v1.New(modService, statsService, log)
	routes.NewRoutes(ctx, app, api, log, redisClient)

	if err := app.Listen(cfg.ServerAddr); err != nil {
		log.Error(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Server stopped")
	}
}

func buildProviders(ctx context.Context, cfg *config.Config, log *logger.Logger) []llm.Provider {
	var providers []llm.Provider

	if cfg.OpenAIAPIKey != "" {
		p, err := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to initialize OpenAI provider")
		} else {
			providers = append(providers, p)
		}
	}

	if cfg.GeminiAPIKey != "" {
		p, err := gemini.New(cfg.GeminiBaseURL, cfg.GeminiAPIKey)
		if err != nil {
			log.Warn(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to initialize Gemini provider")
		} else {
			providers = append(providers, p)
		}
	}

	return providers
}

func buildSenders(ctx context.Context, cfg *config.Config, log *logger.Logger) []notify.Sender {
	var senders []notify.Sender

	if cfg.SlackWebhookURL != "" {
		s, err := slack.New(cfg.SlackWebhookURL, cfg.SlackChannel)
		if err != nil {
			log.Warn(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to initialize Slack channel")
		} else {
			senders = append(senders, s)
		}
	}

	s, err := email.New(email.Config{
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUsername: cfg.SMTPUsername,
		SMTPPassword: cfg.SMTPPassword,
		FromEmail:    cfg.FromEmail,
	})
	if err != nil {
		log.Warn(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to initialize email channel")
	} else {
		senders = append(senders, s)
	}

	return senders
}

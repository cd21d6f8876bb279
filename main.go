package main

import (
	"context"
	"log"
	"os"
	"time"

	"leadpilot/config"
	"leadpilot/kv"
	"leadpilot/middleware"
	"leadpilot/routes"
	"leadpilot/utils"
	"leadpilot/worker"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
)

func main() {
	logger := log.New(os.Stdout, "LEADPILOT: ", log.Ldate|log.Ltime|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	store := buildStore(cfg, logger)

	var generator utils.Generator
	if cfg.OpenAIAPIKey != "" {
		generator = utils.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, log.New(os.Stdout, "GENERATE: ", log.LstdFlags))
	}

	var mailer utils.Mailer
	if cfg.SMTPHost != "" {
		mailer = utils.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.FromEmail, cfg.FromName)
	}

	followUpWorker := worker.NewFollowUpWorker(store, generator, mailer, log.New(os.Stdout, "PROCESSOR: ", log.LstdFlags))
	followUpWorker.Language = cfg.OutreachLanguage

	if cfg.CronInternal {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go followUpWorker.Start(ctx)
	}

	app := fiber.New()
	app.Use(middleware.CORS())

	routes.SetupRoutes(app, cfg, store, followUpWorker)

	logger.Printf("🚀 Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

// buildStore picks the store backend from configuration: the HTTP
// command protocol when its endpoint is set, a direct Redis connection
// otherwise. A nil store keeps the site up while scheduling and
// processing report unconfigured.
func buildStore(cfg *config.Config, logger *log.Logger) kv.Store {
	switch {
	case cfg.KVRestURL != "":
		return kv.NewRESTStore(cfg.KVRestURL, cfg.KVRestToken)
	case cfg.RedisAddr != "":
		return kv.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		logger.Println("⚠️ No follow-up store configured")
		return nil
	}
}

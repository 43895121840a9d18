package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vibeguard/internal/ai"
	"vibeguard/internal/bot"
	"vibeguard/internal/cache"
	"vibeguard/internal/config"
	"vibeguard/internal/db"
	"vibeguard/internal/handler"
	"vibeguard/internal/job"
	"vibeguard/internal/provider"
	"vibeguard/internal/repository"
	"vibeguard/internal/risk"
	"vibeguard/internal/routing"
	"vibeguard/internal/sentiment"
	"vibeguard/internal/service"
	"vibeguard/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	godotenv.Load()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := tracing.InitTracer(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Postgres is optional: without it the API still serves sentiment and
	// risk checks, but subscriptions and the monitor are disabled.
	var subRepo *repository.SubscriptionRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.InitPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres init failed: %v", err)
		}
		defer pool.Close()

		subRepo = repository.NewSubscriptionRepository(pool, tracer)
		if err := subRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	redisClient, err := cache.InitRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: %v, price caching disabled", err)
		redisClient = nil
	}

	// Providers and services.
	oracle := provider.NewCryptoracleProvider(tracer, cfg.CryptoracleAPIKey, cfg.CryptoracleBaseURL)
	sentiments := sentiment.NewService(tracer, oracle)

	var priceCache service.RedisClient
	if redisClient != nil {
		priceCache = redisClient
	}
	prices := service.NewPriceService(tracer, provider.NewCoinGeckoProvider(tracer), priceCache)

	var router risk.ModelRouter
	kalibr := routing.NewKalibrRouter(tracer, cfg.KalibrIntelligenceURL,
		cfg.KalibrAPIKey, cfg.KalibrTenantID, cfg.KalibrGoal, cfg.ModelHigh, cfg.ModelLow)
	if kalibr.Configured() {
		router = kalibr
	}

	var llm risk.TextGenerator
	switch {
	case cfg.GoogleAPIKey != "":
		llm = ai.NewGeminiClient(tracer, cfg.GoogleAPIKey)
	case cfg.OpenAIAPIKey != "":
		llm = ai.NewOpenAIClient(tracer, cfg.OpenAIAPIKey)
	}

	analyzer := risk.NewAnalyzer(tracer, router, llm, cfg.ModelHigh, cfg.ModelLow, cfg.SentimentBadThreshold)
	guard := service.NewGuardService(tracer, sentiments, prices, analyzer)

	// Telegram bot: ad-hoc queries plus monitor exit alerts.
	var notifier job.ExitNotifier
	if cfg.TelegramBotToken != "" {
		tgBot, err := bot.NewBot(cfg.TelegramBotToken, cfg.TelegramChatID, guard, prices)
		if err != nil {
			log.Printf("Warning: %v, continuing without Telegram", err)
		} else {
			tgBot.Start()
			defer tgBot.Stop()
			notifier = tgBot
		}
	} else {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
	}

	// Background monitor over enabled subscriptions. Swap execution is not
	// wired in this deployment, so exits are advisory.
	var monitor *job.Monitor
	if subRepo != nil {
		monitor = job.NewMonitor(tracer, subRepo, guard, nil, notifier, cfg.MonitorEvery)
		if cfg.MonitorEnabled {
			go monitor.Start(ctx)
		}
	}

	var subs handler.SubscriptionStore
	if subRepo != nil {
		subs = subRepo
	}
	var monitorRunner handler.MonitorRunner
	if monitor != nil {
		monitorRunner = monitor
	}
	h := handler.New(tracer, guard, prices, subs, monitorRunner, nil)

	r := gin.Default()
	r.Use(otelgin.Middleware("vibeguard"))
	h.RegisterRoutes(r, handler.HMACAuth(cfg.VibeAPIKey, cfg.AuthMaxSkew))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

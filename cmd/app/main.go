package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"leaderboard_miniapp/internal/api"
	"leaderboard_miniapp/internal/client"
	"leaderboard_miniapp/internal/middleware"
	"leaderboard_miniapp/internal/repository"
	"leaderboard_miniapp/internal/service"
	"leaderboard_miniapp/internal/session"
	"leaderboard_miniapp/internal/worker"
	"leaderboard_miniapp/pkg/auth"
	"leaderboard_miniapp/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		clientOpts []client.Option
		journal    api.CallJournal
	)
	if cfg.Database.Enabled() {
		repo, err := repository.New(ctx, cfg.Database)
		if err != nil {
			zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
		}
		defer repo.Close()

		clientOpts = append(clientOpts, client.WithRecorder(repo))
		journal = repo

		retention := worker.NewRetentionWorker(repo, cfg.Journal.Retention, cfg.Journal.PruneInterval, nil)
		go retention.Run(ctx)
	} else {
		zapLogger.Info("Backend call journal disabled")
	}

	backend := client.New(cfg.Backend, clientOpts...)
	deps := service.ViewDeps{Backend: backend}

	if cfg.Telegram.AnnounceChatID != 0 {
		announcer, err := service.NewTelegramAnnouncer(service.AnnouncerConfig{
			BotToken: cfg.Telegram.BotToken,
			ChatID:   cfg.Telegram.AnnounceChatID,
			Debug:    cfg.Telegram.Debug,
		})
		if err != nil {
			zapLogger.Warn("Claim announcements disabled", zap.Error(err))
		} else {
			deps.Announcer = announcer
		}
	}

	store := session.NewStore(deps, cfg.Session)
	defer store.CloseAll()
	go store.RunJanitor(ctx)

	telegramAuth := auth.NewTelegramAuth(cfg.Telegram.BotToken, cfg.Telegram.Debug)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	a := router.Group("/api/v1")
	api.NewViewRoutes(a, store, telegramAuth)
	api.NewStreamRoutes(a, store, telegramAuth)
	if journal != nil {
		api.NewCallRoutes(a, journal, telegramAuth)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server",
		zap.String("addr", addr),
		zap.String("backend", cfg.Backend.BaseURL))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}

package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"scholarshelf/internal/ratelimit"
	"scholarshelf/internal/util"
	"scholarshelf/pkg/mailbox"
	"scholarshelf/pkg/notify"
	"scholarshelf/pkg/profile"
	"scholarshelf/pkg/storage"
	"scholarshelf/services/share/internal/app"
	"scholarshelf/services/share/internal/config"
	"scholarshelf/services/share/internal/server"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	box, err := mailbox.NewRedisMailbox(mailbox.RedisMailboxConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		TTL:      time.Duration(cfg.MailboxTTLHours) * time.Hour,
	})
	if err != nil {
		log.Fatalf("failed to init mailbox: %v", err)
	}

	content, err := storage.NewMinioContentStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("failed to init content store: %v", err)
	}

	var broadcaster notify.Broadcaster
	if cfg.AMQPURL != "" {
		broadcaster, err = notify.NewAMQPBroadcaster(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("failed to init refresh broadcaster: %v", err)
		}
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:     cfg.DatabaseURL,
		Mailbox:         box,
		Content:         content,
		Profiles:        profile.NewHTTPService(cfg.ProfileServiceURL),
		Broadcaster:     broadcaster,
		TaskHorizonDays: cfg.TaskHorizonDays,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.SubmitRateLimit > 0 && cfg.SubmitRateWindowMS > 0 {
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "scholarshelf:submit",
			cfg.SubmitRateLimit, time.Duration(cfg.SubmitRateWindowMS)*time.Millisecond,
		)
		if err != nil {
			log.Fatalf("failed to init submit limiter: %v", err)
		}
	}

	httpServer, err := server.New(server.Config{App: appCore, SubmitLimiter: limiter})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("share server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

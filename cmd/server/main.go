package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"greentea/internal/cache"
	"greentea/internal/config"
	apphttp "greentea/internal/http"
	"greentea/internal/metrics"
	"greentea/internal/repository/sqlite"
	"greentea/internal/service"
)

type initializer interface {
	Init(ctx context.Context) error
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("invalid log level %q, using info", cfg.Log.Level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	identityRepo := sqlite.NewIdentityRepository(db)
	accountRepo := sqlite.NewAccountRepository(db)
	sessionRepo := sqlite.NewSessionRepository(db)
	groupRepo := sqlite.NewGroupRepository(db)
	messageRepo := sqlite.NewMessageRepository(db)

	// order follows foreign key dependencies
	repos := []struct {
		name string
		repo initializer
	}{
		{"identity", identityRepo},
		{"account", accountRepo},
		{"session", sessionRepo},
		{"group", groupRepo},
		{"message", messageRepo},
	}
	for _, r := range repos {
		if err := r.repo.Init(ctx); err != nil {
			logger.Fatalf("init %s repository: %v", r.name, err)
		}
	}

	var sessionCache service.SessionCache
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Fatalf("connect redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessionCache = cache.NewSessionCache(redisClient)
		logger.Info("session cache enabled")
	}

	registrar := service.NewAccountRegistrar(accountRepo, identityRepo, service.RegistrarConfig{
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	chatService := service.NewChatService(groupRepo, messageRepo, cfg.Chat.HiddenGroups)
	authService, err := service.NewAuthService(accountRepo, sessionRepo, service.AuthConfig{
		Secret:     cfg.Auth.JWTSecret,
		SessionTTL: cfg.Auth.SessionTTL,
		Cache:      sessionCache,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatalf("setup auth: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	handler := apphttp.NewHandler(registrar, chatService, authService, metrics.New(), logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/application/usecase"
	"github.com/tripdesk/tripdesk/application/usecase/directory"
	"github.com/tripdesk/tripdesk/application/usecase/travel"
	"github.com/tripdesk/tripdesk/infrastructure/config"
	httpserver "github.com/tripdesk/tripdesk/infrastructure/http"
	"github.com/tripdesk/tripdesk/infrastructure/http/handler"
	"github.com/tripdesk/tripdesk/infrastructure/http/middleware"
	"github.com/tripdesk/tripdesk/infrastructure/http/sse"
	"github.com/tripdesk/tripdesk/infrastructure/service/jwt"
	"github.com/tripdesk/tripdesk/infrastructure/service/lock"
	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
	"github.com/tripdesk/tripdesk/infrastructure/service/notification"
	"github.com/tripdesk/tripdesk/infrastructure/service/password"
	"github.com/tripdesk/tripdesk/infrastructure/service/ratelimit"
	"github.com/tripdesk/tripdesk/infrastructure/service/recaptcha"
)

// Decisions are limited per approver so a stuck client cannot hammer the
// version check.
var decisionLimit = middleware.RateLimitRule{Scope: "decision", Limit: 60, Window: time.Minute}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	policy, err := config.LoadApprovalPolicy(cfg.ApprovalPolicyFile)
	if err != nil {
		return fmt.Errorf("load approval policy: %w", err)
	}

	log := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "tripdesk",
	})
	log.Info(ctx, "Application starting", map[string]interface{}{
		"env":             cfg.Environment,
		"storage":         cfg.StorageDriver,
		"terminal_levels": policy.Approval.TerminalLevels(),
		"max_chain":       policy.Approval.MaxChainLength(),
	})

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	passwordService := password.NewBcryptPasswordService(cfg.BcryptCost)
	if err := seedOrgChart(ctx, cfg.OrgFile, store.employees, passwordService, log); err != nil {
		return fmt.Errorf("load org chart: %w", err)
	}

	redisClient := openRedis(ctx, cfg.RedisURL, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var locker outbound.RequestLocker = lock.NewLocalLocker(cfg.LockWait)
	if redisClient != nil {
		locker = lock.NewRedisLocker(redisClient, cfg.LockWait, log)
	}

	rlLogger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		rlLogger.SetLevel(level)
	}
	rateLimitService := ratelimit.NewRateLimitService(ratelimit.Config{
		Enabled:       cfg.RateLimitEnabled,
		IPAttempts:    cfg.RateLimitIPAttempts,
		IPWindow:      cfg.RateLimitIPWindow,
		BlockDuration: cfg.RateLimitBlockDuration,
	}, redisClient, rlLogger)

	streamer := sse.NewStreamer(0, log)
	channels, err := notification.BuildChannels(policy.Notification.Channels, store.notifications, log, streamer)
	if err != nil {
		return err
	}
	dispatcher, err := notification.NewDispatcher(notification.Config{
		PoolSize:          cfg.NotifyPoolSize,
		QueueSize:         cfg.NotifyQueueSize,
		OverrideRecipient: policy.Notification.OverrideRecipient,
	}, log, channels...)
	if err != nil {
		return err
	}
	defer func() {
		if err := dispatcher.Close(); err != nil {
			log.Error(ctx, "Notification dispatcher did not drain", err, nil)
		}
	}()

	tokenService, err := jwt.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("init token service: %w", err)
	}

	travelUseCase := travel.NewTravelRequestUseCase(travel.Dependencies{
		Directory:     store.employees,
		Requests:      store.requests,
		Conversations: store.conversations,
		Notifier:      dispatcher,
		Locker:        locker,
		Policy:        policy.Approval,
		Logger:        log,
	})
	authUseCase := usecase.NewLoginUseCase(store.employees, tokenService, passwordService, policy.Approval, log)
	notificationUseCase := usecase.NewNotificationUseCase(store.notifications)
	directoryUseCase := directory.NewDirectoryUseCase(store.employees, travel.NewChainBuilder(store.employees, policy.Approval, log))

	captcha := recaptcha.NewRecaptchaService(recaptcha.Config{
		SecretKey: cfg.RecaptchaSecretKey,
		Enabled:   cfg.RecaptchaEnabled,
		Timeout:   cfg.RecaptchaTimeout,
	}, log)

	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	rateLimiter := middleware.NewRateLimitMiddleware(rateLimitService, log)
	loginLimit := middleware.RateLimitRule{
		Scope:         "login",
		Limit:         cfg.RateLimitIPAttempts,
		Window:        cfg.RateLimitIPWindow,
		BlockDuration: cfg.RateLimitBlockDuration,
	}

	serverCfg := httpserver.ServerConfig{
		Addr:              cfg.Addr(),
		CorrelationHeader: cfg.LogCorrelationIDHeader,
		Health: func(ctx context.Context) map[string]interface{} {
			health := map[string]interface{}{
				"notifications": dispatcher.Stats(),
				"streams":       streamer.ClientCount(),
			}
			if err := store.ping(ctx); err != nil {
				health["storage"] = "unavailable"
			} else {
				health["storage"] = cfg.StorageDriver
			}
			return health
		},
	}
	if cfg.CORSEnabled && len(cfg.CORSAllowedOrigins) > 0 {
		serverCfg.CORS = &middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowCredentials: cfg.CORSAllowCredentials,
		}
	}

	server := httpserver.NewServer(serverCfg, log,
		handler.NewAuthHandler(authUseCase, authMiddleware, rateLimiter, loginLimit).WithCaptcha(captcha),
		handler.NewTravelRequestHandler(travelUseCase, authMiddleware, rateLimiter, decisionLimit),
		handler.NewNotificationHandler(notificationUseCase, authMiddleware).WithStream(streamer),
		handler.NewDirectoryHandler(directoryUseCase, authMiddleware),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "Server forced to shutdown", err, nil)
	}
	log.Info(ctx, "Server exited", nil)
	return nil
}

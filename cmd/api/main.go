package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nicestack/user-service/internal/api"
	"github.com/nicestack/user-service/internal/api/middleware"
	"github.com/nicestack/user-service/internal/core/ports"
	"github.com/nicestack/user-service/internal/core/service"
	mongodb "github.com/nicestack/user-service/internal/infrastructure/db/mongo"
	redisdb "github.com/nicestack/user-service/internal/infrastructure/db/redis"
	"github.com/nicestack/user-service/internal/infrastructure/http/handlers"
	"github.com/nicestack/user-service/internal/infrastructure/mail"
	"github.com/nicestack/user-service/internal/infrastructure/queue"
	"github.com/nicestack/user-service/internal/infrastructure/token"
	"github.com/nicestack/user-service/internal/pkg/config"
	"github.com/nicestack/user-service/pkg/logger"
)

const serviceName = "user-service"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{Service: serviceName})
		boot.Fatal().Err(err).Msg("configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: serviceName,
		Env:     cfg.Env,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("service stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  serviceName,
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	users := mongodb.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}
	sessions := redisdb.NewSessionStore(rdb)
	actions := redisdb.NewActionTokenStore(rdb)

	// --- Mail ---
	var sender ports.MailSender
	if cfg.SMTP.Host == "" {
		log.Warn().Msg("SMTP_HOST not set, mail will only be logged")
		sender = mail.NewLogSender(logger.Component("mail_log_sender"))
	} else {
		sender, err = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.Mail.From,
		})
		if err != nil {
			return err
		}
	}

	dispatcher := queue.NewDispatcher(sender, queue.Options{
		Workers:     cfg.Mail.Workers,
		Buffer:      cfg.Mail.QueueSize,
		MaxAttempts: cfg.Mail.MaxAttempts,
	}, logger.Component("mail_dispatcher"))
	dispatcher.Start(ctx)

	renderer, err := mail.NewRenderer(mail.RendererConfig{
		PublicURL:  cfg.AppPublicURL,
		ConfirmTTL: cfg.JWT.ConfirmTTL,
		ResetTTL:   cfg.JWT.ResetTTL,
	})
	if err != nil {
		return err
	}
	notifier := mail.NewNotifier(renderer, dispatcher, logger.Component("notifier"))

	// --- Core ---
	codec := token.NewCodec(cfg.JWT.Secret)
	validator := service.NewAuthValidator(codec, sessions, users, logger.Component("auth_validator"))
	authService := service.NewAuthService(users, sessions, actions, codec, notifier, service.TokenTTLs{
		Access:  cfg.JWT.AccessTTL,
		Refresh: cfg.JWT.RefreshTTL,
		Confirm: cfg.JWT.ConfirmTTL,
		Reset:   cfg.JWT.ResetTTL,
	}, logger.Component("auth_service"))
	userService := service.NewUserService(users, sessions, logger.Component("user_service"))

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Log:         log,
		AuthService: authService,
		UserService: userService,
		Guard:       middleware.NewGuard(codec, validator, logger.Component("guard")),
		Dependencies: []handlers.Dependency{
			handlers.MongoDependency(db),
			handlers.RedisDependency(rdb),
		},
		AuthRateLimit: cfg.Rate.AuthLimit,
		AuthRateBurst: cfg.Rate.AuthBurst,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

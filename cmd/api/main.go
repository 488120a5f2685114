// @title                       Subscription Service API
// @version                     1.0
// @description                 Accounts, usage metering and payment provider webhook reconciliation.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/meterline/subscription-service/internal/api"
	"github.com/meterline/subscription-service/internal/core/ports"
	"github.com/meterline/subscription-service/internal/core/service"
	"github.com/meterline/subscription-service/internal/infrastructure/db/mongo"
	"github.com/meterline/subscription-service/internal/infrastructure/db/redis"
	"github.com/meterline/subscription-service/internal/infrastructure/mail"
	"github.com/meterline/subscription-service/internal/infrastructure/stripe"
	"github.com/meterline/subscription-service/internal/pkg/config"
	"github.com/meterline/subscription-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "subscription-service",
		Env:     cfg.Env,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("service stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("service stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")

	users := mongo.NewUserRepository(db)
	events := mongo.NewEventRepository(db)
	if err := mongo.EnsureIndexes(ctx, users, events); err != nil {
		return err
	}

	var (
		rdb    *goredis.Client
		ledger ports.EventLedger
	)
	if cfg.Redis.Enabled {
		rdb, err = redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		ledger = redis.NewEventLedger(rdb, cfg.Redis.EventTTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("webhook event ledger enabled")
	}

	var mailer ports.Mailer = mail.NewLogMailer(logger.Component("mail"))
	if cfg.Postmark.ServerToken != "" {
		pm, err := mail.NewPostmarkMailer(mail.Config{
			ServerToken:  cfg.Postmark.ServerToken,
			AccountToken: cfg.Postmark.AccountToken,
			From:         cfg.Postmark.From,
		})
		if err != nil {
			return err
		}
		mailer = pm
	} else {
		log.Warn().Msg("POSTMARK_SERVER_TOKEN not set, reset links will only be logged")
	}

	provider := stripe.NewClient(cfg.Stripe.SecretKey, nil)

	e := api.NewRouter(api.Deps{
		JWTSecret:        cfg.JWTSecret,
		MonthlyLimit:     cfg.Usage.MonthlyLimit,
		DefaultIncrement: cfg.Usage.DefaultIncrement,
		Verifier:         stripe.NewVerifier(cfg.Stripe.WebhookSecret),
		Reconciler: service.NewReconcileService(users, events, ledger, provider,
			cfg.Stripe.LookupTimeout, logger.Component("reconcile")),
		Accounts: service.NewAuthService(users, mailer, service.AuthConfig{
			JWTSecret:     cfg.JWTSecret,
			TokenTTL:      cfg.JWTTTL,
			ResetTokenTTL: cfg.Postmark.ResetTokenTTL,
			ClientURL:     cfg.ClientURL,
		}, logger.Component("auth")),
		Usage: service.NewUsageService(users, events, cfg.Usage.MonthlyLimit, logger.Component("usage")),
		Billing: service.NewBillingService(users, provider, service.BillingConfig{
			PriceID:       cfg.Stripe.PriceID,
			ClientURL:     cfg.ClientURL,
			LookupTimeout: cfg.Stripe.LookupTimeout,
		}, logger.Component("billing")),
		Mongo: db,
		Redis: rdb,
		Log:   logger.Component("http"),
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
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

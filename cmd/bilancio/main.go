package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/backend"
	"bilancio/internal/cache"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	"bilancio/internal/core"
	apphttp "bilancio/internal/http"
	"bilancio/internal/identity"
	"bilancio/internal/log"
	"bilancio/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	janitorInterval = time.Minute
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stdout)

	if err := run(logger); err != nil {
		logger.Error("Server exited with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(logger *log.Logger) error {
	cfg, err := cli.LoadAndValidateConfig(logger)
	if err != nil {
		return err
	}

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create %s backend: %w", backendCfg.Type, err)
	}
	defer func() {
		if err := result.Close(); err != nil {
			logger.Warn("Failed to close backend", log.FieldError, err.Error())
		}
	}()

	summaryCache := cache.NewLRUCache[[]core.Transaction](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	janitor := cache.NewJanitor(logger)
	janitor.Register(summaryCache)

	// Summaries read through the transaction service; mutations notify the
	// local summary cache and, when configured, the other instances.
	reader := services.NewTransactionService(result.Backend, nil, logger)
	summaries := services.NewSummaryService(reader, summaryCache, logger)
	notifiers := services.Notifiers{summaries}

	var broker *amqp.Client
	if cfg.AMQPURL != "" {
		broker, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			return fmt.Errorf("connect AMQP: %w", err)
		}
		defer broker.Close()
		notifiers = append(notifiers, broker)
		logger.Info("Change events enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("Change events disabled - no AMQP_URL provided")
	}
	transactions := services.NewTransactionService(result.Backend, notifiers, logger)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Transactions: transactions,
		Summaries:    summaries,
		Identity:     identityExtractor(cfg),
		Store:        result.Backend,
		SummaryCache: summaryCache,
		Logger:       logger,
	}, apphttp.Options{
		AllowedOrigins:    cfg.AllowedOrigins,
		IdentityHeader:    cfg.IdentityHeader,
		RequestsPerMinute: cfg.RateLimit,
	})
	if err != nil {
		return err
	}

	logger.Info("Starting bilancio server",
		"port", cfg.Port,
		log.FieldBackend, backendCfg.Type.String(),
		"identity_mode", cfg.IdentityMode,
		"env", cfg.Env)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, shutdownTimeout)
	})
	g.Go(func() error {
		return janitor.Run(gctx, janitorInterval)
	})
	if broker != nil {
		g.Go(func() error {
			return broker.Consume(gctx, summaries.Notify)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func identityExtractor(cfg *config.Config) identity.Extractor {
	if cfg.IdentityMode == config.IdentityModeFixed {
		return identity.FixedExtractor{Key: identity.Key(cfg.FixedOwnerKey)}
	}
	return identity.HeaderExtractor{Header: cfg.IdentityHeader}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-ivr/internal/admission"
	"github.com/celerix-dev/celerix-ivr/internal/ai"
	"github.com/celerix-dev/celerix-ivr/internal/api"
	"github.com/celerix-dev/celerix-ivr/internal/app"
	"github.com/celerix-dev/celerix-ivr/internal/auth"
	"github.com/celerix-dev/celerix-ivr/internal/config"
	"github.com/celerix-dev/celerix-ivr/internal/conversation"
	"github.com/celerix-dev/celerix-ivr/internal/objects"
	"github.com/celerix-dev/celerix-ivr/internal/results"
	"github.com/celerix-dev/celerix-ivr/internal/secrets"
)

func main() {
	fmt.Println("Starting Celerix IVR Daemon...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		app.Fatal(logger, "daemon stopped", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var awsCfg aws.Config
	if cfg.NeedsAWS() {
		var err error
		if awsCfg, err = app.LoadAWS(ctx, cfg); err != nil {
			return err
		}
	}
	src := app.SecretSource(cfg, awsCfg)

	// 1. Record and counter store
	store, err := app.OpenStore(cfg, awsCfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// 2. Relational results
	dsn, err := secrets.Resolve(ctx, src, cfg.SQL.DSN, cfg.SQL.DSNSecretID)
	if err != nil {
		return fmt.Errorf("sql dsn: %w", err)
	}
	db, err := results.Open(cfg.SQL.Driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("sql schema: %w", err)
	}

	// 3. AI engine and session tokens
	apiKey, err := secrets.Resolve(ctx, src, cfg.AI.APIKey, cfg.AI.APIKeySecretID)
	if err != nil {
		return fmt.Errorf("ai api key: %w", err)
	}
	codec, err := app.Codec(ctx, cfg, src)
	if err != nil {
		return err
	}

	// 4. Inbound auth
	jwtSecret, err := secrets.Resolve(ctx, src, cfg.Auth.JWTSecret, cfg.Auth.JWTSecretID)
	if err != nil {
		return fmt.Errorf("jwt secret: %w", err)
	}
	if jwtSecret == "" {
		logger.Warn("bearer authentication disabled (no JWT secret configured)")
	}
	authn := &auth.Authenticator{Secret: []byte(jwtSecret), Audience: cfg.Auth.Audience, Issuer: cfg.Auth.Issuer}

	var recordings api.Recordings
	if cfg.Recordings.Bucket != "" {
		recordings = objects.NewFromConfig(awsCfg)
	} else {
		logger.Warn("recording tagging disabled (no recordings bucket configured)")
	}

	consumer := &admission.Consumer{Records: store, Table: cfg.Store.CallerTable}
	h := &api.Handler{
		Gate: &admission.Gate{
			Validator: &admission.Validator{
				Records: store,
				Table:   cfg.Store.CallerTable,
				Counter: &admission.Counter{Store: store, Table: cfg.Store.CounterTable},
			},
			Consumer: consumer,
			Logger:   logger,
		},
		Consumer: consumer,
		Orchestrator: &conversation.Orchestrator{
			Codec:        codec,
			Engine:       ai.NewClient(cfg.AI.BaseURL, apiKey, cfg.AI.Model),
			Instructions: &conversation.PromptTable{Records: store, Table: cfg.Store.PromptTable},
			Logger:       logger,
		},
		Callers:          store,
		CallerTable:      cfg.Store.CallerTable,
		Recordings:       recordings,
		RecordingsBucket: cfg.Recordings.Bucket,
		RecordingsPrefix: cfg.Recordings.Prefix,
		Results:          db,
		Logger:           logger,
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.NewRouter(h, authn),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", "addr", srv.Addr, "backend", cfg.Store.Backend, "session_format", cfg.Session.Format)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

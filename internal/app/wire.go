// Package app builds the runtime collaborators described by a config.Config.
// Both the daemon and the admin CLI start from here.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/celerix-dev/celerix-ivr/internal/config"
	"github.com/celerix-dev/celerix-ivr/internal/conversation"
	"github.com/celerix-dev/celerix-ivr/internal/dynamo"
	"github.com/celerix-dev/celerix-ivr/internal/engine"
	"github.com/celerix-dev/celerix-ivr/internal/secrets"
	"github.com/celerix-dev/celerix-ivr/internal/vault"
	"github.com/celerix-dev/celerix-ivr/pkg/sdk"
)

// NewLogger builds the process logger from the log level and format settings.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// LoadAWS loads the default credential chain, pinned to the configured region.
func LoadAWS(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWS.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading aws config: %w", err)
	}
	return awsCfg, nil
}

// SecretSource returns the configured secret source.
func SecretSource(cfg *config.Config, awsCfg aws.Config) secrets.Source {
	if cfg.SecretSource == "aws" {
		return secrets.NewManagerFromConfig(awsCfg)
	}
	return secrets.Env{}
}

// Store is an sdk.Store that must be closed on shutdown.
type Store struct {
	sdk.Store
	close func()
}

func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStore opens the record and counter store for the configured backend.
func OpenStore(cfg *config.Config, awsCfg aws.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.Store.Backend {
	case config.BackendDynamo:
		return &Store{Store: dynamo.NewFromConfig(awsCfg, cfg.TableKeys())}, nil

	case config.BackendBolt:
		p, err := engine.NewPersistence(cfg.Store.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", cfg.Store.BoltPath, err)
		}
		initial, err := p.LoadAll()
		if err != nil {
			logger.Warn("could not load existing data", "path", cfg.Store.BoltPath, "error", err)
		}
		mem := engine.NewMemStore(initial, p)
		mem.SetLogger(logger)
		logger.Info("engine started", "backend", "bolt", "tables", len(initial))
		return &Store{Store: mem, close: func() {
			mem.Close()
			_ = p.Close()
		}}, nil

	case config.BackendMemory:
		mem := engine.NewMemStore(nil, nil)
		mem.SetLogger(logger)
		return &Store{Store: mem, close: mem.Close}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// Codec builds the session-token codec, sealing tokens when a key is available.
func Codec(ctx context.Context, cfg *config.Config, src secrets.Source) (*conversation.Codec, error) {
	format, err := conversation.ParseFormat(cfg.Session.Format)
	if err != nil {
		return nil, err
	}
	codec := &conversation.Codec{Format: format}

	hexKey, err := secrets.Resolve(ctx, src, cfg.Session.SealingKey, cfg.Session.SealingKeySecretID)
	if err != nil {
		return nil, fmt.Errorf("sealing key: %w", err)
	}
	if hexKey == "" {
		return codec, nil
	}
	key, err := vault.ParseKey(hexKey)
	if err != nil {
		return nil, err
	}
	if codec.Sealer, err = vault.NewSealer(key); err != nil {
		return nil, err
	}
	return codec, nil
}

// Fatal logs err and exits, for main packages.
func Fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

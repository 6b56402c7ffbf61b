package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/service-aggregator/internal/app"
	"github.com/service-aggregator/internal/config"
	"github.com/service-aggregator/internal/pkg/logger"
	"github.com/service-aggregator/internal/usecase/dto"
)

// Backend - операции, которые выполняет CLI
type Backend interface {
	Search(ctx context.Context, req dto.SearchRequest) (*dto.SearchResponse, bool, error)
	Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.RefreshResponse, error)
	Providers() []string
}

// BackendFactory открывает подключения и возвращает Backend с функцией закрытия
type BackendFactory func(ctx context.Context, envFile, logLevel string) (Backend, func(), error)

type rootOptions struct {
	envFile  string
	logLevel string
	timeout  time.Duration
}

func newRootCmd(factory BackendFactory) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "servicectl",
		Short: "One-off search and refresh against the service aggregator store",
		Long: `servicectl runs the aggregation pipeline and provider refreshes directly,
without going through the HTTP API. It reads the same .env and environment
variables as the api and worker processes.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to .env file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override LOG_LEVEL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "overall command timeout")

	cmd.AddCommand(
		newSearchCmd(opts, factory),
		newRefreshCmd(opts, factory),
		newProvidersCmd(opts, factory),
	)
	return cmd
}

// withBackend открывает Backend на время выполнения fn
func withBackend(cmd *cobra.Command, opts *rootOptions, factory BackendFactory, fn func(ctx context.Context, b Backend) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	backend, closeFn, err := factory(ctx, opts.envFile, opts.logLevel)
	if err != nil {
		return err
	}
	defer closeFn()

	return fn(ctx, backend)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// containerBackend - Backend поверх app.Container
type containerBackend struct {
	*app.Container
}

func (b containerBackend) Search(ctx context.Context, req dto.SearchRequest) (*dto.SearchResponse, bool, error) {
	return b.AggregationUC.Search(ctx, req)
}

func (b containerBackend) Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.RefreshResponse, error) {
	return b.RefreshUC.Refresh(ctx, req)
}

func (b containerBackend) Providers() []string {
	return b.RefreshUC.Providers()
}

func containerFactory(ctx context.Context, envFile, logLevel string) (Backend, func(), error) {
	cfg, err := config.LoadFrom(envFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	container, err := app.New(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}

	closeFn := func() {
		container.Close(context.Background())
		if err := log.Sync(); err != nil {
			log.Debug("Logger sync failed", zap.Error(err))
		}
	}
	return containerBackend{container}, closeFn, nil
}

package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vittapcode/homeboard/internal/pkg/backend"
	"github.com/vittapcode/homeboard/internal/pkg/broker"
	"github.com/vittapcode/homeboard/internal/pkg/config"
	"github.com/vittapcode/homeboard/internal/pkg/control"
	"github.com/vittapcode/homeboard/internal/pkg/decoder"
	"github.com/vittapcode/homeboard/internal/pkg/heartbeat"
	"github.com/vittapcode/homeboard/internal/pkg/notify"
	"github.com/vittapcode/homeboard/internal/pkg/server"
	"github.com/vittapcode/homeboard/internal/pkg/store"
)

// DashboardCommand is the entry point for the homeboard gateway. It assembles
// configuration from flags and starts all services.
func DashboardCommand(ctx *cli.Context) error {
	cfg := &config.Config{
		Broker: &config.BrokerConfig{
			URL:            ctx.String("mqtt-url"),
			Username:       ctx.String("mqtt-user"),
			Password:       ctx.String("mqtt-pass"),
			ConnectTimeout: ctx.Duration("mqtt-connect-timeout"),
			RetryInterval:  ctx.Duration("mqtt-retry-interval"),
		},
		Backend: &config.BackendConfig{
			BaseURL: ctx.String("api-url"),
			Timeout: ctx.Duration("api-timeout"),
		},
		Server: &config.ServerConfig{
			Addr:      ctx.String("http-addr"),
			JWTSecret: ctx.String("jwt-secret"),
		},
		Heartbeat: &config.HeartbeatConfig{
			TTL:      ctx.Duration("heartbeat-ttl"),
			Schedule: ctx.String("heartbeat-schedule"),
		},
		LogLevel: ctx.String("log-level"),
	}

	return run(ctx.Context, cfg)
}

func run(ctx context.Context, cfg *config.Config) error {
	errorChan := make(chan error, 1000)
	var err error

	eg, ctx := errgroup.WithContext(ctx)
	logCfg := zap.NewProductionConfig()

	logCfg.Level, err = zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	logger := zap.Must(logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)))
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	st := store.New()
	hub := notify.NewHub()
	tracker := heartbeat.NewTracker()
	dec := decoder.New(st, hub, tracker)
	mgr := broker.New(cfg.Broker, st, dec.Handle, errorChan)
	engine := control.New(st, mgr, hub.Messages)
	backendClient := backend.New(cfg.Backend)

	if err := mgr.Connect(); err != nil {
		return err
	}
	defer mgr.Close()

	sweeper := heartbeat.NewSweeper(cfg.Heartbeat, st, tracker)
	eg.Go(sweeper.Run)

	srv := &http.Server{
		Handler:      newMux(st, engine, hub, backendClient, cfg.Server.JWTSecret),
		Addr:         cfg.Server.Addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		// handle any async errors from services
		for {
			select {
			case err := <-errorChan:
				logger.Error("service error", zap.Error(err))
			case <-ctx.Done():
				logger.Info("context done")
				sweeper.Stop()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
				return ctx.Err()
			}
		}
	})

	return eg.Wait()
}

func newMux(st *store.Store, engine *control.Engine, hub *notify.Hub, backendClient *backend.Client, jwtSecret string) http.Handler {
	mux := http.NewServeMux()
	server.New(st, engine, hub, backendClient, jwtSecret).Register(mux)
	return server.LoggingMiddleware(mux)
}

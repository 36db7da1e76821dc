package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/api"
	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/bulk"
	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/config"
	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/messaging"
	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/transport/discord"
	"github.com/CauaCamp0s/Discord-Messaging-Service/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml/json")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	defer logSvc.Close()
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	gate := messaging.NewGate()
	adapter, err := discord.New(discord.Config{
		Token:   cfg.Discord.Token,
		OnReady: gate.Ready,
		OnFault: gate.Fault,
	}, log.With(logx.String("comp", "discord")))
	if err != nil {
		return err
	}

	resolver := messaging.NewResolver(adapter, log.With(logx.String("comp", "resolver")))
	dispatcher := messaging.NewDispatcher(gate, resolver, adapter, log.With(logx.String("comp", "dispatch")))
	pipeline := bulk.New(bulk.Config{RatePerSec: cfg.Bulk.RatePerSec}, dispatcher, log.With(logx.String("comp", "bulk")))

	srv := api.New(api.Config{
		Addr:        cfg.Server.Addr,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, dispatcher, pipeline, gate.State, log.With(logx.String("comp", "http")))

	gate.Connecting()
	if err := adapter.Start(ctx); err != nil {
		return err
	}

	// Live reload: logging level/sinks and the bulk rate limit.
	updates := mgr.Subscribe(1)
	go func() {
		if err := mgr.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Warn("config watch stopped", logx.Err(err))
		}
	}()
	go func() {
		for next := range updates {
			logSvc.Apply(logx.Config{
				Level:   next.Logging.Level,
				Console: next.Logging.Console,
				File: logx.FileConfig{
					Enabled: next.Logging.File.Enabled,
					Path:    next.Logging.File.Path,
				},
			})
			pipeline.Apply(bulk.Config{RatePerSec: next.Bulk.RatePerSec})
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("shutting down")
	gate.Shutdown()

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Warn("http shutdown", logx.Err(err))
	}
	if err := adapter.Stop(shCtx); err != nil {
		log.Warn("discord session close", logx.Err(err))
	}
	return nil
}

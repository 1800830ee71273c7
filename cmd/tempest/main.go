// Command tempest ingests Tempest weather-station hub messages and
// republishes throttled measurements to NATS.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ericvh/waggle-tempest/internal/config"
	"github.com/ericvh/waggle-tempest/internal/dlq"
	"github.com/ericvh/waggle-tempest/internal/listener"
	"github.com/ericvh/waggle-tempest/internal/logging"
	"github.com/ericvh/waggle-tempest/internal/pipeline"
	"github.com/ericvh/waggle-tempest/internal/publish"
	"github.com/ericvh/waggle-tempest/internal/server"
	"github.com/ericvh/waggle-tempest/internal/throttle"
	natsclient "github.com/ericvh/waggle-tempest/pkg/messaging/nats"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "tempest: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)
	logger = logger.With(logging.Service("tempest"))

	logger.Info("starting",
		logging.Transport(cfg.Listener.Transport),
		logging.Port(cfg.Listener.Port),
	)

	// Publish sink
	natsCfg := natsclient.DefaultConfig()
	natsCfg.URL = cfg.NATS.URL
	natsCfg.Name = cfg.NATS.Name
	natsCfg.Username = cfg.NATS.Username
	natsCfg.Password = cfg.NATS.Password
	natsCfg.Token = cfg.NATS.Token

	client, err := natsclient.NewClient(natsCfg)
	if err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer client.Close()

	// Throttle scheduler: Redis when shared state across restarts is
	// wanted, in-memory otherwise
	var scheduler throttle.Scheduler
	if cfg.Redis.Enabled {
		scheduler, err = throttle.NewRedisScheduler(cfg.Redis.URL, cfg.Publish.Interval)
		if err != nil {
			return fmt.Errorf("connect throttle backend: %w", err)
		}
		logger.Info("using Redis throttle scheduler")
	} else {
		scheduler = throttle.NewMemoryScheduler(cfg.Publish.Interval)
	}
	defer scheduler.Close()

	// Dead-letter queue for undecodable frames
	var queue dlq.Queue = dlq.NewNoOpQueue()
	if cfg.DLQ.Enabled {
		dlqCfg := natsCfg
		dlqCfg.URL = cfg.DLQ.NatsURL
		jsq, err := dlq.NewJetStreamQueue(context.Background(), dlqCfg, logger)
		if err != nil {
			return fmt.Errorf("connect dead-letter queue: %w", err)
		}
		defer jsq.Close()
		queue = jsq
		logger.Info("dead-letter queue enabled")
	}

	l, err := listener.New(cfg.Listener.Transport, listener.Config{
		Bind:      cfg.Listener.Bind,
		Port:      cfg.Listener.Port,
		QueueSize: cfg.Publish.QueueSize,
	}, logger)
	if err != nil {
		return err
	}

	p := pipeline.New(
		pipeline.Config{
			HeartbeatInterval: cfg.HeartbeatInterval(),
			ForceStatus:       cfg.Publish.ForceStatus,
		},
		l,
		scheduler,
		publish.NewSink(client, logger),
		queue,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Operational endpoints run independently of ingestion
	var metricsSrv *server.Server
	if cfg.Metrics.Port > 0 {
		metricsSrv = server.New(cfg.Metrics.Port, client.IsConnected, logger)
		go func() {
			if err := metricsSrv.Start(); err != nil {
				logger.Error("metrics server failed", logging.Error(err))
			}
		}()
	}

	runErr := p.Run(ctx)

	if metricsSrv != nil {
		if err := metricsSrv.Stop(context.Background()); err != nil {
			logger.Warn("metrics server shutdown failed", logging.Error(err))
		}
	}

	// Let in-flight publishes (including the terminal status) flush
	if err := client.Drain(); err != nil {
		logger.Warn("broker drain failed", logging.Error(err))
	}

	logger.Info("stopped")
	return runErr
}

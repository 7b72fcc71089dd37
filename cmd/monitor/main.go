package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"OfficeSLAMonitor/internal/config"
	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/metrics"
	"OfficeSLAMonitor/internal/monitor"
	"OfficeSLAMonitor/internal/mqtt"

	"github.com/gorilla/mux"
	"github.com/urfave/cli/v2"
)

var (
	officesPath     string
	once            bool
	iterations      int
	intervalSeconds int
	timeoutMS       int
	pingConcurrency int
	verbose         bool
)

func main() {
	app := &cli.App{
		Name:  "office-sla-monitor",
		Usage: "probe office gateways, MX appliances and IPsec tunnels and report state changes",
		Description: `Each office in the offices file is pinged on three targets every
interval. Debounced state changes and periodic status ticks are printed as
JSON lines on stdout and sent to the SLA API (or MQTT, with
INGEST_TRANSPORT=mqtt). The offices file is reloaded when it changes.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to the offices YAML file",
				EnvVars:     []string{"OFFICES_YAML"},
				Value:       "offices.yaml",
				Destination: &officesPath,
			},
			&cli.BoolFlag{
				Name:        "once",
				Usage:       "ping every office once, print instant states and exit",
				Destination: &once,
			},
			&cli.IntFlag{
				Name:        "iterations",
				Usage:       "exit after this many broadcast periods (0 runs forever)",
				Destination: &iterations,
			},
			&cli.IntFlag{
				Name:        "interval-seconds",
				Usage:       "override interval_seconds from the offices file",
				Destination: &intervalSeconds,
			},
			&cli.IntFlag{
				Name:        "timeout-ms",
				Usage:       "override timeout_ms from the offices file",
				Destination: &timeoutMS,
			},
			&cli.IntFlag{
				Name:        "ping-concurrency",
				Usage:       "maximum pings in flight",
				EnvVars:     []string{"PING_CONCURRENCY"},
				Value:       monitor.DefaultPingConcurrency,
				Destination: &pingConcurrency,
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Aliases:     []string{"v"},
				Usage:       "log at debug level regardless of LOG_LEVEL",
				Destination: &verbose,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Mode:        cfg.Logging.Mode,
		LogFilePath: cfg.Logging.FilePath,
		UseColors:   cfg.Logging.UseColors,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()
	if verbose {
		log.SetLevel(logger.DEBUG)
	}

	if err := cfg.Validate(config.RoleMonitor); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	file, err := monitor.LoadOffices(officesPath)
	if err != nil {
		return err
	}

	settings := monitor.Resolve(file, cfg.Monitor.PingConcurrency, monitor.Overrides{
		IntervalSeconds: intervalSeconds,
		TimeoutMS:       timeoutMS,
		PingConcurrency: pingConcurrency,
	})
	pinger := monitor.NewLimitedPinger(
		monitor.NewSystemPinger(cfg.Monitor.PingPrivileged, log.Named("ping")),
		settings.PingConcurrency,
	)

	if once {
		rows := monitor.Oneshot(ctx, pinger, file, settings.Timeout, time.Now())
		log.Event(monitor.EventOneshot, map[string]interface{}{"status": rows})
		return nil
	}

	log.Info("Monitoring %d offices from %s (interval=%s timeout=%s broadcast=%s concurrency=%d)",
		len(file.Offices), officesPath, settings.Interval, settings.Timeout, settings.Broadcast, settings.PingConcurrency)

	m := metrics.New()

	web := monitor.NewHTTPIngestor(monitor.HTTPIngestorConfig{
		BaseURL:        cfg.Monitor.APIBase,
		RequestTimeout: cfg.Monitor.RequestTimeout,
		MaxRetries:     cfg.Monitor.MaxRetries,
		RetryBackoff:   cfg.Monitor.RetryBackoff,
		Secret:         cfg.Security.IngestJWTSecret,
		TokenTTL:       cfg.Security.IngestTokenTTL,
	}, m, log.Named("ingest"))

	var sink monitor.Sink = web
	if cfg.Monitor.Transport == config.TransportMQTT {
		client, err := mqtt.NewClient(mqtt.ClientConfig{
			MQTT:   &cfg.MQTT,
			Logger: log.Named("mqtt"),
			Role:   "monitor",
		})
		if err != nil {
			return fmt.Errorf("failed to create MQTT client: %w", err)
		}
		if err := client.Connect(); err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		defer client.Disconnect()

		sink = monitor.NewMQTTIngestor(web, client, m, log.Named("ingest"))
		log.Info("Publishing state changes to %s and ticks to %s", cfg.MQTT.StateChangeTopic, cfg.MQTT.TickTopic)
	} else {
		log.Info("Reporting to %s", cfg.Monitor.APIBase)
	}

	if cfg.Monitor.MetricsAddr != "" {
		metricsSrv := serveMetrics(cfg.Monitor.MetricsAddr, m, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	runCtx, cancel := context.WithCancel(ctx)
	manager := monitor.NewManager(runCtx, pinger, sink, settings, m, log.Named("monitor"))
	defer func() {
		cancel()
		manager.Wait()
		log.Info("Monitor stopped")
	}()

	if err := manager.Reconcile(runCtx, file); err != nil {
		log.Warn("Some offices could not be registered: %v", err)
	}

	runner := &monitor.Runner{
		Manager:    manager,
		Sink:       sink,
		Watcher:    monitor.NewWatcher(officesPath, manager, m, log.Named("config")),
		Broadcast:  settings.Broadcast,
		Iterations: iterations,
		Log:        log.Named("monitor"),
	}
	return runner.Run(runCtx)
}

func serveMetrics(addr string, m *metrics.Metrics, log *logger.Logger) *http.Server {
	router := mux.NewRouter()
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed: %v", err)
		}
	}()
	log.Info("Metrics on http://%s/metrics", addr)
	return srv
}

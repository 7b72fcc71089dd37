package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"OfficeSLAMonitor/internal/config"
	"OfficeSLAMonitor/internal/dashboard"
	"OfficeSLAMonitor/internal/handler"
	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/metrics"
	"OfficeSLAMonitor/internal/server"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// 2. Initialize Logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Mode:        cfg.Logging.Mode,
		LogFilePath: cfg.Logging.FilePath,
		UseColors:   cfg.Logging.UseColors,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	if err := cfg.Validate(config.RoleDashboard); err != nil {
		log.Fatal("Configuration validation failed: %v", err)
	}

	cfg.Print(config.RoleDashboard)
	log.Info("Starting Office SLA dashboard")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// 3. Presentation
	loc, err := time.LoadLocation(cfg.Dashboard.Timezone)
	if err != nil {
		log.Fatal("Invalid time zone: %v", err)
	}
	renderer, err := dashboard.NewRenderer(loc)
	if err != nil {
		log.Fatal("Failed to load templates: %v", err)
	}
	locations, err := dashboard.LoadLocations(cfg.Dashboard.LocationsFile)
	if err != nil {
		log.Fatal("Failed to load office locations: %v", err)
	}

	// 4. Sessions and API access
	client := dashboard.NewClient(cfg.Dashboard.APIBase, cfg.Dashboard.FetchTimeout, nil)
	registry := dashboard.NewRegistry(m)
	sessions := dashboard.SessionConfig{
		Fetcher:      client,
		Locations:    locations,
		PollInterval: cfg.Dashboard.PollInterval,
		Timezone:     cfg.Dashboard.Timezone,
		Metrics:      m,
		Log:          log.Named("session"),
	}

	events, err := dashboard.NewEventListener(cfg.Dashboard.APIBase, registry, 0, log.Named("events"))
	if err != nil {
		log.Fatal("Invalid API base: %v", err)
	}

	// 5. Handlers
	cfg.Server.Port = cfg.Dashboard.Port
	srv := server.New(ctx, cfg, m, log)
	handler.NewHealthHandler(client, nil, log).RegisterRoutes(srv.Root())
	srv.ServeMetrics()
	handler.NewDashboardHandler(ctx, renderer, registry, sessions, handler.PageTimeout(cfg.Server.WriteTimeout), log.Named("dashboard")).RegisterRoutes(srv.Mount("/"))

	// 6. Serve until a signal arrives
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error { return events.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		log.Warn("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info("Dashboard ready on http://%s:%d", cfg.Server.Host, cfg.Dashboard.Port)

	if err := g.Wait(); err != nil {
		log.Error("Dashboard stopped: %v", err)
	}
	log.Info("Shutdown complete")
}

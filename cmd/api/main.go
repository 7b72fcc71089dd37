package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"OfficeSLAMonitor/internal/config"
	"OfficeSLAMonitor/internal/database"
	"OfficeSLAMonitor/internal/handler"
	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/metrics"
	"OfficeSLAMonitor/internal/middleware"
	"OfficeSLAMonitor/internal/mqtt"
	"OfficeSLAMonitor/internal/repository"
	"OfficeSLAMonitor/internal/server"
	"OfficeSLAMonitor/internal/service"
	"OfficeSLAMonitor/internal/websocket"
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

	if err := cfg.Validate(config.RoleAPI); err != nil {
		log.Fatal("Configuration validation failed: %v", err)
	}

	cfg.Print(config.RoleAPI)
	log.Info("Starting Office SLA API")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// 3. Database Connection + migrations
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Info("Database connected and migrated")

	// 4. Repositories
	officeRepo := repository.NewOfficeRepository(db.DB)
	changeRepo := repository.NewStateChangeRepository(db.DB)
	sampleRepo := repository.NewSampleRepository(db.DB)

	if n, err := officeRepo.Count(ctx); err == nil {
		log.Info("%d offices registered", n)
	}

	// 5. Live event hub
	hub := websocket.NewHub(log.Named("ws"))
	hub.OnClientCount(func(n int) { m.WebsocketClients.Set(float64(n)) })
	go hub.Run(ctx)

	// 6. Services
	officeService := service.NewOfficeService(officeRepo, log.Named("offices"))
	ingestService := service.NewIngestService(changeRepo, sampleRepo, hub, m, log.Named("ingest"))
	slaService := service.NewSLAService(changeRepo, sampleRepo, m, log.Named("sla"))

	// 7. Optional MQTT ingest
	var broker handler.BrokerChecker
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
			MQTT:   &cfg.MQTT,
			Logger: log.Named("mqtt"),
			Role:   "api",
		})
		if err != nil {
			log.Fatal("Failed to create MQTT client: %v", err)
		}
		defer mqttClient.Disconnect()

		if err := mqttClient.Connect(); err != nil {
			log.Fatal("Failed to connect to MQTT broker: %v", err)
		}
		if err := mqttClient.SubscribeIngest(ingestService); err != nil {
			log.Fatal("Failed to subscribe to ingest topics: %v", err)
		}
		broker = mqttClient
		log.Info("MQTT ingest active on %s and %s", cfg.MQTT.StateChangeTopic, cfg.MQTT.TickTopic)
	}

	// 8. Handlers
	protect := middleware.IngestAuth(cfg.Security.IngestJWTSecret, log.Named("auth"))

	srv := server.New(ctx, cfg, m, log)
	api := srv.Mount("/api")
	handler.NewOfficeHandler(officeService, log).RegisterRoutes(api, protect)
	handler.NewIngestHandler(ingestService, log).RegisterRoutes(api, protect)
	handler.NewSLAHandler(slaService, log).RegisterRoutes(api)
	handler.NewEventsHandler(hub).RegisterRoutes(api)
	handler.NewHealthHandler(db, broker, log).RegisterRoutes(srv.Root())
	srv.ServeMetrics()

	// 9. Start HTTP Server
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("Server failed: %v", err)
		}
	}()

	log.Info("API server ready on http://%s:%d", cfg.Server.Host, cfg.Server.Port)

	// 10. Graceful Shutdown
	<-ctx.Done()
	log.Warn("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error: %v", err)
	}

	log.Info("Shutdown complete")
}

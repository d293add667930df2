package main

import (
	"fmt"
	"log"

	"tree-garden/internal/api"
	"tree-garden/internal/config"
	"tree-garden/internal/db"
	"tree-garden/internal/middleware"
	"tree-garden/internal/notify"
	"tree-garden/internal/service"
	"tree-garden/pkg"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbConn, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbConn.Close()

	db.Migrate(dbConn, "migrations")

	zapLogger, _ := zap.NewProduction()
	defer func(l *zap.Logger) {
		_ = l.Sync()
	}(zapLogger)
	logger := pkg.NewZapLogger(zapLogger)

	var sink notify.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink := notify.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer kafkaSink.Close()
		sink = kafkaSink
	} else {
		sink = notify.NewZapSink(logger)
	}

	authDB := db.NewAuthDB(dbConn)
	catalogDB := db.NewCatalogDB(dbConn)
	gardenDB := db.NewGardenDB(dbConn)
	rewardDB := db.NewRewardDB(dbConn)
	treasury := db.NewTreasury(dbConn)

	authService := service.NewAuthService(authDB, logger, cfg.JWTSecret)
	catalogService := service.NewCatalogService(catalogDB, authDB, sink, logger)
	gardenService := service.NewGardenService(gardenDB, rewardDB, treasury, sink, logger)
	rewardService := service.NewRewardService(rewardDB, sink, logger, cfg.RewardInterval)

	e := echo.New()
	e.Use(middleware.RequestLogger(logger))

	handlers := &api.Handlers{
		AuthService:    authService,
		CatalogService: catalogService,
		GardenService:  gardenService,
		RewardService:  rewardService,
		Logger:         logger,
	}
	api.RegisterHandlers(e, handlers, cfg.JWTSecret)

	port := fmt.Sprintf(":%s", cfg.ServerPort)
	logger.Info("Starting server", zap.String("port", cfg.ServerPort))
	if err := e.Start(port); err != nil {
		logger.Error("Failed to run server", zap.Error(err))
	}
}

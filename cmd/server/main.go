package main

import (
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/JemAndrew/football-betting-bot/internal/api"
	"github.com/JemAndrew/football-betting-bot/internal/config"
	"github.com/JemAndrew/football-betting-bot/internal/controllers"
	"github.com/JemAndrew/football-betting-bot/internal/database"
	"github.com/JemAndrew/football-betting-bot/internal/datadir"
	"github.com/JemAndrew/football-betting-bot/internal/logging"
	"github.com/JemAndrew/football-betting-bot/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer logger.Sync()

	if err := datadir.Init(cfg.DataRoot); err != nil {
		log.Fatalf("preparing data directory: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("connecting database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrating database: %v", err)
	}

	modelCfg, err := config.LoadModelConfig("config/model.yaml")
	if err != nil {
		log.Fatalf("loading model config: %v", err)
	}

	cache, err := api.NewFileCache(datadir.CacheDir(cfg.DataRoot), time.Hour)
	if err != nil {
		log.Fatalf("opening API cache: %v", err)
	}
	football := api.NewFootballDataClient(cfg.FootballDataKey, cache, logger)

	// Services
	teamSvc := services.NewTeamService(db, football)
	matchSvc := services.NewMatchService(db)
	formSvc := services.NewFormService(db, modelCfg.Form, logger)
	featureSvc := services.NewFeatureService(db, modelCfg.Poisson, formSvc, logger)
	predictionSvc, err := services.NewPredictionService(db, featureSvc, modelCfg, logger)
	if err != nil {
		log.Fatalf("building prediction service: %v", err)
	}
	betSvc := services.NewBetService(db, logger)
	oddsSvc := services.NewOddsService(db)

	// Controllers
	teamCtrl := controllers.NewTeamController(teamSvc)
	matchCtrl := controllers.NewMatchController(matchSvc, featureSvc)
	oddsCtrl := controllers.NewOddsController(oddsSvc)
	predictionCtrl := controllers.NewPredictionController(predictionSvc)
	betCtrl := controllers.NewBetController(betSvc)
	warehouseCtrl := controllers.NewWarehouseController(db, cfg.WarehouseDSN, logger)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")
	teamCtrl.Register(api)
	matchCtrl.Register(api)
	oddsCtrl.Register(api)
	predictionCtrl.Register(api)
	betCtrl.Register(api)
	warehouseCtrl.Register(api)

	e.Logger.Fatal(e.Start(":8080"))
}

package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JemAndrew/football-betting-bot/internal/services"
)

// WarehouseController triggers and inspects the analytics warehouse
// ETL over HTTP. The warehouse connection is opened per request since
// generation runs are rare compared to the rest of the API.
type WarehouseController struct {
	sourceDB  *gorm.DB
	targetDSN string
	logger    *zap.Logger
}

func NewWarehouseController(sourceDB *gorm.DB, targetDSN string, logger *zap.Logger) *WarehouseController {
	return &WarehouseController{
		sourceDB:  sourceDB,
		targetDSN: targetDSN,
		logger:    logger.Named("warehouse-ctrl"),
	}
}

// Register attaches the warehouse routes to a route group.
func (ctr *WarehouseController) Register(g *echo.Group) {
	g.POST("/warehouse/generate", ctr.Generate)
	g.GET("/warehouse/status", ctr.Status)
}

// Generate runs the full warehouse pipeline. ?days_back controls how
// much match history is exported (default one year).
func (ctr *WarehouseController) Generate(c echo.Context) error {
	if ctr.targetDSN == "" {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "WAREHOUSE_DSN is not configured"})
	}

	daysBack := 365
	if v := c.QueryParam("days_back"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "days_back must be a positive integer"})
		}
		daysBack = parsed
	}

	ctx := c.Request().Context()
	pool, err := pgxpool.New(ctx, ctr.targetDSN)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "connecting warehouse: " + err.Error()})
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "warehouse unreachable: " + err.Error()})
	}

	cfg := &services.WarehouseConfig{
		SourceDB:  ctr.sourceDB,
		TargetDB:  pool,
		StartDate: time.Now().AddDate(0, 0, -daysBack),
		EndDate:   time.Now(),
	}
	gen := services.NewWarehouseGenerator(cfg, ctr.logger)

	started := time.Now()
	if err := gen.Generate(ctx); err != nil {
		ctr.logger.Error("warehouse generation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error":   err.Error(),
			"elapsed": time.Since(started).String(),
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":     "success",
		"elapsed":    time.Since(started).String(),
		"days_back":  daysBack,
		"start_date": cfg.StartDate.Format("2006-01-02"),
		"end_date":   cfg.EndDate.Format("2006-01-02"),
	})
}

// Status reports warehouse row counts and the most recent pipeline run.
func (ctr *WarehouseController) Status(c echo.Context) error {
	if ctr.targetDSN == "" {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "WAREHOUSE_DSN is not configured"})
	}

	ctx := c.Request().Context()
	pool, err := pgxpool.New(ctx, ctr.targetDSN)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "connecting warehouse: " + err.Error()})
	}
	defer pool.Close()

	status := map[string]any{
		"timestamp": time.Now().Format(time.RFC3339),
	}

	counts := map[string]string{
		"matches":  "SELECT COUNT(*) FROM curated.matches",
		"odds":     "SELECT COUNT(*) FROM curated.odds",
		"features": "SELECT COUNT(*) FROM features.match_features",
	}
	for name, query := range counts {
		var n int
		if err := pool.QueryRow(ctx, query).Scan(&n); err != nil {
			status[name] = map[string]string{"error": err.Error()}
			continue
		}
		status[name] = map[string]int{"count": n}
	}

	var lastStarted time.Time
	var lastStatus, lastPhase string
	err = pool.QueryRow(ctx, `
		SELECT started_at, status, phase
		FROM analytics.pipeline_logs
		ORDER BY started_at DESC
		LIMIT 1
	`).Scan(&lastStarted, &lastStatus, &lastPhase)
	if err != nil {
		status["last_run"] = map[string]string{"error": "no pipeline run recorded"}
	} else {
		status["last_run"] = map[string]string{
			"started_at": lastStarted.Format(time.RFC3339),
			"status":     lastStatus,
			"phase":      lastPhase,
		}
	}

	return c.JSON(http.StatusOK, status)
}

package controllers

import (
	"net/http"
	"strconv"

	"github.com/JemAndrew/football-betting-bot/internal/services"
	"github.com/labstack/echo/v4"
)

const defaultBankroll = 1000.0

// PredictionController runs the models and exposes their output.
type PredictionController struct {
	svc services.PredictionService
}

func NewPredictionController(svc services.PredictionService) *PredictionController {
	return &PredictionController{svc: svc}
}

// Register attaches the prediction routes to a route group.
func (ctr *PredictionController) Register(g *echo.Group) {
	g.POST("/matches/:id/predictions", ctr.PredictMatch)
	g.GET("/matches/:id/predictions", ctr.GetPredictions)
	g.GET("/value-bets", ctr.ValueBets)
}

// PredictMatch runs every model against one fixture and stores the
// result, replacing any earlier run.
func (ctr *PredictionController) PredictMatch(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid match id"})
	}
	predictions, err := ctr.svc.PredictMatch(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, predictions)
}

func (ctr *PredictionController) GetPredictions(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid match id"})
	}
	predictions, err := ctr.svc.Predictions(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, predictions)
}

// ValueBets scans stored odds against ensemble predictions. The stake
// suggestions size against ?bankroll=, defaulting to 1000.
func (ctr *PredictionController) ValueBets(c echo.Context) error {
	bankroll := defaultBankroll
	if v := c.QueryParam("bankroll"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid bankroll"})
		}
		bankroll = parsed
	}

	bets, err := ctr.svc.ValueBets(c.Request().Context(), bankroll)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, bets)
}

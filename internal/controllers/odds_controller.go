package controllers

import (
	"net/http"

	"github.com/JemAndrew/football-betting-bot/internal/services"
	"github.com/labstack/echo/v4"
)

// OddsController serves stored bookmaker prices per match.
type OddsController struct {
	svc services.OddsService
}

func NewOddsController(svc services.OddsService) *OddsController {
	return &OddsController{svc: svc}
}

// Register attaches the odds routes to a route group.
func (ctr *OddsController) Register(g *echo.Group) {
	g.GET("/matches/:id/odds", ctr.ListOdds)
	g.GET("/matches/:id/odds/best", ctr.BestPrices)
}

// ListOdds returns every stored price snapshot for a match.
func (ctr *OddsController) ListOdds(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid match id"})
	}
	odds, err := ctr.svc.ListByMatch(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, odds)
}

// BestPrices returns the best available price per market selection.
func (ctr *OddsController) BestPrices(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid match id"})
	}
	best, err := ctr.svc.BestPrices(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, best)
}

package controllers

import (
	"net/http"
	"strconv"

	"github.com/JemAndrew/football-betting-bot/internal/models"
	"github.com/JemAndrew/football-betting-bot/internal/services"
	"github.com/labstack/echo/v4"
)

// BetController records stakes and settles them.
type BetController struct {
	svc services.BetService
}

func NewBetController(svc services.BetService) *BetController {
	return &BetController{svc: svc}
}

// Register attaches the bet routes to a route group.
func (ctr *BetController) Register(g *echo.Group) {
	g.POST("/bets", ctr.PlaceBet)
	g.GET("/bets", ctr.ListBets)
	g.GET("/bets/ledger", ctr.GetLedger)
	g.POST("/bets/settle", ctr.SettleFinished)
	g.POST("/bets/:id/settle", ctr.SettleBet)
}

// PlaceBet validates and stores a new stake. The bankroll cap checks
// against ?bankroll=, defaulting to 1000.
func (ctr *BetController) PlaceBet(c echo.Context) error {
	req := new(models.CreateBetRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	bankroll := defaultBankroll
	if v := c.QueryParam("bankroll"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid bankroll"})
		}
		bankroll = parsed
	}

	bet, err := ctr.svc.Place(c.Request().Context(), req, bankroll)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, bet)
}

func (ctr *BetController) ListBets(c echo.Context) error {
	bets, err := ctr.svc.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, bets)
}

func (ctr *BetController) GetLedger(c echo.Context) error {
	ledger, err := ctr.svc.Ledger(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, ledger)
}

// SettleBet forces a result onto one bet, e.g. for manual voids.
func (ctr *BetController) SettleBet(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid bet id"})
	}
	req := new(models.SettleBetRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	bet, err := ctr.svc.Settle(c.Request().Context(), id, req.Result)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, bet)
}

// SettleFinished settles every pending bet with a final score.
func (ctr *BetController) SettleFinished(c echo.Context) error {
	settled, err := ctr.svc.SettleFinished(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]int{"settled": settled})
}

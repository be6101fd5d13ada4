package controllers

import (
	"net/http"
	"strconv"

	"github.com/JemAndrew/football-betting-bot/internal/services"
	"github.com/labstack/echo/v4"
)

// TeamController serves stored teams and their current ratings.
type TeamController struct {
	svc services.TeamService
}

func NewTeamController(svc services.TeamService) *TeamController {
	return &TeamController{svc: svc}
}

// Register attaches the team routes to a route group.
func (ctr *TeamController) Register(g *echo.Group) {
	g.GET("/teams", ctr.ListTeams)
	g.GET("/teams/standings", ctr.Standings)
	g.GET("/teams/:id", ctr.GetTeam)
}

// ListTeams returns all teams, optionally filtered by ?league=PL,
// ordered by rating.
func (ctr *TeamController) ListTeams(c echo.Context) error {
	teams, err := ctr.svc.List(c.Request().Context(), c.QueryParam("league"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, teams)
}

// Standings returns the current league table for ?league=PL with each
// side's rating merged in.
func (ctr *TeamController) Standings(c echo.Context) error {
	league := c.QueryParam("league")
	if league == "" {
		league = "PL"
	}
	rows, err := ctr.svc.Standings(c.Request().Context(), league)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, rows)
}

func (ctr *TeamController) GetTeam(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid team id"})
	}
	team, err := ctr.svc.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "team not found"})
	}
	return c.JSON(http.StatusOK, team)
}

// parseID reads the :id path parameter.
func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}

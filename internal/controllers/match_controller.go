package controllers

import (
	"net/http"
	"strconv"

	"github.com/JemAndrew/football-betting-bot/internal/models"
	"github.com/JemAndrew/football-betting-bot/internal/services"
	"github.com/labstack/echo/v4"
)

// MatchController serves fixtures, results and their model features.
type MatchController struct {
	svc      services.MatchService
	features services.FeatureService
}

func NewMatchController(svc services.MatchService, features services.FeatureService) *MatchController {
	return &MatchController{svc: svc, features: features}
}

// Register attaches the match routes to a route group.
func (ctr *MatchController) Register(g *echo.Group) {
	g.GET("/matches", ctr.ListMatches)
	g.GET("/matches/:id", ctr.GetMatch)
	g.GET("/matches/:id/features", ctr.GetFeatures)
}

// ListMatches supports ?league=, ?status= and day windows via
// ?days_ahead= and ?days_back=.
func (ctr *MatchController) ListMatches(c echo.Context) error {
	q := services.MatchQuery{
		LeagueID: c.QueryParam("league"),
		Status:   c.QueryParam("status"),
	}
	if v := c.QueryParam("days_ahead"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid days_ahead"})
		}
		q.DaysAhead = n
	}
	if v := c.QueryParam("days_back"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid days_back"})
		}
		q.DaysBack = n
	}

	matches, err := ctr.svc.List(c.Request().Context(), q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	resp := make([]models.MatchResponse, len(matches))
	for i, m := range matches {
		resp[i] = models.MatchToResponse(m)
	}
	return c.JSON(http.StatusOK, resp)
}

func (ctr *MatchController) GetMatch(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid match id"})
	}
	match, err := ctr.svc.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "match not found"})
	}
	return c.JSON(http.StatusOK, models.MatchToResponse(*match))
}

// GetFeatures returns the pre-kickoff feature vector the models see.
func (ctr *MatchController) GetFeatures(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid match id"})
	}
	match, err := ctr.svc.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "match not found"})
	}
	f, err := ctr.features.MatchFeatures(c.Request().Context(), match)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, f)
}

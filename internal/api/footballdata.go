package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const footballDataBaseURL = "https://api.football-data.org/v4"

// Competitions covered by the free tier.
var Competitions = map[string]string{
	"PL":  "Premier League",
	"PD":  "La Liga",
	"BL1": "Bundesliga",
	"SA":  "Serie A",
	"FL1": "Ligue 1",
	"CL":  "Champions League",
	"EL":  "Europa League",
}

// FootballDataClient talks to football-data.org. The free tier allows
// 10 requests per minute, authenticated with the X-Auth-Token header.
type FootballDataClient struct {
	client *Client
}

func NewFootballDataClient(apiKey string, cache *FileCache, logger *zap.Logger) *FootballDataClient {
	return &FootballDataClient{
		client: NewClient(ClientConfig{
			BaseURL:           footballDataBaseURL,
			RequestsPerMinute: 10,
			Cache:             cache,
			Auth: func(req *http.Request, params url.Values) url.Values {
				req.Header.Set("X-Auth-Token", apiKey)
				return params
			},
		}, logger.Named("football-data")),
	}
}

// FDMatch mirrors the matches payload of the v4 API.
type FDMatch struct {
	ID       int64     `json:"id"`
	UTCDate  time.Time `json:"utcDate"`
	Status   string    `json:"status"`
	Matchday int       `json:"matchday"`
	HomeTeam FDTeam    `json:"homeTeam"`
	AwayTeam FDTeam    `json:"awayTeam"`
	Score    FDScore   `json:"score"`
	Referees []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"referees"`
}

type FDTeam struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	TLA       string `json:"tla"`
}

type FDScore struct {
	Winner   string `json:"winner"`
	FullTime struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"fullTime"`
}

// Referee returns the main referee's name, empty when not listed.
func (m FDMatch) Referee() string {
	for _, r := range m.Referees {
		if r.Type == "REFEREE" {
			return r.Name
		}
	}
	return ""
}

type matchesResponse struct {
	Matches []FDMatch `json:"matches"`
}

// MatchFilter narrows a competition's match listing.
type MatchFilter struct {
	DateFrom time.Time
	DateTo   time.Time
	Status   string
	Matchday int
}

// Matches lists a competition's matches with optional filters.
func (c *FootballDataClient) Matches(ctx context.Context, competition string, f MatchFilter) ([]FDMatch, error) {
	if _, ok := Competitions[competition]; !ok {
		return nil, fmt.Errorf("unknown competition code %q", competition)
	}
	params := url.Values{}
	if !f.DateFrom.IsZero() {
		params.Set("dateFrom", f.DateFrom.Format("2006-01-02"))
	}
	if !f.DateTo.IsZero() {
		params.Set("dateTo", f.DateTo.Format("2006-01-02"))
	}
	if f.Status != "" {
		params.Set("status", f.Status)
	}
	if f.Matchday > 0 {
		params.Set("matchday", fmt.Sprint(f.Matchday))
	}

	var resp matchesResponse
	if err := c.client.Get(ctx, "/competitions/"+competition+"/matches", params, &resp); err != nil {
		return nil, fmt.Errorf("fetching %s matches: %w", competition, err)
	}
	return resp.Matches, nil
}

// Results lists finished matches in a date window.
func (c *FootballDataClient) Results(ctx context.Context, competition string, from, to time.Time) ([]FDMatch, error) {
	return c.Matches(ctx, competition, MatchFilter{DateFrom: from, DateTo: to, Status: "FINISHED"})
}

// Fixtures lists scheduled matches over the next days.
func (c *FootballDataClient) Fixtures(ctx context.Context, competition string, days int) ([]FDMatch, error) {
	now := time.Now()
	return c.Matches(ctx, competition, MatchFilter{
		DateFrom: now,
		DateTo:   now.AddDate(0, 0, days),
		Status:   "SCHEDULED",
	})
}

// FDStanding is one row of a league table.
type FDStanding struct {
	Position       int    `json:"position"`
	Team           FDTeam `json:"team"`
	PlayedGames    int    `json:"playedGames"`
	Won            int    `json:"won"`
	Draw           int    `json:"draw"`
	Lost           int    `json:"lost"`
	Points         int    `json:"points"`
	GoalsFor       int    `json:"goalsFor"`
	GoalsAgainst   int    `json:"goalsAgainst"`
	GoalDifference int    `json:"goalDifference"`
}

type standingsResponse struct {
	Standings []struct {
		Type  string       `json:"type"`
		Table []FDStanding `json:"table"`
	} `json:"standings"`
}

// Standings returns the TOTAL league table for a competition.
func (c *FootballDataClient) Standings(ctx context.Context, competition string) ([]FDStanding, error) {
	var resp standingsResponse
	if err := c.client.Get(ctx, "/competitions/"+competition+"/standings", url.Values{}, &resp); err != nil {
		return nil, fmt.Errorf("fetching %s standings: %w", competition, err)
	}
	for _, s := range resp.Standings {
		if s.Type == "TOTAL" {
			return s.Table, nil
		}
	}
	return nil, fmt.Errorf("no TOTAL standings table for %s", competition)
}

type teamsResponse struct {
	Teams []FDTeam `json:"teams"`
}

// Teams lists the teams in a competition's current season.
func (c *FootballDataClient) Teams(ctx context.Context, competition string) ([]FDTeam, error) {
	var resp teamsResponse
	if err := c.client.Get(ctx, "/competitions/"+competition+"/teams", url.Values{}, &resp); err != nil {
		return nil, fmt.Errorf("fetching %s teams: %w", competition, err)
	}
	return resp.Teams, nil
}

// Team fetches a single team by its football-data ID.
func (c *FootballDataClient) Team(ctx context.Context, id int64) (*FDTeam, error) {
	var team FDTeam
	if err := c.client.Get(ctx, fmt.Sprintf("/teams/%d", id), url.Values{}, &team); err != nil {
		return nil, fmt.Errorf("fetching team %d: %w", id, err)
	}
	return &team, nil
}

// TeamMatches lists one team's matches with optional filters and a
// result cap.
func (c *FootballDataClient) TeamMatches(ctx context.Context, teamID int64, f MatchFilter, limit int) ([]FDMatch, error) {
	params := url.Values{}
	if !f.DateFrom.IsZero() {
		params.Set("dateFrom", f.DateFrom.Format("2006-01-02"))
	}
	if !f.DateTo.IsZero() {
		params.Set("dateTo", f.DateTo.Format("2006-01-02"))
	}
	if f.Status != "" {
		params.Set("status", f.Status)
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}

	var resp matchesResponse
	if err := c.client.Get(ctx, fmt.Sprintf("/teams/%d/matches", teamID), params, &resp); err != nil {
		return nil, fmt.Errorf("fetching team %d matches: %w", teamID, err)
	}
	return resp.Matches, nil
}

// FDScorer is one row of a competition's scorer table.
type FDScorer struct {
	Player struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Nationality string `json:"nationality"`
		Position    string `json:"position"`
	} `json:"player"`
	Team      FDTeam `json:"team"`
	Goals     int    `json:"goals"`
	Assists   int    `json:"assists"`
	Penalties int    `json:"penalties"`
}

type scorersResponse struct {
	Scorers []FDScorer `json:"scorers"`
}

// TopScorers returns a competition's leading scorers.
func (c *FootballDataClient) TopScorers(ctx context.Context, competition string, limit int) ([]FDScorer, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	var resp scorersResponse
	if err := c.client.Get(ctx, "/competitions/"+competition+"/scorers", params, &resp); err != nil {
		return nil, fmt.Errorf("fetching %s scorers: %w", competition, err)
	}
	return resp.Scorers, nil
}

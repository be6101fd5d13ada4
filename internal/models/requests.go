package models

import "time"

// CreateBetRequest is the payload for placing a bet through the API.
type CreateBetRequest struct {
	MatchID   uint    `json:"match_id"`
	Market    string  `json:"market"`
	Selection string  `json:"selection"`
	Stake     float64 `json:"stake"`
	Price     float64 `json:"price"`
	Strategy  string  `json:"strategy"`
}

// SettleBetRequest settles an existing bet.
type SettleBetRequest struct {
	Result string `json:"result"`
}

// MatchResponse is the API shape of a match with team names flattened.
type MatchResponse struct {
	ID        uint      `json:"id"`
	Date      time.Time `json:"date"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	LeagueID  string    `json:"league_id"`
	Status    string    `json:"status"`
	HomeGoals *int      `json:"home_goals,omitempty"`
	AwayGoals *int      `json:"away_goals,omitempty"`
	Referee   string    `json:"referee,omitempty"`
}

// ValueBetResponse is one detected value opportunity.
type ValueBetResponse struct {
	MatchID     uint    `json:"match_id"`
	HomeTeam    string  `json:"home_team"`
	AwayTeam    string  `json:"away_team"`
	Market      string  `json:"market"`
	Bookmaker   string  `json:"bookmaker"`
	Price       float64 `json:"price"`
	Probability float64 `json:"probability"`
	Edge        float64 `json:"edge"`
	ExpectedVal float64 `json:"expected_value"`
	Stake       float64 `json:"suggested_stake"`
}

// MatchToResponse flattens a loaded match for API output.
func MatchToResponse(m Match) MatchResponse {
	r := MatchResponse{
		ID:        m.ID,
		Date:      m.Date,
		HomeTeam:  m.HomeTeam.Name,
		AwayTeam:  m.AwayTeam.Name,
		LeagueID:  m.LeagueID,
		Status:    m.Status,
		HomeGoals: m.HomeGoals,
		AwayGoals: m.AwayGoals,
	}
	if m.Referee != nil {
		r.Referee = m.Referee.Name
	}
	return r
}

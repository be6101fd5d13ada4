package services

import (
	"context"
	"fmt"

	"github.com/JemAndrew/football-betting-bot/internal/api"
	"github.com/JemAndrew/football-betting-bot/internal/models"
	"github.com/JemAndrew/football-betting-bot/internal/oddsmath"
	"gorm.io/gorm"
)

// StandingRow is one line of a league table, with the stored rating
// attached when the team is known locally.
type StandingRow struct {
	Position       int     `json:"position"`
	Team           string  `json:"team"`
	Played         int     `json:"played"`
	Won            int     `json:"won"`
	Draw           int     `json:"draw"`
	Lost           int     `json:"lost"`
	GoalsFor       int     `json:"goals_for"`
	GoalsAgainst   int     `json:"goals_against"`
	GoalDifference int     `json:"goal_difference"`
	Points         int     `json:"points"`
	Elo            float64 `json:"elo,omitempty"`
}

// StandingsSource provides the upstream league table.
type StandingsSource interface {
	Standings(ctx context.Context, competition string) ([]api.FDStanding, error)
}

// TeamService reads stored teams for the API layer.
type TeamService interface {
	List(ctx context.Context, leagueID string) ([]models.Team, error)
	Get(ctx context.Context, id uint) (*models.Team, error)
	// Standings returns the current league table with each side's
	// stored rating merged in.
	Standings(ctx context.Context, leagueID string) ([]StandingRow, error)
}

type teamService struct {
	db       *gorm.DB
	football StandingsSource
}

func NewTeamService(db *gorm.DB, football StandingsSource) TeamService {
	return &teamService{db: db, football: football}
}

func (s *teamService) List(ctx context.Context, leagueID string) ([]models.Team, error) {
	q := s.db.WithContext(ctx).Order("current_elo DESC")
	if leagueID != "" {
		q = q.Where("league_id = ?", leagueID)
	}
	var teams []models.Team
	err := q.Find(&teams).Error
	return teams, err
}

func (s *teamService) Get(ctx context.Context, id uint) (*models.Team, error) {
	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *teamService) Standings(ctx context.Context, leagueID string) ([]StandingRow, error) {
	table, err := s.football.Standings(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("fetching %s standings: %w", leagueID, err)
	}

	var teams []models.Team
	if err := s.db.WithContext(ctx).Where("league_id = ?", leagueID).Find(&teams).Error; err != nil {
		return nil, err
	}
	eloByName := make(map[string]float64, len(teams))
	for _, t := range teams {
		eloByName[t.Name] = t.CurrentElo
	}

	rows := make([]StandingRow, 0, len(table))
	for _, st := range table {
		name := oddsmath.StandardizeTeamName(st.Team.Name)
		rows = append(rows, StandingRow{
			Position:       st.Position,
			Team:           name,
			Played:         st.PlayedGames,
			Won:            st.Won,
			Draw:           st.Draw,
			Lost:           st.Lost,
			GoalsFor:       st.GoalsFor,
			GoalsAgainst:   st.GoalsAgainst,
			GoalDifference: st.GoalDifference,
			Points:         st.Points,
			Elo:            eloByName[name],
		})
	}
	return rows, nil
}

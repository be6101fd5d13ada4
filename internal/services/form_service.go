package services

import (
	"context"
	"time"

	"github.com/JemAndrew/football-betting-bot/internal/config"
	"github.com/JemAndrew/football-betting-bot/internal/models"
	"github.com/JemAndrew/football-betting-bot/internal/oddsmath"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Momentum labels for team form trends.
const (
	MomentumPositive = "positive"
	MomentumNegative = "negative"
	MomentumNeutral  = "neutral"
)

// TeamForm summarizes a team's recent results, newest first.
type TeamForm struct {
	GamesPlayed      int     `json:"games_played"`
	Points           int     `json:"points"`
	PointsPerGame    float64 `json:"points_per_game"`
	Wins             int     `json:"wins"`
	Draws            int     `json:"draws"`
	Losses           int     `json:"losses"`
	WinRate          float64 `json:"win_rate"`
	GoalsFor         int     `json:"goals_for"`
	GoalsAgainst     int     `json:"goals_against"`
	GoalsForPerGame  float64 `json:"goals_for_per_game"`
	GoalsAgstPerGame float64 `json:"goals_against_per_game"`
	GoalDifference   int     `json:"goal_difference"`
	WeightedPoints   float64 `json:"weighted_points"`
	FormString       string  `json:"form_string"`
	Momentum         string  `json:"momentum"`
	CleanSheets      int     `json:"clean_sheets"`
	FailedToScore    int     `json:"failed_to_score"`
}

// Venue narrows form queries to one side of the pitch.
type Venue int

const (
	AnyVenue Venue = iota
	HomeOnly
	AwayOnly
)

// FormService computes recent-form metrics with exponential decay so
// yesterday's result counts more than one from three weeks ago.
type FormService interface {
	// TeamForm computes a team's form from matches finished strictly
	// before the given date.
	TeamForm(ctx context.Context, teamID uint, before time.Time, venue Venue) (*TeamForm, error)
	// MatchForm computes home-venue form for the home team and
	// away-venue form for the away team of an upcoming match.
	MatchForm(ctx context.Context, match *models.Match) (home, away *TeamForm, err error)
}

type formService struct {
	db     *gorm.DB
	cfg    config.FormConfig
	logger *zap.Logger
}

func NewFormService(db *gorm.DB, cfg config.FormConfig, logger *zap.Logger) FormService {
	return &formService{db: db, cfg: cfg, logger: logger.Named("form")}
}

func (s *formService) recentMatches(ctx context.Context, teamID uint, before time.Time, venue Venue) ([]models.Match, error) {
	q := s.db.WithContext(ctx).
		Where("status = ? AND date < ?", models.StatusFinished, before).
		Where("home_goals IS NOT NULL AND away_goals IS NOT NULL")

	switch venue {
	case HomeOnly:
		q = q.Where("home_team_id = ?", teamID)
	case AwayOnly:
		q = q.Where("away_team_id = ?", teamID)
	default:
		q = q.Where("home_team_id = ? OR away_team_id = ?", teamID, teamID)
	}

	var matches []models.Match
	err := q.Order("date DESC").Limit(s.cfg.LookbackGames).Find(&matches).Error
	return matches, err
}

// resultFor reads one match from the team's perspective.
func resultFor(m models.Match, teamID uint) (result byte, goalsFor, goalsAgainst, points int) {
	if m.HomeTeamID == teamID {
		goalsFor, goalsAgainst = *m.HomeGoals, *m.AwayGoals
	} else {
		goalsFor, goalsAgainst = *m.AwayGoals, *m.HomeGoals
	}
	points = oddsmath.FormPoints(goalsFor, goalsAgainst)
	switch points {
	case 3:
		result = 'W'
	case 1:
		result = 'D'
	default:
		result = 'L'
	}
	return result, goalsFor, goalsAgainst, points
}

func (s *formService) TeamForm(ctx context.Context, teamID uint, before time.Time, venue Venue) (*TeamForm, error) {
	matches, err := s.recentMatches(ctx, teamID, before, venue)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		s.logger.Debug("no finished matches for team", zap.Uint("team_id", teamID))
		return &TeamForm{Momentum: MomentumNeutral}, nil
	}

	weights := oddsmath.DecayWeights(len(matches), s.cfg.Decay)
	form := &TeamForm{GamesPlayed: len(matches)}
	formString := make([]byte, 0, len(matches))

	for i, m := range matches {
		result, gf, ga, pts := resultFor(m, teamID)
		form.Points += pts
		form.WeightedPoints += float64(pts) * weights[i]
		form.GoalsFor += gf
		form.GoalsAgainst += ga
		switch result {
		case 'W':
			form.Wins++
		case 'D':
			form.Draws++
		default:
			form.Losses++
		}
		if ga == 0 {
			form.CleanSheets++
		}
		if gf == 0 {
			form.FailedToScore++
		}
		formString = append(formString, result)
	}

	n := float64(form.GamesPlayed)
	form.PointsPerGame = float64(form.Points) / n
	form.GoalsForPerGame = float64(form.GoalsFor) / n
	form.GoalsAgstPerGame = float64(form.GoalsAgainst) / n
	form.WinRate = float64(form.Wins) / n
	form.GoalDifference = form.GoalsFor - form.GoalsAgainst
	form.FormString = string(formString)
	form.Momentum = momentum(matches, teamID)
	return form, nil
}

// momentum compares the newer half of the window to the older half. A
// swing of more than half a point per game marks a trend.
func momentum(matches []models.Match, teamID uint) string {
	if len(matches) < 4 {
		return MomentumNeutral
	}
	mid := len(matches) / 2
	recentPPG := pointsPerGame(matches[:mid], teamID)
	olderPPG := pointsPerGame(matches[mid:], teamID)
	switch {
	case recentPPG > olderPPG+0.5:
		return MomentumPositive
	case recentPPG < olderPPG-0.5:
		return MomentumNegative
	default:
		return MomentumNeutral
	}
}

func pointsPerGame(matches []models.Match, teamID uint) float64 {
	total := 0
	for _, m := range matches {
		_, _, _, pts := resultFor(m, teamID)
		total += pts
	}
	return float64(total) / float64(len(matches))
}

func (s *formService) MatchForm(ctx context.Context, match *models.Match) (*TeamForm, *TeamForm, error) {
	homeVenue, awayVenue := AnyVenue, AnyVenue
	if s.cfg.VenueSplit {
		homeVenue, awayVenue = HomeOnly, AwayOnly
	}

	home, err := s.TeamForm(ctx, match.HomeTeamID, match.Date, homeVenue)
	if err != nil {
		return nil, nil, err
	}
	away, err := s.TeamForm(ctx, match.AwayTeamID, match.Date, awayVenue)
	if err != nil {
		return nil, nil, err
	}
	return home, away, nil
}

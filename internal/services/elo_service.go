package services

import (
	"context"
	"fmt"
	"math"

	"github.com/JemAndrew/football-betting-bot/internal/config"
	"github.com/JemAndrew/football-betting-bot/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EloService maintains team strength ratings updated after every
// finished match.
type EloService interface {
	// ExpectedScore is the probability the team beats the opponent,
	// with home advantage applied when the team plays at home.
	ExpectedScore(teamElo, opponentElo float64, isHome bool) float64
	// UpdateRatings applies one finished match to both teams' ratings
	// and persists the new values.
	UpdateRatings(ctx context.Context, match *models.Match) error
	// Rebuild recomputes all ratings from scratch by replaying every
	// finished match in date order.
	Rebuild(ctx context.Context) (int, error)
	// PredictOutcome converts two ratings into rough 1X2 probabilities.
	PredictOutcome(homeElo, awayElo float64) (home, draw, away float64)
}

type eloService struct {
	db     *gorm.DB
	cfg    config.EloConfig
	logger *zap.Logger
}

func NewEloService(db *gorm.DB, cfg config.EloConfig, logger *zap.Logger) EloService {
	return &eloService{db: db, cfg: cfg, logger: logger.Named("elo")}
}

// Football draws cluster around a quarter of all matches.
const baseDrawProbability = 0.25

func (s *eloService) ExpectedScore(teamElo, opponentElo float64, isHome bool) float64 {
	if isHome {
		teamElo += s.cfg.HomeAdvantage
	}
	return 1.0 / (1.0 + math.Pow(10, (opponentElo-teamElo)/400.0))
}

// goalDiffMultiplier scales the K-factor so thrashings move ratings
// more than one-goal wins, capped so a single match cannot dominate.
func (s *eloService) goalDiffMultiplier(goalDiff int) float64 {
	if goalDiff <= 1 {
		return 1.0
	}
	m := 1.0 + math.Sqrt(float64(goalDiff-1))*s.cfg.GoalWeight*0.5
	return math.Min(m, 2.5)
}

func actualScore(homeGoals, awayGoals int) (home, away float64) {
	switch {
	case homeGoals > awayGoals:
		return 1.0, 0.0
	case homeGoals < awayGoals:
		return 0.0, 1.0
	default:
		return 0.5, 0.5
	}
}

func (s *eloService) UpdateRatings(ctx context.Context, match *models.Match) error {
	if !match.Finished() {
		return fmt.Errorf("match %d is not finished", match.ID)
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var home, away models.Team
	if err := tx.First(&home, match.HomeTeamID).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("loading home team %d: %w", match.HomeTeamID, err)
	}
	if err := tx.First(&away, match.AwayTeamID).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("loading away team %d: %w", match.AwayTeamID, err)
	}

	newHome, newAway := s.applyResult(home.CurrentElo, away.CurrentElo, *match.HomeGoals, *match.AwayGoals)

	if err := tx.Model(&home).Update("current_elo", newHome).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Model(&away).Update("current_elo", newAway).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	s.logger.Debug("ratings updated",
		zap.String("home", home.Name),
		zap.Float64("home_elo", newHome),
		zap.String("away", away.Name),
		zap.Float64("away_elo", newAway))
	return nil
}

func (s *eloService) applyResult(homeElo, awayElo float64, homeGoals, awayGoals int) (float64, float64) {
	homeExpected := s.ExpectedScore(homeElo, awayElo, true)
	awayExpected := 1.0 - homeExpected
	homeActual, awayActual := actualScore(homeGoals, awayGoals)

	goalDiff := homeGoals - awayGoals
	if goalDiff < 0 {
		goalDiff = -goalDiff
	}
	multiplier := s.goalDiffMultiplier(goalDiff)

	homeChange := s.cfg.KFactor * multiplier * (homeActual - homeExpected)
	awayChange := s.cfg.KFactor * multiplier * (awayActual - awayExpected)
	return homeElo + homeChange, awayElo + awayChange
}

func (s *eloService) Rebuild(ctx context.Context) (int, error) {
	var matches []models.Match
	err := s.db.WithContext(ctx).
		Where("status = ? AND home_goals IS NOT NULL AND away_goals IS NOT NULL", models.StatusFinished).
		Order("date ASC").
		Find(&matches).Error
	if err != nil {
		return 0, err
	}

	ratings := make(map[uint]float64)
	elo := func(teamID uint) float64 {
		if r, ok := ratings[teamID]; ok {
			return r
		}
		return models.DefaultElo
	}

	for _, m := range matches {
		newHome, newAway := s.applyResult(elo(m.HomeTeamID), elo(m.AwayTeamID), *m.HomeGoals, *m.AwayGoals)
		ratings[m.HomeTeamID] = newHome
		ratings[m.AwayTeamID] = newAway
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return 0, tx.Error
	}
	for teamID, rating := range ratings {
		if err := tx.Model(&models.Team{}).Where("id = ?", teamID).Update("current_elo", rating).Error; err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return 0, err
	}

	s.logger.Info("elo ratings rebuilt",
		zap.Int("matches", len(matches)),
		zap.Int("teams", len(ratings)))
	return len(matches), nil
}

func (s *eloService) PredictOutcome(homeElo, awayElo float64) (home, draw, away float64) {
	expected := s.ExpectedScore(homeElo, awayElo, true)
	draw = baseDrawProbability
	home = expected * (1 - draw)
	away = (1 - expected) * (1 - draw)
	return home, draw, away
}

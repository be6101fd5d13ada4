package services

import (
	"context"
	"time"

	"github.com/JemAndrew/football-betting-bot/internal/models"
	"gorm.io/gorm"
)

// MatchQuery narrows a match listing.
type MatchQuery struct {
	LeagueID  string
	Status    string
	DaysAhead int
	DaysBack  int
}

// MatchService reads stored matches for the API layer.
type MatchService interface {
	List(ctx context.Context, q MatchQuery) ([]models.Match, error)
	Get(ctx context.Context, id uint) (*models.Match, error)
}

type matchService struct {
	db *gorm.DB
}

func NewMatchService(db *gorm.DB) MatchService {
	return &matchService{db: db}
}

func (s *matchService) List(ctx context.Context, q MatchQuery) ([]models.Match, error) {
	tx := s.db.WithContext(ctx).
		Preload("HomeTeam").Preload("AwayTeam").
		Order("date ASC")
	if q.LeagueID != "" {
		tx = tx.Where("league_id = ?", q.LeagueID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	now := time.Now()
	if q.DaysAhead > 0 {
		tx = tx.Where("date <= ?", now.AddDate(0, 0, q.DaysAhead))
	}
	if q.DaysBack > 0 {
		tx = tx.Where("date >= ?", now.AddDate(0, 0, -q.DaysBack))
	}

	var matches []models.Match
	err := tx.Find(&matches).Error
	return matches, err
}

func (s *matchService) Get(ctx context.Context, id uint) (*models.Match, error) {
	var match models.Match
	err := s.db.WithContext(ctx).
		Preload("HomeTeam").Preload("AwayTeam").Preload("Referee").
		First(&match, id).Error
	if err != nil {
		return nil, err
	}
	return &match, nil
}

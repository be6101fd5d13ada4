package services

import (
	"context"

	"github.com/JemAndrew/football-betting-bot/internal/models"
	"github.com/JemAndrew/football-betting-bot/internal/oddsmath"
	"gorm.io/gorm"
)

// BestPrice is the highest stored price for one market selection,
// across all bookmakers that quoted it.
type BestPrice struct {
	Market             string  `json:"market"`
	Selection          string  `json:"selection"`
	Bookmaker          string  `json:"bookmaker"`
	Price              float64 `json:"price"`
	ImpliedProbability float64 `json:"implied_probability"`
}

// OddsService reads stored bookmaker prices for the API layer.
type OddsService interface {
	ListByMatch(ctx context.Context, matchID uint) ([]models.Odds, error)
	BestPrices(ctx context.Context, matchID uint) ([]BestPrice, error)
}

type oddsService struct {
	db *gorm.DB
}

func NewOddsService(db *gorm.DB) OddsService {
	return &oddsService{db: db}
}

func (s *oddsService) ListByMatch(ctx context.Context, matchID uint) ([]models.Odds, error) {
	var odds []models.Odds
	err := s.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("market, selection, price DESC").
		Find(&odds).Error
	return odds, err
}

func (s *oddsService) BestPrices(ctx context.Context, matchID uint) ([]BestPrice, error) {
	odds, err := s.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	type key struct{ market, selection string }
	best := make(map[key]BestPrice)
	var order []key
	for _, o := range odds {
		implied, err := oddsmath.ImpliedProbability(o.Price)
		if err != nil {
			continue
		}
		k := key{o.Market, o.Selection}
		if cur, ok := best[k]; ok && cur.Price >= o.Price {
			continue
		} else if !ok {
			order = append(order, k)
		}
		best[k] = BestPrice{
			Market:             o.Market,
			Selection:          o.Selection,
			Bookmaker:          o.Bookmaker,
			Price:              o.Price,
			ImpliedProbability: implied,
		}
	}

	out := make([]BestPrice, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out, nil
}

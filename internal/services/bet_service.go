package services

import (
	"context"
	"fmt"
	"time"

	"github.com/JemAndrew/football-betting-bot/internal/models"
	"github.com/JemAndrew/football-betting-bot/internal/validate"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BetLedger summarizes settled betting performance.
type BetLedger struct {
	Placed      int     `json:"placed"`
	Won         int     `json:"won"`
	Lost        int     `json:"lost"`
	Void        int     `json:"void"`
	Pending     int     `json:"pending"`
	TotalStaked float64 `json:"total_staked"`
	Profit      float64 `json:"profit"`
	ROI         float64 `json:"roi"`
}

// BetService records stakes and settles them against final scores.
type BetService interface {
	Place(ctx context.Context, req *models.CreateBetRequest, bankroll float64) (*models.Bet, error)
	Settle(ctx context.Context, betID uint, result string) (*models.Bet, error)
	// SettleFinished settles every pending bet whose match has a
	// final score, deciding the result from the market outcome.
	SettleFinished(ctx context.Context) (int, error)
	List(ctx context.Context) ([]models.Bet, error)
	Ledger(ctx context.Context) (*BetLedger, error)
}

type betService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewBetService(db *gorm.DB, logger *zap.Logger) BetService {
	return &betService{db: db, logger: logger.Named("bets")}
}

func (s *betService) Place(ctx context.Context, req *models.CreateBetRequest, bankroll float64) (*models.Bet, error) {
	if err := validate.Odds(req.Price); err != nil {
		return nil, err
	}
	if err := validate.Stake(req.Stake, bankroll); err != nil {
		return nil, err
	}

	var match models.Match
	if err := s.db.WithContext(ctx).First(&match, req.MatchID).Error; err != nil {
		return nil, fmt.Errorf("loading match %d: %w", req.MatchID, err)
	}
	if match.Finished() {
		return nil, fmt.Errorf("match %d already finished", req.MatchID)
	}

	bet := models.Bet{
		MatchID:   req.MatchID,
		Market:    req.Market,
		Selection: req.Selection,
		Stake:     req.Stake,
		Price:     req.Price,
		Strategy:  req.Strategy,
		Result:    models.BetPending,
	}
	if err := s.db.WithContext(ctx).Create(&bet).Error; err != nil {
		return nil, err
	}

	s.logger.Info("bet placed",
		zap.Uint("bet_id", bet.ID),
		zap.Uint("match_id", bet.MatchID),
		zap.String("market", bet.Market),
		zap.Float64("stake", bet.Stake),
		zap.Float64("price", bet.Price))
	return &bet, nil
}

func (s *betService) Settle(ctx context.Context, betID uint, result string) (*models.Bet, error) {
	switch result {
	case models.BetWon, models.BetLost, models.BetVoid:
	default:
		return nil, fmt.Errorf("invalid settlement result %q", result)
	}

	var bet models.Bet
	if err := s.db.WithContext(ctx).First(&bet, betID).Error; err != nil {
		return nil, err
	}
	if bet.Result != models.BetPending {
		return nil, fmt.Errorf("bet %d already settled as %s", betID, bet.Result)
	}

	bet.Settle(result, time.Now())
	if err := s.db.WithContext(ctx).Save(&bet).Error; err != nil {
		return nil, err
	}
	return &bet, nil
}

// marketHit decides whether a market selection won given a final score.
func marketHit(market string, match *models.Match) (won bool, known bool) {
	hg, ag := *match.HomeGoals, *match.AwayGoals
	switch market {
	case models.MarketHomeWin:
		return hg > ag, true
	case models.MarketDraw:
		return hg == ag, true
	case models.MarketAwayWin:
		return ag > hg, true
	case models.MarketOver25:
		return hg+ag > 2, true
	case models.MarketUnder25:
		return hg+ag <= 2, true
	case models.MarketBTTSYes:
		return hg > 0 && ag > 0, true
	case models.MarketBTTSNo:
		return hg == 0 || ag == 0, true
	case models.MarketHomeClean:
		return ag == 0, true
	case models.MarketAwayClean:
		return hg == 0, true
	default:
		return false, false
	}
}

func (s *betService) SettleFinished(ctx context.Context) (int, error) {
	var bets []models.Bet
	err := s.db.WithContext(ctx).
		Where("result = ?", models.BetPending).
		Find(&bets).Error
	if err != nil {
		return 0, err
	}

	settled := 0
	for i := range bets {
		bet := &bets[i]

		var match models.Match
		if err := s.db.WithContext(ctx).First(&match, bet.MatchID).Error; err != nil {
			return settled, err
		}
		if match.Status == models.StatusPostponed {
			bet.Settle(models.BetVoid, time.Now())
		} else if !match.Finished() {
			continue
		} else {
			won, known := marketHit(bet.Market, &match)
			if !known {
				s.logger.Warn("cannot settle unknown market",
					zap.Uint("bet_id", bet.ID), zap.String("market", bet.Market))
				continue
			}
			if won {
				bet.Settle(models.BetWon, time.Now())
			} else {
				bet.Settle(models.BetLost, time.Now())
			}
		}

		if err := s.db.WithContext(ctx).Save(bet).Error; err != nil {
			return settled, err
		}
		settled++
	}

	if settled > 0 {
		s.logger.Info("bets settled", zap.Int("count", settled))
	}
	return settled, nil
}

func (s *betService) List(ctx context.Context) ([]models.Bet, error) {
	var bets []models.Bet
	err := s.db.WithContext(ctx).Order("placed_at DESC").Find(&bets).Error
	return bets, err
}

func (s *betService) Ledger(ctx context.Context) (*BetLedger, error) {
	bets, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	ledger := &BetLedger{Placed: len(bets)}
	for _, b := range bets {
		switch b.Result {
		case models.BetWon:
			ledger.Won++
		case models.BetLost:
			ledger.Lost++
		case models.BetVoid:
			ledger.Void++
		default:
			ledger.Pending++
		}
		ledger.TotalStaked += b.Stake
		ledger.Profit += b.Profit
	}
	if ledger.TotalStaked > 0 {
		ledger.ROI = ledger.Profit / ledger.TotalStaked
	}
	return ledger, nil
}
